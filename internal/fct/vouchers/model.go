package vouchers

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/money"
)

// Status enumerates voucher lifecycle states.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPosted   Status = "posted"
	StatusRejected Status = "rejected"
	StatusVoided   Status = "voided"
)

var (
	// ErrNotFound indicates a missing voucher.
	ErrNotFound = errors.New("vouchers: voucher not found")
	// ErrInvalidTransition indicates a status change outside the table.
	ErrInvalidTransition = errors.New("vouchers: invalid status transition")
	// ErrEmptyLines rejects vouchers without lines.
	ErrEmptyLines = errors.New("vouchers: at least one line required")
	// ErrUnbalanced rejects lines whose debit/credit difference exceeds tolerance.
	ErrUnbalanced = errors.New("vouchers: lines must balance")
	// ErrMissingAccount rejects a line without an account code.
	ErrMissingAccount = errors.New("vouchers: line missing account code")
	// ErrVoidSource restricts voiding to draft or posted vouchers.
	ErrVoidSource = errors.New("vouchers: only draft or posted vouchers can be voided")
	// ErrRedFlushSource restricts red-flush to posted vouchers.
	ErrRedFlushSource = errors.New("vouchers: only posted vouchers can be red-flushed")
)

// Voucher is a balanced double-entry document. Vouchers are append-only:
// disposal happens through the voided status or a red-flush reversal,
// never a hard delete.
type Voucher struct {
	ID          int64     `json:"id"`
	VoucherNo   string    `json:"voucher_no"`
	TenantID    string    `json:"tenant_id"`
	EntityID    string    `json:"entity_id"`
	BizDate     time.Time `json:"biz_date"`
	EventType   string    `json:"event_type"`
	EventID     *string   `json:"event_id,omitempty"`
	Status      Status    `json:"status"`
	Description string    `json:"description"`
	Attachments []string  `json:"attachments,omitempty"`
	RedFlushOf  *int64    `json:"red_flush_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Lines       []Line    `json:"lines"`
}

// Line is one debit or credit leg. Immutable once the parent is posted.
type Line struct {
	ID          int64             `json:"id"`
	VoucherID   int64             `json:"voucher_id"`
	LineNo      int               `json:"line_no"`
	AccountCode string            `json:"account_code"`
	AccountName string            `json:"account_name"`
	Debit       decimal.Decimal   `json:"debit"`
	Credit      decimal.Decimal   `json:"credit"`
	Auxiliary   map[string]string `json:"auxiliary,omitempty"`
	Description string            `json:"description"`
}

// TotalDebit sums the debit side.
func (v Voucher) TotalDebit() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range v.Lines {
		sum = sum.Add(l.Debit)
	}
	return sum
}

// TotalCredit sums the credit side.
func (v Voucher) TotalCredit() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range v.Lines {
		sum = sum.Add(l.Credit)
	}
	return sum
}

// Balanced reports whether the voucher balances within tolerance.
func (v Voucher) Balanced() bool {
	return money.WithinTolerance(v.TotalDebit().Sub(v.TotalCredit()))
}

var transitions = map[Status][]Status{
	StatusDraft:    {StatusPosted, StatusRejected},
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusPosted},
}

// ValidateTransition is the exhaustive status transition table. Void and
// red-flush are separate operations, not transitions.
func ValidateTransition(current, target Status) error {
	for _, allowed := range transitions[current] {
		if allowed == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}
