package vouchers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/money"
)

// EventInput is what the intake layer hands the rule engine.
type EventInput struct {
	TenantID   string
	EntityID   string
	EventID    string
	EventType  string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// ManualLineInput is one caller-supplied line.
type ManualLineInput struct {
	AccountCode string
	AccountName string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Auxiliary   map[string]string
	Description string
}

// ManualVoucherInput groups fields for create_manual_voucher.
type ManualVoucherInput struct {
	TenantID    string
	EntityID    string
	BizDate     time.Time
	Description string
	Attachments []string
	// Submit creates the voucher in pending instead of draft.
	Submit bool
	// BudgetCategory opts the voucher into budget pre-check/auto-occupy.
	BudgetCategory string
	Lines          []ManualLineInput
}

// Validate rejects unbalanced, empty, or account-less manual vouchers.
// Manual imbalance beyond tolerance is a hard failure, unlike
// rule-generated vouchers which absorb it into an adjustment line.
func (in ManualVoucherInput) Validate() error {
	if in.TenantID == "" || in.EntityID == "" {
		return errors.New("vouchers: tenant and entity required")
	}
	if in.BizDate.IsZero() {
		return errors.New("vouchers: biz_date required")
	}
	if len(in.Lines) == 0 {
		return ErrEmptyLines
	}
	sides := make([]money.Side, 0, len(in.Lines))
	for i, line := range in.Lines {
		if strings.TrimSpace(line.AccountCode) == "" {
			return fmt.Errorf("%w: line %d", ErrMissingAccount, i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("vouchers: line %d negative amount", i+1)
		}
		sides = append(sides, money.Side{Debit: line.Debit, Credit: line.Credit})
	}
	if !money.Balanced(sides) {
		return fmt.Errorf("%w: difference %s", ErrUnbalanced, money.Difference(sides).StringFixed(2))
	}
	return nil
}

// ApprovalRecord traces one status change for audit.
type ApprovalRecord struct {
	ID         int64
	TenantID   string
	VoucherID  int64
	FromStatus Status
	ToStatus   Status
	Actor      string
	Note       string
	At         time.Time
}

// ListFilter narrows voucher listings.
type ListFilter struct {
	TenantID  string
	EntityID  string
	Status    Status
	EventType string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
