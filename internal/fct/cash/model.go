package cash

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a cash movement.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// TxStatus enumerates reconciliation states.
type TxStatus string

const (
	StatusPending TxStatus = "pending"
	StatusMatched TxStatus = "matched"
)

// Transaction is one recorded cash movement awaiting reconciliation.
type Transaction struct {
	ID          int64           `json:"id"`
	TenantID    string          `json:"tenant_id"`
	EntityID    string          `json:"entity_id"`
	TxDate      time.Time       `json:"tx_date"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	RefType     string          `json:"ref_type"`
	RefID       string          `json:"ref_id"`
	Status      TxStatus        `json:"status"`
	MatchID     *string         `json:"match_id,omitempty"`
	VoucherID   *int64          `json:"voucher_id,omitempty"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

var (
	// ErrNotFound indicates a missing cash transaction.
	ErrNotFound = errors.New("cash: transaction not found")
	// ErrNotPending restricts matching to pending transactions.
	ErrNotPending = errors.New("cash: only pending transactions can be matched")
	// ErrNotMatched restricts unmatching to matched transactions.
	ErrNotMatched = errors.New("cash: only matched transactions can be unmatched")
	// ErrFundExhausted blocks petty-cash offsets beyond the balance.
	ErrFundExhausted = errors.New("cash: petty cash balance insufficient")
)

// RowError reports one failed import row.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult summarises a bulk import: duplicates are skipped, bad
// rows collect errors, neither fails the batch.
type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Petty-cash record kinds.
const (
	PettyApply  = "apply"
	PettyOffset = "offset"
	PettyRepay  = "repay"
)

// PettyCash is a revolving fund; the balance is the sum of applies
// minus offsets and repayments and never goes negative.
type PettyCash struct {
	ID        int64           `json:"id"`
	TenantID  string          `json:"tenant_id"`
	EntityID  string          `json:"entity_id"`
	Holder    string          `json:"holder"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PettyCashRecord is one fund movement.
type PettyCashRecord struct {
	ID          int64           `json:"id"`
	PettyCashID int64           `json:"petty_cash_id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
	At          time.Time       `json:"at"`
}
