package budget

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type enumerates budget kinds.
type Type string

const (
	TypeProject Type = "project"
	TypePeriod  Type = "period"
)

// Budget caps spending for a (tenant, entity, type, period, category)
// scope. Entity "" is a tenant-level budget. Used is mutated only by
// occupation and explicit reset.
type Budget struct {
	ID        int64           `json:"id"`
	TenantID  string          `json:"tenant_id"`
	EntityID  string          `json:"entity_id"`
	Type      Type            `json:"budget_type"`
	Period    string          `json:"period"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Used      decimal.Decimal `json:"used"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Remaining is the headroom left under the cap.
func (b Budget) Remaining() decimal.Decimal {
	return b.Amount.Sub(b.Used)
}

// Control configures enforcement for a scope. Resolution falls back
// from the exact (entity, category) row to the tenant-wide ("","")
// default; with neither, spending is neither enforced nor occupied.
type Control struct {
	ID           int64     `json:"id"`
	TenantID     string    `json:"tenant_id"`
	EntityID     string    `json:"entity_id"`
	Type         Type      `json:"budget_type"`
	Category     string    `json:"category"`
	EnforceCheck bool      `json:"enforce_check"`
	AutoOccupy   bool      `json:"auto_occupy"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CheckResult is the advisory check outcome.
type CheckResult struct {
	Allowed     bool            `json:"allowed"`
	Constrained bool            `json:"constrained"`
	Remaining   decimal.Decimal `json:"remaining"`
	OverBy      decimal.Decimal `json:"over_by"`
}

// ErrNotFound indicates a missing budget row.
var ErrNotFound = errors.New("budget: budget not found")

// ExceededError reports a failed enforced check with the detail the
// caller needs to explain the rejection.
type ExceededError struct {
	Remaining decimal.Decimal
	Requested decimal.Decimal
	OverBy    decimal.Decimal
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget: exceeded: remaining %s, requested %s, over by %s",
		e.Remaining.StringFixed(2), e.Requested.StringFixed(2), e.OverBy.StringFixed(2))
}

// IsExceeded reports whether err is a budget rejection.
func IsExceeded(err error) bool {
	var e *ExceededError
	return errors.As(err, &e)
}
