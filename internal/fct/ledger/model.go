package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Filter narrows ledger queries. Voided vouchers are always excluded;
// PostedOnly additionally drops everything not yet posted.
type Filter struct {
	TenantID      string
	EntityIDs     []string
	From          time.Time
	To            time.Time
	PostedOnly    bool
	AccountPrefix string
}

// EntryRow is one voucher line joined with its header, the unit the
// query layer aggregates over.
type EntryRow struct {
	VoucherID   int64           `json:"voucher_id"`
	VoucherNo   string          `json:"voucher_no"`
	EntityID    string          `json:"entity_id"`
	BizDate     time.Time       `json:"biz_date"`
	EventType   string          `json:"event_type"`
	Status      string          `json:"status"`
	LineNo      int             `json:"line_no"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// AccountBalance aggregates one account's movement with a signed
// balance (debit - credit).
type AccountBalance struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// Summary is the multi-dimensional aggregate derived from the
// account-code conventions: "6"-prefixed revenue, the inventory account
// as cost, and the 2221 family as VAT.
type Summary struct {
	Revenue     decimal.Decimal `json:"revenue"`
	Expense     decimal.Decimal `json:"expense"`
	Cost        decimal.Decimal `json:"cost"`
	GrossMargin decimal.Decimal `json:"gross_margin"`
	// MarginPct is nil when revenue is zero.
	MarginPct *decimal.Decimal `json:"margin_pct"`
	OutputVAT decimal.Decimal  `json:"output_vat"`
	InputVAT  decimal.Decimal  `json:"input_vat"`
	NetVAT    decimal.Decimal  `json:"net_vat"`
}

// EntitySummary is the aggregate grouped by one dimension value
// (entity code or region bucket).
type EntitySummary struct {
	Key     string  `json:"key"`
	Summary Summary `json:"summary"`
}

// Granularity enumerates trend bucket widths.
type Granularity string

const (
	ByDay     Granularity = "day"
	ByWeek    Granularity = "week"
	ByMonth   Granularity = "month"
	ByQuarter Granularity = "quarter"
)

// ErrBadGranularity rejects unknown bucket widths.
var ErrBadGranularity = errors.New("ledger: unknown granularity")

// TrendPoint is one time bucket of the trend series.
type TrendPoint struct {
	Bucket  string  `json:"bucket"`
	Summary Summary `json:"summary"`
}

// CompareMode enumerates relative comparison baselines.
type CompareMode string

const (
	YoY CompareMode = "yoy"
	MoM CompareMode = "mom"
	QoQ CompareMode = "qoq"
)

// ErrBadCompareMode rejects unknown comparison modes.
var ErrBadCompareMode = errors.New("ledger: unknown comparison mode")

// Delta is a current-vs-baseline metric pair; Pct is nil when the
// baseline is zero.
type Delta struct {
	Current  decimal.Decimal  `json:"current"`
	Baseline decimal.Decimal  `json:"baseline"`
	Pct      *decimal.Decimal `json:"pct"`
}

// Comparison is the relative report for one window.
type Comparison struct {
	Mode    CompareMode `json:"mode"`
	Revenue Delta       `json:"revenue"`
	Cost    Delta       `json:"cost"`
	Margin  Delta       `json:"margin"`
	NetVAT  Delta       `json:"net_vat"`
}

// PeriodSummary condenses one accounting period.
type PeriodSummary struct {
	PeriodKey    string          `json:"period_key"`
	VoucherCount int             `json:"voucher_count"`
	TotalDebit   decimal.Decimal `json:"total_debit"`
	TotalCredit  decimal.Decimal `json:"total_credit"`
	Summary      Summary         `json:"summary"`
}
