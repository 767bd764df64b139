package plans

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
)

// Plan carries a year's annual targets per metric.
type Plan struct {
	ID        int64                      `json:"id"`
	TenantID  string                     `json:"tenant_id"`
	EntityID  string                     `json:"entity_id"`
	PlanYear  int                        `json:"plan_year"`
	Targets   map[string]decimal.Decimal `json:"targets"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// Metrics the plan engine understands. Revenue-like metrics report
// "target remaining" (positive = shortfall); cost-like metrics report
// "budget remaining" (positive = headroom). The two sets are disjoint.
const (
	MetricRevenue = "revenue"
	MetricMargin  = "gross_margin"
	MetricCashIn  = "cash_in"
	MetricCost    = "cost"
	MetricExpense = "expense"
	MetricCashOut = "cash_out"
)

var revenueLike = map[string]bool{
	MetricRevenue: true,
	MetricMargin:  true,
	MetricCashIn:  true,
}

var costLike = map[string]bool{
	MetricCost:    true,
	MetricExpense: true,
	MetricCashOut: true,
}

// Remaining classifications.
const (
	TargetRemaining = "target_remaining"
	BudgetRemaining = "budget_remaining"
)

var (
	// ErrNotFound indicates a missing plan.
	ErrNotFound = errors.New("plans: plan not found")
	// ErrUnknownMetric rejects metrics outside the two fixed sets.
	ErrUnknownMetric = errors.New("plans: unknown metric")
)

// Classify maps a metric to its remaining semantics.
func Classify(metric string) (string, error) {
	switch {
	case revenueLike[metric]:
		return TargetRemaining, nil
	case costLike[metric]:
		return BudgetRemaining, nil
	}
	return "", ErrUnknownMetric
}

// Bucket is one granularity slice of the plan-vs-actual report.
type Bucket struct {
	Bucket    string           `json:"bucket"`
	Plan      decimal.Decimal  `json:"plan"`
	Actual    decimal.Decimal  `json:"actual"`
	Pct       *decimal.Decimal `json:"achievement_pct"`
	CumPlan   decimal.Decimal  `json:"cumulative_plan"`
	CumActual decimal.Decimal  `json:"cumulative_actual"`
	CumPct    *decimal.Decimal `json:"cumulative_achievement_pct"`
}

// Report is the plan-vs-actual answer for one metric and granularity.
type Report struct {
	Metric         string             `json:"metric"`
	Granularity    ledger.Granularity `json:"granularity"`
	AnnualTarget   decimal.Decimal    `json:"annual_target"`
	Classification string             `json:"classification"`
	Remaining      decimal.Decimal    `json:"remaining"`
	Buckets        []Bucket           `json:"buckets"`
}
