package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/money"
)

// BaselineWindow derives the comparison window for a mode by shifting
// the current window back one year, month, or quarter.
func BaselineWindow(mode CompareMode, from, to time.Time) (time.Time, time.Time, error) {
	switch mode {
	case YoY:
		return from.AddDate(-1, 0, 0), to.AddDate(-1, 0, 0), nil
	case MoM:
		return from.AddDate(0, -1, 0), to.AddDate(0, -1, 0), nil
	case QoQ:
		return from.AddDate(0, -3, 0), to.AddDate(0, -3, 0), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadCompareMode, mode)
}

// BuildComparison pairs the current aggregate with its baseline and
// computes percentage deltas; a zero baseline yields a nil percentage.
func BuildComparison(mode CompareMode, current, baseline Summary) Comparison {
	return Comparison{
		Mode:    mode,
		Revenue: delta(current.Revenue, baseline.Revenue),
		Cost:    delta(current.Cost, baseline.Cost),
		Margin:  delta(current.GrossMargin, baseline.GrossMargin),
		NetVAT:  delta(current.NetVAT, baseline.NetVAT),
	}
}

func delta(current, baseline decimal.Decimal) Delta {
	d := Delta{Current: current, Baseline: baseline}
	if baseline.IsZero() {
		return d
	}
	pct := money.Round2(current.Sub(baseline).Div(baseline.Abs()).Mul(decimal.NewFromInt(100)))
	d.Pct = &pct
	return d
}
