package plans

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
	"github.com/kitchenledger/kitchenledger/internal/fct/money"
)

// YearBuckets enumerates, in order, every bucket label of a plan year
// at the given granularity.
func YearBuckets(year int, g ledger.Granularity) ([]string, error) {
	if _, err := ledger.PeriodsInYear(g); err != nil {
		return nil, err
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	var labels []string
	last := ""
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		key, err := ledger.BucketKey(g, d)
		if err != nil {
			return nil, err
		}
		if key != last {
			labels = append(labels, key)
			last = key
		}
	}
	return labels, nil
}

// BuildReport prorates the annual target evenly across the year's
// buckets and pairs it with actuals. Achievement percentages are nil
// when the plan side is zero.
func BuildReport(metric string, g ledger.Granularity, annual decimal.Decimal, labels []string, actuals map[string]decimal.Decimal) (Report, error) {
	classification, err := Classify(metric)
	if err != nil {
		return Report{}, err
	}
	periodsInYear, err := ledger.PeriodsInYear(g)
	if err != nil {
		return Report{}, err
	}
	n := decimal.NewFromInt(int64(periodsInYear))
	perBucket := decimal.Zero
	if !annual.IsZero() {
		perBucket = annual.Div(n)
	}
	report := Report{
		Metric:         metric,
		Granularity:    g,
		AnnualTarget:   annual,
		Classification: classification,
	}
	cumActual := decimal.Zero
	for i, label := range labels {
		actual := actuals[label]
		cumActual = cumActual.Add(actual)
		ordinal := decimal.NewFromInt(int64(i + 1))
		cumPlan := decimal.Zero
		if !annual.IsZero() {
			cumPlan = annual.Mul(ordinal).Div(n)
		}
		bucket := Bucket{
			Bucket:    label,
			Plan:      money.Round2(perBucket),
			Actual:    actual,
			CumPlan:   money.Round2(cumPlan),
			CumActual: cumActual,
		}
		bucket.Pct = achievement(actual, perBucket)
		bucket.CumPct = achievement(cumActual, cumPlan)
		report.Buckets = append(report.Buckets, bucket)
	}
	// Remaining = plan - cumulative actual: a shortfall for revenue-like
	// metrics, headroom for cost-like ones.
	report.Remaining = money.Round2(annual.Sub(cumActual))
	return report, nil
}

func achievement(actual, plan decimal.Decimal) *decimal.Decimal {
	if plan.IsZero() {
		return nil
	}
	pct := money.Round2(actual.Div(plan).Mul(decimal.NewFromInt(100)))
	return &pct
}
