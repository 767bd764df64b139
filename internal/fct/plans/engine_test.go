package plans

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestYearBucketsMonthly(t *testing.T) {
	labels, err := YearBuckets(2026, ledger.ByMonth)
	require.NoError(t, err)
	require.Len(t, labels, 12)
	require.Equal(t, "2026-01", labels[0])
	require.Equal(t, "2026-12", labels[11])
}

func TestYearBucketsQuarterly(t *testing.T) {
	labels, err := YearBuckets(2026, ledger.ByQuarter)
	require.NoError(t, err)
	require.Equal(t, []string{"2026-Q1", "2026-Q2", "2026-Q3", "2026-Q4"}, labels)
}

func TestYearBucketsDaily(t *testing.T) {
	labels, err := YearBuckets(2026, ledger.ByDay)
	require.NoError(t, err)
	require.Len(t, labels, 365)
	require.Equal(t, "2026-01-01", labels[0])
	require.Equal(t, "2026-12-31", labels[364])
}

func TestYearBucketsBadGranularity(t *testing.T) {
	_, err := YearBuckets(2026, "decade")
	require.ErrorIs(t, err, ledger.ErrBadGranularity)
}

func TestClassify(t *testing.T) {
	for _, m := range []string{MetricRevenue, MetricMargin, MetricCashIn} {
		cls, err := Classify(m)
		require.NoError(t, err)
		require.Equal(t, TargetRemaining, cls)
	}
	for _, m := range []string{MetricCost, MetricExpense, MetricCashOut} {
		cls, err := Classify(m)
		require.NoError(t, err)
		require.Equal(t, BudgetRemaining, cls)
	}
	_, err := Classify("vibes")
	require.ErrorIs(t, err, ErrUnknownMetric)
}

func TestBuildReportMonthlyProration(t *testing.T) {
	labels, err := YearBuckets(2026, ledger.ByMonth)
	require.NoError(t, err)

	actuals := map[string]decimal.Decimal{
		"2026-01": dec("1200.00"),
		"2026-02": dec("800.00"),
	}
	report, err := BuildReport(MetricRevenue, ledger.ByMonth, dec("12000.00"), labels, actuals)
	require.NoError(t, err)
	require.Equal(t, TargetRemaining, report.Classification)
	require.Len(t, report.Buckets, 12)

	jan := report.Buckets[0]
	require.True(t, jan.Plan.Equal(dec("1000.00")))
	require.True(t, jan.Actual.Equal(dec("1200.00")))
	require.NotNil(t, jan.Pct)
	require.True(t, jan.Pct.Equal(dec("120.00")))
	require.True(t, jan.CumPlan.Equal(dec("1000.00")))

	feb := report.Buckets[1]
	require.True(t, feb.CumPlan.Equal(dec("2000.00")))
	require.True(t, feb.CumActual.Equal(dec("2000.00")))
	require.NotNil(t, feb.CumPct)
	require.True(t, feb.CumPct.Equal(dec("100.00")))

	// Untouched months still carry the prorated plan.
	dec26 := report.Buckets[11]
	require.True(t, dec26.Actual.IsZero())
	require.True(t, dec26.CumPlan.Equal(dec("12000.00")))

	require.True(t, report.Remaining.Equal(dec("10000.00")))
}

func TestBuildReportProrationSumsToAnnual(t *testing.T) {
	labels, err := YearBuckets(2026, ledger.ByMonth)
	require.NoError(t, err)

	annual := dec("10000.00")
	report, err := BuildReport(MetricCost, ledger.ByMonth, annual, labels, nil)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, b := range report.Buckets {
		sum = sum.Add(b.Plan)
	}
	// Per-bucket values are rounded, so the sum may drift by cents.
	require.True(t, sum.Sub(annual).Abs().LessThanOrEqual(dec("0.12")), "sum %s", sum)
	// The cumulative column does not drift.
	require.True(t, report.Buckets[11].CumPlan.Equal(annual))
}

func TestBuildReportZeroPlan(t *testing.T) {
	labels, err := YearBuckets(2026, ledger.ByQuarter)
	require.NoError(t, err)

	report, err := BuildReport(MetricCashOut, ledger.ByQuarter, decimal.Zero, labels, map[string]decimal.Decimal{
		"2026-Q1": dec("500.00"),
	})
	require.NoError(t, err)
	require.Equal(t, BudgetRemaining, report.Classification)
	for _, b := range report.Buckets {
		require.Nil(t, b.Pct, "bucket %s", b.Bucket)
		require.Nil(t, b.CumPct, "bucket %s", b.Bucket)
	}
	require.True(t, report.Remaining.Equal(dec("-500.00")))
}

func TestBuildReportUnknownMetric(t *testing.T) {
	_, err := BuildReport("vibes", ledger.ByMonth, dec("1"), nil, nil)
	require.ErrorIs(t, err, ErrUnknownMetric)
}
