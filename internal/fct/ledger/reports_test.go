package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func row(code string, debit, credit string, date time.Time) EntryRow {
	return EntryRow{
		AccountCode: code,
		AccountName: code,
		Debit:       dec(debit),
		Credit:      dec(credit),
		BizDate:     date,
	}
}

var march15 = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func settlementRows(date time.Time) []EntryRow {
	return []EntryRow{
		row("1002", "70.00", "0", date),
		row("1001", "30.00", "0", date),
		row("6001", "0", "91.74", date),
		row("22210101", "0", "8.26", date),
	}
}

func TestBuildBalances(t *testing.T) {
	rows := append(settlementRows(march15), row("1002", "25.00", "5.00", march15))
	balances := BuildBalances(rows)
	require.Len(t, balances, 4)

	// Sorted by account code.
	require.Equal(t, "1001", balances[0].AccountCode)
	require.Equal(t, "1002", balances[1].AccountCode)
	require.Equal(t, "22210101", balances[2].AccountCode)
	require.Equal(t, "6001", balances[3].AccountCode)

	bank := balances[1]
	require.True(t, bank.Debit.Equal(dec("95.00")))
	require.True(t, bank.Credit.Equal(dec("5.00")))
	require.True(t, bank.Balance.Equal(dec("90.00")))

	revenue := balances[3]
	require.True(t, revenue.Balance.Equal(dec("-91.74")), "credit accounts carry negative signed balance")
}

func TestBuildSummaryBuckets(t *testing.T) {
	rows := []EntryRow{
		row("6001", "0", "200.00", march15),        // revenue
		row("6001", "10.00", "0", march15),         // revenue reversal
		row("1405", "80.00", "0", march15),         // cost
		row("6601", "30.00", "0", march15),         // sales expense
		row("22210101", "0", "16.00", march15),     // output tax
		row("22210102", "6.00", "0", march15),      // input tax
		row("22210199", "99.00", "99.00", march15), // other VAT sub-account, ignored
		row("1002", "200.00", "0", march15),        // asset, no bucket
	}
	s := BuildSummary(rows, DefaultConvention())

	require.True(t, s.Revenue.Equal(dec("190.00")))
	require.True(t, s.Cost.Equal(dec("80.00")))
	require.True(t, s.Expense.Equal(dec("30.00")), "66-family lands in expense, not revenue")
	require.True(t, s.GrossMargin.Equal(dec("110.00")))
	require.True(t, s.OutputVAT.Equal(dec("16.00")))
	require.True(t, s.InputVAT.Equal(dec("6.00")))
	require.True(t, s.NetVAT.Equal(dec("10.00")))
	require.NotNil(t, s.MarginPct)
	require.True(t, s.MarginPct.Equal(dec("57.89")))
}

func TestBuildSummaryZeroRevenue(t *testing.T) {
	s := BuildSummary([]EntryRow{row("1405", "50.00", "0", march15)}, DefaultConvention())
	require.Nil(t, s.MarginPct, "margin pct undefined without revenue")
	require.True(t, s.GrossMargin.Equal(dec("-50.00")))
}

func TestGroupSummaries(t *testing.T) {
	rows := settlementRows(march15)
	rows[0].EntityID = "s001"
	rows[1].EntityID = "s001"
	rows[2].EntityID = "s002"
	rows[3].EntityID = "s002"

	groups := GroupSummaries(rows, DefaultConvention(), func(r EntryRow) string { return r.EntityID })
	require.Len(t, groups, 2)
	require.Equal(t, "s001", groups[0].Key)
	require.Equal(t, "s002", groups[1].Key)
	require.True(t, groups[1].Summary.Revenue.Equal(dec("91.74")))
}

func TestTotals(t *testing.T) {
	debit, credit := Totals(settlementRows(march15))
	require.True(t, debit.Equal(dec("100.00")))
	require.True(t, credit.Equal(dec("100.00")))
}

func TestBucketKey(t *testing.T) {
	d := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		g    Granularity
		want string
	}{
		{ByDay, "2026-03-15"},
		{ByWeek, "2026-W11"},
		{ByMonth, "2026-03"},
		{ByQuarter, "2026-Q1"},
	}
	for _, tc := range cases {
		got, err := BucketKey(tc.g, d)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := BucketKey("decade", d)
	require.ErrorIs(t, err, ErrBadGranularity)
}

func TestBuildTrend(t *testing.T) {
	rows := append(settlementRows(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)),
		settlementRows(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))...)
	rows = append(rows, settlementRows(time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC))...)

	points, err := BuildTrend(rows, DefaultConvention(), ByMonth)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, "2026-01", points[0].Bucket)
	require.Equal(t, "2026-02", points[1].Bucket)
	require.True(t, points[0].Summary.Revenue.Equal(dec("91.74")))
	require.True(t, points[1].Summary.Revenue.Equal(dec("183.48")))
}

func TestBaselineWindow(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	bFrom, bTo, err := BaselineWindow(YoY, from, to)
	require.NoError(t, err)
	require.Equal(t, 2025, bFrom.Year())
	require.Equal(t, time.March, bFrom.Month())

	bFrom, bTo, err = BaselineWindow(MoM, from, to)
	require.NoError(t, err)
	require.Equal(t, time.February, bFrom.Month())
	require.Equal(t, time.March, bTo.Month(), "Feb has no 31st; Go normalizes forward")

	_, _, err = BaselineWindow("wow", from, to)
	require.ErrorIs(t, err, ErrBadCompareMode)
}

func TestBuildComparison(t *testing.T) {
	current := Summary{Revenue: dec("120.00"), Cost: dec("60.00"), GrossMargin: dec("60.00"), NetVAT: dec("12.00")}
	baseline := Summary{Revenue: dec("100.00"), Cost: dec("50.00"), GrossMargin: dec("50.00")}

	c := BuildComparison(YoY, current, baseline)
	require.Equal(t, YoY, c.Mode)
	require.NotNil(t, c.Revenue.Pct)
	require.True(t, c.Revenue.Pct.Equal(dec("20.00")))
	require.NotNil(t, c.Cost.Pct)
	require.True(t, c.Cost.Pct.Equal(dec("20.00")))
	require.Nil(t, c.NetVAT.Pct, "zero baseline yields no percentage")
	require.True(t, c.NetVAT.Current.Equal(dec("12.00")))
}

func TestBuildComparisonNegativeBaseline(t *testing.T) {
	c := BuildComparison(MoM,
		Summary{GrossMargin: dec("10.00")},
		Summary{GrossMargin: dec("-20.00")})
	require.NotNil(t, c.Margin.Pct)
	require.True(t, c.Margin.Pct.Equal(dec("150.00")), "pct uses absolute baseline")
}
