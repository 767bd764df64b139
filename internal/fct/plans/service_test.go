package plans

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/kitchenledger/internal/fct/cash"
	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
)

type memoryPlanRepo struct {
	plans  map[string]*Plan
	nextID int64
}

func newMemoryPlanRepo() *memoryPlanRepo {
	return &memoryPlanRepo{plans: make(map[string]*Plan)}
}

func planKey(tenantID, entityID string, year int) string {
	return tenantID + "/" + entityID + "/" + strconv.Itoa(year)
}

func (r *memoryPlanRepo) Upsert(ctx context.Context, p Plan) (Plan, error) {
	key := planKey(p.TenantID, p.EntityID, p.PlanYear)
	if existing, ok := r.plans[key]; ok {
		existing.Targets = p.Targets
		return *existing, nil
	}
	r.nextID++
	p.ID = r.nextID
	stored := p
	r.plans[key] = &stored
	return p, nil
}

func (r *memoryPlanRepo) Get(ctx context.Context, tenantID, entityID string, year int) (Plan, error) {
	p, ok := r.plans[planKey(tenantID, entityID, year)]
	if !ok {
		return Plan{}, ErrNotFound
	}
	return *p, nil
}

type stubTrend struct {
	points []ledger.TrendPoint
	filter ledger.Filter
}

func (s *stubTrend) Trend(ctx context.Context, f ledger.Filter, g ledger.Granularity) ([]ledger.TrendPoint, error) {
	s.filter = f
	return s.points, nil
}

type stubCash struct {
	txs []cash.Transaction
}

func (s *stubCash) List(ctx context.Context, tenantID, entityID string, status cash.TxStatus) ([]cash.Transaction, error) {
	return s.txs, nil
}

func TestSaveValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryPlanRepo(), &stubTrend{}, &stubCash{})

	_, err := svc.Save(ctx, Plan{TenantID: "t1", EntityID: "s001", PlanYear: 1999,
		Targets: map[string]decimal.Decimal{MetricRevenue: dec("1")}})
	require.Error(t, err)

	_, err = svc.Save(ctx, Plan{TenantID: "t1", EntityID: "s001", PlanYear: 2026,
		Targets: map[string]decimal.Decimal{"vibes": dec("1")}})
	require.ErrorIs(t, err, ErrUnknownMetric)

	p, err := svc.Save(ctx, Plan{TenantID: "t1", EntityID: "s001", PlanYear: 2026,
		Targets: map[string]decimal.Decimal{MetricRevenue: dec("12000.00"), MetricCost: dec("6000.00")}})
	require.NoError(t, err)
	require.NotZero(t, p.ID)
}

func TestPlanVsActualRevenue(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryPlanRepo()
	trend := &stubTrend{points: []ledger.TrendPoint{
		{Bucket: "2026-01", Summary: ledger.Summary{Revenue: dec("1100.00")}},
		{Bucket: "2026-02", Summary: ledger.Summary{Revenue: dec("900.00")}},
	}}
	svc := NewService(repo, trend, &stubCash{})

	_, err := svc.Save(ctx, Plan{TenantID: "t1", EntityID: "s001", PlanYear: 2026,
		Targets: map[string]decimal.Decimal{MetricRevenue: dec("12000.00")}})
	require.NoError(t, err)

	report, err := svc.PlanVsActual(ctx, "t1", "s001", 2026, MetricRevenue, ledger.ByMonth)
	require.NoError(t, err)
	require.Equal(t, TargetRemaining, report.Classification)
	require.Len(t, report.Buckets, 12)
	require.True(t, report.Buckets[0].Actual.Equal(dec("1100.00")))
	require.True(t, report.Buckets[1].CumActual.Equal(dec("2000.00")))
	require.True(t, report.Remaining.Equal(dec("10000.00")))

	require.True(t, trend.filter.PostedOnly, "actuals come from posted vouchers only")
	require.Equal(t, []string{"s001"}, trend.filter.EntityIDs)
	require.Equal(t, 2026, trend.filter.From.Year())
}

func TestPlanVsActualMissingPlan(t *testing.T) {
	ctx := context.Background()
	trend := &stubTrend{points: []ledger.TrendPoint{
		{Bucket: "2026-01", Summary: ledger.Summary{Revenue: dec("500.00")}},
	}}
	svc := NewService(newMemoryPlanRepo(), trend, &stubCash{})

	report, err := svc.PlanVsActual(ctx, "t1", "s001", 2026, MetricRevenue, ledger.ByMonth)
	require.NoError(t, err, "a missing plan is a zero target, not an error")
	require.True(t, report.AnnualTarget.IsZero())
	for _, b := range report.Buckets {
		require.Nil(t, b.Pct)
	}
	require.True(t, report.Buckets[0].Actual.Equal(dec("500.00")))
}

func TestPlanVsActualCashOut(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryPlanRepo()
	cashSrc := &stubCash{txs: []cash.Transaction{
		{Direction: cash.DirectionOut, TxDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), Amount: dec("300.00")},
		{Direction: cash.DirectionOut, TxDate: time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), Amount: dec("200.00")},
		{Direction: cash.DirectionIn, TxDate: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), Amount: dec("999.00")},
		{Direction: cash.DirectionOut, TxDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Amount: dec("999.00")},
	}}
	svc := NewService(repo, &stubTrend{}, cashSrc)

	_, err := svc.Save(ctx, Plan{TenantID: "t1", EntityID: "s001", PlanYear: 2026,
		Targets: map[string]decimal.Decimal{MetricCashOut: dec("6000.00")}})
	require.NoError(t, err)

	report, err := svc.PlanVsActual(ctx, "t1", "s001", 2026, MetricCashOut, ledger.ByMonth)
	require.NoError(t, err)
	require.Equal(t, BudgetRemaining, report.Classification)
	jan := report.Buckets[0]
	require.True(t, jan.Actual.Equal(dec("500.00")), "only same-year outflows bucket into cash_out")
	require.True(t, report.Remaining.Equal(dec("5500.00")))
}

func TestPlanVsActualUnknownMetric(t *testing.T) {
	svc := NewService(newMemoryPlanRepo(), &stubTrend{}, &stubCash{})
	_, err := svc.PlanVsActual(context.Background(), "t1", "s001", 2026, "vibes", ledger.ByMonth)
	require.ErrorIs(t, err, ErrUnknownMetric)
}
