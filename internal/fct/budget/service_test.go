package budget

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryBudgetRepo struct {
	budgets  map[Key]*Budget
	controls map[string]*Control
	nextID   int64
}

func newMemoryBudgetRepo() *memoryBudgetRepo {
	return &memoryBudgetRepo{
		budgets:  make(map[Key]*Budget),
		controls: make(map[string]*Control),
	}
}

func controlKey(tenantID, entityID, category string) string {
	return tenantID + "/" + entityID + "/" + category
}

func (r *memoryBudgetRepo) UpsertBudget(ctx context.Context, b Budget) (Budget, error) {
	k := Key{TenantID: b.TenantID, EntityID: b.EntityID, Type: b.Type, Period: b.Period, Category: b.Category}
	if existing, ok := r.budgets[k]; ok {
		existing.Amount = b.Amount
		return *existing, nil
	}
	r.nextID++
	b.ID = r.nextID
	stored := b
	r.budgets[k] = &stored
	return b, nil
}

func (r *memoryBudgetRepo) GetBudget(ctx context.Context, k Key) (Budget, error) {
	b, ok := r.budgets[k]
	if !ok {
		return Budget{}, ErrNotFound
	}
	return *b, nil
}

func (r *memoryBudgetRepo) AddUsed(ctx context.Context, k Key, amount decimal.Decimal) error {
	b, ok := r.budgets[k]
	if !ok {
		return ErrNotFound
	}
	b.Used = b.Used.Add(amount)
	return nil
}

func (r *memoryBudgetRepo) AddUsedWithinCap(ctx context.Context, k Key, amount decimal.Decimal) (bool, error) {
	b, ok := r.budgets[k]
	if !ok {
		return false, ErrNotFound
	}
	if b.Used.Add(amount).Cmp(b.Amount) > 0 {
		return false, nil
	}
	b.Used = b.Used.Add(amount)
	return true, nil
}

func (r *memoryBudgetRepo) ResetUsed(ctx context.Context, k Key) error {
	b, ok := r.budgets[k]
	if !ok {
		return ErrNotFound
	}
	b.Used = decimal.Zero
	return nil
}

func (r *memoryBudgetRepo) UpsertControl(ctx context.Context, c Control) (Control, error) {
	r.nextID++
	c.ID = r.nextID
	stored := c
	r.controls[controlKey(c.TenantID, c.EntityID, c.Category)] = &stored
	return c, nil
}

func (r *memoryBudgetRepo) GetControl(ctx context.Context, tenantID, entityID, category string) (Control, error) {
	c, ok := r.controls[controlKey(tenantID, entityID, category)]
	if !ok {
		return Control{}, ErrNotFound
	}
	return *c, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedBudget(t *testing.T, repo *memoryBudgetRepo, amount, used string) Key {
	t.Helper()
	k := Key{TenantID: "t1", EntityID: "s001", Type: TypePeriod, Period: "202603", Category: "marketing"}
	_, err := repo.UpsertBudget(context.Background(), Budget{
		TenantID: k.TenantID, EntityID: k.EntityID, Type: k.Type,
		Period: k.Period, Category: k.Category, Amount: dec(amount),
	})
	require.NoError(t, err)
	repo.budgets[k].Used = dec(used)
	return k
}

func TestCheckOverBudget(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")

	res, err := svc.Check(ctx, k, dec("300.00"))
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.True(t, res.Constrained)
	require.True(t, res.Remaining.Equal(dec("200.00")))
	require.True(t, res.OverBy.Equal(dec("100.00")))
}

func TestCheckWithinBudget(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")

	res, err := svc.Check(ctx, k, dec("200.00"))
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.True(t, res.Constrained)
	require.True(t, res.OverBy.IsZero())
}

func TestCheckUnconstrainedScope(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryBudgetRepo())

	res, err := svc.Check(ctx, Key{TenantID: "t1", Period: "202603", Category: "none"}, dec("999999.00"))
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.False(t, res.Constrained)
}

func TestOccupyIncrementsWithoutCheck(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")

	require.NoError(t, svc.Occupy(ctx, k, dec("500.00")))
	b, err := repo.GetBudget(ctx, k)
	require.NoError(t, err)
	require.True(t, b.Used.Equal(dec("1300.00")), "occupy never re-checks")
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")

	require.NoError(t, svc.Reset(ctx, k))
	b, err := repo.GetBudget(ctx, k)
	require.NoError(t, err)
	require.True(t, b.Used.IsZero())
}

func TestAuthorizeNoControl(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")

	err := svc.Authorize(ctx, "t1", "s001", "marketing", "202603", dec("5000.00"))
	require.NoError(t, err, "no control means no enforcement")
	b, _ := repo.GetBudget(ctx, k)
	require.True(t, b.Used.Equal(dec("800.00")), "and no occupation")
}

func TestAuthorizeEnforcedDenied(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")
	_, err := svc.UpsertControl(ctx, Control{TenantID: "t1", EntityID: "s001", Category: "marketing", EnforceCheck: true, AutoOccupy: true})
	require.NoError(t, err)

	err = svc.Authorize(ctx, "t1", "s001", "marketing", "202603", dec("300.00"))
	require.True(t, IsExceeded(err))
	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	require.True(t, exceeded.Remaining.Equal(dec("200.00")))
	require.True(t, exceeded.Requested.Equal(dec("300.00")))
	require.True(t, exceeded.OverBy.Equal(dec("100.00")))

	b, _ := repo.GetBudget(ctx, k)
	require.True(t, b.Used.Equal(dec("800.00")), "denied spend must not occupy")
}

func TestAuthorizeEnforcedAllowedOccupies(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")
	_, err := svc.UpsertControl(ctx, Control{TenantID: "t1", EntityID: "s001", Category: "marketing", EnforceCheck: true, AutoOccupy: true})
	require.NoError(t, err)

	require.NoError(t, svc.Authorize(ctx, "t1", "s001", "marketing", "202603", dec("200.00")))
	b, _ := repo.GetBudget(ctx, k)
	require.True(t, b.Used.Equal(dec("1000.00")))
}

func TestAuthorizeEnforceOnlyLeavesUsed(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")
	_, err := svc.UpsertControl(ctx, Control{TenantID: "t1", EntityID: "s001", Category: "marketing", EnforceCheck: true})
	require.NoError(t, err)

	require.NoError(t, svc.Authorize(ctx, "t1", "s001", "marketing", "202603", dec("150.00")))
	b, _ := repo.GetBudget(ctx, k)
	require.True(t, b.Used.Equal(dec("800.00")), "enforce without auto-occupy never mutates used")
}

func TestAuthorizeAutoOccupyOnly(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	k := seedBudget(t, repo, "1000.00", "800.00")
	_, err := svc.UpsertControl(ctx, Control{TenantID: "t1", EntityID: "s001", Category: "marketing", AutoOccupy: true})
	require.NoError(t, err)

	require.NoError(t, svc.Authorize(ctx, "t1", "s001", "marketing", "202603", dec("900.00")))
	b, _ := repo.GetBudget(ctx, k)
	require.True(t, b.Used.Equal(dec("1700.00")), "auto-occupy without enforcement can go over")
}

func TestAuthorizeTenantFallbackControl(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	seedBudget(t, repo, "1000.00", "950.00")
	// Tenant-wide default control, no entity-specific row.
	_, err := svc.UpsertControl(ctx, Control{TenantID: "t1", EnforceCheck: true})
	require.NoError(t, err)

	err = svc.Authorize(ctx, "t1", "s001", "marketing", "202603", dec("100.00"))
	require.True(t, IsExceeded(err))
}

func TestAuthorizeMissingBudgetUnconstrained(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	_, err := svc.UpsertControl(ctx, Control{TenantID: "t1", EntityID: "s001", Category: "marketing", EnforceCheck: true, AutoOccupy: true})
	require.NoError(t, err)

	err = svc.Authorize(ctx, "t1", "s001", "marketing", "202603", dec("100.00"))
	require.NoError(t, err, "enforcement without a budget row is a no-op")
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryBudgetRepo())

	_, err := svc.Upsert(ctx, Budget{TenantID: "t1", Period: "202603", Category: "c", Type: "weird", Amount: dec("10")})
	require.Error(t, err)

	_, err = svc.Upsert(ctx, Budget{TenantID: "t1", Period: "202603", Category: "c", Type: TypePeriod, Amount: decimal.Zero})
	require.Error(t, err)

	b, err := svc.Upsert(ctx, Budget{TenantID: "t1", Period: "202603", Category: "c", Type: TypePeriod, Amount: dec("10")})
	require.NoError(t, err)
	require.NotZero(t, b.ID)
}
