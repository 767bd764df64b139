package budget

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Key addresses one budget row.
type Key struct {
	TenantID string
	EntityID string
	Type     Type
	Period   string
	Category string
}

// Repository persists budgets and controls.
type Repository interface {
	UpsertBudget(ctx context.Context, b Budget) (Budget, error)
	GetBudget(ctx context.Context, k Key) (Budget, error)
	// AddUsed increments used unconditionally.
	AddUsed(ctx context.Context, k Key, amount decimal.Decimal) error
	// AddUsedWithinCap increments used only while used+amount stays
	// within the cap; reports whether the update applied.
	AddUsedWithinCap(ctx context.Context, k Key, amount decimal.Decimal) (bool, error)
	ResetUsed(ctx context.Context, k Key) error
	UpsertControl(ctx context.Context, c Control) (Control, error)
	GetControl(ctx context.Context, tenantID, entityID, category string) (Control, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const budgetCols = `id, tenant_id, entity_id, budget_type, period, category, amount, used, status, created_at, updated_at`

func (r *repository) UpsertBudget(ctx context.Context, b Budget) (Budget, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fct_budgets (tenant_id, entity_id, budget_type, period, category, amount, used, status)
VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7,0),$8)
ON CONFLICT (tenant_id, entity_id, budget_type, period, category)
DO UPDATE SET amount=EXCLUDED.amount, status=EXCLUDED.status, updated_at=NOW()
RETURNING id, used, created_at, updated_at`,
		b.TenantID, b.EntityID, b.Type, b.Period, b.Category, b.Amount, b.Used, b.Status)
	if err := row.Scan(&b.ID, &b.Used, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Budget{}, err
	}
	return b, nil
}

func (r *repository) GetBudget(ctx context.Context, k Key) (Budget, error) {
	var b Budget
	err := r.db.QueryRow(ctx, `SELECT `+budgetCols+` FROM fct_budgets
WHERE tenant_id=$1 AND entity_id=$2 AND budget_type=$3 AND period=$4 AND category=$5`,
		k.TenantID, k.EntityID, k.Type, k.Period, k.Category).
		Scan(&b.ID, &b.TenantID, &b.EntityID, &b.Type, &b.Period, &b.Category, &b.Amount, &b.Used, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, ErrNotFound
		}
		return Budget{}, err
	}
	return b, nil
}

func (r *repository) AddUsed(ctx context.Context, k Key, amount decimal.Decimal) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fct_budgets SET used = used + $6, updated_at=NOW()
WHERE tenant_id=$1 AND entity_id=$2 AND budget_type=$3 AND period=$4 AND category=$5`,
		k.TenantID, k.EntityID, k.Type, k.Period, k.Category, amount)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) AddUsedWithinCap(ctx context.Context, k Key, amount decimal.Decimal) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE fct_budgets SET used = used + $6, updated_at=NOW()
WHERE tenant_id=$1 AND entity_id=$2 AND budget_type=$3 AND period=$4 AND category=$5 AND used + $6 <= amount`,
		k.TenantID, k.EntityID, k.Type, k.Period, k.Category, amount)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *repository) ResetUsed(ctx context.Context, k Key) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fct_budgets SET used = 0, updated_at=NOW()
WHERE tenant_id=$1 AND entity_id=$2 AND budget_type=$3 AND period=$4 AND category=$5`,
		k.TenantID, k.EntityID, k.Type, k.Period, k.Category)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpsertControl(ctx context.Context, c Control) (Control, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fct_budget_controls (tenant_id, entity_id, budget_type, category, enforce_check, auto_occupy)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (tenant_id, entity_id, category)
DO UPDATE SET budget_type=EXCLUDED.budget_type, enforce_check=EXCLUDED.enforce_check, auto_occupy=EXCLUDED.auto_occupy, updated_at=NOW()
RETURNING id, created_at, updated_at`,
		c.TenantID, c.EntityID, c.Type, c.Category, c.EnforceCheck, c.AutoOccupy)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Control{}, err
	}
	return c, nil
}

func (r *repository) GetControl(ctx context.Context, tenantID, entityID, category string) (Control, error) {
	var c Control
	err := r.db.QueryRow(ctx, `SELECT id, tenant_id, entity_id, budget_type, category, enforce_check, auto_occupy, created_at, updated_at
FROM fct_budget_controls WHERE tenant_id=$1 AND entity_id=$2 AND category=$3`, tenantID, entityID, category).
		Scan(&c.ID, &c.TenantID, &c.EntityID, &c.Type, &c.Category, &c.EnforceCheck, &c.AutoOccupy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Control{}, ErrNotFound
		}
		return Control{}, err
	}
	return c, nil
}
