package plans

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists annual plans.
type Repository interface {
	Upsert(ctx context.Context, p Plan) (Plan, error)
	Get(ctx context.Context, tenantID, entityID string, year int) (Plan, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, p Plan) (Plan, error) {
	targets, err := json.Marshal(p.Targets)
	if err != nil {
		return Plan{}, err
	}
	row := r.db.QueryRow(ctx, `INSERT INTO fct_plans (tenant_id, entity_id, plan_year, targets)
VALUES ($1,$2,$3,$4)
ON CONFLICT (tenant_id, entity_id, plan_year) DO UPDATE SET targets=EXCLUDED.targets, updated_at=NOW()
RETURNING id, created_at, updated_at`, p.TenantID, p.EntityID, p.PlanYear, targets)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (r *repository) Get(ctx context.Context, tenantID, entityID string, year int) (Plan, error) {
	var p Plan
	var targets []byte
	err := r.db.QueryRow(ctx, `SELECT id, tenant_id, entity_id, plan_year, targets, created_at, updated_at
FROM fct_plans WHERE tenant_id=$1 AND entity_id=$2 AND plan_year=$3`, tenantID, entityID, year).
		Scan(&p.ID, &p.TenantID, &p.EntityID, &p.PlanYear, &targets, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}
	p.Targets = make(map[string]decimal.Decimal)
	if len(targets) > 0 {
		if err := json.Unmarshal(targets, &p.Targets); err != nil {
			return Plan{}, err
		}
	}
	return p, nil
}
