package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the accounting calendar.
type Repository interface {
	// GetOrCreate resolves the period row for a key, lazily creating it
	// open when the tenant has not touched that month yet.
	GetOrCreate(ctx context.Context, tenantID, key string) (Period, error)
	Get(ctx context.Context, tenantID, key string) (Period, error)
	SetStatus(ctx context.Context, tenantID, key string, status Status, closedAt *time.Time) (Period, error)
	List(ctx context.Context, tenantID string) ([]Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodCols = `id, tenant_id, period_key, start_date, end_date, status, closed_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.TenantID, &p.PeriodKey, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) GetOrCreate(ctx context.Context, tenantID, key string) (Period, error) {
	start, end, err := Bounds(key)
	if err != nil {
		return Period{}, err
	}
	row := r.db.QueryRow(ctx, `INSERT INTO fct_periods (tenant_id, period_key, start_date, end_date, status)
VALUES ($1,$2,$3,$4,'open')
ON CONFLICT (tenant_id, period_key) DO UPDATE SET updated_at=fct_periods.updated_at
RETURNING `+periodCols, tenantID, key, start, end)
	return scanPeriod(row)
}

func (r *repository) Get(ctx context.Context, tenantID, key string) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodCols+` FROM fct_periods WHERE tenant_id=$1 AND period_key=$2`, tenantID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrInvalidKey
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) SetStatus(ctx context.Context, tenantID, key string, status Status, closedAt *time.Time) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `UPDATE fct_periods SET status=$3, closed_at=$4, updated_at=NOW()
WHERE tenant_id=$1 AND period_key=$2 RETURNING `+periodCols, tenantID, key, status, closedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrInvalidKey
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, tenantID string) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodCols+` FROM fct_periods WHERE tenant_id=$1 ORDER BY period_key ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
