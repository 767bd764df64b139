package masterdata

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing registry record.
var ErrNotFound = errors.New("masterdata: record not found")

// Repository persists registry records.
type Repository interface {
	Upsert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, tenantID string, typ RecordType, code string) (Record, error)
	List(ctx context.Context, tenantID string, typ RecordType) ([]Record, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, rec Record) (Record, error) {
	extra, err := json.Marshal(rec.Extra)
	if err != nil {
		return Record{}, err
	}
	row := r.db.QueryRow(ctx, `INSERT INTO fct_master (tenant_id, type, code, name, extra)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (tenant_id, type, code) DO UPDATE SET name=EXCLUDED.name, extra=EXCLUDED.extra, updated_at=NOW()
RETURNING id, created_at, updated_at`, rec.TenantID, rec.Type, rec.Code, rec.Name, extra)
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *repository) Get(ctx context.Context, tenantID string, typ RecordType, code string) (Record, error) {
	var rec Record
	var extra []byte
	err := r.db.QueryRow(ctx, `SELECT id, tenant_id, type, code, name, extra, created_at, updated_at
FROM fct_master WHERE tenant_id=$1 AND type=$2 AND code=$3`, tenantID, typ, code).
		Scan(&rec.ID, &rec.TenantID, &rec.Type, &rec.Code, &rec.Name, &extra, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &rec.Extra); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func (r *repository) List(ctx context.Context, tenantID string, typ RecordType) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, type, code, name, extra, created_at, updated_at
FROM fct_master WHERE tenant_id=$1 AND type=$2 ORDER BY code ASC`, tenantID, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var extra []byte
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Type, &rec.Code, &rec.Name, &extra, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &rec.Extra); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
