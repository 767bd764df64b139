package events

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository persists financial events. A unique constraint on
// (tenant_id, event_id) is the idempotency backbone.
type Repository interface {
	Insert(ctx context.Context, e Event) (Event, error)
	GetByEventID(ctx context.Context, tenantID, eventID string) (Event, error)
	MarkProcessed(ctx context.Context, tenantID, eventID string, voucherID *int64, errMsg *string, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const eventCols = `id, event_id, event_type, occurred_at, tenant_id, entity_id, payload, processed_at, voucher_id, error_message, created_at`

func (r *repository) Insert(ctx context.Context, e Event) (Event, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO financial_events (event_id, event_type, occurred_at, tenant_id, entity_id, payload)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		e.EventID, e.EventType, e.OccurredAt, e.TenantID, e.EntityID, e.Payload)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Event{}, ErrDuplicate
		}
		return Event{}, err
	}
	return e, nil
}

func (r *repository) GetByEventID(ctx context.Context, tenantID, eventID string) (Event, error) {
	var e Event
	err := r.db.QueryRow(ctx, `SELECT `+eventCols+` FROM financial_events WHERE tenant_id=$1 AND event_id=$2`, tenantID, eventID).
		Scan(&e.ID, &e.EventID, &e.EventType, &e.OccurredAt, &e.TenantID, &e.EntityID, &e.Payload, &e.ProcessedAt, &e.VoucherID, &e.ErrorMessage, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, err
	}
	return e, nil
}

func (r *repository) MarkProcessed(ctx context.Context, tenantID, eventID string, voucherID *int64, errMsg *string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE financial_events SET processed_at=$3, voucher_id=$4, error_message=$5
WHERE tenant_id=$1 AND event_id=$2`, tenantID, eventID, at, voucherID, errMsg)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
