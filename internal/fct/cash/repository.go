package cash

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/platform/db"
)

// Repository persists cash transactions and petty-cash funds.
type Repository interface {
	Insert(ctx context.Context, t Transaction) (Transaction, error)
	Get(ctx context.Context, tenantID string, id int64) (Transaction, error)
	List(ctx context.Context, tenantID, entityID string, status TxStatus) ([]Transaction, error)
	ExistsRef(ctx context.Context, tenantID, entityID, refType, refID string) (bool, error)
	SetMatch(ctx context.Context, id int64, status TxStatus, matchID *string) error
	SetVoucher(ctx context.Context, id int64, voucherID int64) error

	GetFund(ctx context.Context, tenantID, entityID string) (PettyCash, error)
	UpsertFund(ctx context.Context, f PettyCash) (PettyCash, error)
	// AdjustFund moves the balance by delta and appends the record in
	// one transaction; negative results are rejected by the caller.
	AdjustFund(ctx context.Context, fundID int64, delta decimal.Decimal, rec PettyCashRecord) (PettyCash, error)
	FundRecords(ctx context.Context, fundID int64) ([]PettyCashRecord, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const txCols = `id, tenant_id, entity_id, tx_date, amount, direction, ref_type, ref_id, status, match_id, voucher_id, description, created_at, updated_at`

func scanTx(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.TenantID, &t.EntityID, &t.TxDate, &t.Amount, &t.Direction, &t.RefType, &t.RefID,
		&t.Status, &t.MatchID, &t.VoucherID, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *repository) Insert(ctx context.Context, t Transaction) (Transaction, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fct_cash_transactions (tenant_id, entity_id, tx_date, amount, direction, ref_type, ref_id, status, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',$8) RETURNING id, created_at, updated_at`,
		t.TenantID, t.EntityID, t.TxDate, t.Amount, t.Direction, t.RefType, t.RefID, t.Description)
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	t.Status = StatusPending
	return t, nil
}

func (r *repository) Get(ctx context.Context, tenantID string, id int64) (Transaction, error) {
	t, err := scanTx(r.db.QueryRow(ctx, `SELECT `+txCols+` FROM fct_cash_transactions WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (r *repository) List(ctx context.Context, tenantID, entityID string, status TxStatus) ([]Transaction, error) {
	query := `SELECT ` + txCols + ` FROM fct_cash_transactions WHERE tenant_id=$1`
	args := []any{tenantID}
	if entityID != "" {
		args = append(args, entityID)
		query += ` AND entity_id=$2`
	}
	if status != "" {
		args = append(args, status)
		if len(args) == 2 {
			query += ` AND status=$2`
		} else {
			query += ` AND status=$3`
		}
	}
	query += ` ORDER BY tx_date DESC, id DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) ExistsRef(ctx context.Context, tenantID, entityID, refType, refID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fct_cash_transactions
WHERE tenant_id=$1 AND entity_id=$2 AND ref_type=$3 AND ref_id=$4)`, tenantID, entityID, refType, refID).Scan(&exists)
	return exists, err
}

func (r *repository) SetMatch(ctx context.Context, id int64, status TxStatus, matchID *string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fct_cash_transactions SET status=$2, match_id=$3, updated_at=NOW() WHERE id=$1`, id, status, matchID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetVoucher(ctx context.Context, id int64, voucherID int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fct_cash_transactions SET voucher_id=$2, updated_at=NOW() WHERE id=$1`, id, voucherID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GetFund(ctx context.Context, tenantID, entityID string) (PettyCash, error) {
	var f PettyCash
	err := r.db.QueryRow(ctx, `SELECT id, tenant_id, entity_id, holder, balance, created_at, updated_at
FROM fct_petty_cash WHERE tenant_id=$1 AND entity_id=$2`, tenantID, entityID).
		Scan(&f.ID, &f.TenantID, &f.EntityID, &f.Holder, &f.Balance, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PettyCash{}, ErrNotFound
		}
		return PettyCash{}, err
	}
	return f, nil
}

func (r *repository) UpsertFund(ctx context.Context, f PettyCash) (PettyCash, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fct_petty_cash (tenant_id, entity_id, holder, balance)
VALUES ($1,$2,$3,0)
ON CONFLICT (tenant_id, entity_id) DO UPDATE SET holder=EXCLUDED.holder, updated_at=NOW()
RETURNING id, balance, created_at, updated_at`, f.TenantID, f.EntityID, f.Holder)
	if err := row.Scan(&f.ID, &f.Balance, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return PettyCash{}, err
	}
	return f, nil
}

func (r *repository) AdjustFund(ctx context.Context, fundID int64, delta decimal.Decimal, rec PettyCashRecord) (PettyCash, error) {
	var f PettyCash
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `UPDATE fct_petty_cash SET balance = balance + $2, updated_at=NOW()
WHERE id=$1 AND balance + $2 >= 0
RETURNING id, tenant_id, entity_id, holder, balance, created_at, updated_at`, fundID, delta).
			Scan(&f.ID, &f.TenantID, &f.EntityID, &f.Holder, &f.Balance, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrFundExhausted
			}
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO fct_petty_cash_records (petty_cash_id, kind, amount, note, at)
VALUES ($1,$2,$3,$4,$5)`, fundID, rec.Kind, rec.Amount, rec.Note, rec.At)
		return err
	})
	if err != nil {
		return PettyCash{}, err
	}
	return f, nil
}

func (r *repository) FundRecords(ctx context.Context, fundID int64) ([]PettyCashRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, petty_cash_id, kind, amount, note, at
FROM fct_petty_cash_records WHERE petty_cash_id=$1 ORDER BY at ASC, id ASC`, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PettyCashRecord
	for rows.Next() {
		var rec PettyCashRecord
		if err := rows.Scan(&rec.ID, &rec.PettyCashID, &rec.Kind, &rec.Amount, &rec.Note, &rec.At); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
