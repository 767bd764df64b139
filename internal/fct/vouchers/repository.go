package vouchers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenledger/kitchenledger/internal/platform/db"
)

// Repository encapsulates voucher persistence. Mutations run through
// WithTx so the voucher, its lines, the approval trace and any budget
// occupation commit or abort together.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, tenantID string, id int64) (Voucher, error)
	List(ctx context.Context, f ListFilter) ([]Voucher, error)
	CountDraftsInRange(ctx context.Context, tenantID string, from, to time.Time) (int, error)
	CountForDate(ctx context.Context, tenantID, entityID string, bizDate time.Time) (int, error)
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	NextSequence(ctx context.Context, tenantID, entityID string, bizDate time.Time) (int, error)
	Insert(ctx context.Context, v Voucher) (Voucher, error)
	Get(ctx context.Context, tenantID string, id int64) (Voucher, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	AppendApproval(ctx context.Context, rec ApprovalRecord) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const voucherCols = `id, voucher_no, tenant_id, entity_id, biz_date, event_type, event_id, status, description, attachments, red_flush_of, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (Voucher, error) {
	var v Voucher
	var attachments []byte
	err := row.Scan(&v.ID, &v.VoucherNo, &v.TenantID, &v.EntityID, &v.BizDate, &v.EventType, &v.EventID, &v.Status, &v.Description, &attachments, &v.RedFlushOf, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Voucher{}, err
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &v.Attachments); err != nil {
			return Voucher{}, err
		}
	}
	return v, nil
}

func (r *repository) Get(ctx context.Context, tenantID string, id int64) (Voucher, error) {
	return getVoucher(ctx, r.db, tenantID, id)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getVoucher(ctx context.Context, q querier, tenantID string, id int64) (Voucher, error) {
	v, err := scanVoucher(q.QueryRow(ctx, `SELECT `+voucherCols+` FROM fct_vouchers WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrNotFound
		}
		return Voucher{}, err
	}
	lines, err := loadLines(ctx, q, id)
	if err != nil {
		return Voucher{}, err
	}
	v.Lines = lines
	return v, nil
}

func loadLines(ctx context.Context, q querier, voucherID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, voucher_id, line_no, account_code, account_name, debit, credit, auxiliary, description
FROM fct_voucher_lines WHERE voucher_id=$1 ORDER BY line_no ASC`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		var aux []byte
		if err := rows.Scan(&l.ID, &l.VoucherID, &l.LineNo, &l.AccountCode, &l.AccountName, &l.Debit, &l.Credit, &aux, &l.Description); err != nil {
			return nil, err
		}
		if len(aux) > 0 {
			if err := json.Unmarshal(aux, &l.Auxiliary); err != nil {
				return nil, err
			}
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Voucher, error) {
	query := `SELECT ` + voucherCols + ` FROM fct_vouchers WHERE tenant_id=$1`
	args := []any{f.TenantID}
	if f.EntityID != "" {
		args = append(args, f.EntityID)
		query += ` AND entity_id=$` + itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status=$` + itoa(len(args))
	}
	if f.EventType != "" {
		args = append(args, f.EventType)
		query += ` AND event_type=$` + itoa(len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += ` AND biz_date >= $` + itoa(len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += ` AND biz_date <= $` + itoa(len(args))
	}
	query += ` ORDER BY biz_date DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += ` OFFSET $` + itoa(len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repository) CountDraftsInRange(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fct_vouchers
WHERE tenant_id=$1 AND status='draft' AND biz_date BETWEEN $2 AND $3`, tenantID, from, to).Scan(&n)
	return n, err
}

func (r *repository) CountForDate(ctx context.Context, tenantID, entityID string, bizDate time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fct_vouchers
WHERE tenant_id=$1 AND entity_id=$2 AND biz_date=$3`, tenantID, entityID, bizDate).Scan(&n)
	return n, err
}

type txRepository struct {
	tx pgx.Tx
}

// NextSequence increments the per-(tenant, entity, date) counter
// atomically, replacing the racy count-rows numbering scheme.
func (r *txRepository) NextSequence(ctx context.Context, tenantID, entityID string, bizDate time.Time) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `INSERT INTO fct_voucher_seq (tenant_id, entity_id, biz_date, n)
VALUES ($1,$2,$3,1)
ON CONFLICT (tenant_id, entity_id, biz_date) DO UPDATE SET n = fct_voucher_seq.n + 1
RETURNING n`, tenantID, entityID, bizDate).Scan(&n)
	return n, err
}

func (r *txRepository) Insert(ctx context.Context, v Voucher) (Voucher, error) {
	attachments, err := json.Marshal(v.Attachments)
	if err != nil {
		return Voucher{}, err
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO fct_vouchers (voucher_no, tenant_id, entity_id, biz_date, event_type, event_id, status, description, attachments, red_flush_of)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		v.VoucherNo, v.TenantID, v.EntityID, v.BizDate, v.EventType, v.EventID, v.Status, v.Description, attachments, v.RedFlushOf)
	if err := row.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return Voucher{}, err
	}
	for i := range v.Lines {
		line := &v.Lines[i]
		line.VoucherID = v.ID
		line.LineNo = i + 1
		aux, err := json.Marshal(line.Auxiliary)
		if err != nil {
			return Voucher{}, err
		}
		if err := r.tx.QueryRow(ctx, `INSERT INTO fct_voucher_lines (voucher_id, line_no, account_code, account_name, debit, credit, auxiliary, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
			line.VoucherID, line.LineNo, line.AccountCode, line.AccountName, line.Debit, line.Credit, aux, line.Description).Scan(&line.ID); err != nil {
			return Voucher{}, err
		}
	}
	return v, nil
}

func (r *txRepository) Get(ctx context.Context, tenantID string, id int64) (Voucher, error) {
	return getVoucher(ctx, r.tx, tenantID, id)
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE fct_vouchers SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) AppendApproval(ctx context.Context, rec ApprovalRecord) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO fct_approval_records (tenant_id, voucher_id, from_status, to_status, actor, note, at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, rec.TenantID, rec.VoucherID, rec.FromStatus, rec.ToStatus, rec.Actor, rec.Note, rec.At)
	return err
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
