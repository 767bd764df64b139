package ledger

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository fetches joined voucher lines; all aggregation happens in
// Go over exact decimals so report math stays dialect-free and testable.
type Repository interface {
	Lines(ctx context.Context, f Filter) ([]EntryRow, error)
	Entries(ctx context.Context, f Filter, limit, offset int) ([]EntryRow, int, error)
	CountVouchers(ctx context.Context, f Filter) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func buildWhere(f Filter) (string, []any) {
	clauses := []string{"v.tenant_id=$1", "v.status <> 'voided'"}
	args := []any{f.TenantID}
	if f.PostedOnly {
		clauses = append(clauses, "v.status = 'posted'")
	}
	if len(f.EntityIDs) > 0 {
		args = append(args, f.EntityIDs)
		clauses = append(clauses, "v.entity_id = ANY($"+strconv.Itoa(len(args))+")")
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clauses = append(clauses, "v.biz_date >= $"+strconv.Itoa(len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		clauses = append(clauses, "v.biz_date <= $"+strconv.Itoa(len(args)))
	}
	if f.AccountPrefix != "" {
		args = append(args, f.AccountPrefix+"%")
		clauses = append(clauses, "l.account_code LIKE $"+strconv.Itoa(len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

const entrySelect = `SELECT v.id, v.voucher_no, v.entity_id, v.biz_date, v.event_type, v.status,
l.line_no, l.account_code, l.account_name, l.debit, l.credit, l.description
FROM fct_voucher_lines l JOIN fct_vouchers v ON v.id = l.voucher_id WHERE `

func (r *repository) Lines(ctx context.Context, f Filter) ([]EntryRow, error) {
	where, args := buildWhere(f)
	rows, err := r.db.Query(ctx, entrySelect+where+` ORDER BY v.biz_date ASC, v.id ASC, l.line_no ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntryRow
	for rows.Next() {
		var e EntryRow
		if err := rows.Scan(&e.VoucherID, &e.VoucherNo, &e.EntityID, &e.BizDate, &e.EventType, &e.Status,
			&e.LineNo, &e.AccountCode, &e.AccountName, &e.Debit, &e.Credit, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) Entries(ctx context.Context, f Filter, limit, offset int) ([]EntryRow, int, error) {
	where, args := buildWhere(f)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fct_voucher_lines l JOIN fct_vouchers v ON v.id = l.voucher_id WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit)
	query := entrySelect + where + ` ORDER BY v.biz_date DESC, v.id DESC, l.line_no ASC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []EntryRow
	for rows.Next() {
		var e EntryRow
		if err := rows.Scan(&e.VoucherID, &e.VoucherNo, &e.EntityID, &e.BizDate, &e.EventType, &e.Status,
			&e.LineNo, &e.AccountCode, &e.AccountName, &e.Debit, &e.Credit, &e.Description); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *repository) CountVouchers(ctx context.Context, f Filter) (int, error) {
	where, args := buildWhere(f)
	// The prefix clause references l.*, so join stays even for counts.
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT v.id) FROM fct_voucher_lines l JOIN fct_vouchers v ON v.id = l.voucher_id WHERE `+where, args...).Scan(&n)
	return n, err
}
