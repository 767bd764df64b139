package tax

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository persists tax invoices and declaration drafts.
type Repository interface {
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
	Get(ctx context.Context, tenantID string, id int64) (Invoice, error)
	Update(ctx context.Context, inv Invoice) (Invoice, error)
	SetVerifyStatus(ctx context.Context, tenantID string, id int64, status string) error
	List(ctx context.Context, tenantID string, typ InvoiceType) ([]Invoice, error)
	SaveDeclaration(ctx context.Context, d Declaration) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const invoiceCols = `id, tenant_id, entity_id, invoice_type, invoice_no, amount, tax_amount, invoice_date, status, voucher_id, verify_status, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.EntityID, &inv.InvoiceType, &inv.InvoiceNo, &inv.Amount, &inv.TaxAmount,
		&inv.InvoiceDate, &inv.Status, &inv.VoucherID, &inv.VerifyStatus, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *repository) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fct_tax_invoices (tenant_id, entity_id, invoice_type, invoice_no, amount, tax_amount, invoice_date, status, voucher_id, verify_status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		inv.TenantID, inv.EntityID, inv.InvoiceType, inv.InvoiceNo, inv.Amount, inv.TaxAmount, inv.InvoiceDate, inv.Status, inv.VoucherID, inv.VerifyStatus)
	if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Invoice{}, ErrDuplicateNo
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *repository) Get(ctx context.Context, tenantID string, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceCols+` FROM fct_tax_invoices WHERE tenant_id=$1 AND id=$2`, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *repository) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	updated, err := scanInvoice(r.db.QueryRow(ctx, `UPDATE fct_tax_invoices
SET amount=$3, tax_amount=$4, invoice_date=$5, status=$6, voucher_id=$7, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 RETURNING `+invoiceCols,
		inv.TenantID, inv.ID, inv.Amount, inv.TaxAmount, inv.InvoiceDate, inv.Status, inv.VoucherID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return updated, nil
}

func (r *repository) SetVerifyStatus(ctx context.Context, tenantID string, id int64, status string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fct_tax_invoices SET verify_status=$3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, tenantID, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, tenantID string, typ InvoiceType) ([]Invoice, error) {
	query := `SELECT ` + invoiceCols + ` FROM fct_tax_invoices WHERE tenant_id=$1`
	args := []any{tenantID}
	if typ != "" {
		args = append(args, typ)
		query += ` AND invoice_type=$2`
	}
	query += ` ORDER BY invoice_date DESC, id DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *repository) SaveDeclaration(ctx context.Context, d Declaration) error {
	_, err := r.db.Exec(ctx, `INSERT INTO fct_tax_declarations (tenant_id, period_key, output_vat, input_vat, payable_vat, drafted_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (tenant_id, period_key) DO UPDATE SET output_vat=EXCLUDED.output_vat, input_vat=EXCLUDED.input_vat, payable_vat=EXCLUDED.payable_vat, drafted_at=EXCLUDED.drafted_at`,
		d.TenantID, d.PeriodKey, d.OutputVAT, d.InputVAT, d.PayableVAT, d.DraftedAt)
	return err
}
