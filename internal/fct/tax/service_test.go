package tax

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
)

type memoryTaxRepo struct {
	invoices     map[int64]*Invoice
	declarations map[string]Declaration
	nextID       int64
}

func newMemoryTaxRepo() *memoryTaxRepo {
	return &memoryTaxRepo{
		invoices:     make(map[int64]*Invoice),
		declarations: make(map[string]Declaration),
	}
}

func (r *memoryTaxRepo) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	for _, existing := range r.invoices {
		if existing.TenantID == inv.TenantID && existing.InvoiceType == inv.InvoiceType && existing.InvoiceNo == inv.InvoiceNo {
			return Invoice{}, ErrDuplicateNo
		}
	}
	r.nextID++
	inv.ID = r.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	stored := inv
	r.invoices[inv.ID] = &stored
	return inv, nil
}

func (r *memoryTaxRepo) Get(ctx context.Context, tenantID string, id int64) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return Invoice{}, ErrNotFound
	}
	return *inv, nil
}

func (r *memoryTaxRepo) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	existing, ok := r.invoices[inv.ID]
	if !ok || existing.TenantID != inv.TenantID {
		return Invoice{}, ErrNotFound
	}
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = time.Now()
	stored := inv
	r.invoices[inv.ID] = &stored
	return inv, nil
}

func (r *memoryTaxRepo) SetVerifyStatus(ctx context.Context, tenantID string, id int64, status string) error {
	inv, ok := r.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return ErrNotFound
	}
	inv.VerifyStatus = status
	return nil
}

func (r *memoryTaxRepo) List(ctx context.Context, tenantID string, typ InvoiceType) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.TenantID != tenantID {
			continue
		}
		if typ != "" && inv.InvoiceType != typ {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memoryTaxRepo) SaveDeclaration(ctx context.Context, d Declaration) error {
	r.declarations[d.TenantID+"/"+d.PeriodKey] = d
	return nil
}

type stubAggregator struct {
	summary ledger.Summary
	filter  ledger.Filter
}

func (a *stubAggregator) Aggregate(ctx context.Context, f ledger.Filter) (ledger.Summary, error) {
	a.filter = f
	return a.summary, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validInvoice() Invoice {
	return Invoice{
		TenantID:    "t1",
		EntityID:    "s001",
		InvoiceType: TypeOutput,
		InvoiceNo:   "INV-2026-0001",
		Amount:      dec("113.00"),
		TaxAmount:   dec("13.00"),
		InvoiceDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestRegisterInvoice(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryTaxRepo(), &stubAggregator{}, testLogger())

	inv, err := svc.Register(ctx, validInvoice())
	require.NoError(t, err)
	require.NotZero(t, inv.ID)
	require.Equal(t, "registered", inv.Status)
	require.Equal(t, VerifyPending, inv.VerifyStatus)
}

func TestRegisterDuplicateNo(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryTaxRepo(), &stubAggregator{}, testLogger())

	_, err := svc.Register(ctx, validInvoice())
	require.NoError(t, err)
	_, err = svc.Register(ctx, validInvoice())
	require.ErrorIs(t, err, ErrDuplicateNo)

	// The same number is fine for the other direction.
	inv := validInvoice()
	inv.InvoiceType = TypeInput
	_, err = svc.Register(ctx, inv)
	require.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryTaxRepo(), &stubAggregator{}, testLogger())

	inv := validInvoice()
	inv.InvoiceType = "sideways"
	_, err := svc.Register(ctx, inv)
	require.Error(t, err)

	inv = validInvoice()
	inv.Amount = decimal.Zero
	_, err = svc.Register(ctx, inv)
	require.Error(t, err)

	inv = validInvoice()
	inv.TaxAmount = dec("-1.00")
	_, err = svc.Register(ctx, inv)
	require.Error(t, err)
}

func TestVerifyMarksVerified(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryTaxRepo()
	svc := NewService(repo, &stubAggregator{}, testLogger())

	inv, err := svc.Register(ctx, validInvoice())
	require.NoError(t, err)

	verified, err := svc.Verify(ctx, "t1", inv.ID)
	require.NoError(t, err)
	require.Equal(t, VerifyVerified, verified.VerifyStatus)

	_, err = svc.Verify(ctx, "t1", 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDraftDeclaration(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryTaxRepo()
	agg := &stubAggregator{summary: ledger.Summary{
		OutputVAT: dec("16.00"),
		InputVAT:  dec("6.00"),
		NetVAT:    dec("10.00"),
	}}
	svc := NewService(repo, agg, testLogger())
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return at })

	d, err := svc.DraftDeclaration(ctx, "t1", "202603")
	require.NoError(t, err)
	require.True(t, d.OutputVAT.Equal(dec("16.00")))
	require.True(t, d.InputVAT.Equal(dec("6.00")))
	require.True(t, d.PayableVAT.Equal(dec("10.00")))
	require.True(t, d.DraftedAt.Equal(at))

	require.True(t, agg.filter.PostedOnly, "declarations aggregate posted vouchers only")
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), agg.filter.From)
	require.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), agg.filter.To)

	_, ok := repo.declarations["t1/202603"]
	require.True(t, ok)
}

func TestDraftDeclarationBadPeriod(t *testing.T) {
	svc := NewService(newMemoryTaxRepo(), &stubAggregator{}, testLogger())
	_, err := svc.DraftDeclaration(context.Background(), "t1", "2026-03")
	require.ErrorIs(t, err, periods.ErrInvalidKey)
}
