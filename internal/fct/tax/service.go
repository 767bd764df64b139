package tax

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
)

// Aggregator supplies the VAT totals a declaration draft is built from.
// Satisfied by *ledger.Service.
type Aggregator interface {
	Aggregate(ctx context.Context, f ledger.Filter) (ledger.Summary, error)
}

type Service struct {
	repo   Repository
	ledger Aggregator
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, agg Aggregator, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: agg, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Register(ctx context.Context, inv Invoice) (Invoice, error) {
	if inv.TenantID == "" || inv.InvoiceNo == "" {
		return Invoice{}, errors.New("tax: tenant and invoice_no required")
	}
	if inv.InvoiceType != TypeOutput && inv.InvoiceType != TypeInput {
		return Invoice{}, fmt.Errorf("tax: unknown invoice type %q", inv.InvoiceType)
	}
	if !inv.Amount.IsPositive() {
		return Invoice{}, errors.New("tax: amount must be positive")
	}
	if inv.TaxAmount.IsNegative() {
		return Invoice{}, errors.New("tax: tax_amount must not be negative")
	}
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = s.now()
	}
	if inv.Status == "" {
		inv.Status = "registered"
	}
	inv.VerifyStatus = VerifyPending
	return s.repo.Insert(ctx, inv)
}

func (s *Service) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	if inv.ID == 0 {
		return Invoice{}, ErrNotFound
	}
	return s.repo.Update(ctx, inv)
}

// Verify is a stub for the tax-authority check: it unconditionally
// marks the invoice verified. Callers must treat the result as
// non-authoritative until a real integration replaces it.
func (s *Service) Verify(ctx context.Context, tenantID string, id int64) (Invoice, error) {
	if err := s.repo.SetVerifyStatus(ctx, tenantID, id, VerifyVerified); err != nil {
		return Invoice{}, err
	}
	s.logger.Info("tax invoice verified by stub", slog.String("tenant", tenantID), slog.Int64("invoice", id))
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) Get(ctx context.Context, tenantID string, id int64) (Invoice, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string, typ InvoiceType) ([]Invoice, error) {
	return s.repo.List(ctx, tenantID, typ)
}

// DraftDeclaration derives a period's VAT declaration from the ledger
// aggregate and stores the draft.
func (s *Service) DraftDeclaration(ctx context.Context, tenantID, periodKey string) (Declaration, error) {
	start, end, err := periods.Bounds(periodKey)
	if err != nil {
		return Declaration{}, err
	}
	summary, err := s.ledger.Aggregate(ctx, ledger.Filter{TenantID: tenantID, From: start, To: end, PostedOnly: true})
	if err != nil {
		return Declaration{}, err
	}
	d := Declaration{
		TenantID:   tenantID,
		PeriodKey:  periodKey,
		OutputVAT:  summary.OutputVAT,
		InputVAT:   summary.InputVAT,
		PayableVAT: summary.NetVAT,
		DraftedAt:  s.now(),
	}
	if err := s.repo.SaveDeclaration(ctx, d); err != nil {
		return Declaration{}, err
	}
	return d, nil
}
