package vouchers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/money"
	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
)

// PeriodGuard resolves the owning period for a biz date and fails on
// closed periods. Satisfied by *periods.Service.
type PeriodGuard interface {
	EnsureOpenForDate(ctx context.Context, tenantID string, date time.Time) (periods.Period, error)
}

// BudgetGate applies the resolved budget control for a scope. When
// enforcement is on it must occupy atomically and return the exceeded
// error on failure; when only auto-occupy is configured it occupies
// unconditionally. A nil gate means budgets are not wired.
type BudgetGate interface {
	Authorize(ctx context.Context, tenantID, entityID, category, period string, amount decimal.Decimal) error
}

// CacheBumper invalidates report caches after a ledger mutation.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Recorder counts created vouchers. Satisfied by *observability.Metrics.
type Recorder interface {
	VoucherCreated(source string)
}

// Service owns voucher creation and the status machine.
type Service struct {
	repo    Repository
	guard   PeriodGuard
	budget  BudgetGate
	bump    CacheBumper
	metrics Recorder
	chart   ChartOfAccounts
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, guard PeriodGuard, budget BudgetGate, chart ChartOfAccounts, logger *slog.Logger) *Service {
	return &Service{repo: repo, guard: guard, budget: budget, chart: chart, logger: logger, now: time.Now}
}

func (s *Service) WithCacheBumper(bump CacheBumper) {
	s.bump = bump
}

// WithMetrics attaches the voucher-creation counter.
func (s *Service) WithMetrics(m Recorder) {
	s.metrics = m
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Chart exposes the active chart of accounts (used by ledger reports).
func (s *Service) Chart() ChartOfAccounts { return s.chart }

// CreateFromEvent maps a typed event onto a balanced draft voucher.
// Errors here are business errors; the intake layer records them on the
// event row instead of surfacing them to the caller.
func (s *Service) CreateFromEvent(ctx context.Context, in EventInput) (Voucher, error) {
	payload, err := ParsePayload(in.EventType, in.Payload)
	if err != nil {
		return Voucher{}, err
	}
	result, err := buildLines(s.chart, in.EventType, payload, s.now())
	if err != nil {
		return Voucher{}, err
	}
	lines, diff := forceBalance(s.chart, result.Lines)
	if !money.WithinTolerance(diff) {
		s.logger.Warn("difference adjustment beyond tolerance",
			slog.String("tenant", in.TenantID),
			slog.String("event_id", in.EventID),
			slog.String("event_type", in.EventType),
			slog.String("difference", diff.StringFixed(2)))
	}
	eventID := in.EventID
	voucher := Voucher{
		TenantID:    in.TenantID,
		EntityID:    in.EntityID,
		BizDate:     result.BizDate,
		EventType:   in.EventType,
		EventID:     &eventID,
		Status:      StatusDraft,
		Description: result.Description,
		Lines:       specsToLines(lines),
	}
	return s.persist(ctx, voucher)
}

// CreateManual records a caller-supplied voucher, optionally running the
// budget gate up front under the given category.
func (s *Service) CreateManual(ctx context.Context, in ManualVoucherInput) (Voucher, error) {
	if err := in.Validate(); err != nil {
		return Voucher{}, err
	}
	status := StatusDraft
	if in.Submit {
		status = StatusPending
	}
	voucher := Voucher{
		TenantID:    in.TenantID,
		EntityID:    in.EntityID,
		BizDate:     in.BizDate,
		EventType:   EventTypeManual,
		Status:      status,
		Description: in.Description,
		Attachments: in.Attachments,
	}
	for _, l := range in.Lines {
		voucher.Lines = append(voucher.Lines, Line{
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Auxiliary:   l.Auxiliary,
			Description: l.Description,
		})
	}
	if s.budget != nil && in.BudgetCategory != "" {
		if err := s.budget.Authorize(ctx, in.TenantID, in.EntityID, in.BudgetCategory, periods.KeyForDate(in.BizDate), voucher.TotalDebit()); err != nil {
			return Voucher{}, err
		}
	}
	return s.persist(ctx, voucher)
}

func (s *Service) persist(ctx context.Context, voucher Voucher) (Voucher, error) {
	if _, err := s.guard.EnsureOpenForDate(ctx, voucher.TenantID, voucher.BizDate); err != nil {
		return Voucher{}, err
	}
	var created Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextSequence(ctx, voucher.TenantID, voucher.EntityID, voucher.BizDate)
		if err != nil {
			return err
		}
		voucher.VoucherNo = FormatNumber(voucher.EntityID, voucher.BizDate, seq)
		created, err = tx.Insert(ctx, voucher)
		return err
	})
	if err != nil {
		return Voucher{}, err
	}
	if s.metrics != nil {
		s.metrics.VoucherCreated(created.EventType)
	}
	s.bumpCache(ctx)
	return created, nil
}

// ChangeStatus drives the voucher status machine. Posting enforces the
// open period, non-empty lines and the budget gate inside the same
// transaction as the status flip.
func (s *Service) ChangeStatus(ctx context.Context, tenantID string, id int64, target Status, actor, note string) (Voucher, error) {
	var out Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := ValidateTransition(current.Status, target); err != nil {
			return err
		}
		if target == StatusPosted {
			if len(current.Lines) == 0 {
				return ErrEmptyLines
			}
			if _, err := s.guard.EnsureOpenForDate(ctx, tenantID, current.BizDate); err != nil {
				return err
			}
			if s.budget != nil {
				if err := s.budget.Authorize(ctx, tenantID, current.EntityID, current.EventType, periods.KeyForDate(current.BizDate), current.TotalDebit()); err != nil {
					return err
				}
			}
		}
		if err := tx.UpdateStatus(ctx, id, target); err != nil {
			return err
		}
		if err := tx.AppendApproval(ctx, ApprovalRecord{
			TenantID:   tenantID,
			VoucherID:  id,
			FromStatus: current.Status,
			ToStatus:   target,
			Actor:      actor,
			Note:       note,
			At:         s.now(),
		}); err != nil {
			return err
		}
		out = current
		out.Status = target
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.bumpCache(ctx)
	return out, nil
}

// Void retires a draft or posted voucher. Voided vouchers drop out of
// every ledger aggregation.
func (s *Service) Void(ctx context.Context, tenantID string, id int64, actor, reason string) (Voucher, error) {
	var out Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft && current.Status != StatusPosted {
			return fmt.Errorf("%w: status %s", ErrVoidSource, current.Status)
		}
		if _, err := s.guard.EnsureOpenForDate(ctx, tenantID, current.BizDate); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusVoided); err != nil {
			return err
		}
		if err := tx.AppendApproval(ctx, ApprovalRecord{
			TenantID:   tenantID,
			VoucherID:  id,
			FromStatus: current.Status,
			ToStatus:   StatusVoided,
			Actor:      actor,
			Note:       reason,
			At:         s.now(),
		}); err != nil {
			return err
		}
		out = current
		out.Status = StatusVoided
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.bumpCache(ctx)
	return out, nil
}

// RedFlush reverses a posted voucher by creating a new draft voucher
// with every line's debit and credit swapped. This is the only
// sanctioned reversal path; posted vouchers are never edited.
func (s *Service) RedFlush(ctx context.Context, tenantID string, id int64, actor, memo string) (Voucher, error) {
	var reversal Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.Get(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if original.Status != StatusPosted {
			return fmt.Errorf("%w: status %s", ErrRedFlushSource, original.Status)
		}
		if _, err := s.guard.EnsureOpenForDate(ctx, tenantID, original.BizDate); err != nil {
			return err
		}
		seq, err := tx.NextSequence(ctx, tenantID, original.EntityID, original.BizDate)
		if err != nil {
			return err
		}
		originalID := original.ID
		flushed := Voucher{
			VoucherNo:   FormatNumber(original.EntityID, original.BizDate, seq),
			TenantID:    tenantID,
			EntityID:    original.EntityID,
			BizDate:     original.BizDate,
			EventType:   original.EventType,
			Status:      StatusDraft,
			Description: redFlushMemo(memo, original.VoucherNo),
			RedFlushOf:  &originalID,
		}
		for _, l := range original.Lines {
			flushed.Lines = append(flushed.Lines, Line{
				AccountCode: l.AccountCode,
				AccountName: l.AccountName,
				Debit:       l.Credit,
				Credit:      l.Debit,
				Auxiliary:   l.Auxiliary,
				Description: l.Description,
			})
		}
		reversal, err = tx.Insert(ctx, flushed)
		if err != nil {
			return err
		}
		return tx.AppendApproval(ctx, ApprovalRecord{
			TenantID:   tenantID,
			VoucherID:  reversal.ID,
			FromStatus: original.Status,
			ToStatus:   StatusDraft,
			Actor:      actor,
			Note:       "red-flush of " + original.VoucherNo,
			At:         s.now(),
		})
	})
	if err != nil {
		return Voucher{}, err
	}
	s.bumpCache(ctx)
	return reversal, nil
}

func (s *Service) Get(ctx context.Context, tenantID string, id int64) (Voucher, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Voucher, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.bump == nil {
		return
	}
	if err := s.bump.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump", slog.Any("error", err))
	}
}

// FormatNumber renders V<YYYYMMDD><entity-prefix><4-digit-seq>.
func FormatNumber(entityID string, bizDate time.Time, seq int) string {
	prefix := strings.ToUpper(entityID)
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return fmt.Sprintf("V%s%s%04d", bizDate.Format("20060102"), prefix, seq)
}

func redFlushMemo(memo, voucherNo string) string {
	if memo != "" {
		return memo
	}
	return "红冲 " + voucherNo
}

func specsToLines(specs []LineSpec) []Line {
	lines := make([]Line, 0, len(specs))
	for _, spec := range specs {
		lines = append(lines, Line{
			AccountCode: spec.Account.Code,
			AccountName: spec.Account.Name,
			Debit:       spec.Debit,
			Credit:      spec.Credit,
			Auxiliary:   spec.Auxiliary,
			Description: spec.Description,
		})
	}
	return lines
}
