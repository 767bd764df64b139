package periods

import (
	"context"
	"time"
)

// DraftCounter reports draft vouchers dated inside a period. Implemented
// by the voucher store; kept as an interface so the calendar stays a leaf.
type DraftCounter interface {
	CountDraftsInRange(ctx context.Context, tenantID string, from, to time.Time) (int, error)
}

type Service struct {
	repo   Repository
	drafts DraftCounter
	now    func() time.Time
}

func NewService(repo Repository, drafts DraftCounter) *Service {
	return &Service{repo: repo, drafts: drafts, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// EnsureOpenForDate resolves the period owning the date and fails fast
// when it is closed. Months never touched before come up open.
func (s *Service) EnsureOpenForDate(ctx context.Context, tenantID string, date time.Time) (Period, error) {
	p, err := s.repo.GetOrCreate(ctx, tenantID, KeyForDate(date))
	if err != nil {
		return Period{}, err
	}
	if p.Status == StatusClosed {
		return Period{}, ErrClosed
	}
	return p, nil
}

// Close moves a period to closed. Draft vouchers dated in-period block
// the close until they are posted, rejected, or voided.
func (s *Service) Close(ctx context.Context, tenantID, key string) (Period, error) {
	p, err := s.repo.GetOrCreate(ctx, tenantID, key)
	if err != nil {
		return Period{}, err
	}
	if err := ValidateTransition(p.Status, StatusClosed); err != nil {
		return Period{}, err
	}
	if s.drafts != nil {
		n, err := s.drafts.CountDraftsInRange(ctx, tenantID, p.StartDate, p.EndDate)
		if err != nil {
			return Period{}, err
		}
		if n > 0 {
			return Period{}, ErrDraftsRemain
		}
	}
	closedAt := s.now()
	return s.repo.SetStatus(ctx, tenantID, key, StatusClosed, &closedAt)
}

// Reopen flips a closed period back to open. Authorization for reopening
// lives outside this engine.
func (s *Service) Reopen(ctx context.Context, tenantID, key string) (Period, error) {
	p, err := s.repo.Get(ctx, tenantID, key)
	if err != nil {
		return Period{}, err
	}
	if err := ValidateTransition(p.Status, StatusOpen); err != nil {
		return Period{}, err
	}
	return s.repo.SetStatus(ctx, tenantID, key, StatusOpen, nil)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Period, error) {
	return s.repo.List(ctx, tenantID)
}
