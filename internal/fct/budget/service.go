package budget

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Service implements advisory checks, occupation, and the enforcement
// gate used by voucher posting and cash creation.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Check is read-only and advisory. A missing budget row means the scope
// is unconstrained.
func (s *Service) Check(ctx context.Context, k Key, amount decimal.Decimal) (CheckResult, error) {
	b, err := s.repo.GetBudget(ctx, k)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return CheckResult{Allowed: true}, nil
		}
		return CheckResult{}, err
	}
	remaining := b.Remaining()
	res := CheckResult{Constrained: true, Remaining: remaining}
	if amount.Cmp(remaining) <= 0 {
		res.Allowed = true
	} else {
		res.OverBy = amount.Sub(remaining)
	}
	return res, nil
}

// Occupy is the sole mutator of used: a pure increment with no re-check.
// Callers that care about enforcement must check first or go through
// Authorize.
func (s *Service) Occupy(ctx context.Context, k Key, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("budget: occupation amount must not be negative")
	}
	return s.repo.AddUsed(ctx, k, amount)
}

// Reset zeroes used for a budget row.
func (s *Service) Reset(ctx context.Context, k Key) error {
	return s.repo.ResetUsed(ctx, k)
}

func (s *Service) Upsert(ctx context.Context, b Budget) (Budget, error) {
	if b.TenantID == "" || b.Period == "" || b.Category == "" {
		return Budget{}, errors.New("budget: tenant, period and category required")
	}
	if b.Type != TypeProject && b.Type != TypePeriod {
		return Budget{}, errors.New("budget: unknown budget type")
	}
	if !b.Amount.IsPositive() {
		return Budget{}, errors.New("budget: amount must be positive")
	}
	return s.repo.UpsertBudget(ctx, b)
}

func (s *Service) UpsertControl(ctx context.Context, c Control) (Control, error) {
	if c.TenantID == "" {
		return Control{}, errors.New("budget: tenant required")
	}
	return s.repo.UpsertControl(ctx, c)
}

// ResolveControl falls back from the exact (entity, category) row to the
// tenant-wide default. A zero Control (no enforcement, no occupation)
// comes back when neither exists.
func (s *Service) ResolveControl(ctx context.Context, tenantID, entityID, category string) (Control, error) {
	c, err := s.repo.GetControl(ctx, tenantID, entityID, category)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Control{}, err
	}
	c, err = s.repo.GetControl(ctx, tenantID, "", "")
	if err == nil {
		return c, nil
	}
	if errors.Is(err, ErrNotFound) {
		return Control{TenantID: tenantID}, nil
	}
	return Control{}, err
}

// Authorize applies the resolved control to a spend. Enforcement uses a
// single conditional update (occupy only while within the cap), closing
// the check-then-occupy gap; auto-occupy without enforcement is a plain
// increment. A missing budget row leaves the spend unconstrained.
func (s *Service) Authorize(ctx context.Context, tenantID, entityID, category, period string, amount decimal.Decimal) error {
	control, err := s.ResolveControl(ctx, tenantID, entityID, category)
	if err != nil {
		return err
	}
	if !control.EnforceCheck && !control.AutoOccupy {
		return nil
	}
	budgetType := control.Type
	if budgetType == "" {
		budgetType = TypePeriod
	}
	key := Key{TenantID: tenantID, EntityID: entityID, Type: budgetType, Period: period, Category: category}
	b, err := s.repo.GetBudget(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Tenant-level budget as fallback when the entity has none.
			key.EntityID = ""
			b, err = s.repo.GetBudget(ctx, key)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
	switch {
	case control.EnforceCheck && control.AutoOccupy:
		// Single conditional update closes the check-then-occupy gap.
		ok, err := s.repo.AddUsedWithinCap(ctx, key, amount)
		if err != nil {
			return err
		}
		if !ok {
			remaining := b.Remaining()
			return &ExceededError{Remaining: remaining, Requested: amount, OverBy: amount.Sub(remaining)}
		}
		return nil
	case control.EnforceCheck:
		remaining := b.Remaining()
		if amount.Cmp(remaining) > 0 {
			return &ExceededError{Remaining: remaining, Requested: amount, OverBy: amount.Sub(remaining)}
		}
		return nil
	default:
		return s.repo.AddUsed(ctx, key, amount)
	}
}
