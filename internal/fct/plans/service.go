package plans

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/cash"
	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
)

// TrendSource supplies bucketed ledger summaries for accrual metrics.
// Satisfied by *ledger.Service.
type TrendSource interface {
	Trend(ctx context.Context, f ledger.Filter, g ledger.Granularity) ([]ledger.TrendPoint, error)
}

// CashSource supplies raw cash movements for the cash_in/cash_out
// metrics. Satisfied by *cash.Service.
type CashSource interface {
	List(ctx context.Context, tenantID, entityID string, status cash.TxStatus) ([]cash.Transaction, error)
}

type Service struct {
	repo   Repository
	ledger TrendSource
	cash   CashSource
}

func NewService(repo Repository, trend TrendSource, cashSrc CashSource) *Service {
	return &Service{repo: repo, ledger: trend, cash: cashSrc}
}

// Save validates and upserts a plan's annual targets.
func (s *Service) Save(ctx context.Context, p Plan) (Plan, error) {
	if p.TenantID == "" || p.EntityID == "" {
		return Plan{}, errors.New("plans: tenant and entity required")
	}
	if p.PlanYear < 2000 || p.PlanYear > 2100 {
		return Plan{}, errors.New("plans: plan_year out of range")
	}
	if len(p.Targets) == 0 {
		return Plan{}, errors.New("plans: at least one target required")
	}
	for metric := range p.Targets {
		if _, err := Classify(metric); err != nil {
			return Plan{}, err
		}
	}
	return s.repo.Upsert(ctx, p)
}

func (s *Service) Get(ctx context.Context, tenantID, entityID string, year int) (Plan, error) {
	return s.repo.Get(ctx, tenantID, entityID, year)
}

// PlanVsActual prorates the annual target for one metric across the
// year's buckets and pairs it with actuals from the ledger or the cash
// book. A missing target still yields actuals with nil percentages.
func (s *Service) PlanVsActual(ctx context.Context, tenantID, entityID string, year int, metric string, g ledger.Granularity) (Report, error) {
	if _, err := Classify(metric); err != nil {
		return Report{}, err
	}
	plan, err := s.repo.Get(ctx, tenantID, entityID, year)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Report{}, err
	}
	annual := plan.Targets[metric]

	labels, err := YearBuckets(year, g)
	if err != nil {
		return Report{}, err
	}
	actuals, err := s.actuals(ctx, tenantID, entityID, year, metric, g)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(metric, g, annual, labels, actuals)
}

func (s *Service) actuals(ctx context.Context, tenantID, entityID string, year int, metric string, g ledger.Granularity) (map[string]decimal.Decimal, error) {
	switch metric {
	case MetricCashIn:
		return s.cashActuals(ctx, tenantID, entityID, year, g, cash.DirectionIn)
	case MetricCashOut:
		return s.cashActuals(ctx, tenantID, entityID, year, g, cash.DirectionOut)
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0).Add(-time.Nanosecond)
	f := ledger.Filter{TenantID: tenantID, From: from, To: to, PostedOnly: true}
	if entityID != "" {
		f.EntityIDs = []string{entityID}
	}
	points, err := s.ledger.Trend(ctx, f, g)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(points))
	for _, p := range points {
		switch metric {
		case MetricRevenue:
			out[p.Bucket] = p.Summary.Revenue
		case MetricMargin:
			out[p.Bucket] = p.Summary.GrossMargin
		case MetricCost:
			out[p.Bucket] = p.Summary.Cost
		case MetricExpense:
			out[p.Bucket] = p.Summary.Expense
		}
	}
	return out, nil
}

func (s *Service) cashActuals(ctx context.Context, tenantID, entityID string, year int, g ledger.Granularity, dir cash.Direction) (map[string]decimal.Decimal, error) {
	txs, err := s.cash.List(ctx, tenantID, entityID, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Direction != dir || tx.TxDate.Year() != year {
			continue
		}
		key, err := ledger.BucketKey(g, tx.TxDate)
		if err != nil {
			return nil, err
		}
		out[key] = out[key].Add(tx.Amount)
	}
	return out, nil
}
