package ledger

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
)

// RegionLookup maps a store entity code to its region bucket.
// Satisfied by *masterdata.Service.
type RegionLookup interface {
	StoreRegion(ctx context.Context, tenantID, storeCode string) (string, error)
}

// Service is the ledger query layer: balances, entries and the report
// family, with cached aggregates collapsed via singleflight.
type Service struct {
	repo    Repository
	cache   *Cache
	regions RegionLookup
	conv    Convention
	group   singleflight.Group
}

func NewService(repo Repository, cache *Cache, regions RegionLookup, conv Convention) *Service {
	return &Service{repo: repo, cache: cache, regions: regions, conv: conv}
}

// Balances returns per-account totals and signed balances for the
// filter window (point-in-time balances come from an empty From).
func (s *Service) Balances(ctx context.Context, f Filter) ([]AccountBalance, error) {
	rows, err := s.repo.Lines(ctx, f)
	if err != nil {
		return nil, err
	}
	return BuildBalances(rows), nil
}

// BalancesForPeriod resolves a period key into its date window first.
func (s *Service) BalancesForPeriod(ctx context.Context, f Filter, periodKey string) ([]AccountBalance, error) {
	start, end, err := periods.Bounds(periodKey)
	if err != nil {
		return nil, err
	}
	f.From, f.To = start, end
	return s.Balances(ctx, f)
}

// Entries lists ledger entries with pagination.
func (s *Service) Entries(ctx context.Context, f Filter, limit, offset int) ([]EntryRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.Entries(ctx, f, limit, offset)
}

// Consolidated merges balances across entities, flat or grouped.
func (s *Service) Consolidated(ctx context.Context, f Filter, grouped bool) (map[string][]AccountBalance, error) {
	rows, err := s.repo.Lines(ctx, f)
	if err != nil {
		return nil, err
	}
	if !grouped {
		return map[string][]AccountBalance{"all": BuildBalances(rows)}, nil
	}
	byEntity := make(map[string][]EntryRow)
	for _, row := range rows {
		byEntity[row.EntityID] = append(byEntity[row.EntityID], row)
	}
	out := make(map[string][]AccountBalance, len(byEntity))
	for entity, entityRows := range byEntity {
		out[entity] = BuildBalances(entityRows)
	}
	return out, nil
}

// Aggregate computes the revenue/cost/margin/VAT summary, cached.
func (s *Service) Aggregate(ctx context.Context, f Filter) (Summary, error) {
	var summary Summary
	err := s.cached(ctx, cacheKey("aggregate", f), &summary, func(ctx context.Context) (any, error) {
		rows, err := s.repo.Lines(ctx, f)
		if err != nil {
			return nil, err
		}
		return BuildSummary(rows, s.conv), nil
	})
	return summary, err
}

// ByEntity groups the aggregate by entity code.
func (s *Service) ByEntity(ctx context.Context, f Filter) ([]EntitySummary, error) {
	rows, err := s.repo.Lines(ctx, f)
	if err != nil {
		return nil, err
	}
	return GroupSummaries(rows, s.conv, func(r EntryRow) string { return r.EntityID }), nil
}

// ByRegion groups the aggregate by the region each entity's store
// record carries; unknown stores land in the unassigned bucket.
func (s *Service) ByRegion(ctx context.Context, f Filter) ([]EntitySummary, error) {
	rows, err := s.repo.Lines(ctx, f)
	if err != nil {
		return nil, err
	}
	regionOf := make(map[string]string)
	for _, row := range rows {
		if _, ok := regionOf[row.EntityID]; ok {
			continue
		}
		region, err := s.regions.StoreRegion(ctx, f.TenantID, row.EntityID)
		if err != nil {
			return nil, err
		}
		regionOf[row.EntityID] = region
	}
	return GroupSummaries(rows, s.conv, func(r EntryRow) string { return regionOf[r.EntityID] }), nil
}

// Trend returns the time-bucketed summary series, cached.
func (s *Service) Trend(ctx context.Context, f Filter, g Granularity) ([]TrendPoint, error) {
	if _, err := PeriodsInYear(g); err != nil {
		return nil, err
	}
	var points []TrendPoint
	err := s.cached(ctx, cacheKey("trend:"+string(g), f), &points, func(ctx context.Context) (any, error) {
		rows, err := s.repo.Lines(ctx, f)
		if err != nil {
			return nil, err
		}
		return BuildTrend(rows, s.conv, g)
	})
	return points, err
}

// Comparison re-runs the aggregate over the derived baseline window and
// reports percentage deltas.
func (s *Service) Comparison(ctx context.Context, f Filter, mode CompareMode) (Comparison, error) {
	baseFrom, baseTo, err := BaselineWindow(mode, f.From, f.To)
	if err != nil {
		return Comparison{}, err
	}
	current, err := s.Aggregate(ctx, f)
	if err != nil {
		return Comparison{}, err
	}
	baseline := f
	baseline.From, baseline.To = baseFrom, baseTo
	base, err := s.Aggregate(ctx, baseline)
	if err != nil {
		return Comparison{}, err
	}
	return BuildComparison(mode, current, base), nil
}

// PeriodSummary condenses one accounting period.
func (s *Service) PeriodSummary(ctx context.Context, tenantID, periodKey string, postedOnly bool) (PeriodSummary, error) {
	start, end, err := periods.Bounds(periodKey)
	if err != nil {
		return PeriodSummary{}, err
	}
	f := Filter{TenantID: tenantID, From: start, To: end, PostedOnly: postedOnly}
	rows, err := s.repo.Lines(ctx, f)
	if err != nil {
		return PeriodSummary{}, err
	}
	count, err := s.repo.CountVouchers(ctx, f)
	if err != nil {
		return PeriodSummary{}, err
	}
	debit, credit := Totals(rows)
	return PeriodSummary{
		PeriodKey:    periodKey,
		VoucherCount: count,
		TotalDebit:   debit,
		TotalCredit:  credit,
		Summary:      BuildSummary(rows, s.conv),
	}, nil
}

// cached runs the loader behind the versioned cache, collapsing
// concurrent identical loads through singleflight. The flight result is
// raw JSON so every collapsed caller can decode into its own dest.
func (s *Service) cached(ctx context.Context, baseKey string, dest any, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, baseKey)
	if err != nil {
		return err
	}
	raw, err, _ := s.group.Do(key, func() (any, error) {
		var payload json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &payload, loader); err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.(json.RawMessage), dest)
}

func cacheKey(kind string, f Filter) string {
	parts := []string{"fct", "reports", kind, f.TenantID,
		strings.Join(f.EntityIDs, ","),
		f.From.Format("20060102"), f.To.Format("20060102"),
		strconv.FormatBool(f.PostedOnly), f.AccountPrefix}
	return strings.Join(parts, ":")
}

// Window builds a filter for a date range.
func Window(tenantID string, from, to time.Time) Filter {
	return Filter{TenantID: tenantID, From: from, To: to}
}
