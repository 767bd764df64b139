package ledger

import (
	"fmt"
	"sort"
	"time"
)

// BucketKey truncates a date into its trend bucket label.
func BucketKey(g Granularity, d time.Time) (string, error) {
	switch g {
	case ByDay:
		return d.Format("2006-01-02"), nil
	case ByWeek:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week), nil
	case ByMonth:
		return d.Format("2006-01"), nil
	case ByQuarter:
		quarter := (int(d.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", d.Year(), quarter), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadGranularity, g)
}

// PeriodsInYear returns the proration denominator for a granularity.
func PeriodsInYear(g Granularity) (int, error) {
	switch g {
	case ByDay:
		return 365, nil
	case ByWeek:
		return 52, nil
	case ByMonth:
		return 12, nil
	case ByQuarter:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadGranularity, g)
}

// BuildTrend buckets rows by truncated date and summarises each bucket,
// sorted chronologically (bucket labels sort lexicographically).
func BuildTrend(rows []EntryRow, c Convention, g Granularity) ([]TrendPoint, error) {
	buckets := make(map[string][]EntryRow)
	keys := make([]string, 0)
	for _, row := range rows {
		key, err := BucketKey(g, row.BizDate)
		if err != nil {
			return nil, err
		}
		if _, ok := buckets[key]; !ok {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], row)
	}
	sort.Strings(keys)
	out := make([]TrendPoint, 0, len(keys))
	for _, key := range keys {
		out = append(out, TrendPoint{Bucket: key, Summary: BuildSummary(buckets[key], c)})
	}
	return out, nil
}
