package periods

import (
	"errors"
	"fmt"
	"time"
)

// Status enumerates period states.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Period is one accounting month of a tenant's calendar.
type Period struct {
	ID        int64      `json:"id"`
	TenantID  string     `json:"tenant_id"`
	PeriodKey string     `json:"period_key"` // YYYYMM
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Status    Status     `json:"status"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

var (
	// ErrClosed rejects mutations dated inside a closed period.
	ErrClosed = errors.New("periods: period closed")
	// ErrDraftsRemain blocks closing while draft vouchers are dated in-period.
	ErrDraftsRemain = errors.New("periods: draft vouchers remain in period")
	// ErrInvalidKey indicates a malformed period key.
	ErrInvalidKey = errors.New("periods: invalid period key")
	// ErrInvalidTransition indicates a status change not allowed by policy.
	ErrInvalidTransition = errors.New("periods: invalid status transition")
)

// KeyForDate returns the YYYYMM key owning the date.
func KeyForDate(d time.Time) string {
	return d.Format("200601")
}

// Bounds resolves a period key to its [start, end] date range.
func Bounds(key string) (time.Time, time.Time, error) {
	start, err := time.Parse("200601", key)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	end := start.AddDate(0, 1, -1)
	return start, end, nil
}

// ValidateTransition is the exhaustive open/closed transition table.
func ValidateTransition(current, target Status) error {
	switch {
	case current == StatusOpen && target == StatusClosed:
		return nil
	case current == StatusClosed && target == StatusOpen:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}
