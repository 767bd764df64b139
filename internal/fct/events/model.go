package events

import (
	"encoding/json"
	"errors"
	"time"
)

// Event is one ingested financial event. Rows are created once per
// external event_id, updated exactly once with the processing outcome,
// and never deleted.
type Event struct {
	ID           int64           `json:"id"`
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	OccurredAt   time.Time       `json:"occurred_at"`
	TenantID     string          `json:"tenant_id"`
	EntityID     string          `json:"entity_id"`
	Payload      json.RawMessage `json:"payload"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	VoucherID    *int64          `json:"voucher_id,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IngestResult is the intake response. Processed means "attempted", not
// "succeeded"; rule failures surface in Error, never as an intake error.
type IngestResult struct {
	EventID   string  `json:"event_id"`
	Processed bool    `json:"processed"`
	VoucherID *int64  `json:"voucher_id"`
	Error     *string `json:"error"`
}

var (
	// ErrDuplicate marks a concurrent insert for an already-seen event id.
	ErrDuplicate = errors.New("events: event already ingested")
	// ErrNotFound indicates a missing event row.
	ErrNotFound = errors.New("events: event not found")
)
