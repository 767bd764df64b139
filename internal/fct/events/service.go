package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kitchenledger/kitchenledger/internal/fct/vouchers"
)

// Processor maps a stored event to a voucher. Satisfied by
// *vouchers.Service.
type Processor interface {
	CreateFromEvent(ctx context.Context, in vouchers.EventInput) (vouchers.Voucher, error)
}

// IngestInput is the intake request body.
type IngestInput struct {
	EventID    string
	TenantID   string
	EntityID   string
	EventType  string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// Recorder counts intake outcomes. Satisfied by *observability.Metrics.
type Recorder interface {
	EventIngested(eventType, outcome string)
}

// Service is the idempotent event intake.
type Service struct {
	repo      Repository
	processor Processor
	logger    *slog.Logger
	metrics   Recorder
	now       func() time.Time
}

func NewService(repo Repository, processor Processor, logger *slog.Logger) *Service {
	return &Service{repo: repo, processor: processor, logger: logger, now: time.Now}
}

// WithMetrics attaches the intake outcome counter.
func (s *Service) WithMetrics(m Recorder) {
	s.metrics = m
}

func (s *Service) count(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.EventIngested(eventType, outcome)
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Ingest records and processes an event exactly once. Replaying an
// event_id returns the stored outcome without reprocessing, so at most
// one voucher ever exists per event. Rule failures are written onto the
// event row; the caller still gets a processed response.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	if in.TenantID == "" {
		return IngestResult{}, errors.New("events: tenant required")
	}
	if in.EventType == "" {
		return IngestResult{}, errors.New("events: event_type required")
	}
	if in.EventID == "" {
		in.EventID = uuid.NewString()
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = s.now()
	}

	if existing, err := s.repo.GetByEventID(ctx, in.TenantID, in.EventID); err == nil {
		s.count(in.EventType, "duplicate")
		return outcome(existing), nil
	} else if !errors.Is(err, ErrNotFound) {
		return IngestResult{}, err
	}

	_, err := s.repo.Insert(ctx, Event{
		EventID:    in.EventID,
		EventType:  in.EventType,
		OccurredAt: in.OccurredAt,
		TenantID:   in.TenantID,
		EntityID:   in.EntityID,
		Payload:    in.Payload,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost the race to a concurrent ingest of the same event id;
			// resolve to the winner's outcome.
			existing, err := s.repo.GetByEventID(ctx, in.TenantID, in.EventID)
			if err != nil {
				return IngestResult{}, err
			}
			s.count(in.EventType, "duplicate")
			return outcome(existing), nil
		}
		return IngestResult{}, err
	}

	var voucherID *int64
	var errMsg *string
	voucher, procErr := s.processor.CreateFromEvent(ctx, vouchers.EventInput{
		TenantID:   in.TenantID,
		EntityID:   in.EntityID,
		EventID:    in.EventID,
		EventType:  in.EventType,
		OccurredAt: in.OccurredAt,
		Payload:    in.Payload,
	})
	if procErr != nil {
		msg := procErr.Error()
		errMsg = &msg
		s.count(in.EventType, "failed")
		s.logger.Warn("event processing failed",
			slog.String("tenant", in.TenantID),
			slog.String("event_id", in.EventID),
			slog.String("event_type", in.EventType),
			slog.String("error", msg))
	} else {
		voucherID = &voucher.ID
		s.count(in.EventType, "processed")
	}
	if err := s.repo.MarkProcessed(ctx, in.TenantID, in.EventID, voucherID, errMsg, s.now()); err != nil {
		return IngestResult{}, err
	}
	return IngestResult{EventID: in.EventID, Processed: true, VoucherID: voucherID, Error: errMsg}, nil
}

// Get returns the stored event row.
func (s *Service) Get(ctx context.Context, tenantID, eventID string) (Event, error) {
	return s.repo.GetByEventID(ctx, tenantID, eventID)
}

func outcome(e Event) IngestResult {
	return IngestResult{
		EventID:   e.EventID,
		Processed: e.ProcessedAt != nil,
		VoucherID: e.VoucherID,
		Error:     e.ErrorMessage,
	}
}
