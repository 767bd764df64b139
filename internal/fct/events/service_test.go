package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/kitchenledger/internal/fct/vouchers"
)

type memoryEventRepo struct {
	mu     sync.Mutex
	events map[string]*Event
	nextID int64
}

func newMemoryEventRepo() *memoryEventRepo {
	return &memoryEventRepo{events: make(map[string]*Event)}
}

func key(tenantID, eventID string) string { return tenantID + "/" + eventID }

func (r *memoryEventRepo) Insert(ctx context.Context, e Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[key(e.TenantID, e.EventID)]; ok {
		return Event{}, ErrDuplicate
	}
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now()
	stored := e
	r.events[key(e.TenantID, e.EventID)] = &stored
	return e, nil
}

func (r *memoryEventRepo) GetByEventID(ctx context.Context, tenantID, eventID string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[key(tenantID, eventID)]
	if !ok {
		return Event{}, ErrNotFound
	}
	return *e, nil
}

func (r *memoryEventRepo) MarkProcessed(ctx context.Context, tenantID, eventID string, voucherID *int64, errMsg *string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[key(tenantID, eventID)]
	if !ok {
		return ErrNotFound
	}
	e.ProcessedAt = &at
	e.VoucherID = voucherID
	e.ErrorMessage = errMsg
	return nil
}

type stubProcessor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *stubProcessor) CreateFromEvent(ctx context.Context, in vouchers.EventInput) (vouchers.Voucher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return vouchers.Voucher{}, p.err
	}
	return vouchers.Voucher{ID: int64(p.calls), TenantID: in.TenantID, EventType: in.EventType}, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *countingRecorder) EventIngested(eventType, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[outcome]++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ingestInput(eventID string) IngestInput {
	return IngestInput{
		EventID:   eventID,
		TenantID:  "t1",
		EntityID:  "s001",
		EventType: "store_daily_settlement",
		Payload:   json.RawMessage(`{"biz_date":"2026-03-15"}`),
	}
}

func TestIngestCreatesVoucher(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryEventRepo()
	proc := &stubProcessor{}
	svc := NewService(repo, proc, testLogger())

	res, err := svc.Ingest(ctx, ingestInput("evt-1"))
	require.NoError(t, err)
	require.True(t, res.Processed)
	require.NotNil(t, res.VoucherID)
	require.Nil(t, res.Error)
	require.Equal(t, 1, proc.calls)

	stored, err := svc.Get(ctx, "t1", "evt-1")
	require.NoError(t, err)
	require.NotNil(t, stored.ProcessedAt)
	require.Equal(t, *res.VoucherID, *stored.VoucherID)
}

func TestIngestReplayReturnsStoredOutcome(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryEventRepo()
	proc := &stubProcessor{}
	rec := &countingRecorder{}
	svc := NewService(repo, proc, testLogger())
	svc.WithMetrics(rec)

	first, err := svc.Ingest(ctx, ingestInput("evt-1"))
	require.NoError(t, err)

	second, err := svc.Ingest(ctx, ingestInput("evt-1"))
	require.NoError(t, err)
	require.Equal(t, first.VoucherID, second.VoucherID)
	require.Equal(t, 1, proc.calls, "replay must not reprocess")
	require.Equal(t, 1, rec.outcomes["duplicate"])
	require.Equal(t, 1, rec.outcomes["processed"])
}

func TestIngestRuleFailureRecordedOnRow(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryEventRepo()
	proc := &stubProcessor{err: errors.New("no rule for event type")}
	svc := NewService(repo, proc, testLogger())

	res, err := svc.Ingest(ctx, ingestInput("evt-bad"))
	require.NoError(t, err, "rule failures are not intake errors")
	require.True(t, res.Processed)
	require.Nil(t, res.VoucherID)
	require.NotNil(t, res.Error)
	require.Contains(t, *res.Error, "no rule")

	stored, err := svc.Get(ctx, "t1", "evt-bad")
	require.NoError(t, err)
	require.NotNil(t, stored.ErrorMessage)
	require.Nil(t, stored.VoucherID)
}

func TestIngestGeneratesEventID(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryEventRepo()
	svc := NewService(repo, &stubProcessor{}, testLogger())

	in := ingestInput("")
	res, err := svc.Ingest(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, res.EventID)
}

func TestIngestRequiresTenantAndType(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryEventRepo(), &stubProcessor{}, testLogger())

	in := ingestInput("evt-1")
	in.TenantID = ""
	_, err := svc.Ingest(ctx, in)
	require.Error(t, err)

	in = ingestInput("evt-1")
	in.EventType = ""
	_, err = svc.Ingest(ctx, in)
	require.Error(t, err)
}

func TestIngestConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryEventRepo()
	proc := &stubProcessor{}
	svc := NewService(repo, proc, testLogger())

	const workers = 8
	var wg sync.WaitGroup
	results := make([]IngestResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Ingest(ctx, ingestInput("evt-race"))
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "evt-race", results[i].EventID)
	}
	require.Equal(t, 1, proc.calls, "exactly one voucher per event id")
}

func TestIngestSameEventIDAcrossTenants(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryEventRepo()
	proc := &stubProcessor{}
	svc := NewService(repo, proc, testLogger())

	in1 := ingestInput("shared")
	in2 := ingestInput("shared")
	in2.TenantID = "t2"

	_, err := svc.Ingest(ctx, in1)
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, in2)
	require.NoError(t, err)
	require.Equal(t, 2, proc.calls, "event ids are scoped per tenant")
}
