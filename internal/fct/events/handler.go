package events

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires the event intake endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for event intake.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.ingest)
	r.Get("/{eventID}", h.get)
}

type ingestRequest struct {
	EventID    string          `json:"event_id"`
	TenantID   string          `json:"tenant_id" validate:"required"`
	EntityID   string          `json:"entity_id"`
	EventType  string          `json:"event_type" validate:"required"`
	OccurredAt *time.Time      `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	in := IngestInput{
		EventID:   req.EventID,
		TenantID:  req.TenantID,
		EntityID:  req.EntityID,
		EventType: req.EventType,
		Payload:   req.Payload,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}
	result, err := h.service.Ingest(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	event, err := h.service.Get(r.Context(), tenantID, chi.URLParam(r, "eventID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, event)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, err)
	case errors.Is(err, ErrDuplicate):
		httpx.Conflict(w, err)
	default:
		h.logger.Error("event intake failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
