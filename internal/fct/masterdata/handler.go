package masterdata

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires the master-data registry endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for the registry.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/", h.upsert)
	r.Get("/", h.list)
	r.Get("/{recordType}/{code}", h.get)
}

type upsertRequest struct {
	TenantID string            `json:"tenant_id" validate:"required"`
	Type     RecordType        `json:"record_type" validate:"required"`
	Code     string            `json:"code" validate:"required"`
	Name     string            `json:"name" validate:"required"`
	Extra    map[string]string `json:"extra"`
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	rec, err := h.service.Upsert(r.Context(), Record{
		TenantID: req.TenantID,
		Type:     req.Type,
		Code:     req.Code,
		Name:     req.Name,
		Extra:    req.Extra,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := q.Get("tenant_id")
	if tenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	out, err := h.service.List(r.Context(), tenantID, RecordType(q.Get("record_type")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	rec, err := h.service.Get(r.Context(), tenantID, RecordType(chi.URLParam(r, "recordType")), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, err)
	case errors.Is(err, ErrUnknownType):
		httpx.BadRequest(w, err)
	default:
		h.logger.Error("masterdata request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
