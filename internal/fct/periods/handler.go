package periods

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires the accounting period endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for period management.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{periodKey}/close", h.close)
	r.Post("/{periodKey}/reopen", h.reopen)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	out, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type periodActionRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	var req periodActionRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	period, err := h.service.Close(r.Context(), req.TenantID, chi.URLParam(r, "periodKey"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	var req periodActionRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	period, err := h.service.Reopen(r.Context(), req.TenantID, chi.URLParam(r, "periodKey"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidKey):
		httpx.BadRequest(w, err)
	case errors.Is(err, ErrDraftsRemain), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrClosed):
		httpx.Conflict(w, err)
	default:
		h.logger.Error("period request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
