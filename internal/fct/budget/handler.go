package budget

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires the budget endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for budgets and controls.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/", h.upsert)
	r.Get("/check", h.check)
	r.Post("/occupy", h.occupy)
	r.Post("/reset", h.reset)
	r.Put("/controls", h.upsertControl)
}

// UpsertControl is the control upsert endpoint, also mounted at the
// top-level /fct/budget-controls path.
func (h *Handler) UpsertControl(w http.ResponseWriter, r *http.Request) {
	h.upsertControl(w, r)
}

type budgetRequest struct {
	TenantID string          `json:"tenant_id" validate:"required"`
	EntityID string          `json:"entity_id"`
	Type     Type            `json:"budget_type" validate:"required,oneof=project period"`
	Period   string          `json:"period" validate:"required"`
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	b, err := h.service.Upsert(r.Context(), Budget{
		TenantID: req.TenantID,
		EntityID: req.EntityID,
		Type:     req.Type,
		Period:   req.Period,
		Category: req.Category,
		Amount:   req.Amount,
		Status:   req.Status,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func keyFromQuery(r *http.Request) (Key, error) {
	q := r.URL.Query()
	k := Key{
		TenantID: q.Get("tenant_id"),
		EntityID: q.Get("entity_id"),
		Type:     Type(q.Get("budget_type")),
		Period:   q.Get("period"),
		Category: q.Get("category"),
	}
	if k.TenantID == "" || k.Period == "" || k.Category == "" {
		return Key{}, errors.New("tenant_id, period and category required")
	}
	if k.Type == "" {
		k.Type = TypePeriod
	}
	return k, nil
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	k, err := keyFromQuery(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		httpx.BadRequest(w, errors.New("amount must be a decimal"))
		return
	}
	result, err := h.service.Check(r.Context(), k, amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type occupyRequest struct {
	TenantID string          `json:"tenant_id" validate:"required"`
	EntityID string          `json:"entity_id"`
	Type     Type            `json:"budget_type" validate:"required,oneof=project period"`
	Period   string          `json:"period" validate:"required"`
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

func (r occupyRequest) key() Key {
	return Key{TenantID: r.TenantID, EntityID: r.EntityID, Type: r.Type, Period: r.Period, Category: r.Category}
}

func (h *Handler) occupy(w http.ResponseWriter, r *http.Request) {
	var req occupyRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.service.Occupy(r.Context(), req.key(), req.Amount); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"occupied": true})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req occupyRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	if err := h.service.Reset(r.Context(), req.key()); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reset": true})
}

type controlRequest struct {
	TenantID     string `json:"tenant_id" validate:"required"`
	EntityID     string `json:"entity_id"`
	Type         Type   `json:"budget_type" validate:"required,oneof=project period"`
	Category     string `json:"category"`
	EnforceCheck bool   `json:"enforce_check"`
	AutoOccupy   bool   `json:"auto_occupy"`
}

func (h *Handler) upsertControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	c, err := h.service.UpsertControl(r.Context(), Control{
		TenantID:     req.TenantID,
		EntityID:     req.EntityID,
		Type:         req.Type,
		Category:     req.Category,
		EnforceCheck: req.EnforceCheck,
		AutoOccupy:   req.AutoOccupy,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var exceeded *ExceededError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, err)
	case errors.As(err, &exceeded):
		httpx.ProblemExtra(w, http.StatusUnprocessableEntity, "Budget Exceeded", err.Error(), map[string]any{
			"remaining": exceeded.Remaining,
			"requested": exceeded.Requested,
			"over_by":   exceeded.OverBy,
		})
	default:
		h.logger.Error("budget request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
