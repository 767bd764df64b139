package plans

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires the annual plan endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for plans.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/", h.save)
	r.Get("/", h.get)
	r.Get("/report", h.report)
}

// Report serves plan-vs-actual; also mounted under /fct/reports so the
// reporting surface stays in one place for API clients.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	h.report(w, r)
}

type planRequest struct {
	TenantID string                     `json:"tenant_id" validate:"required"`
	EntityID string                     `json:"entity_id" validate:"required"`
	PlanYear int                        `json:"plan_year" validate:"required"`
	Targets  map[string]decimal.Decimal `json:"targets" validate:"required,min=1"`
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	plan, err := h.service.Save(r.Context(), Plan{
		TenantID: req.TenantID,
		EntityID: req.EntityID,
		PlanYear: req.PlanYear,
		Targets:  req.Targets,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID, entityID := q.Get("tenant_id"), q.Get("entity_id")
	year, _ := strconv.Atoi(q.Get("year"))
	if tenantID == "" || entityID == "" || year == 0 {
		httpx.BadRequest(w, errors.New("tenant_id, entity_id and year required"))
		return
	}
	plan, err := h.service.Get(r.Context(), tenantID, entityID, year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := q.Get("tenant_id")
	year, _ := strconv.Atoi(q.Get("year"))
	metric := q.Get("metric")
	if tenantID == "" || year == 0 || metric == "" {
		httpx.BadRequest(w, errors.New("tenant_id, year and metric required"))
		return
	}
	g := ledger.Granularity(q.Get("granularity"))
	if g == "" {
		g = ledger.ByMonth
	}
	report, err := h.service.PlanVsActual(r.Context(), tenantID, q.Get("entity_id"), year, metric, g)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, err)
	case errors.Is(err, ErrUnknownMetric), errors.Is(err, ledger.ErrBadGranularity):
		httpx.BadRequest(w, err)
	default:
		h.logger.Error("plan request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
