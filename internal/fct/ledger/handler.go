package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires ledger queries and the report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the ledger and report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/balances", h.balances)
		r.Get("/balances.csv", h.balancesCSV)
		r.Get("/entries", h.entries)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Get("/aggregate", h.aggregate)
		r.Get("/by-entity", h.byEntity)
		r.Get("/by-region", h.byRegion)
		r.Get("/consolidated", h.consolidated)
		r.Get("/trend", h.trend)
		r.Get("/comparison", h.comparison)
		r.Get("/period/{periodKey}", h.periodSummary)
	})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		TenantID:      q.Get("tenant_id"),
		PostedOnly:    q.Get("posted_only") == "true",
		AccountPrefix: q.Get("account_prefix"),
	}
	if f.TenantID == "" {
		return Filter{}, errors.New("tenant_id required")
	}
	if v := q.Get("entity_id"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.EntityIDs = append(f.EntityIDs, id)
			}
		}
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Filter{}, errors.New("from must be YYYY-MM-DD")
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Filter{}, errors.New("to must be YYYY-MM-DD")
		}
		f.To = t
	}
	return f, nil
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	var out []AccountBalance
	if key := r.URL.Query().Get("period"); key != "" {
		out, err = h.service.BalancesForPeriod(r.Context(), f, key)
	} else {
		out, err = h.service.Balances(r.Context(), f)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) balancesCSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	balances, err := h.service.Balances(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="balances.csv"`)
	if err := WriteBalancesCSV(w, balances); err != nil {
		h.logger.Error("csv export failed", slog.Any("error", err))
	}
}

func (h *Handler) entries(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	rows, total, err := h.service.Entries(r.Context(), f, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": rows, "total": total})
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	summary, err := h.service.Aggregate(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) byEntity(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	out, err := h.service.ByEntity(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) byRegion(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	out, err := h.service.ByRegion(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) consolidated(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	grouped := r.URL.Query().Get("by") == "entity"
	out, err := h.service.Consolidated(r.Context(), f, grouped)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	g := Granularity(r.URL.Query().Get("granularity"))
	if g == "" {
		g = ByMonth
	}
	points, err := h.service.Trend(r.Context(), f, g)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}

func (h *Handler) comparison(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	mode := CompareMode(r.URL.Query().Get("mode"))
	cmp, err := h.service.Comparison(r.Context(), f, mode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cmp)
}

func (h *Handler) periodSummary(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	postedOnly := r.URL.Query().Get("posted_only") == "true"
	summary, err := h.service.PeriodSummary(r.Context(), tenantID, chi.URLParam(r, "periodKey"), postedOnly)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadGranularity), errors.Is(err, ErrBadCompareMode), errors.Is(err, periods.ErrInvalidKey):
		httpx.BadRequest(w, err)
	default:
		h.logger.Error("ledger query failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
