package vouchers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/budget"
	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires the voucher endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for vouchers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createManual)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/status", h.changeStatus)
	r.Post("/{id}/void", h.void)
	r.Post("/{id}/red-flush", h.redFlush)
}

type manualLineRequest struct {
	AccountCode string            `json:"account_code" validate:"required"`
	AccountName string            `json:"account_name"`
	Debit       decimal.Decimal   `json:"debit"`
	Credit      decimal.Decimal   `json:"credit"`
	Auxiliary   map[string]string `json:"auxiliary"`
	Description string            `json:"description"`
}

type manualVoucherRequest struct {
	TenantID       string              `json:"tenant_id" validate:"required"`
	EntityID       string              `json:"entity_id" validate:"required"`
	BizDate        string              `json:"biz_date" validate:"required"`
	Description    string              `json:"description"`
	Attachments    []string            `json:"attachments"`
	Submit         bool                `json:"submit"`
	BudgetCategory string              `json:"budget_category"`
	Lines          []manualLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) createManual(w http.ResponseWriter, r *http.Request) {
	var req manualVoucherRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	bizDate, err := time.Parse("2006-01-02", req.BizDate)
	if err != nil {
		httpx.BadRequest(w, errors.New("biz_date must be YYYY-MM-DD"))
		return
	}
	in := ManualVoucherInput{
		TenantID:       req.TenantID,
		EntityID:       req.EntityID,
		BizDate:        bizDate,
		Description:    req.Description,
		Attachments:    req.Attachments,
		Submit:         req.Submit,
		BudgetCategory: req.BudgetCategory,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, ManualLineInput{
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Auxiliary:   l.Auxiliary,
			Description: l.Description,
		})
	}
	voucher, err := h.service.CreateManual(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, voucher)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilter{
		TenantID:  q.Get("tenant_id"),
		EntityID:  q.Get("entity_id"),
		Status:    Status(q.Get("status")),
		EventType: q.Get("event_type"),
	}
	if f.TenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.BadRequest(w, errors.New("from must be YYYY-MM-DD"))
			return
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.BadRequest(w, errors.New("to must be YYYY-MM-DD"))
			return
		}
		f.To = t
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	out, err := h.service.List(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, err := voucherRef(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	voucher, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucher)
}

type statusRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	Status   string `json:"status" validate:"required"`
	Actor    string `json:"actor"`
	Note     string `json:"note"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, errors.New("invalid voucher id"))
		return
	}
	var req statusRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	voucher, err := h.service.ChangeStatus(r.Context(), req.TenantID, id, Status(req.Status), req.Actor, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucher)
}

type actionRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	Actor    string `json:"actor"`
	Note     string `json:"note"`
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, errors.New("invalid voucher id"))
		return
	}
	var req actionRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	voucher, err := h.service.Void(r.Context(), req.TenantID, id, req.Actor, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucher)
}

func (h *Handler) redFlush(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, errors.New("invalid voucher id"))
		return
	}
	var req actionRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	reversal, err := h.service.RedFlush(r.Context(), req.TenantID, id, req.Actor, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reversal)
}

func voucherRef(r *http.Request) (string, int64, error) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		return "", 0, errors.New("tenant_id required")
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return "", 0, errors.New("invalid voucher id")
	}
	return tenantID, id, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var exceeded *budget.ExceededError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, err)
	case errors.Is(err, ErrEmptyLines), errors.Is(err, ErrUnbalanced), errors.Is(err, ErrMissingAccount):
		httpx.BadRequest(w, err)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrVoidSource), errors.Is(err, ErrRedFlushSource):
		httpx.Conflict(w, err)
	case errors.Is(err, periods.ErrClosed):
		httpx.Conflict(w, err)
	case errors.As(err, &exceeded):
		httpx.ProblemExtra(w, http.StatusUnprocessableEntity, "Budget Exceeded", err.Error(), map[string]any{
			"remaining": exceeded.Remaining,
			"requested": exceeded.Requested,
			"over_by":   exceeded.OverBy,
		})
	default:
		h.logger.Error("voucher request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
