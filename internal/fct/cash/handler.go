package cash

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/budget"
	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires the cash and petty-cash endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for cash reconciliation.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/import", h.bulkImport)
	r.Get("/{id}", h.get)
	r.Post("/{id}/match", h.match)
	r.Post("/{id}/unmatch", h.unmatch)
	r.Route("/petty-cash", func(r chi.Router) {
		r.Put("/", h.ensureFund)
		r.Post("/move", h.fundMove)
		r.Get("/records", h.fundRecords)
	})
}

type createRequest struct {
	TenantID    string          `json:"tenant_id" validate:"required"`
	EntityID    string          `json:"entity_id" validate:"required"`
	TxDate      string          `json:"tx_date" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction" validate:"required,oneof=in out"`
	RefType     string          `json:"ref_type"`
	RefID       string          `json:"ref_id"`
	Description string          `json:"description"`
	WithVoucher bool            `json:"with_voucher"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	txDate, err := time.Parse("2006-01-02", req.TxDate)
	if err != nil {
		httpx.BadRequest(w, errors.New("tx_date must be YYYY-MM-DD"))
		return
	}
	tx, err := h.service.Create(r.Context(), CreateInput{
		TenantID:    req.TenantID,
		EntityID:    req.EntityID,
		TxDate:      txDate,
		Amount:      req.Amount,
		Direction:   req.Direction,
		RefType:     req.RefType,
		RefID:       req.RefID,
		Description: req.Description,
		WithVoucher: req.WithVoucher,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := q.Get("tenant_id")
	if tenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	out, err := h.service.List(r.Context(), tenantID, q.Get("entity_id"), TxStatus(q.Get("status")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type importRequest struct {
	TenantID string      `json:"tenant_id" validate:"required"`
	Dedupe   bool        `json:"dedupe"`
	Rows     []ImportRow `json:"rows" validate:"required,min=1"`
}

func (h *Handler) bulkImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	result, err := h.service.Import(r.Context(), req.TenantID, req.Rows, req.Dedupe)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, err := txRef(r)
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	tx, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

type tenantRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, errors.New("invalid transaction id"))
		return
	}
	var req tenantRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	tx, err := h.service.Match(r.Context(), req.TenantID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

func (h *Handler) unmatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, errors.New("invalid transaction id"))
		return
	}
	var req tenantRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	tx, err := h.service.Unmatch(r.Context(), req.TenantID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

type fundRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	EntityID string `json:"entity_id" validate:"required"`
	Holder   string `json:"holder"`
}

func (h *Handler) ensureFund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	fund, err := h.service.EnsureFund(r.Context(), req.TenantID, req.EntityID, req.Holder)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fund)
}

type fundMoveRequest struct {
	TenantID string          `json:"tenant_id" validate:"required"`
	EntityID string          `json:"entity_id" validate:"required"`
	Kind     string          `json:"kind" validate:"required,oneof=apply offset repay"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
}

func (h *Handler) fundMove(w http.ResponseWriter, r *http.Request) {
	var req fundMoveRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	fund, err := h.service.FundMove(r.Context(), req.TenantID, req.EntityID, req.Kind, req.Amount, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fund)
}

func (h *Handler) fundRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID, entityID := q.Get("tenant_id"), q.Get("entity_id")
	if tenantID == "" || entityID == "" {
		httpx.BadRequest(w, errors.New("tenant_id and entity_id required"))
		return
	}
	records, err := h.service.FundRecords(r.Context(), tenantID, entityID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func txRef(r *http.Request) (string, int64, error) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		return "", 0, errors.New("tenant_id required")
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return "", 0, errors.New("invalid transaction id")
	}
	return tenantID, id, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var exceeded *budget.ExceededError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, err)
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrNotMatched), errors.Is(err, ErrFundExhausted):
		httpx.Conflict(w, err)
	case errors.As(err, &exceeded):
		httpx.ProblemExtra(w, http.StatusUnprocessableEntity, "Budget Exceeded", err.Error(), map[string]any{
			"remaining": exceeded.Remaining,
			"requested": exceeded.Requested,
			"over_by":   exceeded.OverBy,
		})
	default:
		h.logger.Error("cash request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
