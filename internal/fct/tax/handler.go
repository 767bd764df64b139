package tax

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
)

// Handler wires the tax invoice endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for tax invoices and declarations.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.register)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/verify", h.verify)
	r.Post("/declarations/{periodKey}", h.draftDeclaration)
}

type invoiceRequest struct {
	TenantID    string          `json:"tenant_id" validate:"required"`
	EntityID    string          `json:"entity_id"`
	InvoiceType InvoiceType     `json:"invoice_type" validate:"required,oneof=output input"`
	InvoiceNo   string          `json:"invoice_no" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	InvoiceDate string          `json:"invoice_date"`
	Status      string          `json:"status"`
	VoucherID   *int64          `json:"voucher_id"`
}

func (req invoiceRequest) invoice() (Invoice, error) {
	inv := Invoice{
		TenantID:    req.TenantID,
		EntityID:    req.EntityID,
		InvoiceType: req.InvoiceType,
		InvoiceNo:   req.InvoiceNo,
		Amount:      req.Amount,
		TaxAmount:   req.TaxAmount,
		Status:      req.Status,
		VoucherID:   req.VoucherID,
	}
	if req.InvoiceDate != "" {
		d, err := time.Parse("2006-01-02", req.InvoiceDate)
		if err != nil {
			return Invoice{}, errors.New("invoice_date must be YYYY-MM-DD")
		}
		inv.InvoiceDate = d
	}
	return inv, nil
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	inv, err := req.invoice()
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	created, err := h.service.Register(r.Context(), inv)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, errors.New("invalid invoice id"))
		return
	}
	var req invoiceRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	inv, err := req.invoice()
	if err != nil {
		httpx.BadRequest(w, err)
		return
	}
	inv.ID = id
	updated, err := h.service.Update(r.Context(), inv)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, errors.New("invalid invoice id"))
		return
	}
	var req struct {
		TenantID string `json:"tenant_id" validate:"required"`
	}
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	inv, err := h.service.Verify(r.Context(), req.TenantID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, errors.New("invalid invoice id"))
		return
	}
	inv, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID := q.Get("tenant_id")
	if tenantID == "" {
		httpx.BadRequest(w, errors.New("tenant_id required"))
		return
	}
	out, err := h.service.List(r.Context(), tenantID, InvoiceType(q.Get("invoice_type")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) draftDeclaration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID string `json:"tenant_id" validate:"required"`
	}
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	decl, err := h.service.DraftDeclaration(r.Context(), req.TenantID, chi.URLParam(r, "periodKey"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decl)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, err)
	case errors.Is(err, ErrDuplicateNo):
		httpx.Conflict(w, err)
	case errors.Is(err, periods.ErrInvalidKey):
		httpx.BadRequest(w, err)
	default:
		h.logger.Error("tax request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
