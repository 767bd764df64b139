package tax

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes issued from received invoices.
type InvoiceType string

const (
	TypeOutput InvoiceType = "output"
	TypeInput  InvoiceType = "input"
)

// Verification states. The verify integration is a stub: it always
// succeeds and must be treated as non-authoritative.
const (
	VerifyPending  = "pending"
	VerifyVerified = "verified"
)

// Invoice is one tax invoice registered against the ledger.
type Invoice struct {
	ID           int64           `json:"id"`
	TenantID     string          `json:"tenant_id"`
	EntityID     string          `json:"entity_id"`
	InvoiceType  InvoiceType     `json:"invoice_type"`
	InvoiceNo    string          `json:"invoice_no"`
	Amount       decimal.Decimal `json:"amount"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	InvoiceDate  time.Time       `json:"invoice_date"`
	Status       string          `json:"status"`
	VoucherID    *int64          `json:"voucher_id,omitempty"`
	VerifyStatus string          `json:"verify_status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Declaration is a draft VAT declaration derived from the ledger.
type Declaration struct {
	TenantID   string          `json:"tenant_id"`
	PeriodKey  string          `json:"period_key"`
	OutputVAT  decimal.Decimal `json:"output_vat"`
	InputVAT   decimal.Decimal `json:"input_vat"`
	PayableVAT decimal.Decimal `json:"payable_vat"`
	DraftedAt  time.Time       `json:"drafted_at"`
}

var (
	// ErrNotFound indicates a missing invoice.
	ErrNotFound = errors.New("tax: invoice not found")
	// ErrDuplicateNo rejects a reused invoice number per tenant and type.
	ErrDuplicateNo = errors.New("tax: invoice number already registered")
)
