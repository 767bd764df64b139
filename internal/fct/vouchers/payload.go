package vouchers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event types handled by the rule engine. Amounts inside payloads are
// integer minor units (cents / 分) and converted to decimals at the
// rule boundary.
const (
	EventStoreDailySettlement = "store_daily_settlement"
	EventPurchaseReceipt      = "purchase_receipt"
	EventPlatformSettlement   = "platform_settlement"
	EventMemberStoredValue    = "member_stored_value"
	EventTypeManual           = "manual"
)

// ErrUnknownEventType marks event types the engine has no rule for.
var ErrUnknownEventType = errors.New("vouchers: no rule for event type")

const bizDateLayout = "2006-01-02"

// PaymentSplit is one payment-method slice of a settlement.
type PaymentSplit struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
}

// SettlementPayload carries a store's daily settlement.
type SettlementPayload struct {
	BizDate          string         `json:"biz_date"`
	TotalSales       int64          `json:"total_sales"`
	TotalSalesTax    int64          `json:"total_sales_tax"`
	PaymentBreakdown []PaymentSplit `json:"payment_breakdown"`
}

func (p SettlementPayload) validate() error {
	if p.BizDate == "" {
		return errors.New("vouchers: settlement requires biz_date")
	}
	if p.TotalSales <= 0 {
		return errors.New("vouchers: settlement requires total_sales > 0")
	}
	if p.TotalSalesTax < 0 || p.TotalSalesTax >= p.TotalSales {
		return errors.New("vouchers: settlement tax out of range")
	}
	if len(p.PaymentBreakdown) == 0 {
		return errors.New("vouchers: settlement requires payment_breakdown")
	}
	for i, split := range p.PaymentBreakdown {
		if split.Method == "" || split.Amount <= 0 {
			return fmt.Errorf("vouchers: payment_breakdown[%d] invalid", i)
		}
	}
	return nil
}

// PurchaseReceiptPayload carries a goods receipt against a supplier.
type PurchaseReceiptPayload struct {
	BizDate      string `json:"biz_date"`
	SupplierCode string `json:"supplier_code"`
	SupplierName string `json:"supplier_name"`
	GrossAmount  int64  `json:"gross_amount"`
	TaxAmount    int64  `json:"tax_amount"`
}

func (p PurchaseReceiptPayload) validate() error {
	if p.BizDate == "" {
		return errors.New("vouchers: purchase receipt requires biz_date")
	}
	if p.SupplierCode == "" {
		return errors.New("vouchers: purchase receipt requires supplier_code")
	}
	if p.GrossAmount <= 0 {
		return errors.New("vouchers: purchase receipt requires gross_amount > 0")
	}
	if p.TaxAmount < 0 || p.TaxAmount >= p.GrossAmount {
		return errors.New("vouchers: purchase receipt tax out of range")
	}
	return nil
}

// PlatformSettlementPayload carries a delivery-platform payout.
type PlatformSettlementPayload struct {
	Platform    string `json:"platform"`
	BizDate     string `json:"biz_date"`
	GrossAmount int64  `json:"gross_amount"`
	Commission  int64  `json:"commission"`
}

func (p PlatformSettlementPayload) validate() error {
	if p.Platform == "" {
		return errors.New("vouchers: platform settlement requires platform")
	}
	if p.GrossAmount <= 0 {
		return errors.New("vouchers: platform settlement requires gross_amount > 0")
	}
	if p.Commission < 0 || p.Commission >= p.GrossAmount {
		return errors.New("vouchers: platform commission out of range")
	}
	return nil
}

// Stored-value transaction kinds.
const (
	StoredValueCharge  = "charge"
	StoredValueConsume = "consume"
	StoredValueRefund  = "refund"
)

// MemberStoredValuePayload carries a member wallet movement.
type MemberStoredValuePayload struct {
	Kind     string `json:"kind"`
	MemberID string `json:"member_id"`
	Amount   int64  `json:"amount"`
	BizDate  string `json:"biz_date"`
}

func (p MemberStoredValuePayload) validate() error {
	switch p.Kind {
	case StoredValueCharge, StoredValueConsume, StoredValueRefund:
	default:
		return fmt.Errorf("vouchers: unknown stored value kind %q", p.Kind)
	}
	if p.Amount <= 0 {
		return errors.New("vouchers: stored value requires amount > 0")
	}
	return nil
}

// Payload is the tagged union of rule-engine inputs.
type Payload interface {
	validate() error
}

// ParsePayload decodes and validates the payload for an event type.
func ParsePayload(eventType string, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch eventType {
	case EventStoreDailySettlement:
		p = &SettlementPayload{}
	case EventPurchaseReceipt:
		p = &PurchaseReceiptPayload{}
	case EventPlatformSettlement:
		p = &PlatformSettlementPayload{}
	case EventMemberStoredValue:
		p = &MemberStoredValuePayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("vouchers: decode %s payload: %w", eventType, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func resolveBizDate(raw string, required bool, now time.Time) (time.Time, error) {
	if raw == "" {
		if required {
			return time.Time{}, errors.New("vouchers: biz_date required")
		}
		return now.Truncate(24 * time.Hour), nil
	}
	d, err := time.Parse(bizDateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("vouchers: bad biz_date %q: %w", raw, err)
	}
	return d, nil
}
