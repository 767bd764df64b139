package vouchers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/money"
)

// LineSpec is a rule-produced line before persistence.
type LineSpec struct {
	Account     Account
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Auxiliary   map[string]string
	Description string
}

// RuleResult is the outcome of mapping one event to voucher lines.
type RuleResult struct {
	BizDate     time.Time
	Description string
	Lines       []LineSpec
}

// buildLines maps a validated payload onto the chart of accounts.
func buildLines(chart ChartOfAccounts, eventType string, payload Payload, now time.Time) (RuleResult, error) {
	switch p := payload.(type) {
	case *SettlementPayload:
		return storeDailySettlement(chart, p, now)
	case *PurchaseReceiptPayload:
		return purchaseReceipt(chart, p, now)
	case *PlatformSettlementPayload:
		return platformSettlement(chart, p, now)
	case *MemberStoredValuePayload:
		return memberStoredValue(chart, p, now)
	}
	return RuleResult{}, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
}

// storeDailySettlement debits each payment method (cash vs bank) and
// credits revenue net of tax plus the output tax payable.
func storeDailySettlement(chart ChartOfAccounts, p *SettlementPayload, now time.Time) (RuleResult, error) {
	bizDate, err := resolveBizDate(p.BizDate, true, now)
	if err != nil {
		return RuleResult{}, err
	}
	var lines []LineSpec
	for _, split := range p.PaymentBreakdown {
		account := chart.Bank
		if split.Method == "cash" {
			account = chart.Cash
		}
		lines = append(lines, LineSpec{
			Account:     account,
			Debit:       money.FromMinorUnits(split.Amount),
			Auxiliary:   map[string]string{"payment_method": split.Method},
			Description: "营业款-" + split.Method,
		})
	}
	net := money.FromMinorUnits(p.TotalSales - p.TotalSalesTax)
	tax := money.FromMinorUnits(p.TotalSalesTax)
	lines = append(lines,
		LineSpec{Account: chart.Revenue, Credit: net, Description: "营业收入"},
	)
	if tax.IsPositive() {
		lines = append(lines, LineSpec{Account: chart.OutputTax, Credit: tax, Description: "销项税额"})
	}
	return RuleResult{BizDate: bizDate, Description: "门店日结 " + p.BizDate, Lines: lines}, nil
}

// purchaseReceipt separates price and tax: inventory at net, input tax,
// payable at gross with the supplier as an auxiliary dimension.
func purchaseReceipt(chart ChartOfAccounts, p *PurchaseReceiptPayload, now time.Time) (RuleResult, error) {
	bizDate, err := resolveBizDate(p.BizDate, true, now)
	if err != nil {
		return RuleResult{}, err
	}
	gross := money.FromMinorUnits(p.GrossAmount)
	tax := money.FromMinorUnits(p.TaxAmount)
	net := gross.Sub(tax)
	aux := map[string]string{"supplier": p.SupplierCode}
	lines := []LineSpec{
		{Account: chart.Inventory, Debit: net, Auxiliary: aux, Description: "采购入库"},
	}
	if tax.IsPositive() {
		lines = append(lines, LineSpec{Account: chart.InputTax, Debit: tax, Auxiliary: aux, Description: "进项税额"})
	}
	lines = append(lines, LineSpec{Account: chart.Payable, Credit: gross, Auxiliary: aux, Description: "应付-" + supplierLabel(p)})
	return RuleResult{BizDate: bizDate, Description: "采购入库 " + supplierLabel(p), Lines: lines}, nil
}

func supplierLabel(p *PurchaseReceiptPayload) string {
	if p.SupplierName != "" {
		return p.SupplierName
	}
	return p.SupplierCode
}

// platformSettlement debits the net payout and the commission expense,
// crediting the receivable at gross.
func platformSettlement(chart ChartOfAccounts, p *PlatformSettlementPayload, now time.Time) (RuleResult, error) {
	bizDate, err := resolveBizDate(p.BizDate, false, now)
	if err != nil {
		return RuleResult{}, err
	}
	gross := money.FromMinorUnits(p.GrossAmount)
	commission := money.FromMinorUnits(p.Commission)
	net := gross.Sub(commission)
	aux := map[string]string{"platform": p.Platform}
	lines := []LineSpec{
		{Account: chart.Bank, Debit: net, Auxiliary: aux, Description: "平台到账"},
	}
	if commission.IsPositive() {
		lines = append(lines, LineSpec{Account: chart.SalesExpense, Debit: commission, Auxiliary: aux, Description: "平台佣金"})
	}
	lines = append(lines, LineSpec{Account: chart.Receivable, Credit: gross, Auxiliary: aux, Description: "平台结算"})
	return RuleResult{BizDate: bizDate, Description: "平台结算 " + p.Platform, Lines: lines}, nil
}

// memberStoredValue moves value between bank, contract liability and
// revenue depending on the transaction kind.
func memberStoredValue(chart ChartOfAccounts, p *MemberStoredValuePayload, now time.Time) (RuleResult, error) {
	bizDate, err := resolveBizDate(p.BizDate, false, now)
	if err != nil {
		return RuleResult{}, err
	}
	amount := money.FromMinorUnits(p.Amount)
	aux := map[string]string{}
	if p.MemberID != "" {
		aux["member"] = p.MemberID
	}
	var lines []LineSpec
	var desc string
	switch p.Kind {
	case StoredValueCharge:
		desc = "会员储值充值"
		lines = []LineSpec{
			{Account: chart.Bank, Debit: amount, Auxiliary: aux, Description: desc},
			{Account: chart.ContractLiability, Credit: amount, Auxiliary: aux, Description: desc},
		}
	case StoredValueConsume:
		desc = "会员储值消费"
		lines = []LineSpec{
			{Account: chart.ContractLiability, Debit: amount, Auxiliary: aux, Description: desc},
			{Account: chart.Revenue, Credit: amount, Auxiliary: aux, Description: desc},
		}
	case StoredValueRefund:
		desc = "会员储值退款"
		lines = []LineSpec{
			{Account: chart.ContractLiability, Debit: amount, Auxiliary: aux, Description: desc},
			{Account: chart.Bank, Credit: amount, Auxiliary: aux, Description: desc},
		}
	}
	return RuleResult{BizDate: bizDate, Description: desc, Lines: lines}, nil
}

// forceBalance injects a difference-adjustment line when the split does
// not land on zero. Returns the (possibly extended) lines and the
// difference that was absorbed.
func forceBalance(chart ChartOfAccounts, lines []LineSpec) ([]LineSpec, decimal.Decimal) {
	sides := make([]money.Side, 0, len(lines))
	for _, l := range lines {
		sides = append(sides, money.Side{Debit: l.Debit, Credit: l.Credit})
	}
	diff := money.Difference(sides)
	if diff.IsZero() {
		return lines, diff
	}
	adj := LineSpec{Account: chart.DiffAdjustment, Description: "差额调整"}
	if diff.IsPositive() {
		adj.Credit = diff
	} else {
		adj.Debit = diff.Neg()
	}
	return append(lines, adj), diff
}
