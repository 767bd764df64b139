package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/money"
)

// Convention pins the account-code conventions the aggregate reports
// are derived from.
type Convention struct {
	RevenuePrefix    string
	ExpensePrefix    string
	CostAccount      string
	VATPrefix        string
	OutputTaxAccount string
	InputTaxAccount  string
}

// DefaultConvention matches the stock chart of accounts.
func DefaultConvention() Convention {
	return Convention{
		RevenuePrefix:    "6",
		ExpensePrefix:    "66",
		CostAccount:      "1405",
		VATPrefix:        "2221",
		OutputTaxAccount: "22210101",
		InputTaxAccount:  "22210102",
	}
}

// BuildBalances folds entry rows into per-account totals with signed
// balances, sorted by account code.
func BuildBalances(rows []EntryRow) []AccountBalance {
	byCode := make(map[string]*AccountBalance)
	for _, row := range rows {
		b, ok := byCode[row.AccountCode]
		if !ok {
			b = &AccountBalance{AccountCode: row.AccountCode, AccountName: row.AccountName,
				Debit: decimal.Zero, Credit: decimal.Zero}
			byCode[row.AccountCode] = b
		}
		b.Debit = b.Debit.Add(row.Debit)
		b.Credit = b.Credit.Add(row.Credit)
	}
	out := make([]AccountBalance, 0, len(byCode))
	for _, b := range byCode {
		b.Balance = money.SignedBalance(b.Debit, b.Credit)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out
}

// BuildSummary derives revenue, cost, margin and VAT from entry rows.
// VAT-family accounts are kept out of the revenue bucket even though
// their codes do not share the revenue prefix.
func BuildSummary(rows []EntryRow, c Convention) Summary {
	s := Summary{
		Revenue: decimal.Zero, Expense: decimal.Zero, Cost: decimal.Zero, GrossMargin: decimal.Zero,
		OutputVAT: decimal.Zero, InputVAT: decimal.Zero, NetVAT: decimal.Zero,
	}
	for _, row := range rows {
		switch {
		case row.AccountCode == c.OutputTaxAccount:
			s.OutputVAT = s.OutputVAT.Add(row.Credit).Sub(row.Debit)
		case row.AccountCode == c.InputTaxAccount:
			s.InputVAT = s.InputVAT.Add(row.Debit).Sub(row.Credit)
		case strings.HasPrefix(row.AccountCode, c.VATPrefix):
			// Other VAT sub-accounts stay out of revenue and cost.
		case row.AccountCode == c.CostAccount:
			s.Cost = s.Cost.Add(row.Debit).Sub(row.Credit)
		case c.ExpensePrefix != "" && strings.HasPrefix(row.AccountCode, c.ExpensePrefix):
			s.Expense = s.Expense.Add(row.Debit).Sub(row.Credit)
		case strings.HasPrefix(row.AccountCode, c.RevenuePrefix):
			s.Revenue = s.Revenue.Add(row.Credit).Sub(row.Debit)
		}
	}
	s.GrossMargin = s.Revenue.Sub(s.Cost)
	s.NetVAT = s.OutputVAT.Sub(s.InputVAT)
	if !s.Revenue.IsZero() {
		pct := money.Round2(s.GrossMargin.Div(s.Revenue).Mul(decimal.NewFromInt(100)))
		s.MarginPct = &pct
	}
	return s
}

// GroupSummaries aggregates rows per dimension value produced by keyFn.
func GroupSummaries(rows []EntryRow, c Convention, keyFn func(EntryRow) string) []EntitySummary {
	grouped := make(map[string][]EntryRow)
	keys := make([]string, 0)
	for _, row := range rows {
		key := keyFn(row)
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], row)
	}
	sort.Strings(keys)
	out := make([]EntitySummary, 0, len(keys))
	for _, key := range keys {
		out = append(out, EntitySummary{Key: key, Summary: BuildSummary(grouped[key], c)})
	}
	return out
}

// Totals sums debit and credit across rows.
func Totals(rows []EntryRow) (decimal.Decimal, decimal.Decimal) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, row := range rows {
		debit = debit.Add(row.Debit)
		credit = credit.Add(row.Credit)
	}
	return debit, credit
}
