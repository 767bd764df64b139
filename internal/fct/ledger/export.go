package ledger

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteBalancesCSV streams account balances as CSV. Amounts carry both
// an exact column and a grouped display column.
func WriteBalancesCSV(w io.Writer, balances []AccountBalance) error {
	printer := message.NewPrinter(language.English)
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"account_code", "account_name", "debit", "credit", "balance", "balance_display"}); err != nil {
		return err
	}
	for _, b := range balances {
		display := printer.Sprintf("%v", b.Balance.InexactFloat64())
		record := []string{
			b.AccountCode,
			b.AccountName,
			b.Debit.StringFixed(2),
			b.Credit.StringFixed(2),
			b.Balance.StringFixed(2),
			display,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
