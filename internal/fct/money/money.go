// Package money holds the exact-decimal primitives shared by every
// ledger-facing component. All monetary values are shopspring decimals;
// binary floats never cross a package boundary.
package money

import "github.com/shopspring/decimal"

// Tolerance is the maximum absolute debit/credit difference a voucher
// may carry and still count as balanced.
var Tolerance = decimal.New(1, -2) // 0.01

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// FromMinorUnits converts an integer amount in minor units (cents, 分)
// into a decimal major-unit amount.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

// Round2 rounds half-up to two fractional digits.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Side is one leg of a double-entry line.
type Side struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Difference returns sum(debit) - sum(credit) over the sides.
func Difference(sides []Side) decimal.Decimal {
	diff := decimal.Zero
	for _, s := range sides {
		diff = diff.Add(s.Debit).Sub(s.Credit)
	}
	return diff
}

// Balanced reports whether the sides balance within Tolerance.
func Balanced(sides []Side) bool {
	return WithinTolerance(Difference(sides))
}

// WithinTolerance reports whether |diff| <= Tolerance.
func WithinTolerance(diff decimal.Decimal) bool {
	return diff.Abs().Cmp(Tolerance) <= 0
}

// SignedBalance returns debit - credit, the conventional signed balance
// of an account.
func SignedBalance(debit, credit decimal.Decimal) decimal.Decimal {
	return debit.Sub(credit)
}
