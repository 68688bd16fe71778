package cli

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatMoney renders an amount in the given currency, e.g. "$4.80".
// Unknown currencies fall back to the plain amount followed by the code.
func formatMoney(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}

	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// formatPercent renders a percentage with two decimals
func formatPercent(pct decimal.Decimal) string {
	return pct.StringFixed(2) + "%"
}
