// Package money formats and rounds currency amounts.
package money

import (
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amounts are JSON numbers on the wire, as browser clients expect.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	printerOnce sync.Once
	printer     *message.Printer
)

func usPrinter() *message.Printer {
	printerOnce.Do(func() {
		printer = message.NewPrinter(language.AmericanEnglish)
	})
	return printer
}

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders d as $1,234.56.
func Format(d decimal.Decimal) string {
	d = Round(d)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	f, _ := d.Float64()
	return sign + "$" + usPrinter().Sprintf("%.2f", f)
}

// Any formats decimals, floats and integers; other values render as $0.00.
func Any(v any) string {
	switch x := v.(type) {
	case decimal.Decimal:
		return Format(x)
	case *decimal.Decimal:
		if x == nil {
			return Format(decimal.Zero)
		}
		return Format(*x)
	case float64:
		return Format(decimal.NewFromFloat(x))
	case int64:
		return Format(decimal.NewFromInt(x))
	case int:
		return Format(decimal.NewFromInt(int64(x)))
	}
	return Format(decimal.Zero)
}

// Percent applies a markdown of pct percent to price: price*(1-pct/100).
func Percent(price decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(pct.Div(decimal.NewFromInt(100)))
	return Round(price.Mul(factor))
}
