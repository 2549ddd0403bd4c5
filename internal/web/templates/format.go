// Package templates renders the HTML pages of the ledger as templ components.
package templates

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format renders amounts for one locale.
type Format struct {
	printer *message.Printer
}

// NewFormat returns a Format for a BCP 47 locale such as "es-MX". Unknown
// locales fall back to es-MX.
func NewFormat(locale string) Format {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("es-MX")
	}
	return Format{printer: message.NewPrinter(tag)}
}

// Money renders d as a peso amount with two decimals and grouping: $1,127.96.
func (f Format) Money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + f.printer.Sprintf("$%.2f", d.Neg().InexactFloat64())
	}
	return f.printer.Sprintf("$%.2f", d.InexactFloat64())
}

// Number renders d with grouping and up to four decimals, without a currency sign.
func (f Format) Number(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return f.printer.Sprintf("%d", d.IntPart())
	}
	return f.printer.Sprint(d.Round(4).InexactFloat64())
}

// Count renders an integer with grouping.
func (f Format) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}
