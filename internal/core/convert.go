package core

// convert.go turns raw sheet cells into typed values and back.
//
// Sheets are edited by hand in a spreadsheet application, so numeric cells
// arrive with currency symbols, thousands separators, accounting negatives
// and the occasional word. Anything that is not a number after cleanup is
// coerced to zero rather than rejected.

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// currencyTokens are stripped from numeric cells before parsing.
var currencyTokens = []string{"$", "€", "£", "MXN", "USD", "mxn", "usd"}

// TimestampLayout is the layout of FECHA_REGISTRO cells.
const TimestampLayout = "2006-01-02 15:04"

// ParseNumber converts a cell to a decimal.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative). Non-numeric input yields zero.
func ParseNumber(s string) decimal.Decimal {
	s = CleanCell(s)
	if s == "" {
		return decimal.Zero
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatNumber renders d for storage, without trailing zeros.
func FormatNumber(d decimal.Decimal) string {
	return d.String()
}

// NormalizeNumber rewrites a numeric cell in storage form; garbage becomes "0".
func NormalizeNumber(s string) string {
	return FormatNumber(ParseNumber(s))
}

// FormatTimestamp renders t as a FECHA_REGISTRO cell.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a FECHA_REGISTRO cell.
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(TimestampLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}
