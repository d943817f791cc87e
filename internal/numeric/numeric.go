// Package numeric centralizes the tolerant conversion of untyped brokerage
// JSON scalars (which frequently arrive as strings with commas, currency
// marks, or simply absent) into Go numbers, defaulting to zero on any
// failure rather than propagating a parse error through every call site.
package numeric

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// stripNonNumeric removes everything but digits, a leading sign, and a
// single decimal point from a raw scalar's string form.
func stripNonNumeric(s string) string {
	var b strings.Builder
	seenDot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// toString renders any untyped JSON scalar as a string for cleaning, since
// the brokerage mixes string- and number-typed JSON fields for the same
// logical value across endpoints.
func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}

// Int converts an untyped JSON scalar to an int64, defaulting to 0 on any
// failure (absent field, garbage string, unsupported type).
func Int(v interface{}) int64 {
	cleaned := stripNonNumeric(toString(v))
	if cleaned == "" || cleaned == "-" {
		return 0
	}
	// Truncate toward zero if a decimal point slipped through.
	if idx := strings.IndexByte(cleaned, '.'); idx >= 0 {
		cleaned = cleaned[:idx]
		if cleaned == "" || cleaned == "-" {
			return 0
		}
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Float converts an untyped JSON scalar to a float64, defaulting to 0 on
// any failure.
func Float(v interface{}) float64 {
	cleaned := stripNonNumeric(toString(v))
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// Decimal converts an untyped JSON scalar to a decimal.Decimal, defaulting
// to zero on any failure. Used for the accounting-precision fields (market
// cap, turnover) that must not pick up float64 rounding error.
func Decimal(v interface{}) decimal.Decimal {
	cleaned := stripNonNumeric(toString(v))
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// String coerces an untyped JSON scalar to a trimmed string, defaulting to
// "" for nil or unsupported types. Unlike Int/Float/Decimal this does not
// strip punctuation — it is used for fields that are genuinely textual
// (names, codes, dates) but may arrive boxed oddly.
func String(v interface{}) string {
	return strings.TrimSpace(toString(v))
}
