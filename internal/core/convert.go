package core

// convert.go turns raw CSV cells into typed values.
//
// These functions handle the messy reality of user-provided CSV data:
//   - Currency symbols and thousand separators in amounts
//   - Excel formula prefixes (="value")
//   - Stray quotes and surrounding whitespace

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

var (
	errAmountFormat   = errors.New("invalid amount format")
	errAmountNegative = errors.New("invalid amount: must not be negative")
)

// ParseAmount converts a statement amount to a decimal.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative). Negative amounts are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errAmountFormat
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency markers and thousands separators
	for _, sym := range []string{"₹", "Rs.", "Rs", "INR", "$", "€", "£", ","} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, errAmountFormat
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errAmountFormat
	}
	if d.IsNegative() {
		return decimal.Zero, errAmountNegative
	}
	return d, nil
}

// NormalizeVPA is the matching key for a VPA: trimmed and lowercased.
// It is idempotent.
func NormalizeVPA(vpa string) string {
	return strings.ToLower(strings.TrimSpace(vpa))
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes one matched pair of surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = unquote(s)

	return strings.TrimSpace(s)
}

// unquote strips s of one pair of matching surrounding quotes. A lone
// apostrophe, as in O'Neill or 'Neill, is part of the value.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
		return s[1 : len(s)-1]
	}
	return s
}

// isBlankRow reports whether every cell of row is empty after cleaning.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if CleanCell(cell) != "" {
			return false
		}
	}
	return true
}
