// Package amount lexes currency figures out of free-form bank text.
package amount

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// TwoDecimal matches figures such as "1,23,456.78" that carry exactly two fraction digits.
var TwoDecimal = regexp.MustCompile(`[\d,]+\.\d{2}`)

// Tolerance is the absolute difference under which two amounts are considered equal.
var Tolerance = decimal.RequireFromString("0.01")

// Match is one figure located in a text.
type Match struct {
	Value decimal.Decimal
	Text  string
	Start int
	End   int
}

// Parse converts a figure with optional thousands separators into a decimal.
func Parse(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", s, err)
	}
	return d, nil
}

// FindAll returns every two-decimal figure in text, left to right.
// Tokens that are only separators are skipped.
func FindAll(text string) []Match {
	locs := TwoDecimal.FindAllStringIndex(text, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		raw := text[loc[0]:loc[1]]
		value, err := Parse(raw)
		if err != nil {
			continue
		}
		matches = append(matches, Match{Value: value, Text: raw, Start: loc[0], End: loc[1]})
	}
	return matches
}

// First returns the leftmost two-decimal figure in text.
func First(text string) (Match, bool) {
	matches := FindAll(text)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// Equal reports whether a and b differ by less than tolerance.
func Equal(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}
