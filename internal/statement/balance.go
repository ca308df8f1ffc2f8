package statement

import (
	"github.com/Veraticus/spendwise/internal/amount"
	"github.com/shopspring/decimal"
)

var openingBalanceLabels = []string{"Opening Balance", "Opening Bal", "Op. Balance"}

// findOpeningBalance looks for the opening balance in the summary that
// follows the table, then anywhere in the document.
func findOpeningBalance(lines []string, tableEnd int) (decimal.Decimal, bool) {
	if balance, ok := searchOpeningBalance(lines, tableEnd); ok {
		return balance, true
	}
	return searchOpeningBalance(lines, 0)
}

// searchOpeningBalance scans lines[from:] for an opening balance label and
// takes the first figure on that line, or on the line after it.
func searchOpeningBalance(lines []string, from int) (decimal.Decimal, bool) {
	for i := from; i < len(lines); i++ {
		if !hasOpeningBalanceLabel(lines[i]) {
			continue
		}
		if m, ok := amount.First(lines[i]); ok {
			return m.Value, true
		}
		if i+1 < len(lines) {
			if m, ok := amount.First(lines[i+1]); ok {
				return m.Value, true
			}
		}
	}
	return decimal.Zero, false
}

func hasOpeningBalanceLabel(line string) bool {
	for _, label := range openingBalanceLabels {
		if containsFold(line, label) {
			return true
		}
	}
	return false
}
