package statement

import (
	"strings"

	"github.com/Veraticus/spendwise/internal/amount"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
)

// row is one logical table row after line-wrap reassembly.
type row struct {
	dateText    string
	description string
	amounts     []decimal.Decimal
	balance     decimal.Decimal
}

// parseRow reassembles the row starting at lines[index] and splits it into
// description, transaction amounts and closing balance. Rows without any
// figure are rejected.
func (p *Parser) parseRow(lines []string, index, end int) (row, bool) {
	dateText := rowStartPattern.FindString(lines[index])
	blob := collectRow(lines, index, end)

	description, region, ok := splitRow(blob)
	if !ok {
		p.logger.Debug("skipping row without amounts", "line", index, "text", blob)
		return row{}, false
	}

	// A value date may lead the amounts region.
	region = strings.TrimSpace(rowStartPattern.ReplaceAllString(region, ""))

	figures := amount.FindAll(region)
	if len(figures) == 0 {
		p.logger.Debug("skipping row without amounts", "line", index, "text", blob)
		return row{}, false
	}

	r := row{
		dateText:    dateText,
		description: description,
		balance:     figures[len(figures)-1].Value,
	}
	for _, f := range figures[:len(figures)-1] {
		r.amounts = append(r.amounts, f.Value)
	}
	return r, true
}

// collectRow joins the lines of one row, absorbing wrapped narration.
func collectRow(lines []string, index, end int) string {
	parts := make([]string, 0, maxLinesPerRow)
	for j := index; j < end && j < index+maxLinesPerRow; j++ {
		line := lines[j]
		if j > index && rowStartPattern.MatchString(line) {
			break
		}
		if containsFold(line, summaryMarker) || strings.Contains(line, pageMarker) {
			break
		}
		parts = append(parts, line)
	}
	return collapse(strings.Join(parts, " "))
}

// splitRow separates narration from the amounts region. The reference number
// is the anchor when present, otherwise the first figure is.
func splitRow(blob string) (description, region string, ok bool) {
	if loc := referencePattern.FindStringIndex(blob); loc != nil {
		return cleanDescription(blob[:loc[0]]), strings.TrimSpace(blob[loc[1]:]), true
	}

	first, found := amount.First(blob)
	if !found {
		return "", "", false
	}
	return cleanDescription(blob[:first.Start]), blob[first.Start:], true
}

func cleanDescription(s string) string {
	return strings.TrimSpace(collapse(datePattern.ReplaceAllString(s, "")))
}

func collapse(s string) string {
	return whitespace.ReplaceAllString(s, " ")
}

// classify decides debit or credit from the balance movement. Only the first
// transaction amount is used when a row carries several. Rows with no
// reference balance or no transaction amount are not emitted.
func (p *Parser) classify(r row, previous *decimal.Decimal) (model.PdfTransaction, bool) {
	if len(r.amounts) == 0 {
		p.logger.Debug("balance-only row", "date", r.dateText, "balance", r.balance.String())
		return model.PdfTransaction{}, false
	}
	if len(r.amounts) > 1 {
		p.logger.Debug("row has several transaction amounts, using the first",
			"date", r.dateText, "count", len(r.amounts))
	}
	if previous == nil {
		p.logger.Debug("no previous balance, row only seeds the running balance",
			"date", r.dateText, "balance", r.balance.String())
		return model.PdfTransaction{}, false
	}

	value := r.amounts[0]
	txn := model.PdfTransaction{
		DateText:    r.dateText,
		Timestamp:   p.parseDate(r.dateText),
		Description: r.description,
		Balance:     r.balance,
		IsSelected:  true,
	}

	if r.balance.GreaterThan(*previous) {
		txn.Credit = &value
	} else {
		// Unchanged balances are treated as withdrawals.
		txn.Debit = &value
	}
	return txn, true
}
