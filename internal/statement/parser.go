// Package statement recovers transactions from the plain text of a bank
// statement PDF. Rows are classified as withdrawals or deposits by comparing
// consecutive running balances rather than by column position, since column
// alignment does not survive text extraction.
package statement

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
)

const (
	summaryMarker  = "STATEMENT SUMMARY"
	pageMarker     = "Page No"
	maxLinesPerRow = 10
)

var headerTokens = []string{"Date", "Narration", "Withdrawal Amt.", "Deposit Amt."}

var (
	rowStartPattern  = regexp.MustCompile(`^\d{2}[/-]\d{2}[/-]\d{2,4}`)
	datePattern      = regexp.MustCompile(`\d{2}[/-]\d{2}[/-]\d{2,4}`)
	referencePattern = regexp.MustCompile(`\b0000\d{11,12}\b`)
	whitespace       = regexp.MustCompile(`\s+`)
)

// Parser extracts PdfTransactions from statement text. It holds no mutable
// state and may be shared between goroutines.
type Parser struct {
	logger   *slog.Logger
	now      func() time.Time
	location *time.Location
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for row-level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithClock sets the clock used when a row date cannot be parsed.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// WithLocation sets the time zone statement dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		p.location = loc
	}
}

// NewParser creates a statement parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// tableBounds is the half-open line range holding transaction rows.
type tableBounds struct {
	start int
	end   int
}

// Parse returns the debit and credit rows found in text, in document order.
// Text without a recognizable transaction table yields no rows.
func (p *Parser) Parse(text string) []model.PdfTransaction {
	lines := splitLines(text)

	bounds, ok := findTable(lines)
	if !ok {
		p.logger.Debug("no transaction table found")
		return nil
	}

	previous, found := findOpeningBalance(lines, bounds.end)
	if found {
		p.logger.Debug("found opening balance", "balance", previous.String())
	} else {
		p.logger.Debug("no opening balance found, first row will only seed the balance")
	}

	var (
		transactions []model.PdfTransaction
		prev         *decimal.Decimal
	)
	if found {
		prev = &previous
	}

	for i := bounds.start; i < bounds.end; i++ {
		if !rowStartPattern.MatchString(lines[i]) {
			continue
		}

		r, ok := p.parseRow(lines, i, bounds.end)
		if !ok {
			continue
		}

		txn, emitted := p.classify(r, prev)
		balance := r.balance
		prev = &balance

		if emitted {
			transactions = append(transactions, txn)
		}
	}

	p.logger.Debug("parsed statement", "rows", len(transactions))
	return transactions
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// findTable locates the header line and the summary line that closes the table.
func findTable(lines []string) (tableBounds, bool) {
	start := -1
	for i, line := range lines {
		if isHeader(line) {
			start = i + 1
			break
		}
	}
	if start == -1 {
		return tableBounds{}, false
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if containsFold(lines[i], summaryMarker) {
			end = i
			break
		}
	}
	return tableBounds{start: start, end: end}, true
}

func isHeader(line string) bool {
	for _, token := range headerTokens {
		if !strings.Contains(line, token) {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(substr))
}
