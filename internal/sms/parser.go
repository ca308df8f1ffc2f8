// Package sms extracts transactions from bank SMS notifications.
//
// Extraction is best-effort and regex driven. A message that does not look
// like a transaction is reported as such and never treated as an error.
package sms

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/amount"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
)

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Rs\.?|INR)\s*([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)(?:amount|amt)\s*(?:of)?\s*(?:Rs\.?|INR)?\s*([\d,]+(?:\.\d{2})?)`),
}

var balancePattern = regexp.MustCompile(
	`(?i)(?:avl|available|current)\s*(?:bal|balance)\s*(?:is)?\s*(?:Rs\.?|INR)?\s*([\d,]+(?:\.\d{2})?)`)

var merchantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:at|to|for|on)\s+([A-Z][A-Z0-9\s&-]+?)(?:\s+on|\.|,|\s+avl|\s+info)`),
	regexp.MustCompile(`(?i)(?:merchant|vendor)\s+([A-Z][A-Z0-9\s&-]+?)(?:\.|,|\s)`),
	// UPI "To NAME" notifications
	regexp.MustCompile(`(?i)To\s+([A-Z][A-Z\s]+?)(?:\s+On|\n|$)`),
}

var merchantFallback = regexp.MustCompile(`(?i)(?:at|to|for)\s+([A-Z]+[A-Z0-9]*)`)

var accountPattern = regexp.MustCompile(`(?i)(?:A/c|account|card)\s*(?:no\.?)?\s*(?:XX|\*\*|ending)?\s*(\d{4})`)

var (
	whitespace        = regexp.MustCompile(`\s+`)
	merchantDisallows = regexp.MustCompile(`[^A-Za-z0-9\s&-]`)
)

// Parser turns SMS bodies into ParsedSMS values. It is stateless and safe
// for concurrent use.
type Parser struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithClock sets the clock used for parsed timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// NewParser creates an SMS parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Parse extracts a transaction from body. The second return value is false
// when the message is not a transaction.
func (p *Parser) Parse(body, sender string) (model.ParsedSMS, bool) {
	lower := strings.ToLower(body)
	hasDebit := containsAny(lower, debitKeywords)
	hasCredit := containsAny(lower, creditKeywords)

	if !hasDebit && !hasCredit && containsAny(lower, excludeKeywords) {
		p.logger.Debug("skipping non-transaction sms", "sender", sender)
		return model.ParsedSMS{}, false
	}

	value, ok := extractAmount(body)
	if !ok {
		p.logger.Debug("no amount in sms", "sender", sender)
		return model.ParsedSMS{}, false
	}

	merchant := extractMerchant(body)
	if merchant == "" {
		merchant = model.UnknownMerchant
	}

	return model.ParsedSMS{
		Amount:       value,
		Merchant:     merchant,
		Type:         direction(hasDebit, hasCredit),
		Timestamp:    p.now(),
		AccountLast4: extractAccount(body),
		BankName:     BankName(sender),
		RawText:      body,
	}, true
}

func direction(hasDebit, hasCredit bool) model.TransactionType {
	switch {
	case hasDebit && !hasCredit:
		return model.TransactionDebit
	case hasCredit && !hasDebit:
		return model.TransactionCredit
	default:
		return model.TransactionUnknown
	}
}

// extractAmount returns the first currency figure that is not the quoted
// account balance.
func extractAmount(body string) (decimal.Decimal, bool) {
	var (
		balance    decimal.Decimal
		hasBalance bool
	)
	if m := balancePattern.FindStringSubmatch(body); m != nil {
		if v, err := amount.Parse(m[1]); err == nil {
			balance, hasBalance = v, true
		}
	}

	for _, pattern := range amountPatterns {
		for _, m := range pattern.FindAllStringSubmatch(body, -1) {
			v, err := amount.Parse(m[1])
			if err != nil {
				continue
			}
			if hasBalance && amount.Equal(v, balance, amount.Tolerance) {
				continue
			}
			return v, true
		}
	}
	return decimal.Zero, false
}

func extractMerchant(body string) string {
	for _, pattern := range merchantPatterns {
		m := pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		return cleanMerchant(m[1])
	}

	if m := merchantFallback.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func cleanMerchant(s string) string {
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = merchantDisallows.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func extractAccount(body string) string {
	if m := accountPattern.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}
