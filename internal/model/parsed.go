package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownMerchant is used when no merchant could be extracted from a message.
const UnknownMerchant = "Unknown Merchant"

// ParsedSMS is the result of parsing one bank notification. It is never stored directly.
type ParsedSMS struct {
	Timestamp    time.Time
	Amount       decimal.Decimal
	Merchant     string
	Type         TransactionType
	AccountLast4 string
	BankName     string
	RawText      string
}

// PdfTransaction is one row recovered from a bank statement, pending user review.
// Exactly one of Debit and Credit is set for rows produced by the statement parser.
type PdfTransaction struct {
	Timestamp           time.Time
	Debit               *decimal.Decimal
	Credit              *decimal.Decimal
	SuggestedCategoryID *int
	DateText            string
	Description         string
	Balance             decimal.Decimal
	IsSelected          bool
	IsDuplicate         bool
}

// Amount returns the debit, else the credit, else zero.
func (p PdfTransaction) Amount() decimal.Decimal {
	if p.Debit != nil {
		return *p.Debit
	}
	if p.Credit != nil {
		return *p.Credit
	}
	return decimal.Zero
}

// IsDebit reports whether the row is a withdrawal.
func (p PdfTransaction) IsDebit() bool {
	return p.Debit != nil
}

// Type returns the transaction direction of the row.
func (p PdfTransaction) Type() TransactionType {
	if p.IsDebit() {
		return TransactionDebit
	}
	return TransactionCredit
}
