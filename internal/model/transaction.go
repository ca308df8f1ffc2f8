package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money movement.
type TransactionType string

// Transaction directions.
const (
	TransactionDebit   TransactionType = "DEBIT"
	TransactionCredit  TransactionType = "CREDIT"
	TransactionUnknown TransactionType = "UNKNOWN"
)

// Transaction represents a persisted, categorized financial transaction.
type Transaction struct {
	Timestamp        time.Time       `json:"timestamp"`
	CreatedAt        time.Time       `json:"created_at"`
	CategoryID       *int            `json:"category_id,omitempty"`
	AccountLast4     *string         `json:"account_last4,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Merchant         string          `json:"merchant"`
	RawSourceText    string          `json:"raw_source_text"`
	BankName         string          `json:"bank_name"`
	Type             TransactionType `json:"transaction_type"`
	ImportID         string          `json:"import_id,omitempty"`
	ID               int64           `json:"id"`
	IsManuallyEdited bool            `json:"is_manually_edited"`
}

// CategoryIDOr returns the transaction's category id, or fallback when unset.
func (t Transaction) CategoryIDOr(fallback int) int {
	if t.CategoryID == nil {
		return fallback
	}
	return *t.CategoryID
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to v, or nil when v is empty.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
