// Package duplicate flags statement rows that are already stored.
package duplicate

import (
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/amount"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultWindow is the largest timestamp gap still considered the same transaction.
const DefaultWindow = 24 * time.Hour

// Detector matches new statement rows against persisted transactions by
// time window, case-insensitive merchant and amount.
type Detector struct {
	Tolerance decimal.Decimal
	Window    time.Duration
}

// NewDetector returns a detector with a 24 hour window and 0.01 tolerance.
func NewDetector() *Detector {
	return &Detector{
		Window:    DefaultWindow,
		Tolerance: amount.Tolerance,
	}
}

// Mark sets IsDuplicate on every row in rows that matches an existing
// transaction and returns the number flagged. existing should be a single
// snapshot taken for the whole batch.
func (d *Detector) Mark(rows []model.PdfTransaction, existing []model.Transaction) int {
	flagged := 0
	for i := range rows {
		_, rows[i].IsDuplicate = d.FindMatch(rows[i], existing)
		if rows[i].IsDuplicate {
			flagged++
		}
	}
	return flagged
}

// FindMatch returns the first existing transaction row duplicates.
func (d *Detector) FindMatch(row model.PdfTransaction, existing []model.Transaction) (*model.Transaction, bool) {
	value := row.Amount()
	for i := range existing {
		txn := &existing[i]
		if !d.withinWindow(row.Timestamp, txn.Timestamp) {
			continue
		}
		if !strings.EqualFold(row.Description, txn.Merchant) {
			continue
		}
		if !amount.Equal(value, txn.Amount, d.Tolerance) {
			continue
		}
		return txn, true
	}
	return nil, false
}

func (d *Detector) withinWindow(a, b time.Time) bool {
	// a.Sub(b) saturates for instants centuries apart, so compare instants.
	return a.After(b.Add(-d.Window)) && a.Before(b.Add(d.Window))
}
