package duplicate

import (
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debitRow(description, value string, at time.Time) model.PdfTransaction {
	d := decimal.RequireFromString(value)
	return model.PdfTransaction{Description: description, Debit: &d, Timestamp: at, IsSelected: true}
}

func TestDetector_Mark(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	existing := []model.Transaction{
		{ID: 1, Merchant: "UBER", Amount: decimal.RequireFromString("250.00"), Timestamp: base},
	}

	tests := []struct {
		name string
		row  model.PdfTransaction
		want bool
	}{
		{name: "one hour later", row: debitRow("UBER", "250.00", base.Add(time.Hour)), want: true},
		{name: "one hour earlier", row: debitRow("UBER", "250.00", base.Add(-time.Hour)), want: true},
		{name: "more than a day later", row: debitRow("UBER", "250.00", base.Add(100_000_000*time.Millisecond)), want: false},
		{name: "exactly a day later", row: debitRow("UBER", "250.00", base.Add(24*time.Hour)), want: false},
		{name: "merchant case differs", row: debitRow("uber", "250.00", base), want: true},
		{name: "merchant differs", row: debitRow("UBER EATS", "250.00", base), want: false},
		{name: "amount within tolerance", row: debitRow("UBER", "250.005", base), want: true},
		{name: "amount outside tolerance", row: debitRow("UBER", "250.01", base), want: false},
		{name: "zero timestamp", row: debitRow("UBER", "250.00", time.Time{}), want: false},
		{name: "far future timestamp", row: debitRow("UBER", "250.00", time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []model.PdfTransaction{tt.row}
			flagged := NewDetector().Mark(rows, existing)
			assert.Equal(t, tt.want, rows[0].IsDuplicate)
			if tt.want {
				assert.Equal(t, 1, flagged)
			} else {
				assert.Equal(t, 0, flagged)
			}
		})
	}
}

func TestDetector_CreditRows(t *testing.T) {
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	credit := decimal.RequireFromString("15000.00")
	rows := []model.PdfTransaction{{Description: "NEFT CR-ACME", Credit: &credit, Timestamp: base}}
	existing := []model.Transaction{
		{ID: 9, Merchant: "neft cr-acme", Amount: decimal.RequireFromString("15000"), Timestamp: base.Add(2 * time.Hour)},
	}

	match, ok := NewDetector().FindMatch(rows[0], existing)
	require.True(t, ok)
	assert.Equal(t, int64(9), match.ID)
}

func TestDetector_FarApartTimestamps(t *testing.T) {
	recent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rowAt    time.Time
		storedAt time.Time
		want     bool
	}{
		{name: "zero row against recent stored", rowAt: time.Time{}, storedAt: recent},
		{name: "recent row against zero stored", rowAt: recent, storedAt: time.Time{}},
		{name: "both zero", rowAt: time.Time{}, storedAt: time.Time{}, want: true},
		{name: "zero plus an hour", rowAt: time.Time{}.Add(time.Hour), storedAt: time.Time{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := []model.Transaction{
				{ID: 3, Merchant: "UBER", Amount: decimal.RequireFromString("250.00"), Timestamp: tt.storedAt},
			}
			_, ok := NewDetector().FindMatch(debitRow("UBER", "250.00", tt.rowAt), existing)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestDetector_NoExisting(t *testing.T) {
	rows := []model.PdfTransaction{debitRow("UBER", "1.00", time.Now())}
	assert.Equal(t, 0, NewDetector().Mark(rows, nil))
	assert.False(t, rows[0].IsDuplicate)
}
