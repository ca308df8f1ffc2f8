package ingest

import (
	"github.com/Veraticus/spendwise/internal/duplicate"
	"github.com/Veraticus/spendwise/internal/model"
)

// Review holds parsed statement rows while the user picks what to import.
type Review struct {
	detector *duplicate.Detector
	Source   string
	Rows     []model.PdfTransaction
	existing []model.Transaction
}

// Counts summarizes a review.
type Counts struct {
	Total      int
	Selected   int
	Duplicates int
	Debits     int
	Credits    int
}

// NewReview wraps rows that were prepared elsewhere.
func NewReview(rows []model.PdfTransaction) *Review {
	return &Review{Rows: rows}
}

// Toggle flips the selection of row i and returns the new state.
func (r *Review) Toggle(i int) bool {
	if i < 0 || i >= len(r.Rows) {
		return false
	}
	r.Rows[i].IsSelected = !r.Rows[i].IsSelected
	return r.Rows[i].IsSelected
}

// SelectAll selects every row.
func (r *Review) SelectAll() {
	for i := range r.Rows {
		r.Rows[i].IsSelected = true
	}
}

// SelectNone clears every selection.
func (r *Review) SelectNone() {
	for i := range r.Rows {
		r.Rows[i].IsSelected = false
	}
}

// Selected returns copies of the selected rows in order.
func (r *Review) Selected() []model.PdfTransaction {
	var selected []model.PdfTransaction
	for _, row := range r.Rows {
		if row.IsSelected {
			selected = append(selected, row)
		}
	}
	return selected
}

// Counts tallies the rows.
func (r *Review) Counts() Counts {
	c := Counts{Total: len(r.Rows)}
	for _, row := range r.Rows {
		if row.IsSelected {
			c.Selected++
		}
		if row.IsDuplicate {
			c.Duplicates++
		}
		if row.IsDebit() {
			c.Debits++
		} else {
			c.Credits++
		}
	}
	return c
}

// DuplicateOf returns the stored transaction row i collides with.
func (r *Review) DuplicateOf(i int) (*model.Transaction, bool) {
	if r.detector == nil || i < 0 || i >= len(r.Rows) || !r.Rows[i].IsDuplicate {
		return nil, false
	}
	return r.detector.FindMatch(r.Rows[i], r.existing)
}
