// Package testutil provides shared helpers for tests that need a real store.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/shopspring/decimal"
)

// TestDB wraps a migrated in-memory store.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database with the default
// categories and rules. It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SetupEmptyRulesDB is SetupTestDB without the seeded rules.
func SetupEmptyRulesDB(t *testing.T) *TestDB {
	t.Helper()

	db := SetupTestDB(t)
	if _, err := db.Storage.DeleteAllRules(context.Background()); err != nil {
		t.Fatalf("failed to clear rules: %v", err)
	}
	return db
}

// MustInsertRule stores a rule or fails the test.
func (db *TestDB) MustInsertRule(categoryID int, pattern string, matchType model.MatchType, priority int) model.Rule {
	db.t.Helper()

	rule := model.Rule{
		CategoryID: categoryID,
		Pattern:    pattern,
		MatchType:  matchType,
		Priority:   priority,
		IsActive:   true,
	}
	if err := db.Storage.InsertRule(context.Background(), &rule); err != nil {
		db.t.Fatalf("failed to insert rule %q: %v", pattern, err)
	}
	return rule
}

// TransactionOption customizes a fixture transaction.
type TransactionOption func(*model.Transaction)

// WithCategory sets the fixture's category.
func WithCategory(id int) TransactionOption {
	return func(t *model.Transaction) { t.CategoryID = model.IntPtr(id) }
}

// WithManualEdit marks the fixture as manually categorized.
func WithManualEdit() TransactionOption {
	return func(t *model.Transaction) { t.IsManuallyEdited = true }
}

// WithTimestamp sets the fixture's timestamp.
func WithTimestamp(ts time.Time) TransactionOption {
	return func(t *model.Transaction) { t.Timestamp = ts }
}

// WithType sets the fixture's direction.
func WithType(tt model.TransactionType) TransactionOption {
	return func(t *model.Transaction) { t.Type = tt }
}

// MustInsertTransaction stores a debit in Others unless options say otherwise.
func (db *TestDB) MustInsertTransaction(merchant, amount string, opts ...TransactionOption) model.Transaction {
	db.t.Helper()

	txn := model.Transaction{
		Amount:        decimal.RequireFromString(amount),
		Merchant:      merchant,
		CategoryID:    model.IntPtr(model.OthersCategoryID),
		Timestamp:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		RawSourceText: merchant,
		BankName:      "HDFC Bank",
		Type:          model.TransactionDebit,
	}
	for _, opt := range opts {
		opt(&txn)
	}

	if err := db.Storage.InsertTransaction(context.Background(), &txn); err != nil {
		db.t.Fatalf("failed to insert transaction %q: %v", merchant, err)
	}
	return txn
}

// MustCategoryOf returns the stored category id of a transaction.
func (db *TestDB) MustCategoryOf(id int64) int {
	db.t.Helper()

	txn, err := db.Storage.GetTransaction(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to get transaction %d: %v", id, err)
	}
	return txn.CategoryIDOr(0)
}
