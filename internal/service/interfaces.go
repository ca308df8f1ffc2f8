// Package service defines the interfaces between the ingest flows and persistence.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionStore persists categorized transactions.
type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactionsByCategory(ctx context.Context, categoryID int) ([]model.Transaction, error)
	ListTransactionsInRange(ctx context.Context, start, end time.Time) ([]model.Transaction, error)
	ListUncategorized(ctx context.Context) ([]model.Transaction, error)
	TotalExpenses(ctx context.Context, start, end time.Time) (decimal.Decimal, error)

	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	InsertTransactions(ctx context.Context, txns []model.Transaction) ([]int64, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	UpdateTransactionCategory(ctx context.Context, id int64, categoryID int, manuallyEdited bool) error
	DeleteTransaction(ctx context.Context, id int64) error
	DeleteAllTransactions(ctx context.Context) (int64, error)
	DeleteImport(ctx context.Context, importID string) (int64, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	InsertCategory(ctx context.Context, category *model.Category) error
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id int) error
	DeleteNonDefaultCategories(ctx context.Context) (int64, error)
}

// RuleStore persists categorization rules.
type RuleStore interface {
	// ListActiveRules returns active rules by priority descending, then id.
	ListActiveRules(ctx context.Context) ([]model.Rule, error)
	ListRules(ctx context.Context) ([]model.Rule, error)
	ListRulesByCategory(ctx context.Context, categoryID int) ([]model.Rule, error)
	GetRule(ctx context.Context, id int) (*model.Rule, error)
	InsertRule(ctx context.Context, rule *model.Rule) error
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int) error
	DeleteAllRules(ctx context.Context) (int64, error)
}

// Tx is a unit of work over transaction updates.
type Tx interface {
	UpdateTransactionCategory(ctx context.Context, id int64, categoryID int, manuallyEdited bool) error
	UpdateRule(ctx context.Context, rule *model.Rule) error
	Commit() error
	Rollback() error
}

// Storage is the full persistence contract.
type Storage interface {
	TransactionStore
	CategoryStore
	RuleStore

	BeginTx(ctx context.Context) (Tx, error)
	Migrate(ctx context.Context) error
	Close() error
}
