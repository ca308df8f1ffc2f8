package storage

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, amount, merchant, category_id, timestamp, raw_source_text, bank_name,
	account_last4, transaction_type, is_manually_edited, import_id, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (model.Transaction, error) {
	var (
		txn        model.Transaction
		categoryID sql.NullInt64
		account    sql.NullString
		importID   sql.NullString
		txnType    string
		createdAt  sql.NullTime
	)
	err := row.Scan(&txn.ID, &txn.Amount, &txn.Merchant, &categoryID, &txn.Timestamp,
		&txn.RawSourceText, &txn.BankName, &account, &txnType, &txn.IsManuallyEdited,
		&importID, &createdAt)
	if err != nil {
		return txn, err
	}

	if categoryID.Valid {
		txn.CategoryID = model.IntPtr(int(categoryID.Int64))
	}
	if account.Valid {
		txn.AccountLast4 = model.StringPtr(account.String)
	}
	txn.ImportID = importID.String
	txn.Type = model.TransactionType(txnType)
	if createdAt.Valid {
		txn.CreatedAt = createdAt.Time
	}
	return txn, nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, where string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions `+where+` ORDER BY timestamp DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}

// ListTransactions returns every transaction, newest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, ``)
}

// GetTransaction returns one transaction by ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	txn, err := scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// ListTransactionsByCategory returns the transactions in one category.
func (s *SQLiteStorage) ListTransactionsByCategory(ctx context.Context, categoryID int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, `WHERE category_id = ?`, categoryID)
}

// ListTransactionsInRange returns transactions with start <= timestamp < end.
func (s *SQLiteStorage) ListTransactionsInRange(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, end, start)
	}
	return s.queryTransactions(ctx, `WHERE timestamp >= ? AND timestamp < ?`, start.UTC(), end.UTC())
}

// ListUncategorized returns transactions still in Others or with no category.
func (s *SQLiteStorage) ListUncategorized(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx, `WHERE category_id IS NULL OR category_id = ?`, model.OthersCategoryID)
}

// TotalExpenses sums debit amounts with start <= timestamp < end.
func (s *SQLiteStorage) TotalExpenses(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	txns, err := s.ListTransactionsInRange(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, txn := range txns {
		if txn.Type == model.TransactionDebit {
			total = total.Add(txn.Amount)
		}
	}
	return total, nil
}

// SpendingByCategory groups debits with start <= timestamp < end by category,
// largest total first. Percent is each group's share of all debits in the
// period, rounded to one decimal place.
func (s *SQLiteStorage) SpendingByCategory(ctx context.Context, start, end time.Time) ([]model.CategorySpending, error) {
	txns, err := s.ListTransactionsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	// 0 is never a category id, so it keys the uncategorized group.
	groups := make(map[int]*model.CategorySpending)
	grand := decimal.Zero
	for _, txn := range txns {
		if txn.Type != model.TransactionDebit {
			continue
		}
		key := txn.CategoryIDOr(0)
		group, ok := groups[key]
		if !ok {
			group = &model.CategorySpending{}
			if key != 0 {
				group.CategoryID = model.IntPtr(key)
			}
			groups[key] = group
		}
		group.Total = group.Total.Add(txn.Amount)
		group.Count++
		grand = grand.Add(txn.Amount)
	}

	hundred := decimal.NewFromInt(100)
	spending := make([]model.CategorySpending, 0, len(groups))
	for _, group := range groups {
		if grand.IsPositive() {
			group.Percent = group.Total.Mul(hundred).Div(grand).Round(1)
		}
		spending = append(spending, *group)
	}
	slices.SortFunc(spending, func(a, b model.CategorySpending) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(spendingKey(a), spendingKey(b))
	})
	return spending, nil
}

func spendingKey(s model.CategorySpending) int {
	if s.CategoryID == nil {
		return 0
	}
	return *s.CategoryID
}

// InsertTransaction stores a transaction and sets its ID.
func (s *SQLiteStorage) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return insertTransaction(ctx, s.db, txn)
}

// InsertTransactions stores a batch in one database transaction. Either
// every row is stored or none are.
func (s *SQLiteStorage) InsertTransactions(ctx context.Context, txns []model.Transaction) ([]int64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	for i := range txns {
		if err := validateTransaction(&txns[i]); err != nil {
			return nil, fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}

	ids := make([]int64, 0, len(txns))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range txns {
			if err := insertTransaction(ctx, tx, &txns[i]); err != nil {
				return fmt.Errorf("transaction at index %d: %w", i, err)
			}
			ids = append(ids, txns[i].ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Stored transactions", "count", len(ids))
	return ids, nil
}

func insertTransaction(ctx context.Context, q queryable, txn *model.Transaction) error {
	if txn.CategoryID != nil {
		if err := ensureCategory(ctx, q, *txn.CategoryID); err != nil {
			return err
		}
	}

	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO transactions (
			amount, merchant, category_id, timestamp, raw_source_text, bank_name,
			account_last4, transaction_type, is_manually_edited, import_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.Amount, txn.Merchant, nullableInt(txn.CategoryID), txn.Timestamp.UTC(),
		txn.RawSourceText, txn.BankName, nullableString(txn.AccountLast4),
		string(txn.Type), txn.IsManuallyEdited, nullIfEmpty(txn.ImportID), txn.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction ID: %w", err)
	}
	txn.ID = id
	return nil
}

// UpdateTransaction saves every editable field of a transaction.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if txn.CategoryID != nil {
		if err := ensureCategory(ctx, s.db, *txn.CategoryID); err != nil {
			return err
		}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			amount = ?, merchant = ?, category_id = ?, timestamp = ?, raw_source_text = ?,
			bank_name = ?, account_last4 = ?, transaction_type = ?, is_manually_edited = ?
		WHERE id = ?`,
		txn.Amount, txn.Merchant, nullableInt(txn.CategoryID), txn.Timestamp.UTC(), txn.RawSourceText,
		txn.BankName, nullableString(txn.AccountLast4), string(txn.Type), txn.IsManuallyEdited, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("transaction %d", txn.ID))
}

// UpdateTransactionCategory moves one transaction to a category.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, id int64, categoryID int, manuallyEdited bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return updateTransactionCategory(ctx, s.db, id, categoryID, manuallyEdited)
}

func updateTransactionCategory(ctx context.Context, q queryable, id int64, categoryID int, manuallyEdited bool) error {
	if err := ensureCategory(ctx, q, categoryID); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, is_manually_edited = ? WHERE id = ?`,
		categoryID, manuallyEdited, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("transaction %d", id))
}

// DeleteTransaction removes one transaction.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("transaction %d", id))
}

// DeleteAllTransactions removes every transaction.
func (s *SQLiteStorage) DeleteAllTransactions(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteImport removes every transaction stored by one statement import.
func (s *SQLiteStorage) DeleteImport(ctx context.Context, importID string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(importID, "importID"); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE import_id = ?`, importID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete import: %w", err)
	}
	return result.RowsAffected()
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
