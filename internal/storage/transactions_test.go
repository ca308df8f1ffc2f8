package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertTransaction_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	ist := time.FixedZone("IST", 5*3600+1800)
	txn := testTransaction("ZOMATO", "1234.50", time.Date(2024, 5, 10, 20, 30, 0, 0, ist))
	txn.CategoryID = model.IntPtr(1)
	txn.AccountLast4 = model.StringPtr("4321")

	require.NoError(t, store.InsertTransaction(ctx, &txn))
	require.NotZero(t, txn.ID)

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1234.50").Equal(got.Amount))
	assert.Equal(t, "ZOMATO", got.Merchant)
	assert.Equal(t, 1, *got.CategoryID)
	assert.True(t, txn.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, "4321", *got.AccountLast4)
	assert.Equal(t, model.TransactionDebit, got.Type)
	assert.False(t, got.IsManuallyEdited)
	assert.Empty(t, got.ImportID)
}

func TestInsertTransaction_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		wantErr error
		mutate  func(*model.Transaction)
		name    string
	}{
		{name: "missing merchant", mutate: func(tx *model.Transaction) { tx.Merchant = " " }, wantErr: ErrInvalidTransaction},
		{name: "zero timestamp", mutate: func(tx *model.Transaction) { tx.Timestamp = time.Time{} }, wantErr: ErrInvalidTransaction},
		{name: "negative amount", mutate: func(tx *model.Transaction) { tx.Amount = decimal.NewFromInt(-1) }, wantErr: ErrInvalidTransaction},
		{name: "bad type", mutate: func(tx *model.Transaction) { tx.Type = "REFUND" }, wantErr: ErrInvalidTransaction},
		{name: "dangling category", mutate: func(tx *model.Transaction) { tx.CategoryID = model.IntPtr(42) }, wantErr: ErrInvalidCategoryReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := testTransaction("UBER", "100.00", now)
			tt.mutate(&txn)
			assert.ErrorIs(t, store.InsertTransaction(ctx, &txn), tt.wantErr)
		})
	}

	assert.ErrorIs(t, store.InsertTransaction(ctx, nil), ErrNilParameter)
}

func TestInsertTransactions_Atomic(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now()

	good := testTransaction("AMAZON", "499.00", now)
	bad := testTransaction("FLIPKART", "999.00", now)
	bad.CategoryID = model.IntPtr(404)

	_, err := store.InsertTransactions(ctx, []model.Transaction{good, bad})
	require.ErrorIs(t, err, ErrInvalidCategoryReference)

	all, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	bad.CategoryID = model.IntPtr(3)
	ids, err := store.InsertTransactions(ctx, []model.Transaction{good, bad})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestListQueries(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	food := testTransaction("SWIGGY", "300.00", base.Add(2*time.Hour))
	food.CategoryID = model.IntPtr(1)
	other := testTransaction("KIRANA", "120.00", base.Add(26*time.Hour))
	none := testTransaction("MYSTERY", "80.00", base.Add(50*time.Hour))
	none.CategoryID = nil
	credit := testTransaction("SALARY", "50000.00", base.Add(3*time.Hour))
	credit.Type = model.TransactionCredit

	_, err := store.InsertTransactions(ctx, []model.Transaction{food, other, none, credit})
	require.NoError(t, err)

	all, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "MYSTERY", all[0].Merchant)
	assert.Nil(t, all[0].CategoryID)

	byCat, err := store.ListTransactionsByCategory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "SWIGGY", byCat[0].Merchant)

	uncategorized, err := store.ListUncategorized(ctx)
	require.NoError(t, err)
	assert.Len(t, uncategorized, 3)

	inRange, err := store.ListTransactionsInRange(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	total, err := store.TotalExpenses(ctx, base, base.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "500", total.String())

	_, err = store.ListTransactionsInRange(ctx, base, base.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestUpdateTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txn := testTransaction("OLA", "180.00", time.Now())
	require.NoError(t, store.InsertTransaction(ctx, &txn))

	txn.Merchant = "OLA CABS"
	txn.CategoryID = model.IntPtr(2)
	txn.IsManuallyEdited = true
	require.NoError(t, store.UpdateTransaction(ctx, &txn))

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "OLA CABS", got.Merchant)
	assert.Equal(t, 2, *got.CategoryID)
	assert.True(t, got.IsManuallyEdited)

	require.NoError(t, store.UpdateTransactionCategory(ctx, txn.ID, 5, false))
	got, err = store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, *got.CategoryID)
	assert.False(t, got.IsManuallyEdited)

	assert.ErrorIs(t, store.UpdateTransactionCategory(ctx, txn.ID, 77, false), ErrInvalidCategoryReference)
	assert.ErrorIs(t, store.UpdateTransactionCategory(ctx, 9999, 1, false), common.ErrNotFound)

	missing := txn
	missing.ID = 9999
	assert.ErrorIs(t, store.UpdateTransaction(ctx, &missing), common.ErrNotFound)
}

func TestDeleteTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now()

	batch := []model.Transaction{
		testTransaction("A", "1.00", now),
		testTransaction("B", "2.00", now),
	}
	for i := range batch {
		batch[i].ImportID = "import-1"
	}
	_, err := store.InsertTransactions(ctx, batch)
	require.NoError(t, err)

	single := testTransaction("C", "3.00", now)
	require.NoError(t, store.InsertTransaction(ctx, &single))

	deleted, err := store.DeleteImport(ctx, "import-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = store.DeleteImport(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyString)

	require.NoError(t, store.DeleteTransaction(ctx, single.ID))
	assert.ErrorIs(t, store.DeleteTransaction(ctx, single.ID), common.ErrNotFound)

	require.NoError(t, store.InsertTransaction(ctx, &model.Transaction{
		Amount: decimal.NewFromInt(5), Merchant: "D", Timestamp: now, Type: model.TransactionUnknown,
	}))
	deleted, err = store.DeleteAllTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestSpendingByCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	inCategory := func(merchant, amount string, categoryID int, at time.Time) model.Transaction {
		txn := testTransaction(merchant, amount, at)
		txn.CategoryID = model.IntPtr(categoryID)
		return txn
	}
	none := testTransaction("MYSTERY", "100.00", base.Add(time.Hour))
	none.CategoryID = nil
	salary := inCategory("SALARY", "50000.00", 4, base.Add(time.Hour))
	salary.Type = model.TransactionCredit

	_, err := store.InsertTransactions(ctx, []model.Transaction{
		inCategory("SWIGGY", "300.00", 1, base.Add(time.Hour)),
		inCategory("ZOMATO", "200.00", 1, base.Add(2*time.Hour)),
		inCategory("UBER", "250.00", 2, base.Add(3*time.Hour)),
		inCategory("NETFLIX", "150.00", 5, base.Add(4*time.Hour)),
		none,
		salary,
		inCategory("JULY RENT", "9000.00", 4, base.AddDate(0, 1, 0)),
	})
	require.NoError(t, err)

	type group struct {
		category *int
		total    string
		percent  string
		count    int
	}
	tests := []struct {
		end  time.Time
		name string
		want []group
	}{
		{
			name: "june",
			end:  base.AddDate(0, 1, 0),
			want: []group{
				{category: model.IntPtr(1), total: "500", percent: "50", count: 2},
				{category: model.IntPtr(2), total: "250", percent: "25", count: 1},
				{category: model.IntPtr(5), total: "150", percent: "15", count: 1},
				{category: nil, total: "100", percent: "10", count: 1},
			},
		},
		{
			name: "empty period",
			end:  base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.SpendingByCategory(ctx, base, tt.end)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want.category, got[i].CategoryID, "row %d", i)
				assert.Equal(t, want.total, got[i].Total.String(), "row %d", i)
				assert.Equal(t, want.percent, got[i].Percent.String(), "row %d", i)
				assert.Equal(t, want.count, got[i].Count, "row %d", i)
			}
		})
	}

	_, err = store.SpendingByCategory(ctx, base, base.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}
