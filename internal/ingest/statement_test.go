package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pdftext"
	"github.com/Veraticus/spendwise/internal/statement"
	"github.com/Veraticus/spendwise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statementFixture = strings.Join([]string{
	"HDFC BANK Ltd. Page No .: 1",
	"Date Narration Chq./Ref.No. Value Dt Withdrawal Amt. Deposit Amt. Closing Balance",
	"01/03/24 UPI-SWIGGY-BANGALORE 0000412345678901 01/03/24 250.00 750.00",
	"02/03/24 NEFT CR-ACME SALARY 0000498765432109 02/03/24 1,000.00 1,750.00",
	"03/03/24 POS AMAZON RETAIL 0000411111111111 03/03/24 500.00 1,250.00",
	"STATEMENT SUMMARY :-",
	"Opening Balance Dr Count Cr Count Debits Credits Closing Bal",
	"1,000.00 2 1 750.00 1,000.00 1,250.00",
}, "\n")

type fakeExtractor struct {
	text  string
	err   error
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, path, password string) (string, error) {
	f.calls = append(f.calls, path+"|"+password)
	return f.text, f.err
}

func newTestImporter(t *testing.T, ext pdftext.Extractor, mutate func(*StatementImporterOptions)) (*StatementImporter, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	opts := StatementImporterOptions{
		Extractor:   ext,
		Parser:      statement.NewParser(statement.WithLocation(time.UTC)),
		NewImportID: func() string { return "import-1" },
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewStatementImporter(db.Storage, opts), db
}

func TestStatementImporter_PrepareSuggestsCategories(t *testing.T) {
	ext := &fakeExtractor{text: statementFixture}
	imp, _ := newTestImporter(t, ext, nil)

	review, err := imp.Prepare(context.Background(), "/tmp/march.pdf", "secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/march.pdf|secret"}, ext.calls)
	assert.Equal(t, "/tmp/march.pdf", review.Source)
	require.Len(t, review.Rows, 3)

	tests := []struct {
		description string
		amount      string
		debit       bool
		category    int
	}{
		{description: "UPI-SWIGGY-BANGALORE", amount: "250.00", debit: true, category: 1},
		{description: "NEFT CR-ACME SALARY", amount: "1000.00", debit: false, category: model.OthersCategoryID},
		{description: "POS AMAZON RETAIL", amount: "500.00", debit: true, category: 3},
	}
	for i, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			row := review.Rows[i]
			assert.Equal(t, tt.description, row.Description)
			assert.Equal(t, tt.amount, row.Amount().StringFixed(2))
			assert.Equal(t, tt.debit, row.IsDebit())
			require.NotNil(t, row.SuggestedCategoryID)
			assert.Equal(t, tt.category, *row.SuggestedCategoryID)
			assert.True(t, row.IsSelected)
			assert.False(t, row.IsDuplicate)
		})
	}
}

func TestStatementImporter_PrepareExtractionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "password required", err: pdftext.ErrPasswordRequired},
		{name: "wrong password", err: pdftext.ErrInvalidPassword},
		{name: "unreadable", err: fmt.Errorf("%w: broken xref", pdftext.ErrParsingFailed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, _ := newTestImporter(t, &fakeExtractor{err: tt.err}, nil)

			review, err := imp.Prepare(context.Background(), "locked.pdf", "")
			require.Error(t, err)
			assert.Nil(t, review)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestStatementImporter_MarksDuplicates(t *testing.T) {
	tests := []struct {
		name         string
		deselect     bool
		wantSelected bool
	}{
		{name: "duplicates stay selected by default", deselect: false, wantSelected: true},
		{name: "duplicates deselected when configured", deselect: true, wantSelected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, db := newTestImporter(t, nil, func(o *StatementImporterOptions) {
				o.DeselectDuplicates = tt.deselect
			})
			existing := db.MustInsertTransaction("UPI-SWIGGY-BANGALORE", "250.00",
				testutil.WithTimestamp(time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)))

			review, err := imp.PrepareText(context.Background(), statementFixture)
			require.NoError(t, err)
			require.Len(t, review.Rows, 3)

			assert.True(t, review.Rows[0].IsDuplicate)
			assert.Equal(t, tt.wantSelected, review.Rows[0].IsSelected)
			assert.False(t, review.Rows[1].IsDuplicate)
			assert.False(t, review.Rows[2].IsDuplicate)

			match, ok := review.DuplicateOf(0)
			require.True(t, ok)
			assert.Equal(t, existing.ID, match.ID)

			_, ok = review.DuplicateOf(1)
			assert.False(t, ok)

			assert.Equal(t, 1, review.Counts().Duplicates)
		})
	}
}

func TestStatementImporter_Import(t *testing.T) {
	imp, db := newTestImporter(t, nil, nil)
	ctx := context.Background()

	review, err := imp.PrepareText(ctx, statementFixture)
	require.NoError(t, err)

	result, err := imp.Import(ctx, review)
	require.NoError(t, err)
	assert.Equal(t, "import-1", result.ImportID)
	assert.Equal(t, 3, result.Count)
	assert.Len(t, result.IDs, 3)
	assert.Zero(t, result.SkippedCredits)

	stored, err := db.Storage.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	byMerchant := make(map[string]model.Transaction, len(stored))
	for _, txn := range stored {
		byMerchant[txn.Merchant] = txn
	}

	swiggy := byMerchant["UPI-SWIGGY-BANGALORE"]
	assert.Equal(t, 1, swiggy.CategoryIDOr(0))
	assert.Equal(t, model.TransactionDebit, swiggy.Type)
	assert.Equal(t, PdfImportSource, swiggy.RawSourceText)
	assert.Equal(t, DefaultBankName, swiggy.BankName)
	assert.Equal(t, "import-1", swiggy.ImportID)
	assert.Nil(t, swiggy.AccountLast4)
	assert.False(t, swiggy.IsManuallyEdited)

	salary := byMerchant["NEFT CR-ACME SALARY"]
	assert.Equal(t, model.TransactionCredit, salary.Type)
	assert.Equal(t, model.OthersCategoryID, salary.CategoryIDOr(0))

	removed, err := db.Storage.DeleteImport(ctx, result.ImportID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestStatementImporter_ImportKeepsUserChoices(t *testing.T) {
	imp, db := newTestImporter(t, nil, func(o *StatementImporterOptions) {
		o.BankName = "HDFC Bank"
	})
	ctx := context.Background()

	review, err := imp.PrepareText(ctx, statementFixture)
	require.NoError(t, err)

	review.Toggle(2)
	review.Rows[0].SuggestedCategoryID = model.IntPtr(6)

	result, err := imp.Import(ctx, review)
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)

	swiggy, err := db.Storage.GetTransaction(ctx, result.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, "UPI-SWIGGY-BANGALORE", swiggy.Merchant)
	assert.Equal(t, 6, swiggy.CategoryIDOr(0))
	assert.Equal(t, "HDFC Bank", swiggy.BankName)
}

func TestStatementImporter_DebitsOnly(t *testing.T) {
	imp, db := newTestImporter(t, nil, func(o *StatementImporterOptions) {
		o.DebitsOnly = true
	})
	ctx := context.Background()

	review, err := imp.PrepareText(ctx, statementFixture)
	require.NoError(t, err)

	result, err := imp.Import(ctx, review)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 1, result.SkippedCredits)

	stored, err := db.Storage.ListTransactions(ctx)
	require.NoError(t, err)
	for _, txn := range stored {
		assert.Equal(t, model.TransactionDebit, txn.Type)
	}
}

func TestStatementImporter_NothingToImport(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		before func(*Review)
	}{
		{name: "nothing selected", text: statementFixture, before: func(r *Review) { r.SelectNone() }},
		{name: "no table in text", text: "Dear customer, your statement is attached."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, db := newTestImporter(t, nil, nil)
			ctx := context.Background()

			review, err := imp.PrepareText(ctx, tt.text)
			require.NoError(t, err)
			if tt.before != nil {
				tt.before(review)
			}

			_, err = imp.Import(ctx, review)
			assert.ErrorIs(t, err, common.ErrNothingToImport)

			stored, err := db.Storage.ListTransactions(ctx)
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}
}
