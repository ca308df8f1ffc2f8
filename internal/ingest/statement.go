package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/duplicate"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/Veraticus/spendwise/internal/pdftext"
	"github.com/Veraticus/spendwise/internal/statement"
	"github.com/google/uuid"
)

// PdfImportSource is stored as the raw text of imported statement rows.
const PdfImportSource = "Imported from PDF"

// DefaultBankName labels imported rows when no bank is configured.
const DefaultBankName = "HDFC"

// StatementStore is the persistence the statement importer needs.
type StatementStore interface {
	pattern.RuleSource
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	InsertTransactions(ctx context.Context, txns []model.Transaction) ([]int64, error)
}

// StatementImporterOptions configures a StatementImporter. Zero values
// select defaults, except the two booleans which must be set explicitly.
type StatementImporterOptions struct {
	Extractor          pdftext.Extractor
	Parser             *statement.Parser
	Detector           *duplicate.Detector
	Logger             *slog.Logger
	NewImportID        func() string
	BankName           string
	DebitsOnly         bool
	DeselectDuplicates bool
}

// StatementImporter prepares statement rows for review and stores the
// rows the user keeps.
type StatementImporter struct {
	store              StatementStore
	extractor          pdftext.Extractor
	parser             *statement.Parser
	detector           *duplicate.Detector
	logger             *slog.Logger
	newImportID        func() string
	bankName           string
	debitsOnly         bool
	deselectDuplicates bool
}

// NewStatementImporter creates an importer.
func NewStatementImporter(store StatementStore, opts StatementImporterOptions) *StatementImporter {
	imp := &StatementImporter{
		store:              store,
		extractor:          opts.Extractor,
		parser:             opts.Parser,
		detector:           opts.Detector,
		logger:             common.LoggerOrDefault(opts.Logger),
		newImportID:        opts.NewImportID,
		bankName:           opts.BankName,
		debitsOnly:         opts.DebitsOnly,
		deselectDuplicates: opts.DeselectDuplicates,
	}
	if imp.extractor == nil {
		imp.extractor = pdftext.NewNativeExtractor()
	}
	if imp.parser == nil {
		imp.parser = statement.NewParser(statement.WithLogger(imp.logger))
	}
	if imp.detector == nil {
		imp.detector = duplicate.NewDetector()
	}
	if imp.newImportID == nil {
		imp.newImportID = uuid.NewString
	}
	if imp.bankName == "" {
		imp.bankName = DefaultBankName
	}
	return imp
}

// Prepare extracts and parses a statement, suggests categories and marks
// duplicates. Password errors from extraction keep their identity.
func (imp *StatementImporter) Prepare(ctx context.Context, path, password string) (*Review, error) {
	text, err := imp.extractor.Extract(ctx, path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to extract statement text: %w", err)
	}

	review, err := imp.PrepareText(ctx, text)
	if err != nil {
		return nil, err
	}
	review.Source = path
	return review, nil
}

// PrepareText is Prepare for already extracted text.
func (imp *StatementImporter) PrepareText(ctx context.Context, text string) (*Review, error) {
	rows := imp.parser.Parse(text)

	engine, err := pattern.LoadEngine(ctx, imp.store)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].SuggestedCategoryID = model.IntPtr(engine.Categorize(rows[i].Description))
	}

	// One snapshot for the whole batch.
	existing, err := imp.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing transactions: %w", err)
	}
	duplicates := imp.detector.Mark(rows, existing)

	if imp.deselectDuplicates {
		for i := range rows {
			if rows[i].IsDuplicate {
				rows[i].IsSelected = false
			}
		}
	}

	imp.logger.Info("Prepared statement",
		"rows", len(rows),
		"duplicates", duplicates)
	return &Review{Rows: rows, existing: existing, detector: imp.detector}, nil
}

// ImportResult describes a stored batch.
type ImportResult struct {
	ImportID       string
	IDs            []int64
	Count          int
	SkippedCredits int
}

// Import stores the selected rows in one transaction under a fresh import id.
func (imp *StatementImporter) Import(ctx context.Context, review *Review) (ImportResult, error) {
	var result ImportResult

	selected := review.Selected()
	txns := make([]model.Transaction, 0, len(selected))
	importID := imp.newImportID()
	for _, row := range selected {
		if imp.debitsOnly && !row.IsDebit() {
			result.SkippedCredits++
			continue
		}
		txns = append(txns, imp.toTransaction(row, importID))
	}

	if len(txns) == 0 {
		return result, common.ErrNothingToImport
	}

	ids, err := imp.store.InsertTransactions(ctx, txns)
	if err != nil {
		return result, fmt.Errorf("failed to import statement: %w", err)
	}

	result.ImportID = importID
	result.IDs = ids
	result.Count = len(ids)
	imp.logger.Info("Imported statement",
		"import_id", importID,
		"count", result.Count,
		"skipped_credits", result.SkippedCredits)
	return result, nil
}

func (imp *StatementImporter) toTransaction(row model.PdfTransaction, importID string) model.Transaction {
	merchant := row.Description
	if merchant == "" {
		merchant = model.UnknownMerchant
	}

	categoryID := model.OthersCategoryID
	if row.SuggestedCategoryID != nil {
		categoryID = *row.SuggestedCategoryID
	}

	return model.Transaction{
		Amount:        row.Amount(),
		Merchant:      merchant,
		CategoryID:    model.IntPtr(categoryID),
		Timestamp:     row.Timestamp,
		RawSourceText: PdfImportSource,
		BankName:      imp.bankName,
		Type:          row.Type(),
		ImportID:      importID,
	}
}
