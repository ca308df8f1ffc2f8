package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/ingest"
	"github.com/Veraticus/spendwise/internal/pdftext"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/Veraticus/spendwise/internal/tui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func importCmd() *cobra.Command {
	var (
		password string
		yes      bool
		noTUI    bool
	)

	cmd := &cobra.Command{
		Use:   "import <statement.pdf>",
		Short: "Import transactions from a bank statement PDF",
		Long: `Read a bank statement PDF, suggest a category for every row and let
you review the rows before they are stored.

Rows that look like transactions you already have are marked as possible
duplicates and start deselected. Everything imported in one run shares an
import id, so 'spendwise transactions undo-import' can take it back.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], password, yes, noTUI)
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "statement password")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "import the default selection without reviewing")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "review as a plain table instead of the interactive screen")
	cmd.Flags().String("backend", "", "pdf text backend (native, pdftotext)")
	cmd.Flags().String("bank", "", "bank name stored on imported rows")
	cmd.Flags().Bool("debits-only", false, "skip credits")
	_ = viper.BindPFlag("pdf.backend", cmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("import.bank_name", cmd.Flags().Lookup("bank"))
	_ = viper.BindPFlag("import.debits_only", cmd.Flags().Lookup("debits-only"))

	return cmd
}

func runImport(cmd *cobra.Command, path, password string, yes, noTUI bool) error {
	if _, err := os.Stat(path); err != nil {
		return common.NewUserError(fmt.Sprintf("cannot open %s", path), err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	extractor, err := pdftext.New(cfg.PDF.Backend)
	if err != nil {
		return common.NewUserError(err.Error(), err)
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Import").
		WithHint("Nothing was saved")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	store, err := openStorage(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	importer := ingest.NewStatementImporter(store, ingest.StatementImporterOptions{
		Extractor:          extractor,
		BankName:           cfg.Import.BankName,
		DebitsOnly:         cfg.Import.DebitsOnly,
		DeselectDuplicates: cfg.Import.DeselectDuplicates,
	})

	out := cmd.OutOrStdout()
	in := cli.NewNonBlockingReader(cmd.InOrStdin())

	bar := cli.NewProgressBar(cmd.ErrOrStderr(), 2, "Reading statement")
	review, err := prepareWithPassword(ctx, importer, in, out, path, password)
	if err != nil {
		return err
	}
	_ = bar.Add(1)

	if len(review.Rows) == 0 {
		_ = bar.Finish()
		_, err := fmt.Fprintln(out, cli.FormatWarning("No transactions found in this statement"))
		return err
	}

	if !yes {
		_ = bar.Clear()
		confirmed, err := reviewRows(ctx, cmd, store, review, in, out, noTUI)
		if err != nil {
			return err
		}
		if !confirmed {
			_, err := fmt.Fprintln(out, cli.FormatInfo("Import canceled. Nothing was saved."))
			return err
		}
	}

	bar.Describe("Saving")
	result, err := importer.Import(ctx, review)
	if errors.Is(err, common.ErrNothingToImport) {
		_ = bar.Finish()
		_, err := fmt.Fprintln(out, cli.FormatInfo("Nothing selected. Nothing was saved."))
		return err
	}
	if err != nil {
		return err
	}
	_ = bar.Add(1)

	msg := fmt.Sprintf("Imported %d transactions from %s", result.Count, path)
	if result.SkippedCredits > 0 {
		msg += fmt.Sprintf(" (%d credits skipped)", result.SkippedCredits)
	}
	if _, err := fmt.Fprintln(out, cli.FormatSuccess(msg)); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, cli.SubtleStyle.Render("Import id: "+result.ImportID))
	return err
}

// prepareWithPassword asks for the statement password once when the file
// turns out to be protected and none was given.
func prepareWithPassword(ctx context.Context, importer *ingest.StatementImporter, in *cli.NonBlockingReader, out io.Writer, path, password string) (*ingest.Review, error) {
	review, err := importer.Prepare(ctx, path, password)
	if errors.Is(err, pdftext.ErrPasswordRequired) && password == "" && isInteractive() {
		if _, werr := fmt.Fprint(out, cli.FormatPrompt("Statement password: ")); werr != nil {
			return nil, werr
		}
		password, err = cli.ReadSecret(ctx, in, out, int(os.Stdin.Fd()))
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		review, err = importer.Prepare(ctx, path, password)
	}

	switch {
	case errors.Is(err, pdftext.ErrPasswordRequired):
		return nil, common.NewUserError("this statement is password protected; pass --password", err)
	case errors.Is(err, pdftext.ErrInvalidPassword):
		return nil, common.NewUserError("the statement password is incorrect", err)
	case errors.Is(err, pdftext.ErrParsingFailed):
		return nil, common.NewUserError(fmt.Sprintf("could not read %s as a PDF", path), err)
	case err != nil:
		return nil, err
	}
	return review, nil
}

func reviewRows(ctx context.Context, cmd *cobra.Command, store *storage.SQLiteStorage, review *ingest.Review, in *cli.NonBlockingReader, out io.Writer, noTUI bool) (bool, error) {
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get categories: %w", err)
	}

	if !noTUI && isInteractive() {
		return tui.RunReview(ctx, review,
			tui.WithCategories(categories),
			tui.WithIO(cmd.InOrStdin(), out))
	}

	names := make(map[int]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	if err := printReview(out, review, names); err != nil {
		return false, err
	}

	counts := review.Counts()
	question := fmt.Sprintf("Import %d of %d transactions?", counts.Selected, counts.Total)
	return cli.Confirm(ctx, in, out, question, true)
}

func printReview(w io.Writer, review *ingest.Review, names map[int]string) error {
	table := newTable(w)
	defer flushTable(table)

	if err := writeHeader(table, "", "Date", "Description", "Amount", "Category", ""); err != nil {
		return err
	}
	for i, row := range review.Rows {
		check := "[ ]"
		if row.IsSelected {
			check = "[x]"
		}
		category := "-"
		if row.SuggestedCategoryID != nil {
			category = names[*row.SuggestedCategoryID]
		}
		note := ""
		if match, ok := review.DuplicateOf(i); ok {
			note = cli.DuplicateIcon + fmt.Sprintf(" duplicate of #%d", match.ID)
		}
		if err := writeRow(table,
			check,
			row.DateText,
			row.Description,
			cli.FormatSigned(row.Amount(), row.IsDebit()),
			category,
			note,
		); err != nil {
			return err
		}
	}
	return nil
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}
