package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/config"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

// loadConfig returns the typed, validated configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return cfg, common.NewUserError("configuration is invalid", err)
	}
	return cfg, nil
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStorage(ctx, cfg.Database.Path)
}

func openStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// resolveCategory accepts a category id or a case-insensitive name.
func resolveCategory(ctx context.Context, store *storage.SQLiteStorage, ref string) (*model.Category, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		category, err := store.GetCategory(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewUserError(fmt.Sprintf("no category with id %d", id), err)
		}
		return category, err
	}

	category, err := store.GetCategoryByName(ctx, ref)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewUserError(fmt.Sprintf("no category named %q", ref), err)
	}
	return category, err
}

// categoryNames maps category ids to names for table output.
func categoryNames(ctx context.Context, store *storage.SQLiteStorage) (map[int]string, error) {
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	names := make(map[int]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid %s id %q", what, arg), err)
	}
	return id, nil
}

// parseDateRange reads --from/--to flags. An empty from means the start of
// the current month; to is inclusive and defaults to today.
func parseDateRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	if from != "" {
		parsed, err := time.ParseInLocation(dateLayout, from, time.Local)
		if err != nil {
			return start, end, common.NewUserError(fmt.Sprintf("invalid --from date %q, want YYYY-MM-DD", from), err)
		}
		start = parsed
	}
	if to != "" {
		parsed, err := time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			return start, end, common.NewUserError(fmt.Sprintf("invalid --to date %q, want YYYY-MM-DD", to), err)
		}
		end = parsed
	}
	if end.Before(start) {
		return start, end, common.NewUserError("--to is before --from", nil)
	}
	return start, end.AddDate(0, 0, 1), nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func flushTable(w *tabwriter.Writer) {
	if err := w.Flush(); err != nil {
		slog.Error("failed to flush table writer", "error", err)
	}
}

func writeRow(w io.Writer, cells ...string) error {
	_, err := fmt.Fprintln(w, strings.Join(cells, "\t"))
	return err
}

func writeHeader(w io.Writer, cells ...string) error {
	styled := make([]string, len(cells))
	for i, c := range cells {
		styled[i] = cli.BoldStyle.Render(c)
	}
	return writeRow(w, styled...)
}

func printTransactions(w io.Writer, txns []model.Transaction, names map[int]string) error {
	table := newTable(w)
	defer flushTable(table)

	if err := writeHeader(table, "ID", "Date", "Merchant", "Amount", "Category", "Bank"); err != nil {
		return err
	}
	for _, t := range txns {
		category := "-"
		if t.CategoryID != nil {
			category = names[*t.CategoryID]
		}
		manual := ""
		if t.IsManuallyEdited {
			manual = " ✎"
		}
		if err := writeRow(table,
			strconv.FormatInt(t.ID, 10),
			t.Timestamp.Local().Format(dateLayout),
			t.Merchant,
			cli.FormatSigned(t.Amount, t.Type != model.TransactionCredit),
			category+manual,
			t.BankName,
		); err != nil {
			return err
		}
	}
	return nil
}
