package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "tx"},
		Short:   "Browse and correct stored transactions",
	}

	cmd.AddCommand(transactionsListCmd())
	cmd.AddCommand(transactionsUncategorizedCmd())
	cmd.AddCommand(transactionsSetCategoryCmd())
	cmd.AddCommand(transactionsEditCmd())
	cmd.AddCommand(transactionsDeleteCmd())
	cmd.AddCommand(transactionsTotalCmd())
	cmd.AddCommand(transactionsBreakdownCmd())
	cmd.AddCommand(transactionsUndoImportCmd())

	return cmd
}

func transactionsListCmd() *cobra.Command {
	var (
		categoryRef string
		from        string
		to          string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			var txns []model.Transaction
			switch {
			case categoryRef != "":
				category, catErr := resolveCategory(ctx, store, categoryRef)
				if catErr != nil {
					return catErr
				}
				txns, err = store.ListTransactionsByCategory(ctx, category.ID)
			case from != "" || to != "":
				start, end, rangeErr := parseDateRange(from, to, time.Now())
				if rangeErr != nil {
					return rangeErr
				}
				txns, err = store.ListTransactionsInRange(ctx, start, end)
			default:
				txns, err = store.ListTransactions(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}

			if limit > 0 && len(txns) > limit {
				txns = txns[:limit]
			}
			return showTransactions(cmd, store, txns, "No transactions found.")
		},
	}

	cmd.Flags().StringVar(&categoryRef, "category", "", "only this category (id or name)")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show (0 for all)")

	return cmd
}

func transactionsUncategorizedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uncategorized",
		Short: "List transactions waiting for a category",
		Long: `List transactions filed under Others or without a category. Use
'spendwise transactions set-category' to file them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			txns, err := store.ListUncategorized(ctx)
			if err != nil {
				return fmt.Errorf("failed to get uncategorized transactions: %w", err)
			}
			return showTransactions(cmd, store, txns, "Everything is categorized.")
		},
	}
}

func showTransactions(cmd *cobra.Command, store *storage.SQLiteStorage, txns []model.Transaction, empty string) error {
	out := cmd.OutOrStdout()
	if len(txns) == 0 {
		_, err := fmt.Fprintln(out, cli.FormatInfo(empty))
		return err
	}

	names, err := categoryNames(cmd.Context(), store)
	if err != nil {
		return err
	}
	return printTransactions(out, txns, names)
}

func transactionsSetCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-category <id> <category>",
		Short: "File a transaction under a category by hand",
		Long: `Set the category of one transaction. The transaction is marked as
manually edited, so 'spendwise recategorize' will leave it alone.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			category, err := resolveCategory(ctx, store, args[1])
			if err != nil {
				return err
			}

			if err := store.UpdateTransactionCategory(ctx, id, category.ID, true); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no transaction with id %d", id), err)
				}
				return fmt.Errorf("failed to update transaction: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Transaction %d filed under %s", id, category.Name)))
			return err
		},
	}
}

func transactionsEditCmd() *cobra.Command {
	var (
		amount      string
		merchant    string
		categoryRef string
		date        string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Correct the amount, merchant, category or date of a transaction",
		Long: `Change one or more fields of a stored transaction. Only the flags you
pass are changed. Setting --category marks the transaction as manually
edited, so 'spendwise recategorize' will leave it alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}
			if !flags.Changed("amount") && !flags.Changed("merchant") &&
				!flags.Changed("category") && !flags.Changed("date") {
				return common.NewUserError("nothing to change; pass --amount, --merchant, --category or --date", nil)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			txn, err := store.GetTransaction(ctx, id)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no transaction with id %d", id), err)
				}
				return fmt.Errorf("failed to get transaction: %w", err)
			}

			if flags.Changed("amount") {
				value, err := parseAmount(amount)
				if err != nil {
					return err
				}
				txn.Amount = value
			}
			if flags.Changed("merchant") {
				if strings.TrimSpace(merchant) == "" {
					return common.NewUserError("merchant cannot be empty", nil)
				}
				txn.Merchant = strings.TrimSpace(merchant)
			}
			if flags.Changed("category") {
				category, err := resolveCategory(ctx, store, categoryRef)
				if err != nil {
					return err
				}
				txn.CategoryID = model.IntPtr(category.ID)
				txn.IsManuallyEdited = true
			}
			if flags.Changed("date") {
				day, err := time.ParseInLocation(dateLayout, date, time.Local)
				if err != nil {
					return common.NewUserError(fmt.Sprintf("invalid --date %q, want YYYY-MM-DD", date), err)
				}
				// Keep the time of day, move the calendar day.
				local := txn.Timestamp.Local()
				txn.Timestamp = time.Date(day.Year(), day.Month(), day.Day(),
					local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.Local)
			}

			if err := store.UpdateTransaction(ctx, txn); err != nil {
				return fmt.Errorf("failed to update transaction: %w", err)
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Updated transaction %d", id))); err != nil {
				return err
			}
			return printTransactions(out, []model.Transaction{*txn}, names)
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "new amount, e.g. 249.50")
	cmd.Flags().StringVar(&merchant, "merchant", "", "new merchant name")
	cmd.Flags().StringVar(&categoryRef, "category", "", "new category (id or name)")
	cmd.Flags().StringVar(&date, "date", "", "new day, YYYY-MM-DD")

	return cmd
}

// parseAmount accepts a positive amount with optional commas and a currency prefix.
func parseAmount(arg string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(arg)
	for _, prefix := range []string{"INR", "Rs.", "Rs", "₹"} {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, prefix))
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	value, err := decimal.NewFromString(cleaned)
	if err != nil || !value.IsPositive() {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("invalid amount %q, want a positive number", arg), err)
	}
	return value, nil
}

func transactionsDeleteCmd() *cobra.Command {
	var (
		all   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id> | --all",
		Short: "Delete a transaction, or every transaction with --all",
		Long: `Delete one stored transaction by id. With --all every transaction is
deleted after a confirmation; categories and rules are kept.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if all {
				return deleteAllTransactions(cmd, out, force)
			}

			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.DeleteTransaction(ctx, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no transaction with id %d", id), err)
				}
				return fmt.Errorf("failed to delete transaction: %w", err)
			}

			_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted transaction %d", id)))
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "delete every transaction")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return cmd
}

func deleteAllTransactions(cmd *cobra.Command, out io.Writer, force bool) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	if !force {
		txns, err := store.ListTransactions(ctx)
		if err != nil {
			return fmt.Errorf("failed to count transactions: %w", err)
		}
		if len(txns) == 0 {
			_, err := fmt.Fprintln(out, cli.FormatInfo("No transactions to delete."))
			return err
		}
		if _, err := fmt.Fprintln(out, cli.FormatWarning(
			fmt.Sprintf("This deletes all %d transactions.", len(txns)))); err != nil {
			return err
		}
		ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out, "Are you sure?", false)
		if err != nil {
			return err
		}
		if !ok {
			_, err := fmt.Fprintln(out, "Delete canceled.")
			return err
		}
	}

	deleted, err := store.DeleteAllTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %d transactions", deleted)))
	return err
}

func transactionsTotalCmd() *cobra.Command {
	var (
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:   "total",
		Short: "Sum spending in a date range",
		Long:  `Sum debits between --from and --to (inclusive). Defaults to the current month.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, end, err := parseDateRange(from, to, time.Now())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			total, err := store.TotalExpenses(ctx, start, end)
			if err != nil {
				return fmt.Errorf("failed to total expenses: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s to %s: %s\n",
				cli.WalletIcon,
				start.Format(dateLayout),
				end.AddDate(0, 0, -1).Format(dateLayout),
				cli.BoldStyle.Render(cli.FormatMoney(total)))
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")

	return cmd
}

func transactionsBreakdownCmd() *cobra.Command {
	var (
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:     "breakdown",
		Aliases: []string{"by-category"},
		Short:   "Show spending per category in a date range",
		Long: `Show each category's debit total, its share of all spending and its
transaction count between --from and --to (inclusive). Defaults to the
current month.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, end, err := parseDateRange(from, to, time.Now())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			spending, err := store.SpendingByCategory(ctx, start, end)
			if err != nil {
				return fmt.Errorf("failed to group spending: %w", err)
			}
			categories, err := store.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			period := fmt.Sprintf("%s to %s", start.Format(dateLayout), end.AddDate(0, 0, -1).Format(dateLayout))
			return printBreakdown(cmd.OutOrStdout(), period, spending, categories)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")

	return cmd
}

func printBreakdown(w io.Writer, period string, spending []model.CategorySpending, categories []model.Category) error {
	if len(spending) == 0 {
		_, err := fmt.Fprintln(w, cli.FormatInfo("No spending between "+period+"."))
		return err
	}

	byID := make(map[int]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	total := decimal.Zero
	count := 0
	for _, s := range spending {
		total = total.Add(s.Total)
		count += s.Count
	}

	if _, err := fmt.Fprintf(w, "%s %s: %s in %d transactions\n\n",
		cli.WalletIcon, period, cli.BoldStyle.Render(cli.FormatMoney(total)), count); err != nil {
		return err
	}

	table := newTable(w)
	defer flushTable(table)

	if err := writeHeader(table, "Category", "Spent", "Share", "Count"); err != nil {
		return err
	}
	for _, s := range spending {
		label := "Uncategorized"
		if s.CategoryID != nil {
			c := byID[*s.CategoryID]
			label = cli.CategoryBadge(c.Icon, c.Name, c.Color)
		}
		if err := writeRow(table,
			label,
			cli.FormatMoney(s.Total),
			s.Percent.StringFixed(1)+"%",
			strconv.Itoa(s.Count),
		); err != nil {
			return err
		}
	}
	return nil
}

func transactionsUndoImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo-import <import-id>",
		Short: "Delete every transaction from one statement import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			removed, err := store.DeleteImport(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to undo import: %w", err)
			}
			if removed == 0 {
				return common.NewUserError(fmt.Sprintf("no transactions belong to import %s", args[0]), common.ErrNotFound)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Removed %d transactions from import %s", removed, args[0])))
			return err
		},
	}
}
