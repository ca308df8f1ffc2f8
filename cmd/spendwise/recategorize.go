package main

import (
	"fmt"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/Veraticus/spendwise/internal/recategorize"
	"github.com/spf13/cobra"
)

func recategorizeCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "recategorize",
		Short: "Re-run the rules over every stored transaction",
		Long: `Categorize every stored transaction again with the current rules.

Transactions you filed by hand with 'spendwise transactions set-category'
keep their category.

Examples:
  # See how many transactions would move
  spendwise recategorize --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if dryRun {
				engine, err := pattern.LoadEngine(ctx, store)
				if err != nil {
					return err
				}
				txns, err := store.ListTransactions(ctx)
				if err != nil {
					return fmt.Errorf("failed to get transactions: %w", err)
				}
				moving := pendingMoves(engine, txns)
				_, err = fmt.Fprintln(out, cli.FormatInfo(
					fmt.Sprintf("%d of %d transactions would change category", moving, len(txns))))
				return err
			}

			updated, err := recategorize.NewService(store, nil).RecategorizeAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to recategorize: %w", err)
			}
			_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recategorized %d transactions", updated)))
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count changes without saving them")

	return cmd
}

// pendingMoves counts the automatically categorized transactions whose
// category the engine would change.
func pendingMoves(engine *pattern.Engine, txns []model.Transaction) int {
	moving := 0
	for _, txn := range txns {
		if txn.IsManuallyEdited {
			continue
		}
		if txn.CategoryID == nil || *txn.CategoryID != engine.Categorize(txn.Merchant) {
			moving++
		}
	}
	return moving
}
