package main

import (
	"fmt"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/spf13/cobra"
)

func resetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data and restore the default categories and rules",
		Long: `Reset removes every transaction, every rule and all categories you
added, then restores the default categories and rules.

This cannot be undone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

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
				if _, err := fmt.Fprintln(out, cli.FormatWarning(
					fmt.Sprintf("This deletes %d transactions and all custom categories and rules.", len(txns)))); err != nil {
					return err
				}
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out, "Are you sure?", false)
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(out, "Reset canceled.")
					return err
				}
			}

			if err := store.Reset(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, cli.FormatSuccess("Database reset to defaults"))
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return cmd
}
