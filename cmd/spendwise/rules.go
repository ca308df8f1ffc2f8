package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/Veraticus/spendwise/internal/recategorize"
	"github.com/Veraticus/spendwise/internal/rulefile"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long: `Rules file merchants under categories. Active rules are tried by
priority, highest first; the first match wins and anything unmatched
lands in Others.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesEditCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesTestCmd())
	cmd.AddCommand(rulesExportCmd())
	cmd.AddCommand(rulesImportCmd())

	return cmd
}

func parseMatchTypeFlag(value string) (model.MatchType, error) {
	mt, err := model.ParseMatchType(value)
	if err != nil {
		names := make([]string, len(model.MatchTypes))
		for i, t := range model.MatchTypes {
			names[i] = strings.ToLower(string(t))
		}
		return "", common.NewUserError(fmt.Sprintf("%v (use one of %s)", err, strings.Join(names, ", ")), err)
	}
	return mt, nil
}

func ruleUserError(err error) error {
	if errors.Is(err, storage.ErrInvalidRule) {
		return common.NewUserError(strings.TrimPrefix(err.Error(), storage.ErrInvalidRule.Error()+": "), err)
	}
	return err
}

func rulesListCmd() *cobra.Command {
	var categoryRef string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			var rules []model.Rule
			if categoryRef != "" {
				category, catErr := resolveCategory(ctx, store, categoryRef)
				if catErr != nil {
					return catErr
				}
				rules, err = store.ListRulesByCategory(ctx, category.ID)
			} else {
				rules, err = store.ListRules(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(rules) == 0 {
				_, err := fmt.Fprintln(out, cli.FormatInfo("No rules found. Use 'spendwise rules add' to create one."))
				return err
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}

			table := newTable(out)
			defer flushTable(table)

			if err := writeHeader(table, "ID", "Pattern", "Match", "Category", "Priority", "Active"); err != nil {
				return err
			}
			for _, r := range rules {
				active := cli.SuccessIcon
				if !r.IsActive {
					active = cli.SubtleStyle.Render("off")
				}
				if err := writeRow(table,
					strconv.Itoa(r.ID),
					r.Pattern,
					strings.ToLower(string(r.MatchType)),
					names[r.CategoryID],
					strconv.Itoa(r.Priority),
					active,
				); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryRef, "category", "", "only rules for this category (id or name)")

	return cmd
}

func rulesAddCmd() *cobra.Command {
	var (
		matchType string
		priority  int
		apply     bool
	)

	cmd := &cobra.Command{
		Use:   "add <category> <pattern>",
		Short: "Add a rule",
		Long: `Add a rule that files merchants matching pattern under category.
With --apply, transactions the rule matches are moved now, including
ones you categorized by hand.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			mt, err := parseMatchTypeFlag(matchType)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			category, err := resolveCategory(ctx, store, args[0])
			if err != nil {
				return err
			}

			rule := model.Rule{
				CategoryID: category.ID,
				Pattern:    args[1],
				MatchType:  mt,
				Priority:   priority,
				IsActive:   true,
			}

			svc := recategorize.NewService(store, nil)
			moved, err := svc.AddRule(ctx, &rule, apply)
			if err != nil {
				return ruleUserError(err)
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added rule %d: %s %q → %s",
				rule.ID, strings.ToLower(string(rule.MatchType)), rule.Pattern, category.Name))); err != nil {
				return err
			}
			if apply {
				_, err = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Moved %d transactions to %s", moved, category.Name)))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&matchType, "type", "contains", "match type (contains, starts_with, ends_with, exact, regex)")
	cmd.Flags().IntVar(&priority, "priority", 100, "priority; higher rules are tried first")
	cmd.Flags().BoolVar(&apply, "apply", false, "move matching transactions into the category now")

	return cmd
}

func rulesEditCmd() *cobra.Command {
	var (
		patternText string
		matchType   string
		categoryRef string
		priority    int
		active      bool
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a rule",
		Long: `Change a rule's pattern, match type, category, priority or state.
When the category changes and existing transactions match, you are asked
whether to move them as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			old, err := store.GetRule(ctx, int(id))
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("no rule with id %d", id), err)
			}
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			updated := *old
			flags := cmd.Flags()
			if flags.Changed("pattern") {
				updated.Pattern = patternText
			}
			if flags.Changed("type") {
				if updated.MatchType, err = parseMatchTypeFlag(matchType); err != nil {
					return err
				}
			}
			if flags.Changed("category") {
				category, catErr := resolveCategory(ctx, store, categoryRef)
				if catErr != nil {
					return catErr
				}
				updated.CategoryID = category.ID
			}
			if flags.Changed("priority") {
				updated.Priority = priority
			}
			if flags.Changed("active") {
				updated.IsActive = active
			}
			if err := pattern.ValidateRule(updated); err != nil {
				return common.NewUserError(err.Error(), err)
			}

			svc := recategorize.NewService(store, nil)
			plan, err := svc.PlanRuleEdit(ctx, *old, updated)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			confirmed := yes
			if plan.NeedsConfirmation() && !yes {
				names, nameErr := categoryNames(ctx, store)
				if nameErr != nil {
					return nameErr
				}
				question := fmt.Sprintf("%d transactions match %q. Move them from %s to %s?",
					plan.MatchCount, updated.Pattern, names[old.CategoryID], names[updated.CategoryID])
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				if confirmed, err = cli.Confirm(ctx, reader, out, question, false); err != nil {
					return fmt.Errorf("failed to read answer: %w", err)
				}
			}

			moved, err := svc.ApplyRuleEdit(ctx, plan, confirmed)
			if err != nil {
				return ruleUserError(err)
			}

			if _, err := fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Updated rule %d", updated.ID))); err != nil {
				return err
			}
			if moved > 0 {
				_, err = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Moved %d transactions", moved)))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&patternText, "pattern", "", "new pattern")
	cmd.Flags().StringVar(&matchType, "type", "", "new match type")
	cmd.Flags().StringVar(&categoryRef, "category", "", "new category (id or name)")
	cmd.Flags().IntVar(&priority, "priority", 0, "new priority")
	cmd.Flags().BoolVar(&active, "active", true, "enable or disable the rule")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "move matching transactions without asking")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule and recategorize",
		Long: `Delete a rule, then run every remaining rule over the stored
transactions. Transactions you categorized by hand are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			svc := recategorize.NewService(store, nil)
			moved, err := svc.DeleteRuleAndReapply(ctx, int(id))
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("no rule with id %d", id), err)
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Deleted rule %d, recategorized %d transactions", id, moved)))
			return err
		},
	}
}

func rulesTestCmd() *cobra.Command {
	var matchType string

	cmd := &cobra.Command{
		Use:   "test <merchant> <pattern>",
		Short: "Check whether a pattern matches a merchant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mt, err := parseMatchTypeFlag(matchType)
			if err != nil {
				return err
			}
			rule := model.Rule{CategoryID: model.OthersCategoryID, Pattern: args[1], MatchType: mt}
			if err := pattern.ValidateRule(rule); err != nil {
				return common.NewUserError(err.Error(), err)
			}

			msg := cli.FormatWarning(fmt.Sprintf("%q does not match %q", args[0], args[1]))
			if pattern.TestRule(args[0], args[1], mt) {
				msg = cli.FormatSuccess(fmt.Sprintf("%q matches %q", args[0], args[1]))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}

	cmd.Flags().StringVar(&matchType, "type", "contains", "match type")

	return cmd
}

func rulesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write categories and rules as YAML",
		Long:  `Write all categories and rules as YAML to file, or to stdout when no file is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rules, err := store.ListRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}
			categories, err := store.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			doc := rulefile.FromRules(rules, categories)

			if len(args) == 0 {
				return rulefile.Write(cmd.OutOrStdout(), doc)
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			if err := rulefile.Write(f, doc); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Exported %d rules to %s", len(doc.Rules), args[0])))
			return err
		},
	}
}

func rulesImportCmd() *cobra.Command {
	var (
		replace bool
		apply   bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load categories and rules from YAML",
		Long: `Load a document written by 'rules export'. Unknown categories are
created. With --replace, existing rules are deleted first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			doc, err := rulefile.Load(args[0])
			if err != nil {
				return common.NewUserError(fmt.Sprintf("cannot read %s", args[0]), err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			created, err := importCategories(cmd, store, doc)
			if err != nil {
				return err
			}

			categories, err := store.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			rules, err := doc.ResolveRules(rulefile.CategoryLookup(categories))
			if err != nil {
				return common.NewUserError(fmt.Sprintf("invalid rules in %s: %v", args[0], err), err)
			}

			if replace {
				if _, err := store.DeleteAllRules(ctx); err != nil {
					return fmt.Errorf("failed to delete existing rules: %w", err)
				}
			}
			for i := range rules {
				if err := store.InsertRule(ctx, &rules[i]); err != nil {
					return ruleUserError(err)
				}
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d rules and %d new categories", len(rules), created))); err != nil {
				return err
			}

			if !apply {
				return nil
			}
			moved, err := recategorize.NewService(store, nil).RecategorizeAll(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Recategorized %d transactions", moved)))
			return err
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "delete existing rules before importing")
	cmd.Flags().BoolVar(&apply, "apply", false, "recategorize stored transactions afterwards")

	return cmd
}

func importCategories(cmd *cobra.Command, store *storage.SQLiteStorage, doc *rulefile.Document) (int, error) {
	ctx := cmd.Context()
	created := 0
	for _, entry := range doc.Categories {
		_, err := store.GetCategoryByName(ctx, entry.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, common.ErrNotFound) {
			return created, fmt.Errorf("failed to look up category %s: %w", entry.Name, err)
		}

		category := entry.Category()
		category.ID = 0
		category.IsDefault = false
		if err := store.InsertCategory(ctx, &category); err != nil {
			return created, fmt.Errorf("failed to create category %s: %w", entry.Name, err)
		}
		logCreated(cmd.ErrOrStderr(), category)
		created++
	}
	return created, nil
}

func logCreated(w io.Writer, category model.Category) {
	fmt.Fprintln(w, cli.FormatInfo(fmt.Sprintf("Created category %q", category.Name))) //nolint:errcheck // informational
}
