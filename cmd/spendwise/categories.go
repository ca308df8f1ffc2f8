package main

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/spf13/cobra"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage spending categories",
		Long:  `List, add, edit and delete the categories transactions are filed under.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(editCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			categories, err := store.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			out := cmd.OutOrStdout()
			table := newTable(out)
			defer flushTable(table)

			if err := writeHeader(table, "ID", "Category", "Rules", "Default"); err != nil {
				return err
			}
			for _, c := range categories {
				rules, err := store.ListRulesByCategory(ctx, c.ID)
				if err != nil {
					return fmt.Errorf("failed to get rules for %s: %w", c.Name, err)
				}
				def := ""
				if c.IsDefault {
					def = cli.SuccessIcon
				}
				if err := writeRow(table,
					strconv.Itoa(c.ID),
					cli.CategoryBadge(c.Icon, c.Name, c.Color),
					strconv.Itoa(len(rules)),
					def,
				); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var (
		color string
		icon  string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			category := model.Category{Name: args[0], Color: color, Icon: icon}
			if err := store.InsertCategory(ctx, &category); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("category %q already exists", args[0]), err)
				}
				return fmt.Errorf("failed to create category: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Created category %q (ID: %d)", category.Name, category.ID)))
			return err
		},
	}

	cmd.Flags().StringVar(&color, "color", "#90A4AE", "display color as #RRGGBB")
	cmd.Flags().StringVar(&icon, "icon", "🏷️", "display icon")

	return cmd
}

func editCategoryCmd() *cobra.Command {
	var (
		name  string
		color string
		icon  string
		order int
	)

	cmd := &cobra.Command{
		Use:   "edit <id|name>",
		Short: "Rename a category or change how it is displayed",
		Long: `Change the name, color, icon or display order of a category. Only the
flags you pass are changed. Default categories can be edited too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			if !flags.Changed("name") && !flags.Changed("color") &&
				!flags.Changed("icon") && !flags.Changed("order") {
				return common.NewUserError("nothing to change; pass --name, --color, --icon or --order", nil)
			}
			if flags.Changed("color") && !hexColor.MatchString(color) {
				return common.NewUserError(fmt.Sprintf("invalid color %q, want #RRGGBB", color), nil)
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
			oldName := category.Name

			if flags.Changed("name") {
				if strings.TrimSpace(name) == "" {
					return common.NewUserError("category name cannot be empty", nil)
				}
				category.Name = strings.TrimSpace(name)
			}
			if flags.Changed("color") {
				category.Color = color
			}
			if flags.Changed("icon") {
				category.Icon = icon
			}
			if flags.Changed("order") {
				category.DisplayOrder = order
			}

			if err := store.UpdateCategory(ctx, category); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("category %q already exists", category.Name), err)
				}
				return fmt.Errorf("failed to update category: %w", err)
			}

			msg := fmt.Sprintf("Updated category %s", cli.CategoryBadge(category.Icon, category.Name, category.Color))
			if category.Name != oldName {
				msg += fmt.Sprintf(" (was %q)", oldName)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&color, "color", "", "display color as #RRGGBB")
	cmd.Flags().StringVar(&icon, "icon", "", "display icon")
	cmd.Flags().IntVar(&order, "order", 0, "position in category lists")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	var (
		custom bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id|name> | --custom",
		Short: "Delete a category, or every category you added with --custom",
		Long: `Delete a user-created category. Its rules are deleted and its
transactions move to Others. Default categories cannot be deleted.

With --custom every user-created category is deleted after a confirmation.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if custom {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if custom {
				return deleteCustomCategories(cmd, store, cmd.OutOrStdout(), force)
			}

			category, err := resolveCategory(ctx, store, args[0])
			if err != nil {
				return err
			}

			if err := store.DeleteCategory(ctx, category.ID); err != nil {
				if errors.Is(err, storage.ErrDefaultCategory) {
					return common.NewUserError(fmt.Sprintf("%s is a default category and cannot be deleted", category.Name), err)
				}
				return fmt.Errorf("failed to delete category: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(),
				cli.FormatSuccess(fmt.Sprintf("Deleted category %q", category.Name)))
			return err
		},
	}

	cmd.Flags().BoolVar(&custom, "custom", false, "delete every user-created category")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	return cmd
}

func deleteCustomCategories(cmd *cobra.Command, store *storage.SQLiteStorage, out io.Writer, force bool) error {
	ctx := cmd.Context()

	if !force {
		categories, err := store.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("failed to get categories: %w", err)
		}
		var names []string
		for _, c := range categories {
			if !c.IsDefault {
				names = append(names, c.Name)
			}
		}
		if len(names) == 0 {
			_, err := fmt.Fprintln(out, cli.FormatInfo("There are no custom categories."))
			return err
		}
		if _, err := fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf(
			"This deletes %s with their rules and moves their transactions to Others.",
			strings.Join(names, ", ")))); err != nil {
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

	deleted, err := store.DeleteNonDefaultCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete categories: %w", err)
	}
	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %d custom categories", deleted)))
	return err
}
