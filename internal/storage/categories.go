package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
)

const categoryColumns = `id, name, color, icon, is_default, display_order`

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.IsDefault, &c.DisplayOrder)
	return c, err
}

// ListCategories returns all categories ordered for display.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listCategories(ctx, s.db)
}

func listCategories(ctx context.Context, q queryable) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category by id.
func (s *SQLiteStorage) GetCategory(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// GetCategoryByName returns a category by name, ignoring case.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// InsertCategory creates a category and sets its ID. Names must be unique
// regardless of case.
func (s *SQLiteStorage) InsertCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	if _, err := s.GetCategoryByName(ctx, category.Name); err == nil {
		return fmt.Errorf("category %q: %w", category.Name, common.ErrDuplicateEntry)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if category.DisplayOrder == 0 {
		err := s.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(display_order), 0) + 1 FROM categories`).Scan(&category.DisplayOrder)
		if err != nil {
			return fmt.Errorf("failed to compute display order: %w", err)
		}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, color, icon, is_default, display_order)
		VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(category.Name), category.Color, category.Icon, category.IsDefault, category.DisplayOrder)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category ID: %w", err)
	}
	category.ID = int(id)
	return nil
}

// UpdateCategory saves the name, color, icon and display order of a category.
func (s *SQLiteStorage) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	if existing, err := s.GetCategoryByName(ctx, category.Name); err == nil && existing.ID != category.ID {
		return fmt.Errorf("category %q: %w", category.Name, common.ErrDuplicateEntry)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, color = ?, icon = ?, display_order = ?
		WHERE id = ?`,
		strings.TrimSpace(category.Name), category.Color, category.Icon, category.DisplayOrder, category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("category %d", category.ID))
}

// DeleteCategory removes a non-default category. Its rules are deleted and
// its transactions move to Others.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if category.IsDefault {
		return fmt.Errorf("%w: %s", ErrDefaultCategory, category.Name)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := releaseCategories(ctx, tx, `category_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
}

// DeleteNonDefaultCategories removes every user-created category.
func (s *SQLiteStorage) DeleteNonDefaultCategories(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		custom := `category_id IN (SELECT id FROM categories WHERE is_default = 0)`
		if err := releaseCategories(ctx, tx, custom, nil); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE is_default = 0`)
		if err != nil {
			return fmt.Errorf("failed to delete categories: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// releaseCategories drops rules and reassigns transactions matching where
// so that no row is left pointing at a deleted category.
func releaseCategories(ctx context.Context, tx *sql.Tx, where string, arg any) error {
	args := []any{}
	if arg != nil {
		args = append(args, arg)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules WHERE `+where, args...); err != nil {
		return fmt.Errorf("failed to delete category rules: %w", err)
	}
	updateArgs := append([]any{model.OthersCategoryID}, args...)
	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE `+where, updateArgs...); err != nil {
		return fmt.Errorf("failed to reassign transactions: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}
