package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
)

const ruleColumns = `id, category_id, pattern, match_type, priority, is_active, created_at`

func scanRule(row interface{ Scan(...any) error }) (model.Rule, error) {
	var r model.Rule
	var matchType string
	var createdAt sql.NullTime
	if err := row.Scan(&r.ID, &r.CategoryID, &r.Pattern, &matchType, &r.Priority, &r.IsActive, &createdAt); err != nil {
		return r, err
	}
	r.MatchType = model.MatchType(matchType)
	if createdAt.Valid {
		r.CreatedAt = createdAt.Time
	}
	return r, nil
}

func (s *SQLiteStorage) queryRules(ctx context.Context, where string, args ...any) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM rules `+where+` ORDER BY priority DESC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// ListActiveRules returns active rules in evaluation order: priority
// descending, then insertion order.
func (s *SQLiteStorage) ListActiveRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, `WHERE is_active = 1`)
}

// ListRules returns every rule, active or not.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, ``)
}

// ListRulesByCategory returns the rules targeting one category.
func (s *SQLiteStorage) ListRulesByCategory(ctx context.Context, categoryID int) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryRules(ctx, `WHERE category_id = ?`, categoryID)
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	r, err := scanRule(s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return &r, nil
}

// InsertRule creates a rule and sets its ID.
func (s *SQLiteStorage) InsertRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return insertRule(ctx, s.db, rule)
}

func insertRule(ctx context.Context, q queryable, rule *model.Rule) error {
	if err := ensureCategory(ctx, q, rule.CategoryID); err != nil {
		return err
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO rules (category_id, pattern, match_type, priority, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rule.CategoryID, rule.Pattern, string(rule.MatchType), rule.Priority, rule.IsActive, rule.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}
	rule.ID = int(id)
	return nil
}

// UpdateRule saves every editable field of a rule.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return updateRule(ctx, s.db, rule)
}

func updateRule(ctx context.Context, q queryable, rule *model.Rule) error {
	if err := ensureCategory(ctx, q, rule.CategoryID); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, `
		UPDATE rules SET category_id = ?, pattern = ?, match_type = ?, priority = ?, is_active = ?
		WHERE id = ?`,
		rule.CategoryID, rule.Pattern, string(rule.MatchType), rule.Priority, rule.IsActive, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", rule.ID))
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("rule %d", id))
}

// DeleteAllRules removes every rule and returns how many were deleted.
func (s *SQLiteStorage) DeleteAllRules(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM rules`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rules: %w", err)
	}
	return result.RowsAffected()
}
