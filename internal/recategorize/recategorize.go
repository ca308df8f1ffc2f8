// Package recategorize re-applies categorization rules across stored
// transactions when rules are added, edited or removed.
//
// At most one bulk pass runs at a time per Service, and each pass writes
// inside a single storage transaction.
package recategorize

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/Veraticus/spendwise/internal/service"
)

// Store is the persistence the recategorizer needs.
type Store interface {
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	ListActiveRules(ctx context.Context) ([]model.Rule, error)
	InsertRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int) error
	BeginTx(ctx context.Context) (service.Tx, error)
}

// Service runs bulk recategorization passes.
type Service struct {
	store  Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: common.LoggerOrDefault(logger),
	}
}

// CountMatching reports how many stored transactions have a merchant
// matching the pattern.
func (s *Service) CountMatching(ctx context.Context, patternText string, matchType model.MatchType) (int, error) {
	txns, err := s.store.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions: %w", err)
	}
	return len(matching(txns, patternText, matchType)), nil
}

// RecategorizeMatching moves every transaction matching the rule into the
// rule's category and clears its manual-edit flag. Manually edited rows are
// included: the caller asked for this rule explicitly.
func (s *Service) RecategorizeMatching(ctx context.Context, rule model.Rule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txns, err := s.store.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions: %w", err)
	}

	var updated int
	err = s.inTx(ctx, func(tx service.Tx) error {
		var applyErr error
		updated, applyErr = applyMatching(ctx, tx, txns, rule)
		return applyErr
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Recategorized matching transactions",
		"pattern", rule.Pattern,
		"match_type", rule.MatchType,
		"category_id", rule.CategoryID,
		"updated", updated)
	return updated, nil
}

// RecategorizeAll re-runs the active rules against every transaction that
// was not manually edited, updating only rows whose category changes.
func (s *Service) RecategorizeAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recategorizeAll(ctx)
}

func (s *Service) recategorizeAll(ctx context.Context) (int, error) {
	engine, err := pattern.LoadEngine(ctx, s.store)
	if err != nil {
		return 0, err
	}

	txns, err := s.store.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions: %w", err)
	}

	var updated, skipped int
	err = s.inTx(ctx, func(tx service.Tx) error {
		for _, txn := range txns {
			if txn.IsManuallyEdited {
				skipped++
				continue
			}
			categoryID := engine.Categorize(txn.Merchant)
			if txn.CategoryID != nil && *txn.CategoryID == categoryID {
				continue
			}
			if err := tx.UpdateTransactionCategory(ctx, txn.ID, categoryID, false); err != nil {
				return fmt.Errorf("failed to recategorize transaction %d: %w", txn.ID, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Recategorized all transactions",
		"total", len(txns),
		"updated", updated,
		"manual_skipped", skipped)
	return updated, nil
}

// AddRule stores a new rule. When apply is set, matching transactions are
// moved into the rule's category.
func (s *Service) AddRule(ctx context.Context, rule *model.Rule, apply bool) (int, error) {
	if err := s.store.InsertRule(ctx, rule); err != nil {
		return 0, fmt.Errorf("failed to add rule: %w", err)
	}
	if !apply {
		return 0, nil
	}
	return s.RecategorizeMatching(ctx, *rule)
}

// DeleteRuleAndReapply deletes a rule and lets the remaining rules
// re-assert themselves.
func (s *Service) DeleteRuleAndReapply(ctx context.Context, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteRule(ctx, id); err != nil {
		return 0, fmt.Errorf("failed to delete rule: %w", err)
	}
	return s.recategorizeAll(ctx)
}

func (s *Service) inTx(ctx context.Context, fn func(tx service.Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recategorization: %w", err)
	}
	return nil
}

func applyMatching(ctx context.Context, tx service.Tx, txns []model.Transaction, rule model.Rule) (int, error) {
	hits := matching(txns, rule.Pattern, rule.MatchType)
	for _, txn := range hits {
		if err := tx.UpdateTransactionCategory(ctx, txn.ID, rule.CategoryID, false); err != nil {
			return 0, fmt.Errorf("failed to recategorize transaction %d: %w", txn.ID, err)
		}
	}
	return len(hits), nil
}

func matching(txns []model.Transaction, patternText string, matchType model.MatchType) []model.Transaction {
	var hits []model.Transaction
	for _, txn := range txns {
		if pattern.Matches(txn.Merchant, patternText, matchType) {
			hits = append(hits, txn)
		}
	}
	return hits
}
