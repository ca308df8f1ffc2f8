package recategorize

import (
	"context"
	"fmt"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/service"
)

// Step is where a rule edit goes after its matches are counted.
type Step int

const (
	// StepApplyUpdate saves the rule without touching transactions.
	StepApplyUpdate Step = iota
	// StepConfirmRecategorize asks the user before moving matched transactions.
	StepConfirmRecategorize
)

func (s Step) String() string {
	if s == StepConfirmRecategorize {
		return "confirm-recategorize"
	}
	return "apply-update"
}

// RuleEditPlan is the counted state of a pending rule edit.
type RuleEditPlan struct {
	Old        model.Rule
	Updated    model.Rule
	MatchCount int
	Next       Step
}

// CategoryChanged reports whether the edit retargets the rule.
func (p RuleEditPlan) CategoryChanged() bool {
	return p.Old.CategoryID != p.Updated.CategoryID
}

// NeedsConfirmation reports whether transactions would move.
func (p RuleEditPlan) NeedsConfirmation() bool {
	return p.Next == StepConfirmRecategorize
}

// PlanRuleEdit counts the transactions the updated rule matches. When the
// category changed and something matches, the plan asks for confirmation.
func (s *Service) PlanRuleEdit(ctx context.Context, old, updated model.Rule) (RuleEditPlan, error) {
	plan := RuleEditPlan{Old: old, Updated: updated, Next: StepApplyUpdate}
	if !plan.CategoryChanged() {
		return plan, nil
	}

	count, err := s.CountMatching(ctx, updated.Pattern, updated.MatchType)
	if err != nil {
		return plan, err
	}
	plan.MatchCount = count
	if count > 0 {
		plan.Next = StepConfirmRecategorize
	}
	return plan, nil
}

// ApplyRuleEdit saves the updated rule. Matched transactions move only when
// the plan needed confirmation and the user confirmed. The rule save and
// the moves commit together.
func (s *Service) ApplyRuleEdit(ctx context.Context, plan RuleEditPlan, confirmed bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recategorize := plan.NeedsConfirmation() && confirmed

	var txns []model.Transaction
	if recategorize {
		var err error
		txns, err = s.store.ListTransactions(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to load transactions: %w", err)
		}
	}

	updated := plan.Updated
	var moved int
	err := s.inTx(ctx, func(tx service.Tx) error {
		if err := tx.UpdateRule(ctx, &updated); err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}
		if !recategorize {
			return nil
		}
		var applyErr error
		moved, applyErr = applyMatching(ctx, tx, txns, updated)
		return applyErr
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Updated rule",
		"rule_id", updated.ID,
		"step", plan.Next.String(),
		"confirmed", confirmed,
		"recategorized", moved)
	return moved, nil
}
