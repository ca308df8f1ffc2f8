package pattern

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/Veraticus/spendwise/internal/model"
)

// RuleSource supplies active rules ordered by priority.
type RuleSource interface {
	ListActiveRules(ctx context.Context) ([]model.Rule, error)
}

// Engine assigns categories to merchant text using first-match-wins over
// active rules sorted by priority. It is immutable once built and safe for
// concurrent use.
type Engine struct {
	compiled map[int]*regexp.Regexp
	rules    []model.Rule
}

// NewEngine builds an engine from rules. Inactive rules are dropped and the
// rest are stable-sorted by priority descending, so equal priorities keep
// their input order.
func NewEngine(rules []model.Rule) *Engine {
	active := make([]model.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})

	e := &Engine{
		rules:    active,
		compiled: make(map[int]*regexp.Regexp),
	}

	// Pre-compile regex patterns
	for i, rule := range active {
		if rule.MatchType != model.MatchRegex {
			continue
		}
		if re, err := compileRegex(rule.Pattern); err == nil {
			e.compiled[i] = re
		}
	}

	return e
}

// LoadEngine builds an engine from the active rules in source.
func LoadEngine(ctx context.Context, source RuleSource) (*Engine, error) {
	rules, err := source.ListActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}
	return NewEngine(rules), nil
}

// Categorize returns the category of the first matching rule, or
// model.OthersCategoryID when nothing matches.
func (e *Engine) Categorize(merchant string) int {
	if rule, ok := e.Match(merchant); ok {
		return rule.CategoryID
	}
	return model.OthersCategoryID
}

// Match returns the winning rule for merchant.
func (e *Engine) Match(merchant string) (*model.Rule, bool) {
	for i := range e.rules {
		if e.matches(i, merchant) {
			rule := e.rules[i]
			return &rule, true
		}
	}
	return nil, false
}

// Rules returns the active rules in evaluation order.
func (e *Engine) Rules() []model.Rule {
	out := make([]model.Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

func (e *Engine) matches(i int, merchant string) bool {
	rule := e.rules[i]
	if rule.MatchType == model.MatchRegex {
		re, ok := e.compiled[i]
		if !ok {
			return false
		}
		return re.MatchString(merchant)
	}
	return matchLiteral(merchant, rule.Pattern, rule.MatchType)
}
