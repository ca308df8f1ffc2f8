package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spendwise/internal/model"
)

// Rule validation errors.
var (
	ErrEmptyPattern     = errors.New("pattern cannot be empty")
	ErrInvalidMatchType = errors.New("invalid match type")
	ErrInvalidRegex     = errors.New("invalid regular expression")
	ErrInvalidCategory  = errors.New("invalid category id")
)

// ValidateRule checks a rule before it is stored. The engine itself tolerates
// bad rules; this is for the user-facing boundary.
func ValidateRule(rule model.Rule) error {
	if strings.TrimSpace(rule.Pattern) == "" {
		return ErrEmptyPattern
	}
	if !rule.MatchType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMatchType, rule.MatchType)
	}
	if rule.CategoryID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCategory, rule.CategoryID)
	}
	if rule.MatchType == model.MatchRegex {
		if _, err := compileRegex(rule.Pattern); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRegex, err)
		}
	}
	return nil
}
