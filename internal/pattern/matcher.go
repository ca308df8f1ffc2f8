// Package pattern evaluates categorization rules against merchant text.
package pattern

import (
	"regexp"
	"strings"

	"github.com/Veraticus/spendwise/internal/model"
)

// Matches reports whether text satisfies pattern under the given match type.
// Literal match types compare upper-cased operands. Regex patterns are
// compiled case-insensitively and may match anywhere in the original text.
// An invalid regex never matches.
func Matches(text, pattern string, matchType model.MatchType) bool {
	if matchType == model.MatchRegex {
		re, err := compileRegex(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	return matchLiteral(text, pattern, matchType)
}

// TestRule lets a user try a pattern before saving it.
func TestRule(merchant, pattern string, matchType model.MatchType) bool {
	return Matches(merchant, pattern, matchType)
}

// RuleMatches reports whether rule matches text, ignoring IsActive.
func RuleMatches(text string, rule model.Rule) bool {
	return Matches(text, rule.Pattern, rule.MatchType)
}

func compileRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

func matchLiteral(text, pattern string, matchType model.MatchType) bool {
	upperText := strings.ToUpper(text)
	upperPattern := strings.ToUpper(pattern)

	switch matchType {
	case model.MatchContains:
		return strings.Contains(upperText, upperPattern)
	case model.MatchStartsWith:
		return strings.HasPrefix(upperText, upperPattern)
	case model.MatchEndsWith:
		return strings.HasSuffix(upperText, upperPattern)
	case model.MatchExact:
		return upperText == upperPattern
	case model.MatchRegex:
		// handled by Matches
	}
	return false
}
