// Package model defines the core data structures for the spendwise application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// MatchType selects how a rule pattern is compared against merchant text.
type MatchType string

// Supported match types. The set is closed.
const (
	MatchContains   MatchType = "CONTAINS"
	MatchStartsWith MatchType = "STARTS_WITH"
	MatchEndsWith   MatchType = "ENDS_WITH"
	MatchExact      MatchType = "EXACT"
	MatchRegex      MatchType = "REGEX"
)

// MatchTypes lists every supported match type in display order.
var MatchTypes = []MatchType{
	MatchContains,
	MatchStartsWith,
	MatchEndsWith,
	MatchExact,
	MatchRegex,
}

// IsValid reports whether m is one of the supported match types.
func (m MatchType) IsValid() bool {
	switch m {
	case MatchContains, MatchStartsWith, MatchEndsWith, MatchExact, MatchRegex:
		return true
	}
	return false
}

// ParseMatchType converts user input such as "contains" or "starts-with" into a MatchType.
func ParseMatchType(s string) (MatchType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	if normalized == "STARTSWITH" {
		normalized = string(MatchStartsWith)
	}
	if normalized == "ENDSWITH" {
		normalized = string(MatchEndsWith)
	}

	mt := MatchType(normalized)
	if !mt.IsValid() {
		return "", fmt.Errorf("unknown match type %q", s)
	}
	return mt, nil
}

// Rule maps merchant text matching Pattern to a category.
// Active rules are evaluated by Priority descending; ties keep storage order.
type Rule struct {
	CreatedAt  time.Time `json:"created_at"`
	Pattern    string    `json:"pattern"`
	MatchType  MatchType `json:"match_type"`
	ID         int       `json:"id"`
	CategoryID int       `json:"category_id"`
	Priority   int       `json:"priority"`
	IsActive   bool      `json:"is_active"`
}
