package model

import "github.com/shopspring/decimal"

// OthersCategoryID is the fixed id of the seeded fallback category.
// Unmatched merchants always resolve to it.
const OthersCategoryID = 7

// Category represents a spending category transactions are filed under.
type Category struct {
	Name         string `json:"name" yaml:"name"`
	Color        string `json:"color" yaml:"color"`
	Icon         string `json:"icon" yaml:"icon"`
	ID           int    `json:"id" yaml:"id"`
	DisplayOrder int    `json:"display_order" yaml:"display_order"`
	IsDefault    bool   `json:"is_default" yaml:"is_default"`
}

// IsOthers reports whether the category is the fallback category.
func (c Category) IsOthers() bool {
	return c.ID == OthersCategoryID
}

// CategorySpending is one category's slice of the debits in a period. A nil
// CategoryID groups transactions that have no category.
type CategorySpending struct {
	CategoryID *int            `json:"category_id"`
	Total      decimal.Decimal `json:"total"`
	Percent    decimal.Decimal `json:"percent"`
	Count      int             `json:"count"`
}
