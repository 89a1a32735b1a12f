package domain

import "github.com/shopspring/decimal"

// Category is a spending bucket with a base monthly budget. The base budget
// is the default for months that have no locked snapshot yet.
type Category struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Budget decimal.Decimal `json:"budget"`
}

// MonthlyBudgets is the per-month snapshot of category budgets, keyed by
// YYYY-MM then category id. A month's snapshot is written once on first
// access and locked, so retroactive base-budget edits do not rewrite
// historical reporting.
type MonthlyBudgets map[string]map[string]decimal.Decimal

// Effective resolves the budget for a category in a month: the locked
// snapshot value when present, the category's base budget otherwise.
func (m MonthlyBudgets) Effective(cat Category, month string) decimal.Decimal {
	if snap, ok := m[month]; ok {
		if v, ok := snap[cat.ID]; ok {
			return v
		}
	}
	return cat.Budget
}

// DefaultCategories seeds a fresh user scope.
func DefaultCategories() []Category {
	mk := func(id, name string, budget int64) Category {
		return Category{ID: id, Name: name, Budget: decimal.NewFromInt(budget)}
	}
	return []Category{
		mk("income", "Income", 0),
		mk("savings", "Savings", 500),
		mk("housing", "Housing", 1500),
		mk("groceries", "Groceries", 400),
		mk("food", "Food & Dining", 200),
		mk("transport", "Transportation", 400),
		mk("utilities", "Utilities", 300),
		mk("entertainment", "Entertainment", 200),
		mk("shopping", "Shopping", 300),
		mk("health", "Health", 150),
		mk("quest_chest", "Quest Chest", 0),
		mk("misc", "Miscellaneous", 100),
	}
}
