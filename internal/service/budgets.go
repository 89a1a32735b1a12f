package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/store"
)

// Categories lists all spending categories.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.store.Categories(ctx)
}

// CreateCategory adds a category with a base monthly budget.
func (s *Service) CreateCategory(ctx context.Context, name string, budget decimal.Decimal) (domain.Category, error) {
	if name == "" {
		return domain.Category{}, validationf("category name is required")
	}
	existing, err := s.store.Categories(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	for _, c := range existing {
		if domain.NormalizeName(c.Name) == domain.NormalizeName(name) {
			return domain.Category{}, validationf("category %q already exists", name)
		}
	}
	cat := domain.Category{ID: domain.SlugID(name), Name: name, Budget: budget}
	var ws store.WriteSet
	ws.Put(store.Categories, cat.ID, cat)
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Category{}, err
	}
	return cat, nil
}

// RenameCategory changes a category's display name. The id stays, so
// transactions and budget snapshots keep pointing at it.
func (s *Service) RenameCategory(ctx context.Context, id, name string) (domain.Category, error) {
	if name == "" {
		return domain.Category{}, validationf("category name is required")
	}
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	var cat *domain.Category
	for i := range categories {
		c := &categories[i]
		if c.ID == id {
			cat = c
			continue
		}
		if domain.NormalizeName(c.Name) == domain.NormalizeName(name) {
			return domain.Category{}, validationf("category %q already exists", name)
		}
	}
	if cat == nil {
		return domain.Category{}, validationf("unknown category %q", id)
	}
	cat.Name = name
	var ws store.WriteSet
	ws.Put(store.Categories, cat.ID, *cat)
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Category{}, err
	}
	return *cat, nil
}

// DeleteCategory removes a category. Transactions keep the category string;
// they just stop counting against a budget.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	var ws store.WriteSet
	ws.Delete(store.Categories, id)
	return s.store.Apply(ctx, ws)
}

// SetBaseBudget changes a category's ongoing budget. Every earlier month that
// has ledger activity and no snapshot yet is locked with the outgoing value
// first, so historical budget-versus-actual comparisons keep the numbers that
// were in force at the time.
func (s *Service) SetBaseBudget(ctx context.Context, categoryID string, budget decimal.Decimal) (domain.Category, error) {
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	var cat *domain.Category
	for i := range categories {
		if categories[i].ID == categoryID {
			cat = &categories[i]
			break
		}
	}
	if cat == nil {
		return domain.Category{}, validationf("unknown category %q", categoryID)
	}

	var ws store.WriteSet
	months, err := s.pastActiveMonths(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	budgets, err := s.store.MonthlyBudgets(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	for _, month := range months {
		if _, locked := budgets[month]; locked {
			continue
		}
		ws.Put(store.Budgets, month, snapshotBudgets(categories))
	}

	cat.Budget = budget
	ws.Put(store.Categories, cat.ID, *cat)
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Category{}, err
	}
	s.log.Info().Str("category", cat.ID).Str("budget", budget.String()).Msg("base budget updated")
	return *cat, nil
}

// SetMonthBudget overrides one category's budget for a single month without
// touching the base.
func (s *Service) SetMonthBudget(ctx context.Context, categoryID, month string, budget decimal.Decimal) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return validationf("bad month %q", month)
	}
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return err
	}
	var found *domain.Category
	for i := range categories {
		if categories[i].ID == categoryID {
			found = &categories[i]
			break
		}
	}
	if found == nil {
		return validationf("unknown category %q", categoryID)
	}

	var ws store.WriteSet
	// First touch of the month locks every category at its current value,
	// then the override lands on top.
	budgets, err := s.store.MonthlyBudgets(ctx)
	if err != nil {
		return err
	}
	if _, locked := budgets[month]; !locked {
		ws.Put(store.Budgets, month, snapshotBudgets(categories))
	}
	ws.Put(store.Budgets, month, store.BudgetValue(found.ID, budget))
	return s.store.Apply(ctx, ws)
}

// EffectiveBudgets resolves the budget per category for one month: the locked
// snapshot when the month has one, the base budget otherwise.
func (s *Service) EffectiveBudgets(ctx context.Context, month string) (map[string]decimal.Decimal, error) {
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	budgets, err := s.store.MonthlyBudgets(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(categories))
	for _, c := range categories {
		out[c.ID] = budgets.Effective(c, month)
	}
	return out, nil
}

// lockMonthInto snapshots current base budgets for the month if it has no
// snapshot yet.
func (s *Service) lockMonthInto(ctx context.Context, ws *store.WriteSet, month string) error {
	budgets, err := s.store.MonthlyBudgets(ctx)
	if err != nil {
		return err
	}
	if _, locked := budgets[month]; locked {
		return nil
	}
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return nil
	}
	ws.Put(store.Budgets, month, snapshotBudgets(categories))
	return nil
}

// pastActiveMonths lists the distinct months before the current one that have
// ledger entries.
func (s *Service) pastActiveMonths(ctx context.Context) ([]string, error) {
	txs, err := s.store.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	current := s.now().Format("2006-01")
	seen := make(map[string]bool)
	var months []string
	for _, tx := range txs {
		key := tx.MonthKey()
		if key >= current || seen[key] {
			continue
		}
		seen[key] = true
		months = append(months, key)
	}
	return months, nil
}

func snapshotBudgets(categories []domain.Category) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(categories))
	for _, c := range categories {
		m[c.ID] = c.Budget
	}
	return m
}
