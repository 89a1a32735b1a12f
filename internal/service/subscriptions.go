package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/ledger"
	"github.com/chronicle-app/chronicle/internal/store"
	"github.com/chronicle-app/chronicle/internal/subscriptions"
)

// Subscriptions lists all recurring charges.
func (s *Service) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return s.store.Subscriptions(ctx)
}

// SaveSubscription creates or updates a recurring charge.
func (s *Service) SaveSubscription(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	if sub.Name == "" {
		return domain.Subscription{}, validationf("subscription name is required")
	}
	if sub.DayOfMonth < 1 || sub.DayOfMonth > 31 {
		return domain.Subscription{}, validationf("dayOfMonth %d out of range", sub.DayOfMonth)
	}
	if !sub.Amount.IsPositive() {
		return domain.Subscription{}, validationf("amount must be positive, got %s", sub.Amount)
	}
	if sub.ID == "" {
		sub.ID = newID()
	}
	var ws store.WriteSet
	ws.Put(store.Subscriptions, sub.ID, sub)
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// DeleteSubscription stops a recurring charge. Posted transactions remain.
func (s *Service) DeleteSubscription(ctx context.Context, id string) error {
	var ws store.WriteSet
	ws.Delete(store.Subscriptions, id)
	return s.store.Apply(ctx, ws)
}

// PostDueSubscriptions materializes every subscription owed for the current
// month, charging the given account. It runs at startup and is safe to run
// any number of times. Returns the number of transactions posted.
func (s *Service) PostDueSubscriptions(ctx context.Context, accountID string) (int, error) {
	subs, err := s.store.Subscriptions(ctx)
	if err != nil {
		return 0, err
	}
	due := subscriptions.Due(subs, accountID, s.now())
	if len(due) == 0 {
		return 0, nil
	}

	accounts, err := s.accountMap(ctx)
	if err != nil {
		return 0, err
	}

	var ws store.WriteSet
	total := decimal.Zero
	for _, p := range due {
		ws.Put(store.Transactions, p.Transaction.ID, p.Transaction)
		ws.Put(store.Subscriptions, p.Subscription.ID, p.Subscription)
		total = total.Add(p.Transaction.Amount)
	}
	if acct, ok := accounts[accountID]; ok {
		acct.Balance = ledger.Apply(acct.Balance, total, domain.TypeExpense, acct.Type)
		accounts[accountID] = acct
		ws.Put(store.Accounts, acct.ID, acct)
		s.snapshotInto(&ws, accountList(accounts))
	}
	if err := s.lockMonthInto(ctx, &ws, s.now().Format("2006-01")); err != nil {
		return 0, err
	}
	if err := s.store.Apply(ctx, ws); err != nil {
		return 0, err
	}
	s.log.Info().Int("count", len(due)).Str("total", total.String()).Msg("subscriptions posted")
	return len(due), nil
}
