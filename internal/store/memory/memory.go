// Package memory provides an in-process Store used by tests and by the
// server's standalone mode. It holds defensive copies on both sides of the
// API so callers can never alias internal state.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/store"
)

// Store keeps every collection in maps guarded by one RWMutex. Apply commits
// under the write lock, so a reader either sees all of a write set or none of
// it.
type Store struct {
	mu sync.RWMutex

	accounts      map[string]domain.Account
	transactions  map[string]domain.Transaction
	transfers     map[string]domain.Transfer
	subscriptions map[string]domain.Subscription
	categories    map[string]domain.Category
	history       map[string]domain.HistorySnapshot
	budgets       domain.MonthlyBudgets

	watchMu  sync.Mutex
	watchSeq int
	watchers map[store.Collection]map[int]func()
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts:      make(map[string]domain.Account),
		transactions:  make(map[string]domain.Transaction),
		transfers:     make(map[string]domain.Transfer),
		subscriptions: make(map[string]domain.Subscription),
		categories:    make(map[string]domain.Category),
		history:       make(map[string]domain.HistorySnapshot),
		budgets:       make(domain.MonthlyBudgets),
		watchers:      make(map[store.Collection]map[int]func()),
	}
}

func (s *Store) Accounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) Account(ctx context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	return a, nil
}

func (s *Store) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, copyTransaction(tx))
	}
	return out, nil
}

func (s *Store) Transaction(ctx context.Context, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return copyTransaction(tx), nil
}

func (s *Store) Transfers(ctx context.Context) ([]domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Transfer, 0, len(s.transfers))
	for _, tr := range s.transfers {
		out = append(out, tr)
	}
	return out, nil
}

func (s *Store) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		out = append(out, copySubscription(sub))
	}
	return out, nil
}

func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) HistorySnapshots(ctx context.Context) ([]domain.HistorySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistorySnapshot, 0, len(s.history))
	for _, h := range s.history {
		out = append(out, copySnapshot(h))
	}
	return out, nil
}

func (s *Store) MonthlyBudgets(ctx context.Context) (domain.MonthlyBudgets, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.MonthlyBudgets, len(s.budgets))
	for month, cats := range s.budgets {
		m := make(map[string]decimal.Decimal, len(cats))
		for cat, v := range cats {
			m[cat] = v
		}
		out[month] = m
	}
	return out, nil
}

// Apply validates every op before touching state, then commits under the
// write lock and notifies watchers of the touched collections.
func (s *Store) Apply(ctx context.Context, ws store.WriteSet) error {
	if ws.Empty() {
		return nil
	}
	for _, op := range ws.Ops {
		if op.ID == "" {
			return fmt.Errorf("op on %s has empty id", op.Collection)
		}
		if op.Kind == store.OpPut {
			if err := checkValue(op); err != nil {
				return err
			}
		}
	}

	s.mu.Lock()
	touched := make(map[store.Collection]bool, len(ws.Ops))
	for _, op := range ws.Ops {
		touched[op.Collection] = true
		if op.Kind == store.OpDelete {
			s.delete(op)
			continue
		}
		s.put(op)
	}
	s.mu.Unlock()

	for c := range touched {
		s.notify(c)
	}
	return nil
}

func checkValue(op store.Op) error {
	var ok bool
	switch op.Collection {
	case store.Accounts:
		_, ok = op.Value.(domain.Account)
	case store.Transactions:
		_, ok = op.Value.(domain.Transaction)
	case store.Transfers:
		_, ok = op.Value.(domain.Transfer)
	case store.Subscriptions:
		_, ok = op.Value.(domain.Subscription)
	case store.Categories:
		_, ok = op.Value.(domain.Category)
	case store.History:
		_, ok = op.Value.(domain.HistorySnapshot)
	case store.Budgets:
		_, ok = op.Value.(map[string]decimal.Decimal)
	default:
		return fmt.Errorf("unknown collection %q", op.Collection)
	}
	if !ok {
		return fmt.Errorf("op on %s carries %T", op.Collection, op.Value)
	}
	return nil
}

func (s *Store) put(op store.Op) {
	switch op.Collection {
	case store.Accounts:
		s.accounts[op.ID] = op.Value.(domain.Account)
	case store.Transactions:
		s.transactions[op.ID] = copyTransaction(op.Value.(domain.Transaction))
	case store.Transfers:
		s.transfers[op.ID] = op.Value.(domain.Transfer)
	case store.Subscriptions:
		s.subscriptions[op.ID] = copySubscription(op.Value.(domain.Subscription))
	case store.Categories:
		s.categories[op.ID] = op.Value.(domain.Category)
	case store.History:
		s.history[op.ID] = copySnapshot(op.Value.(domain.HistorySnapshot))
	case store.Budgets:
		month := s.budgets[op.ID]
		if month == nil {
			month = make(map[string]decimal.Decimal)
			s.budgets[op.ID] = month
		}
		for cat, v := range op.Value.(map[string]decimal.Decimal) {
			month[cat] = v
		}
	}
}

func (s *Store) delete(op store.Op) {
	switch op.Collection {
	case store.Accounts:
		delete(s.accounts, op.ID)
	case store.Transactions:
		delete(s.transactions, op.ID)
	case store.Transfers:
		delete(s.transfers, op.ID)
	case store.Subscriptions:
		delete(s.subscriptions, op.ID)
	case store.Categories:
		delete(s.categories, op.ID)
	case store.History:
		delete(s.history, op.ID)
	case store.Budgets:
		delete(s.budgets, op.ID)
	}
}

func (s *Store) Watch(c store.Collection, fn func()) store.CancelFunc {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchSeq++
	id := s.watchSeq
	if s.watchers[c] == nil {
		s.watchers[c] = make(map[int]func())
	}
	s.watchers[c][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.watchMu.Lock()
			delete(s.watchers[c], id)
			s.watchMu.Unlock()
		})
	}
}

func (s *Store) notify(c store.Collection) {
	s.watchMu.Lock()
	fns := make([]func(), 0, len(s.watchers[c]))
	for _, fn := range s.watchers[c] {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Store) Close() error { return nil }

func copyTransaction(tx domain.Transaction) domain.Transaction {
	out := tx
	if tx.Tags != nil {
		out.Tags = append([]string(nil), tx.Tags...)
	}
	if tx.Splits != nil {
		out.Splits = append([]domain.Split(nil), tx.Splits...)
	}
	return out
}

func copySubscription(sub domain.Subscription) domain.Subscription {
	out := sub
	if sub.Tags != nil {
		out.Tags = append([]string(nil), sub.Tags...)
	}
	if sub.LastProcessed != nil {
		t := *sub.LastProcessed
		out.LastProcessed = &t
	}
	return out
}

func copySnapshot(h domain.HistorySnapshot) domain.HistorySnapshot {
	out := h
	if h.AccountBalances != nil {
		out.AccountBalances = make(map[string]decimal.Decimal, len(h.AccountBalances))
		for id, v := range h.AccountBalances {
			out.AccountBalances[id] = v
		}
	}
	return out
}
