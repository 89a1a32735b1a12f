package service

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/reconcile"
	"github.com/chronicle-app/chronicle/internal/replay"
	"github.com/chronicle-app/chronicle/internal/store"
)

// BalanceHistory reconstructs one account's balance series for a window.
func (s *Service) BalanceHistory(ctx context.Context, accountID string, window replay.Window) ([]replay.Point, error) {
	acct, err := s.store.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	transfers, err := s.store.Transfers(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.store.HistorySnapshots(ctx)
	if err != nil {
		return nil, err
	}
	return replay.Series(acct, txs, transfers, history, window, civil.DateOf(s.now())), nil
}

// HistorySnapshots lists net-worth snapshots oldest first.
func (s *Service) HistorySnapshots(ctx context.Context) ([]domain.HistorySnapshot, error) {
	snaps, err := s.store.HistorySnapshots(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Date.Before(snaps[j].Date) })
	return snaps, nil
}

// RecordSnapshot stores the current account balances as a snapshot.
func (s *Service) RecordSnapshot(ctx context.Context) (domain.HistorySnapshot, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return domain.HistorySnapshot{}, err
	}
	snap := domain.SnapshotAccounts(accounts, s.now())
	snap.ID = newID()
	var ws store.WriteSet
	ws.Put(store.History, snap.ID, snap)
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.HistorySnapshot{}, err
	}
	return snap, nil
}

// UpdateSnapshot corrects one recorded balance inside a snapshot and
// recomputes the derived totals.
func (s *Service) UpdateSnapshot(ctx context.Context, snapshotID, accountID string, balance decimal.Decimal, date time.Time) (domain.HistorySnapshot, error) {
	snaps, err := s.store.HistorySnapshots(ctx)
	if err != nil {
		return domain.HistorySnapshot{}, err
	}
	var snap *domain.HistorySnapshot
	for i := range snaps {
		if snaps[i].ID == snapshotID {
			snap = &snaps[i]
			break
		}
	}
	if snap == nil {
		return domain.HistorySnapshot{}, validationf("unknown snapshot %q", snapshotID)
	}
	if snap.AccountBalances == nil {
		snap.AccountBalances = make(map[string]decimal.Decimal)
	}
	snap.AccountBalances[accountID] = balance
	if !date.IsZero() {
		snap.Date = date
	}

	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return domain.HistorySnapshot{}, err
	}
	recomputeTotals(snap, accounts)

	var ws store.WriteSet
	ws.Put(store.History, snap.ID, *snap)
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.HistorySnapshot{}, err
	}
	return *snap, nil
}

// RemoveSnapshotAccount drops one account's entry from a snapshot and
// recomputes the totals. Removing the last entry deletes the snapshot; the
// second return reports whether it survived.
func (s *Service) RemoveSnapshotAccount(ctx context.Context, snapshotID, accountID string) (domain.HistorySnapshot, bool, error) {
	snaps, err := s.store.HistorySnapshots(ctx)
	if err != nil {
		return domain.HistorySnapshot{}, false, err
	}
	var snap *domain.HistorySnapshot
	for i := range snaps {
		if snaps[i].ID == snapshotID {
			snap = &snaps[i]
			break
		}
	}
	if snap == nil {
		return domain.HistorySnapshot{}, false, validationf("unknown snapshot %q", snapshotID)
	}
	if _, ok := snap.AccountBalances[accountID]; !ok {
		return domain.HistorySnapshot{}, false, validationf("snapshot %q has no entry for account %q", snapshotID, accountID)
	}
	delete(snap.AccountBalances, accountID)

	var ws store.WriteSet
	if len(snap.AccountBalances) == 0 {
		ws.Delete(store.History, snap.ID)
		if err := s.store.Apply(ctx, ws); err != nil {
			return domain.HistorySnapshot{}, false, err
		}
		return domain.HistorySnapshot{}, false, nil
	}

	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return domain.HistorySnapshot{}, false, err
	}
	recomputeTotals(snap, accounts)
	ws.Put(store.History, snap.ID, *snap)
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.HistorySnapshot{}, false, err
	}
	return *snap, true, nil
}

// DeleteSnapshot removes one history point.
func (s *Service) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	var ws store.WriteSet
	ws.Delete(store.History, snapshotID)
	return s.store.Apply(ctx, ws)
}

// Reconcile sets an account to its statement balance and books the
// difference as an adjustment entry.
func (s *Service) Reconcile(ctx context.Context, accountID string, actual decimal.Decimal) (domain.Account, error) {
	acct, err := s.store.Account(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	adj := reconcile.Plan(acct, actual, s.now())
	if adj.Record == nil {
		return acct, nil
	}

	acct.Balance = adj.NewBalance
	all, err := s.store.Accounts(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	var ws store.WriteSet
	ws.Put(store.Accounts, acct.ID, acct)
	ws.Put(store.Transactions, adj.Record.ID, *adj.Record)
	s.snapshotInto(&ws, withAccount(all, acct))
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Account{}, err
	}
	s.log.Info().
		Str("account", acct.ID).
		Str("adjustment", adj.Record.Amount.String()).
		Str("type", string(adj.Record.Type)).
		Msg("account reconciled")
	return acct, nil
}

// recomputeTotals rebuilds the snapshot's aggregates from its balances using
// current account types; balances for deleted accounts count as assets.
func recomputeTotals(snap *domain.HistorySnapshot, accounts []domain.Account) {
	types := make(map[string]domain.AccountType, len(accounts))
	for _, a := range accounts {
		types[a.ID] = a.Type
	}
	snap.TotalAssets = decimal.Zero
	snap.TotalLiabilities = decimal.Zero
	for id, bal := range snap.AccountBalances {
		if types[id] == domain.AccountLiability {
			snap.TotalLiabilities = snap.TotalLiabilities.Add(bal)
		} else {
			snap.TotalAssets = snap.TotalAssets.Add(bal)
		}
	}
	snap.NetWorth = snap.TotalAssets.Sub(snap.TotalLiabilities)
}
