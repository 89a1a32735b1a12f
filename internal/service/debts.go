package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/chronicle-app/chronicle/internal/debts"
	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/ledger"
	"github.com/chronicle-app/chronicle/internal/store"
)

// DebtBook lists the open receivables and payables.
func (s *Service) DebtBook(ctx context.Context) (debts.Book, error) {
	txs, err := s.store.Transactions(ctx)
	if err != nil {
		return debts.Book{}, err
	}
	return debts.Collect(txs), nil
}

// ResolveDebt settles one open debt split. The status flip, the settlement
// ledger entry, and any balance movement commit together; a crash can never
// leave a repaid debt without its money.
func (s *Service) ResolveDebt(ctx context.Context, transactionID, splitID string, status domain.SplitStatus, accountID string) (domain.Transaction, error) {
	tx, err := s.store.Transaction(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}

	settlement, err := debts.Resolve(tx, splitID, debts.Resolution{Status: status, AccountID: accountID}, s.now())
	if err != nil {
		if errors.Is(err, debts.ErrNotOpen) {
			return domain.Transaction{}, fmt.Errorf("%w: %s", ErrValidation, err)
		}
		return domain.Transaction{}, err
	}

	var ws store.WriteSet
	ws.Put(store.Transactions, settlement.Updated.ID, settlement.Updated)
	if settlement.Record != nil {
		ws.Put(store.Transactions, settlement.Record.ID, *settlement.Record)
	}

	if settlement.ApplyBalance && settlement.Record != nil {
		acct, err := s.store.Account(ctx, settlement.Record.AccountID)
		if err != nil {
			return domain.Transaction{}, err
		}
		acct.Balance = ledger.Apply(acct.Balance, settlement.Record.Amount, settlement.Record.Type, acct.Type)
		ws.Put(store.Accounts, acct.ID, acct)

		all, err := s.store.Accounts(ctx)
		if err != nil {
			return domain.Transaction{}, err
		}
		s.snapshotInto(&ws, withAccount(all, acct))
	}

	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Transaction{}, err
	}
	s.log.Info().
		Str("transaction", transactionID).
		Str("split", splitID).
		Str("status", string(status)).
		Msg("debt resolved")
	return settlement.Updated, nil
}
