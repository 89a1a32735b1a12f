package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/debts"
	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/ledger"
	"github.com/chronicle-app/chronicle/internal/store"
)

// TransactionInput carries the editable fields of a ledger entry.
type TransactionInput struct {
	ID          string
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        domain.TransactionType
	Category    string
	AccountID   string
	Tags        []string
	IsRecurring bool
	Splits      []domain.Split
	// SubscriptionDay is used when IsRecurring is set and no subscription
	// for the description exists yet; zero defaults to the entry's day.
	SubscriptionDay int
}

// Transactions lists the full ledger.
func (s *Service) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.store.Transactions(ctx)
}

// Transaction fetches one ledger entry.
func (s *Service) Transaction(ctx context.Context, id string) (domain.Transaction, error) {
	return s.store.Transaction(ctx, id)
}

// SaveTransaction creates or updates a ledger entry and applies its balance
// effect in the same commit.
//
// On edit, the old entry's effect is reverted and the new one applied; when
// both touch the same account the two deltas are netted into a single write,
// computed from the explicit before and after values. The entry's month is
// locked so later base-budget edits cannot rewrite it.
func (s *Service) SaveTransaction(ctx context.Context, in TransactionInput) (domain.Transaction, error) {
	if !in.Type.Valid() {
		return domain.Transaction{}, validationf("invalid transaction type %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return domain.Transaction{}, validationf("amount must be positive, got %s", in.Amount)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	splits := debts.Normalize(in.Splits)
	if err := debts.ValidateTotal(in.Amount, splits); err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	var oldEffect *ledger.Effect
	var prev domain.Transaction
	if in.ID != "" {
		var err error
		prev, err = s.store.Transaction(ctx, in.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.Transaction{}, err
		}
		if err == nil {
			oldEffect = &ledger.Effect{AccountID: prev.AccountID, Amount: prev.Amount, Type: prev.Type}
			// Settled debt statuses survive the edit.
			splits = carryStatuses(prev.Splits, splits)
		}
	}

	tx := domain.Transaction{
		ID:          in.ID,
		Date:        in.Date,
		Description: in.Description,
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    in.Category,
		AccountID:   in.AccountID,
		Tags:        in.Tags,
		IsRecurring: in.IsRecurring,
		Splits:      splits,
		CreatedAt:   s.now(),
	}
	if tx.ID == "" {
		tx.ID = newID()
	}
	if oldEffect != nil {
		tx.CreatedAt = prev.CreatedAt
	}

	accounts, err := s.accountMap(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}

	newEffect := &ledger.Effect{AccountID: tx.AccountID, Amount: tx.Amount, Type: tx.Type}
	changes := ledger.StageEdit(oldEffect, newEffect, accounts)

	var ws store.WriteSet
	ws.Put(store.Transactions, tx.ID, tx)
	applyChanges(&ws, accounts, changes)
	if len(changes) > 0 {
		s.snapshotInto(&ws, accountList(accounts))
	}
	if err := s.lockMonthInto(ctx, &ws, tx.MonthKey()); err != nil {
		return domain.Transaction{}, err
	}
	if err := s.stageRecurring(ctx, &ws, tx, in.SubscriptionDay); err != nil {
		return domain.Transaction{}, err
	}

	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Transaction{}, err
	}
	s.log.Info().
		Str("transaction", tx.ID).
		Str("type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Bool("edit", oldEffect != nil).
		Msg("transaction saved")
	return tx, nil
}

// DeleteTransaction removes an entry and reverts its balance effect.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	tx, err := s.store.Transaction(ctx, id)
	if err != nil {
		return err
	}
	accounts, err := s.accountMap(ctx)
	if err != nil {
		return err
	}

	oldEffect := &ledger.Effect{AccountID: tx.AccountID, Amount: tx.Amount, Type: tx.Type}
	changes := ledger.StageEdit(oldEffect, nil, accounts)

	var ws store.WriteSet
	ws.Delete(store.Transactions, id)
	applyChanges(&ws, accounts, changes)
	if len(changes) > 0 {
		s.snapshotInto(&ws, accountList(accounts))
	}
	if err := s.store.Apply(ctx, ws); err != nil {
		return err
	}
	s.log.Info().Str("transaction", id).Msg("transaction deleted")
	return nil
}

// Transfer moves money between two tracked accounts atomically.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, date time.Time, description string) (domain.Transfer, error) {
	if !amount.IsPositive() {
		return domain.Transfer{}, validationf("transfer amount must be positive, got %s", amount)
	}
	if fromID == toID {
		return domain.Transfer{}, validationf("transfer source and destination are the same account")
	}
	from, err := s.store.Account(ctx, fromID)
	if err != nil {
		return domain.Transfer{}, err
	}
	to, err := s.store.Account(ctx, toID)
	if err != nil {
		return domain.Transfer{}, err
	}
	if date.IsZero() {
		date = s.now()
	}

	newFrom, newTo := ledger.TransferLegs(from, to, amount)
	from.Balance, to.Balance = newFrom, newTo

	tr := domain.Transfer{
		ID:          newID(),
		FromID:      from.ID,
		ToID:        to.ID,
		FromName:    from.Name,
		ToName:      to.Name,
		Amount:      amount,
		Date:        date,
		Description: description,
		CreatedAt:   s.now(),
	}

	all, err := s.store.Accounts(ctx)
	if err != nil {
		return domain.Transfer{}, err
	}
	var ws store.WriteSet
	ws.Put(store.Transfers, tr.ID, tr)
	ws.Put(store.Accounts, from.ID, from)
	ws.Put(store.Accounts, to.ID, to)
	s.snapshotInto(&ws, withAccount(withAccount(all, from), to))
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Transfer{}, err
	}
	s.log.Info().Str("from", from.ID).Str("to", to.ID).Str("amount", amount.String()).Msg("transfer booked")
	return tr, nil
}

// Transfers lists all transfers.
func (s *Service) Transfers(ctx context.Context) ([]domain.Transfer, error) {
	return s.store.Transfers(ctx)
}

// stageRecurring creates a subscription for a recurring entry when none with
// the same name exists yet.
func (s *Service) stageRecurring(ctx context.Context, ws *store.WriteSet, tx domain.Transaction, day int) error {
	if !tx.IsRecurring {
		return nil
	}
	subs, err := s.store.Subscriptions(ctx)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if domain.NormalizeName(sub.Name) == domain.NormalizeName(tx.Description) {
			return nil
		}
	}
	if day < 1 || day > 31 {
		day = tx.Date.Day()
	}
	last := tx.Date
	sub := domain.Subscription{
		ID:            newID(),
		Name:          tx.Description,
		Amount:        tx.Amount,
		DayOfMonth:    day,
		Category:      tx.Category,
		Tags:          tx.Tags,
		LastProcessed: &last,
	}
	ws.Put(store.Subscriptions, sub.ID, sub)
	return nil
}

func carryStatuses(old, updated []domain.Split) []domain.Split {
	if len(old) == 0 || len(updated) == 0 {
		return updated
	}
	byID := make(map[string]domain.SplitStatus, len(old))
	for _, sp := range old {
		if domain.IsDebtCategory(sp.Category) && sp.Status != "" {
			byID[sp.ID] = sp.Status
		}
	}
	for i, sp := range updated {
		if st, ok := byID[sp.ID]; ok && domain.IsDebtCategory(sp.Category) {
			updated[i].Status = st
		}
	}
	return updated
}

func (s *Service) accountMap(ctx context.Context) (map[string]domain.Account, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}
	return m, nil
}

func accountList(m map[string]domain.Account) []domain.Account {
	out := make([]domain.Account, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	return out
}

// applyChanges stages balance writes and updates the working account map so
// snapshots taken afterwards see the new balances.
func applyChanges(ws *store.WriteSet, accounts map[string]domain.Account, changes []ledger.BalanceChange) {
	for _, ch := range changes {
		acct := accounts[ch.AccountID]
		acct.Balance = ch.NewBalance
		accounts[ch.AccountID] = acct
		ws.Put(store.Accounts, acct.ID, acct)
	}
}
