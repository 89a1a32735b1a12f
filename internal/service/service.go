// Package service orchestrates the domain engines over the store. Handlers
// stay thin: every rule about balances, splits, budgets, and snapshots lives
// here, and every mutation goes to the store as one atomic write set.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/store"
)

// ErrValidation wraps user-correctable input problems so the API layer can
// map them to 400s.
var ErrValidation = errors.New("validation")

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Service owns all ledger operations.
type Service struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// New builds a Service. The clock is replaceable for tests.
func New(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log, now: time.Now}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Accounts lists all tracked accounts.
func (s *Service) Accounts(ctx context.Context) ([]domain.Account, error) {
	return s.store.Accounts(ctx)
}

// Account fetches one account.
func (s *Service) Account(ctx context.Context, id string) (domain.Account, error) {
	return s.store.Account(ctx, id)
}

// CreateAccount registers a new account with an opening balance. The ID is
// derived from the name; a name collision is rejected.
func (s *Service) CreateAccount(ctx context.Context, name string, acctType domain.AccountType, subtype string, opening decimal.Decimal) (domain.Account, error) {
	if name == "" {
		return domain.Account{}, validationf("account name is required")
	}
	if !acctType.Valid() {
		return domain.Account{}, validationf("invalid account type %q", acctType)
	}

	existing, err := s.store.Accounts(ctx)
	if err != nil {
		return domain.Account{}, err
	}
	for _, a := range existing {
		if domain.NormalizeName(a.Name) == domain.NormalizeName(name) {
			return domain.Account{}, validationf("account %q already exists", name)
		}
	}

	acct := domain.Account{
		ID:      domain.SlugID(name),
		Name:    name,
		Type:    acctType,
		Subtype: subtype,
		Balance: opening,
	}
	var ws store.WriteSet
	ws.Put(store.Accounts, acct.ID, acct)
	s.snapshotInto(&ws, withAccount(existing, acct))
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Account{}, err
	}
	s.log.Info().Str("account", acct.ID).Str("type", string(acctType)).Msg("account created")
	return acct, nil
}

// SetAccountBalance overwrites an account balance without a ledger entry.
// Reconcile is the audited alternative; this exists for correcting typos.
func (s *Service) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) (domain.Account, error) {
	acct, err := s.store.Account(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	acct.Balance = balance

	all, err := s.store.Accounts(ctx)
	if err != nil {
		return domain.Account{}, err
	}
	var ws store.WriteSet
	ws.Put(store.Accounts, acct.ID, acct)
	s.snapshotInto(&ws, withAccount(all, acct))
	if err := s.store.Apply(ctx, ws); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

// DeleteAccount removes an account. Its transactions stay in the ledger but
// no longer affect any balance.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if _, err := s.store.Account(ctx, id); err != nil {
		return err
	}
	var ws store.WriteSet
	ws.Delete(store.Accounts, id)
	if err := s.store.Apply(ctx, ws); err != nil {
		return err
	}
	s.log.Info().Str("account", id).Msg("account deleted")
	return nil
}

// snapshotInto appends a net-worth history snapshot for the given account
// set. Every balance-moving operation calls this so the net-worth chart
// follows the ledger without a scheduler.
func (s *Service) snapshotInto(ws *store.WriteSet, accounts []domain.Account) {
	snap := domain.SnapshotAccounts(accounts, s.now())
	snap.ID = newID()
	ws.Put(store.History, snap.ID, snap)
}

func newID() string {
	return uuid.NewString()
}

// withAccount returns the account list with one account replaced or added.
func withAccount(accounts []domain.Account, acct domain.Account) []domain.Account {
	out := make([]domain.Account, 0, len(accounts)+1)
	found := false
	for _, a := range accounts {
		if a.ID == acct.ID {
			out = append(out, acct)
			found = true
			continue
		}
		out = append(out, a)
	}
	if !found {
		out = append(out, acct)
	}
	return out
}
