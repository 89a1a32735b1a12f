// Package firestore persists the ledger in Cloud Firestore. Amounts are held
// as decimals in the domain and as float64 document fields on the wire; the
// row types in rows.go own that conversion so nothing else in the codebase
// sees floats.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/store"
)

// Store implements store.Store on a Firestore database. All user data lives
// under a single root document so multiple profiles can share one project.
type Store struct {
	client *fs.Client
	root   *fs.DocumentRef

	watchMu  sync.Mutex
	watchSeq int
	watchers map[store.Collection]map[int]watcher
}

type watcher struct {
	fn     func()
	cancel context.CancelFunc
}

// New connects to the given project. The userID becomes the root document;
// opts carry credentials.
func New(ctx context.Context, projectID, userID string, opts ...option.ClientOption) (*Store, error) {
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	if userID == "" {
		return nil, errors.New("firestore: user id is required")
	}
	client, err := fs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{
		client:   client,
		root:     client.Collection("users").Doc(userID),
		watchers: make(map[store.Collection]map[int]watcher),
	}, nil
}

func (s *Store) col(c store.Collection) *fs.CollectionRef {
	return s.root.Collection(string(c))
}

// wrapErr maps backend status codes onto the store sentinels.
func wrapErr(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%s: %w", op, store.ErrPermission)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func readAll[R any, T any](ctx context.Context, col *fs.CollectionRef, convert func(R) T) ([]T, error) {
	iter := col.Documents(ctx)
	defer iter.Stop()

	var out []T
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, wrapErr("read "+col.ID, err)
		}
		var row R
		if err := doc.DataTo(&row); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", col.ID, doc.Ref.ID, err)
		}
		out = append(out, convert(row))
	}
}

func (s *Store) Accounts(ctx context.Context) ([]domain.Account, error) {
	return readAll(ctx, s.col(store.Accounts), accountRow.domain)
}

func (s *Store) Account(ctx context.Context, id string) (domain.Account, error) {
	doc, err := s.col(store.Accounts).Doc(id).Get(ctx)
	if err != nil {
		return domain.Account{}, wrapErr("get account "+id, err)
	}
	var row accountRow
	if err := doc.DataTo(&row); err != nil {
		return domain.Account{}, fmt.Errorf("decode account %s: %w", id, err)
	}
	return row.domain(), nil
}

func (s *Store) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return readAll(ctx, s.col(store.Transactions), transactionRow.domain)
}

func (s *Store) Transaction(ctx context.Context, id string) (domain.Transaction, error) {
	doc, err := s.col(store.Transactions).Doc(id).Get(ctx)
	if err != nil {
		return domain.Transaction{}, wrapErr("get transaction "+id, err)
	}
	var row transactionRow
	if err := doc.DataTo(&row); err != nil {
		return domain.Transaction{}, fmt.Errorf("decode transaction %s: %w", id, err)
	}
	return row.domain(), nil
}

func (s *Store) Transfers(ctx context.Context) ([]domain.Transfer, error) {
	return readAll(ctx, s.col(store.Transfers), transferRow.domain)
}

func (s *Store) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return readAll(ctx, s.col(store.Subscriptions), subscriptionRow.domain)
}

func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	return readAll(ctx, s.col(store.Categories), categoryRow.domain)
}

func (s *Store) HistorySnapshots(ctx context.Context) ([]domain.HistorySnapshot, error) {
	return readAll(ctx, s.col(store.History), historyRow.domain)
}

func (s *Store) MonthlyBudgets(ctx context.Context) (domain.MonthlyBudgets, error) {
	iter := s.col(store.Budgets).Documents(ctx)
	defer iter.Stop()

	budgets := make(domain.MonthlyBudgets)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return budgets, nil
		}
		if err != nil {
			return nil, wrapErr("read budgets", err)
		}
		var row budgetRow
		if err := doc.DataTo(&row); err != nil {
			return nil, fmt.Errorf("decode budget %s: %w", doc.Ref.ID, err)
		}
		budgets[doc.Ref.ID] = row.domain()
	}
}

// Apply runs the write set inside one Firestore transaction.
func (s *Store) Apply(ctx context.Context, ws store.WriteSet) error {
	if ws.Empty() {
		return nil
	}
	rows := make([]any, len(ws.Ops))
	for i, op := range ws.Ops {
		if op.ID == "" {
			return fmt.Errorf("op on %s has empty id", op.Collection)
		}
		if op.Kind != store.OpPut {
			continue
		}
		row, err := rowFor(op)
		if err != nil {
			return err
		}
		rows[i] = row
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, txn *fs.Transaction) error {
		for i, op := range ws.Ops {
			ref := s.col(op.Collection).Doc(op.ID)
			if op.Kind == store.OpDelete {
				if err := txn.Delete(ref); err != nil {
					return err
				}
				continue
			}
			if op.Collection == store.Budgets {
				if err := txn.Set(ref, rows[i], fs.MergeAll); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(ref, rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapErr("apply write set", err)
	}
	return nil
}

// Watch attaches a snapshot listener. The callback fires after every remote
// change to the collection, collapsing the individual document events the
// listener reports.
func (s *Store) Watch(c store.Collection, fn func()) store.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())

	s.watchMu.Lock()
	s.watchSeq++
	id := s.watchSeq
	if s.watchers[c] == nil {
		s.watchers[c] = make(map[int]watcher)
	}
	s.watchers[c][id] = watcher{fn: fn, cancel: cancel}
	s.watchMu.Unlock()

	go func() {
		snaps := s.col(c).Snapshots(ctx)
		defer snaps.Stop()
		for {
			if _, err := snaps.Next(); err != nil {
				return
			}
			fn()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			s.watchMu.Lock()
			delete(s.watchers[c], id)
			s.watchMu.Unlock()
		})
	}
}

// Close stops every listener and releases the client.
func (s *Store) Close() error {
	s.watchMu.Lock()
	for _, byID := range s.watchers {
		for _, w := range byID {
			w.cancel()
		}
	}
	s.watchers = make(map[store.Collection]map[int]watcher)
	s.watchMu.Unlock()
	return s.client.Close()
}
