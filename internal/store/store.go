// Package store defines the persistence boundary. Reads are typed per
// collection; all writes go through Apply as a single atomic WriteSet, which
// is what lets the service layer batch a transaction insert, its balance
// updates, and a history snapshot into one commit.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
)

var (
	// ErrNotFound is returned for reads of documents that do not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrPermission is returned when the backend rejects the credential.
	ErrPermission = errors.New("store: permission denied")
)

// Collection names a top-level document set.
type Collection string

const (
	Accounts      Collection = "accounts"
	Transactions  Collection = "transactions"
	Transfers     Collection = "transfers"
	Subscriptions Collection = "subscriptions"
	Categories    Collection = "categories"
	History       Collection = "history"
	Budgets       Collection = "budgets"
)

// OpKind distinguishes write operations inside a WriteSet.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one write. Value types are fixed per collection: Accounts hold
// domain.Account, Transactions domain.Transaction, Transfers domain.Transfer,
// Subscriptions domain.Subscription, Categories domain.Category, History
// domain.HistorySnapshot, and Budgets map[string]decimal.Decimal keyed by
// category (the op ID is the month key; the map is merged into the month's
// document so concurrent single-category updates do not clobber each other).
type Op struct {
	Kind       OpKind
	Collection Collection
	ID         string
	Value      any
}

// WriteSet accumulates ops for one atomic commit.
type WriteSet struct {
	Ops []Op
}

// Put stages a full-document write.
func (w *WriteSet) Put(c Collection, id string, value any) *WriteSet {
	w.Ops = append(w.Ops, Op{Kind: OpPut, Collection: c, ID: id, Value: value})
	return w
}

// Delete stages a document removal. Deleting a missing document is not an
// error.
func (w *WriteSet) Delete(c Collection, id string) *WriteSet {
	w.Ops = append(w.Ops, Op{Kind: OpDelete, Collection: c, ID: id})
	return w
}

// Empty reports whether the set stages no writes.
func (w *WriteSet) Empty() bool {
	return len(w.Ops) == 0
}

// CancelFunc detaches a watcher registered with Watch.
type CancelFunc func()

// Store is the persistence interface the service layer runs against.
type Store interface {
	Accounts(ctx context.Context) ([]domain.Account, error)
	Account(ctx context.Context, id string) (domain.Account, error)
	Transactions(ctx context.Context) ([]domain.Transaction, error)
	Transaction(ctx context.Context, id string) (domain.Transaction, error)
	Transfers(ctx context.Context) ([]domain.Transfer, error)
	Subscriptions(ctx context.Context) ([]domain.Subscription, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	HistorySnapshots(ctx context.Context) ([]domain.HistorySnapshot, error)
	MonthlyBudgets(ctx context.Context) (domain.MonthlyBudgets, error)

	// Apply commits every op in the set or none of them.
	Apply(ctx context.Context, ws WriteSet) error

	// Watch registers fn to run after every commit that touches the
	// collection. The returned cancel is idempotent.
	Watch(c Collection, fn func()) CancelFunc

	Close() error
}

// BudgetValue is a convenience for budget ops so callers do not build the
// per-category map by hand for single-category updates.
func BudgetValue(category string, amount decimal.Decimal) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{category: amount}
}
