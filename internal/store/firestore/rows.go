package firestore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/store"
)

type accountRow struct {
	ID      string  `firestore:"id"`
	Name    string  `firestore:"name"`
	Type    string  `firestore:"type"`
	Subtype string  `firestore:"subtype,omitempty"`
	Balance float64 `firestore:"balance"`
}

func (r accountRow) domain() domain.Account {
	return domain.Account{
		ID:      r.ID,
		Name:    r.Name,
		Type:    domain.AccountType(r.Type),
		Subtype: r.Subtype,
		Balance: decimal.NewFromFloat(r.Balance),
	}
}

func toAccountRow(a domain.Account) accountRow {
	return accountRow{
		ID:      a.ID,
		Name:    a.Name,
		Type:    string(a.Type),
		Subtype: a.Subtype,
		Balance: a.Balance.InexactFloat64(),
	}
}

type splitRow struct {
	ID       string  `firestore:"id"`
	Amount   float64 `firestore:"amount"`
	Category string  `firestore:"category"`
	Type     string  `firestore:"type"`
	Target   string  `firestore:"target,omitempty"`
	Note     string  `firestore:"note,omitempty"`
	Status   string  `firestore:"status,omitempty"`
}

type transactionRow struct {
	ID          string     `firestore:"id"`
	Date        time.Time  `firestore:"date"`
	Description string     `firestore:"description"`
	Amount      float64    `firestore:"amount"`
	Type        string     `firestore:"type"`
	Category    string     `firestore:"category"`
	AccountID   string     `firestore:"accountId,omitempty"`
	Tags        []string   `firestore:"tags,omitempty"`
	IsRecurring bool       `firestore:"isRecurring,omitempty"`
	Splits      []splitRow `firestore:"splits,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt"`
}

func (r transactionRow) domain() domain.Transaction {
	tx := domain.Transaction{
		ID:          r.ID,
		Date:        r.Date,
		Description: r.Description,
		Amount:      decimal.NewFromFloat(r.Amount),
		Type:        domain.TransactionType(r.Type),
		Category:    r.Category,
		AccountID:   r.AccountID,
		Tags:        r.Tags,
		IsRecurring: r.IsRecurring,
		CreatedAt:   r.CreatedAt,
	}
	for _, s := range r.Splits {
		tx.Splits = append(tx.Splits, domain.Split{
			ID:       s.ID,
			Amount:   decimal.NewFromFloat(s.Amount),
			Category: s.Category,
			Type:     domain.TransactionType(s.Type),
			Target:   s.Target,
			Note:     s.Note,
			Status:   domain.SplitStatus(s.Status),
		})
	}
	return tx
}

func toTransactionRow(tx domain.Transaction) transactionRow {
	row := transactionRow{
		ID:          tx.ID,
		Date:        tx.Date,
		Description: tx.Description,
		Amount:      tx.Amount.InexactFloat64(),
		Type:        string(tx.Type),
		Category:    tx.Category,
		AccountID:   tx.AccountID,
		Tags:        tx.Tags,
		IsRecurring: tx.IsRecurring,
		CreatedAt:   tx.CreatedAt,
	}
	for _, s := range tx.Splits {
		row.Splits = append(row.Splits, splitRow{
			ID:       s.ID,
			Amount:   s.Amount.InexactFloat64(),
			Category: s.Category,
			Type:     string(s.Type),
			Target:   s.Target,
			Note:     s.Note,
			Status:   string(s.Status),
		})
	}
	return row
}

type transferRow struct {
	ID          string    `firestore:"id"`
	FromID      string    `firestore:"fromId"`
	ToID        string    `firestore:"toId"`
	FromName    string    `firestore:"fromName,omitempty"`
	ToName      string    `firestore:"toName,omitempty"`
	Amount      float64   `firestore:"amount"`
	Date        time.Time `firestore:"date"`
	Description string    `firestore:"description,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

func (r transferRow) domain() domain.Transfer {
	return domain.Transfer{
		ID:          r.ID,
		FromID:      r.FromID,
		ToID:        r.ToID,
		FromName:    r.FromName,
		ToName:      r.ToName,
		Amount:      decimal.NewFromFloat(r.Amount),
		Date:        r.Date,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func toTransferRow(tr domain.Transfer) transferRow {
	return transferRow{
		ID:          tr.ID,
		FromID:      tr.FromID,
		ToID:        tr.ToID,
		FromName:    tr.FromName,
		ToName:      tr.ToName,
		Amount:      tr.Amount.InexactFloat64(),
		Date:        tr.Date,
		Description: tr.Description,
		CreatedAt:   tr.CreatedAt,
	}
}

type subscriptionRow struct {
	ID            string     `firestore:"id"`
	Name          string     `firestore:"name"`
	Amount        float64    `firestore:"amount"`
	DayOfMonth    int        `firestore:"dayOfMonth"`
	Category      string     `firestore:"category"`
	Tags          []string   `firestore:"tags,omitempty"`
	LastProcessed *time.Time `firestore:"lastProcessed,omitempty"`
}

func (r subscriptionRow) domain() domain.Subscription {
	return domain.Subscription{
		ID:            r.ID,
		Name:          r.Name,
		Amount:        decimal.NewFromFloat(r.Amount),
		DayOfMonth:    r.DayOfMonth,
		Category:      r.Category,
		Tags:          r.Tags,
		LastProcessed: r.LastProcessed,
	}
}

func toSubscriptionRow(sub domain.Subscription) subscriptionRow {
	return subscriptionRow{
		ID:            sub.ID,
		Name:          sub.Name,
		Amount:        sub.Amount.InexactFloat64(),
		DayOfMonth:    sub.DayOfMonth,
		Category:      sub.Category,
		Tags:          sub.Tags,
		LastProcessed: sub.LastProcessed,
	}
}

type categoryRow struct {
	ID     string  `firestore:"id"`
	Name   string  `firestore:"name"`
	Budget float64 `firestore:"budget"`
}

func (r categoryRow) domain() domain.Category {
	return domain.Category{
		ID:     r.ID,
		Name:   r.Name,
		Budget: decimal.NewFromFloat(r.Budget),
	}
}

func toCategoryRow(c domain.Category) categoryRow {
	return categoryRow{ID: c.ID, Name: c.Name, Budget: c.Budget.InexactFloat64()}
}

type historyRow struct {
	ID               string             `firestore:"id"`
	Date             time.Time          `firestore:"date"`
	AccountBalances  map[string]float64 `firestore:"accountBalances"`
	TotalAssets      float64            `firestore:"totalAssets"`
	TotalLiabilities float64            `firestore:"totalLiabilities"`
	NetWorth         float64            `firestore:"netWorth"`
}

func (r historyRow) domain() domain.HistorySnapshot {
	snap := domain.HistorySnapshot{
		ID:               r.ID,
		Date:             r.Date,
		TotalAssets:      decimal.NewFromFloat(r.TotalAssets),
		TotalLiabilities: decimal.NewFromFloat(r.TotalLiabilities),
		NetWorth:         decimal.NewFromFloat(r.NetWorth),
	}
	if r.AccountBalances != nil {
		snap.AccountBalances = make(map[string]decimal.Decimal, len(r.AccountBalances))
		for id, v := range r.AccountBalances {
			snap.AccountBalances[id] = decimal.NewFromFloat(v)
		}
	}
	return snap
}

func toHistoryRow(h domain.HistorySnapshot) historyRow {
	row := historyRow{
		ID:               h.ID,
		Date:             h.Date,
		TotalAssets:      h.TotalAssets.InexactFloat64(),
		TotalLiabilities: h.TotalLiabilities.InexactFloat64(),
		NetWorth:         h.NetWorth.InexactFloat64(),
	}
	if h.AccountBalances != nil {
		row.AccountBalances = make(map[string]float64, len(h.AccountBalances))
		for id, v := range h.AccountBalances {
			row.AccountBalances[id] = v.InexactFloat64()
		}
	}
	return row
}

type budgetRow map[string]float64

func (r budgetRow) domain() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r))
	for cat, v := range r {
		out[cat] = decimal.NewFromFloat(v)
	}
	return out
}

func toBudgetRow(m map[string]decimal.Decimal) budgetRow {
	out := make(budgetRow, len(m))
	for cat, v := range m {
		out[cat] = v.InexactFloat64()
	}
	return out
}

// rowFor converts a write op's domain value into its wire row.
func rowFor(op store.Op) (any, error) {
	switch op.Collection {
	case store.Accounts:
		a, ok := op.Value.(domain.Account)
		if !ok {
			return nil, typeErr(op)
		}
		return toAccountRow(a), nil
	case store.Transactions:
		tx, ok := op.Value.(domain.Transaction)
		if !ok {
			return nil, typeErr(op)
		}
		return toTransactionRow(tx), nil
	case store.Transfers:
		tr, ok := op.Value.(domain.Transfer)
		if !ok {
			return nil, typeErr(op)
		}
		return toTransferRow(tr), nil
	case store.Subscriptions:
		sub, ok := op.Value.(domain.Subscription)
		if !ok {
			return nil, typeErr(op)
		}
		return toSubscriptionRow(sub), nil
	case store.Categories:
		c, ok := op.Value.(domain.Category)
		if !ok {
			return nil, typeErr(op)
		}
		return toCategoryRow(c), nil
	case store.History:
		h, ok := op.Value.(domain.HistorySnapshot)
		if !ok {
			return nil, typeErr(op)
		}
		return toHistoryRow(h), nil
	case store.Budgets:
		m, ok := op.Value.(map[string]decimal.Decimal)
		if !ok {
			return nil, typeErr(op)
		}
		return toBudgetRow(m), nil
	}
	return nil, fmt.Errorf("unknown collection %q", op.Collection)
}

func typeErr(op store.Op) error {
	return fmt.Errorf("op on %s carries %T", op.Collection, op.Value)
}
