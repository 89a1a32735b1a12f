package firestore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/store"
)

func TestTransactionRowRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	tx := domain.Transaction{
		ID:          "t1",
		Date:        now,
		Description: "Dinner with Sam",
		Amount:      decimal.RequireFromString("90.50"),
		Type:        domain.TypeExpense,
		Category:    "food",
		AccountID:   "checking",
		Tags:        []string{"out"},
		Splits: []domain.Split{
			{ID: "s1", Amount: decimal.RequireFromString("45.25"), Category: "food", Type: domain.TypeExpense},
			{ID: "s2", Amount: decimal.RequireFromString("45.25"), Category: domain.CategoryReceivable, Type: domain.TypeExpense, Target: "Sam", Status: domain.StatusOpen},
		},
		CreatedAt: now,
	}

	got := toTransactionRow(tx).domain()
	if !got.Amount.Equal(tx.Amount) {
		t.Errorf("amount round-trip: %s != %s", got.Amount, tx.Amount)
	}
	if len(got.Splits) != 2 {
		t.Fatalf("splits lost: %d", len(got.Splits))
	}
	if got.Splits[1].Status != domain.StatusOpen || got.Splits[1].Target != "Sam" {
		t.Errorf("debt split fields lost: %+v", got.Splits[1])
	}
	if !got.Splits[0].Amount.Equal(tx.Splits[0].Amount) {
		t.Errorf("split amount round-trip: %s", got.Splits[0].Amount)
	}
}

func TestAccountRowKeepsCents(t *testing.T) {
	a := domain.Account{ID: "a1", Name: "Visa", Type: domain.AccountLiability, Balance: decimal.RequireFromString("1234.56")}
	got := toAccountRow(a).domain()
	if !got.Balance.Equal(a.Balance) {
		t.Fatalf("balance round-trip: %s != %s", got.Balance, a.Balance)
	}
	if got.Type != domain.AccountLiability {
		t.Fatalf("type round-trip: %s", got.Type)
	}
}

func TestRowFor_RejectsWrongType(t *testing.T) {
	_, err := rowFor(store.Op{Kind: store.OpPut, Collection: store.Accounts, ID: "a1", Value: "nope"})
	if err == nil {
		t.Fatal("expected type error")
	}
	_, err = rowFor(store.Op{Kind: store.OpPut, Collection: "bogus", ID: "x", Value: 1})
	if err == nil {
		t.Fatal("expected unknown collection error")
	}
}
