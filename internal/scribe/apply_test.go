package scribe

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/store"
	"github.com/chronicle-app/chronicle/internal/store/memory"
)

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	var ws store.WriteSet
	ws.Put(store.Accounts, "checking", domain.Account{ID: "checking", Name: "Checking", Type: domain.AccountAsset, Balance: decimal.NewFromInt(1000)})
	ws.Put(store.Accounts, "savings", domain.Account{ID: "savings", Name: "Savings", Type: domain.AccountAsset, Balance: decimal.NewFromInt(5000)})
	ws.Put(store.Categories, "groceries", domain.Category{ID: "groceries", Name: "groceries", Budget: decimal.NewFromInt(400)})
	if err := s.Apply(context.Background(), ws); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestApply_SequentialBalances(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC)

	// A deposit then a transfer of part of it: the transfer must see the
	// deposited money.
	actions := []Action{
		TransactionAction{Description: "Salary", Amount: decimal.NewFromInt(500), Type: "income", Category: "income", Account: "Checking"},
		TransferAction{From: "Checking", To: "Savings", Amount: decimal.NewFromInt(1200)},
	}
	if err := Apply(ctx, s, actions, "checking", now); err != nil {
		t.Fatal(err)
	}

	checking, err := s.Account(ctx, "checking")
	if err != nil {
		t.Fatal(err)
	}
	if !checking.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("checking = %s, want 300 (1000+500-1200)", checking.Balance)
	}
	savings, _ := s.Account(ctx, "savings")
	if !savings.Balance.Equal(decimal.NewFromInt(6200)) {
		t.Errorf("savings = %s, want 6200", savings.Balance)
	}

	snaps, _ := s.HistorySnapshots(ctx)
	if len(snaps) != 1 {
		t.Fatalf("history snapshots = %d, want 1 after balance changes", len(snaps))
	}
	if !snaps[0].NetWorth.Equal(decimal.NewFromInt(6500)) {
		t.Errorf("snapshot net worth = %s, want 6500", snaps[0].NetWorth)
	}
}

func TestApply_InvalidActionLeavesStateUntouched(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	actions := []Action{
		TransactionAction{Description: "ok", Amount: decimal.NewFromInt(10), Type: "expense", Category: "misc", Account: "Checking"},
		TransferAction{From: "Checking", To: "NoSuchAccount", Amount: decimal.NewFromInt(5)},
	}
	err := Apply(ctx, s, actions, "checking", time.Now())
	if err == nil {
		t.Fatal("expected error")
	}

	checking, _ := s.Account(ctx, "checking")
	if !checking.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("failed batch mutated balance: %s", checking.Balance)
	}
	if txs, _ := s.Transactions(ctx); len(txs) != 0 {
		t.Fatalf("failed batch wrote %d transactions", len(txs))
	}
}

func TestApply_DefaultAccount(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	actions := []Action{
		TransactionAction{Description: "Coffee", Amount: decimal.NewFromInt(4), Type: "expense", Category: "food"},
	}
	if err := Apply(ctx, s, actions, "checking", time.Now()); err != nil {
		t.Fatal(err)
	}
	txs, _ := s.Transactions(ctx)
	if len(txs) != 1 || txs[0].AccountID != "checking" {
		t.Fatalf("transaction account = %+v", txs)
	}
	checking, _ := s.Account(ctx, "checking")
	if !checking.Balance.Equal(decimal.NewFromInt(996)) {
		t.Errorf("checking = %s, want 996", checking.Balance)
	}
}

func TestApply_AddAccountThenUse(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	actions := []Action{
		AddAccountAction{Name: "Travel Card", Type: "liability", Balance: decimal.Zero},
		TransactionAction{Description: "Flights", Amount: decimal.NewFromInt(250), Type: "expense", Category: "misc", Account: "Travel Card"},
	}
	if err := Apply(ctx, s, actions, "checking", time.Now()); err != nil {
		t.Fatal(err)
	}

	card, err := s.Account(ctx, "travel_card")
	if err != nil {
		t.Fatal(err)
	}
	if !card.Balance.Equal(decimal.NewFromInt(250)) {
		t.Errorf("card balance = %s, want 250 (liability grows on expense)", card.Balance)
	}
}

func TestApply_PayableHasNoBalanceImpact(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	actions := []Action{
		AddPayableAction{Target: "Alex", Amount: decimal.NewFromInt(30)},
	}
	if err := Apply(ctx, s, actions, "checking", time.Now()); err != nil {
		t.Fatal(err)
	}

	checking, _ := s.Account(ctx, "checking")
	if !checking.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("payable moved a balance: %s", checking.Balance)
	}
	txs, _ := s.Transactions(ctx)
	if len(txs) != 1 {
		t.Fatal("payable transaction missing")
	}
	if len(txs[0].Splits) != 1 || !txs[0].Splits[0].Open() {
		t.Fatalf("payable split not open: %+v", txs[0].Splits)
	}
	if txs[0].AccountID != "" {
		t.Errorf("payable bound to account %q", txs[0].AccountID)
	}
}

func TestApply_MonthBudgetUpdate(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	actions := []Action{
		UpdateCategoryBudgetAction{Category: "groceries", Budget: decimal.NewFromInt(450), Month: "2026-08"},
	}
	if err := Apply(ctx, s, actions, "checking", time.Now()); err != nil {
		t.Fatal(err)
	}

	budgets, _ := s.MonthlyBudgets(ctx)
	if !budgets["2026-08"]["groceries"].Equal(decimal.NewFromInt(450)) {
		t.Fatalf("month budget = %v", budgets["2026-08"])
	}

	// Base budget stays untouched.
	cats, _ := s.Categories(ctx)
	for _, c := range cats {
		if c.ID == "groceries" && !c.Budget.Equal(decimal.NewFromInt(400)) {
			t.Errorf("base budget changed to %s", c.Budget)
		}
	}
}

func TestApply_TransactionLocksMonth(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC)

	actions := []Action{
		TransactionAction{Description: "Groceries", Amount: decimal.NewFromInt(30), Type: "expense", Category: "groceries", Account: "Checking"},
	}
	if err := Apply(ctx, s, actions, "checking", now); err != nil {
		t.Fatal(err)
	}

	budgets, _ := s.MonthlyBudgets(ctx)
	if !budgets["2026-08"]["groceries"].Equal(decimal.NewFromInt(400)) {
		t.Fatalf("month not locked at base value: %v", budgets["2026-08"])
	}
}

func TestApply_RecordHistoryComputesTotals(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	actions := []Action{
		RecordHistoryPointAction{Account: "Savings", Balance: decimal.NewFromInt(7000), Date: "2026-08-01"},
	}
	if err := Apply(ctx, s, actions, "checking", time.Now()); err != nil {
		t.Fatal(err)
	}

	snaps, _ := s.HistorySnapshots(ctx)
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	snap := snaps[0]
	if !snap.TotalAssets.Equal(decimal.NewFromInt(7000)) || !snap.TotalLiabilities.IsZero() {
		t.Errorf("totals = %s assets, %s liabilities", snap.TotalAssets, snap.TotalLiabilities)
	}
	if !snap.NetWorth.Equal(decimal.NewFromInt(7000)) {
		t.Errorf("net worth = %s, want 7000", snap.NetWorth)
	}
}
