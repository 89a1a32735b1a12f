package debts

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateTotal(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		splits []string
		ok     bool
	}{
		{"exact", "100", []string{"60", "40"}, true},
		{"within tolerance", "100", []string{"60.01", "40"}, true},
		{"at tolerance", "100", []string{"60.02", "40"}, true},
		{"over tolerance", "100", []string{"60.03", "40"}, false},
		{"short", "100", []string{"50"}, false},
		{"no splits", "100", nil, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var splits []domain.Split
			for _, a := range c.splits {
				splits = append(splits, domain.Split{Amount: dec(a)})
			}
			err := ValidateTotal(dec(c.amount), splits)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok {
				var mismatch *ErrSplitMismatch
				if !errors.As(err, &mismatch) {
					t.Fatalf("want ErrSplitMismatch, got %v", err)
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	splits := Normalize([]domain.Split{
		{Amount: dec("30"), Category: domain.CategoryReceivable},
		{Amount: dec("20"), Category: domain.CategoryPayable, Target: "Sam", Status: domain.StatusRepaid},
		{Amount: dec("50"), Category: "groceries", Target: "stale", Status: domain.StatusOpen},
	})

	if splits[0].ID == "" {
		t.Error("new split did not get an ID")
	}
	if splits[0].Target != domain.UnassignedTarget {
		t.Errorf("debt split target = %q, want %q", splits[0].Target, domain.UnassignedTarget)
	}
	if splits[0].Status != domain.StatusOpen {
		t.Errorf("debt split status = %q, want open", splits[0].Status)
	}
	if splits[1].Status != domain.StatusRepaid {
		t.Error("normalize must not reopen a settled split")
	}
	if splits[2].Target != "" || splits[2].Status != "" {
		t.Error("non-debt split kept debt fields")
	}
}

func debtTx() domain.Transaction {
	return domain.Transaction{
		ID:          "tx1",
		Description: "Dinner with Sam",
		Amount:      dec("90"),
		Type:        domain.TypeExpense,
		AccountID:   "checking",
		Splits: []domain.Split{
			{ID: "s1", Amount: dec("45"), Category: "food", Type: domain.TypeExpense},
			{ID: "s2", Amount: dec("45"), Category: domain.CategoryReceivable, Target: "Sam", Status: domain.StatusOpen},
		},
	}
}

func TestCollect(t *testing.T) {
	txs := []domain.Transaction{
		debtTx(),
		{
			ID: "tx2",
			Splits: []domain.Split{
				{ID: "s3", Amount: dec("25"), Category: domain.CategoryPayable, Target: "Alex", Status: domain.StatusOpen},
				{ID: "s4", Amount: dec("10"), Category: domain.CategoryReceivable, Target: "Kim", Status: domain.StatusForgiven},
			},
		},
	}

	book := Collect(txs)
	if len(book.Receivables) != 1 || len(book.Payables) != 1 {
		t.Fatalf("book sizes = %d/%d, want 1/1", len(book.Receivables), len(book.Payables))
	}
	if !book.TotalReceivable.Equal(dec("45")) {
		t.Errorf("total receivable = %s, want 45", book.TotalReceivable)
	}
	if !book.TotalPayable.Equal(dec("25")) {
		t.Errorf("total payable = %s, want 25", book.TotalPayable)
	}
	if book.Receivables[0].Target != "Sam" {
		t.Errorf("receivable target = %q", book.Receivables[0].Target)
	}
}

func TestResolve_RepayReceivable(t *testing.T) {
	now := time.Now()
	s, err := Resolve(debtTx(), "s2", Resolution{Status: domain.StatusRepaid, AccountID: "checking"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if s.Updated.Splits[1].Status != domain.StatusRepaid {
		t.Fatalf("split status = %q, want repaid", s.Updated.Splits[1].Status)
	}
	if s.Record == nil || s.Record.Type != domain.TypeRepayment {
		t.Fatalf("settlement record type = %+v, want repayment", s.Record)
	}
	if !s.ApplyBalance {
		t.Error("repayment into a tracked account must apply the balance")
	}
	if !s.Record.Amount.Equal(dec("45")) {
		t.Errorf("record amount = %s, want 45", s.Record.Amount)
	}
}

func TestResolve_RepayToUntrackedCash(t *testing.T) {
	s, err := Resolve(debtTx(), "s2", Resolution{Status: domain.StatusRepaid, AccountID: domain.CashOtherAccountID}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if s.ApplyBalance {
		t.Error("untracked cash settlement must not touch balances")
	}
}

func TestResolve_ForgiveDirections(t *testing.T) {
	tx := debtTx()
	tx.Splits = append(tx.Splits, domain.Split{
		ID: "s3", Amount: dec("20"), Category: domain.CategoryPayable, Target: "Alex", Status: domain.StatusOpen,
	})

	recv, err := Resolve(tx, "s2", Resolution{Status: domain.StatusForgiven}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if recv.Record.Type != domain.TypeExpense || recv.Record.Category != "bad debt" {
		t.Errorf("forgiven receivable → %s/%s, want expense/bad debt", recv.Record.Type, recv.Record.Category)
	}
	if recv.ApplyBalance {
		t.Error("forgiveness must never touch balances")
	}

	pay, err := Resolve(tx, "s3", Resolution{Status: domain.StatusForgiven}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if pay.Record.Type != domain.TypeIncome || pay.Record.Category != "debt relief" {
		t.Errorf("forgiven payable → %s/%s, want income/debt relief", pay.Record.Type, pay.Record.Category)
	}
}

func TestResolve_TerminalIsFinal(t *testing.T) {
	tx := debtTx()
	tx.Splits[1].Status = domain.StatusRepaid

	_, err := Resolve(tx, "s2", Resolution{Status: domain.StatusForgiven}, time.Now())
	if !errors.Is(err, ErrNotOpen) {
		t.Fatalf("got %v, want ErrNotOpen", err)
	}
}

func TestResolve_UnknownSplit(t *testing.T) {
	if _, err := Resolve(debtTx(), "nope", Resolution{Status: domain.StatusRepaid}, time.Now()); err == nil {
		t.Fatal("expected error for unknown split")
	}
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	tx := debtTx()
	if _, err := Resolve(tx, "s2", Resolution{Status: domain.StatusForgiven}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if tx.Splits[1].Status != domain.StatusOpen {
		t.Fatal("input transaction was mutated")
	}
}
