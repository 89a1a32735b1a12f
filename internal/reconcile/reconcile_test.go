package reconcile

import (
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

func TestPlan(t *testing.T) {
	cases := []struct {
		name     string
		acctType domain.AccountType
		recorded string
		actual   string
		wantType domain.TransactionType
		wantAmt  string
	}{
		{"asset surplus is income", domain.AccountAsset, "450", "500", domain.TypeIncome, "50"},
		{"asset shortfall is expense", domain.AccountAsset, "500", "450", domain.TypeExpense, "50"},
		{"liability grew is expense", domain.AccountLiability, "200", "250", domain.TypeExpense, "50"},
		{"liability shrank is income", domain.AccountLiability, "250", "200", domain.TypeIncome, "50"},
	}
	now := time.Now()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			acct := domain.Account{ID: "a1", Name: "Checking", Type: c.acctType, Balance: dec(c.recorded)}
			adj := Plan(acct, dec(c.actual), now)

			if !adj.NewBalance.Equal(dec(c.actual)) {
				t.Fatalf("new balance = %s, want %s", adj.NewBalance, c.actual)
			}
			if adj.Record == nil {
				t.Fatal("expected an adjustment record")
			}
			if adj.Record.Type != c.wantType {
				t.Errorf("record type = %s, want %s", adj.Record.Type, c.wantType)
			}
			if !adj.Record.Amount.Equal(dec(c.wantAmt)) {
				t.Errorf("record amount = %s, want %s", adj.Record.Amount, c.wantAmt)
			}
			if !adj.Record.HasTag(Tag) {
				t.Error("record missing reconciliation tag")
			}
		})
	}
}

func TestPlan_WithinToleranceIsNoop(t *testing.T) {
	acct := domain.Account{ID: "a1", Type: domain.AccountAsset, Balance: dec("100.00")}
	adj := Plan(acct, dec("100.005"), time.Now())
	if adj.Record != nil {
		t.Fatal("sub-cent difference must not produce a record")
	}
	if !adj.NewBalance.Equal(acct.Balance) {
		t.Fatalf("no-op reconciliation changed balance to %s", adj.NewBalance)
	}
}
