package ledger

import (
	"testing"

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

func TestEffectiveDelta_SignRule(t *testing.T) {
	amount := dec("40.00")

	tests := []struct {
		name     string
		txType   domain.TransactionType
		acctType domain.AccountType
		want     string
	}{
		{"income on asset", domain.TypeIncome, domain.AccountAsset, "40"},
		{"expense on asset", domain.TypeExpense, domain.AccountAsset, "-40"},
		{"income on liability", domain.TypeIncome, domain.AccountLiability, "-40"},
		{"expense on liability", domain.TypeExpense, domain.AccountLiability, "40"},
		{"repayment on asset", domain.TypeRepayment, domain.AccountAsset, "40"},
		{"repayment on liability", domain.TypeRepayment, domain.AccountLiability, "-40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveDelta(amount, tt.txType, tt.acctType)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("EffectiveDelta() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestApplyRevert_Symmetry(t *testing.T) {
	start := dec("123.45")
	amount := dec("67.89")

	for _, txType := range []domain.TransactionType{domain.TypeIncome, domain.TypeExpense, domain.TypeRepayment} {
		for _, acctType := range []domain.AccountType{domain.AccountAsset, domain.AccountLiability} {
			after := Apply(start, amount, txType, acctType)
			back := Revert(after, amount, txType, acctType)
			if !back.Equal(start) {
				t.Errorf("%s/%s: apply+revert = %s, want %s", txType, acctType, back, start)
			}
		}
	}
}

func TestApply_AssetExpenseScenario(t *testing.T) {
	// Checking 1000.00, post expense 40.00, then delete it again.
	bal := Apply(dec("1000.00"), dec("40.00"), domain.TypeExpense, domain.AccountAsset)
	if !bal.Equal(dec("960.00")) {
		t.Fatalf("after expense: %s, want 960.00", bal)
	}
	bal = Revert(bal, dec("40.00"), domain.TypeExpense, domain.AccountAsset)
	if !bal.Equal(dec("1000.00")) {
		t.Fatalf("after revert: %s, want 1000.00", bal)
	}
}

func TestApply_LiabilityChargeAndPayment(t *testing.T) {
	// Credit card owing 500.00: a charge grows the debt, a payment shrinks it.
	bal := Apply(dec("500.00"), dec("100.00"), domain.TypeExpense, domain.AccountLiability)
	if !bal.Equal(dec("600.00")) {
		t.Fatalf("after charge: %s, want 600.00", bal)
	}
	bal = Apply(bal, dec("100.00"), domain.TypeIncome, domain.AccountLiability)
	if !bal.Equal(dec("500.00")) {
		t.Fatalf("after payment: %s, want 500.00", bal)
	}
}

func TestTransferLegs(t *testing.T) {
	checking := domain.Account{ID: "checking", Type: domain.AccountAsset, Balance: dec("1000.00")}
	savings := domain.Account{ID: "savings", Type: domain.AccountAsset, Balance: dec("200.00")}
	card := domain.Account{ID: "card", Type: domain.AccountLiability, Balance: dec("500.00")}

	t.Run("asset to asset conserves total", func(t *testing.T) {
		newFrom, newTo := TransferLegs(checking, savings, dec("300.00"))
		if !newFrom.Equal(dec("700.00")) || !newTo.Equal(dec("500.00")) {
			t.Fatalf("got %s / %s, want 700.00 / 500.00", newFrom, newTo)
		}
		before := checking.Balance.Add(savings.Balance)
		after := newFrom.Add(newTo)
		if !before.Equal(after) {
			t.Fatalf("total changed: %s -> %s", before, after)
		}
	})

	t.Run("asset to liability pays debt down", func(t *testing.T) {
		newFrom, newTo := TransferLegs(checking, card, dec("200.00"))
		if !newFrom.Equal(dec("800.00")) {
			t.Errorf("from leg: %s, want 800.00", newFrom)
		}
		if !newTo.Equal(dec("300.00")) {
			t.Errorf("to leg: %s, want 300.00", newTo)
		}
	})

	t.Run("liability to asset borrows", func(t *testing.T) {
		newFrom, newTo := TransferLegs(card, checking, dec("150.00"))
		if !newFrom.Equal(dec("650.00")) {
			t.Errorf("from leg: %s, want 650.00", newFrom)
		}
		if !newTo.Equal(dec("1150.00")) {
			t.Errorf("to leg: %s, want 1150.00", newTo)
		}
	})
}

func TestStageEdit_SameAccountNets(t *testing.T) {
	accounts := map[string]domain.Account{
		"checking": {ID: "checking", Type: domain.AccountAsset, Balance: dec("960.00")},
	}
	// Existing expense of 40.00 edited to 25.00 on the same account. The
	// netted write must land on 975.00, equivalent to delete-and-recreate.
	old := &Effect{AccountID: "checking", Amount: dec("40.00"), Type: domain.TypeExpense}
	updated := &Effect{AccountID: "checking", Amount: dec("25.00"), Type: domain.TypeExpense}

	changes := StageEdit(old, updated, accounts)
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1 netted write", len(changes))
	}
	if changes[0].AccountID != "checking" || !changes[0].NewBalance.Equal(dec("975.00")) {
		t.Fatalf("got %s=%s, want checking=975.00", changes[0].AccountID, changes[0].NewBalance)
	}
}

func TestStageEdit_TypeChangeSameAccount(t *testing.T) {
	accounts := map[string]domain.Account{
		"checking": {ID: "checking", Type: domain.AccountAsset, Balance: dec("960.00")},
	}
	// 40.00 expense becomes 40.00 income: revert +40, apply +40.
	old := &Effect{AccountID: "checking", Amount: dec("40.00"), Type: domain.TypeExpense}
	updated := &Effect{AccountID: "checking", Amount: dec("40.00"), Type: domain.TypeIncome}

	changes := StageEdit(old, updated, accounts)
	if len(changes) != 1 || !changes[0].NewBalance.Equal(dec("1040.00")) {
		t.Fatalf("got %+v, want single write of 1040.00", changes)
	}
}

func TestStageEdit_AccountMoved(t *testing.T) {
	accounts := map[string]domain.Account{
		"checking": {ID: "checking", Type: domain.AccountAsset, Balance: dec("960.00")},
		"savings":  {ID: "savings", Type: domain.AccountAsset, Balance: dec("500.00")},
	}
	old := &Effect{AccountID: "checking", Amount: dec("40.00"), Type: domain.TypeExpense}
	updated := &Effect{AccountID: "savings", Amount: dec("40.00"), Type: domain.TypeExpense}

	changes := StageEdit(old, updated, accounts)
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	byID := map[string]decimal.Decimal{}
	for _, c := range changes {
		byID[c.AccountID] = c.NewBalance
	}
	if !byID["checking"].Equal(dec("1000.00")) {
		t.Errorf("checking: %s, want 1000.00", byID["checking"])
	}
	if !byID["savings"].Equal(dec("460.00")) {
		t.Errorf("savings: %s, want 460.00", byID["savings"])
	}
}

func TestStageEdit_UnknownAccountIsNoop(t *testing.T) {
	accounts := map[string]domain.Account{}
	updated := &Effect{AccountID: "ghost", Amount: dec("10.00"), Type: domain.TypeExpense}
	if changes := StageEdit(nil, updated, accounts); len(changes) != 0 {
		t.Fatalf("unknown account produced %d changes, want 0", len(changes))
	}

	cash := &Effect{AccountID: domain.CashOtherAccountID, Amount: dec("10.00"), Type: domain.TypeExpense}
	if changes := StageEdit(nil, cash, accounts); len(changes) != 0 {
		t.Fatalf("cash/other produced %d changes, want 0", len(changes))
	}
}

func TestStageEdit_CreateAndDelete(t *testing.T) {
	accounts := map[string]domain.Account{
		"checking": {ID: "checking", Type: domain.AccountAsset, Balance: dec("1000.00")},
	}
	eff := &Effect{AccountID: "checking", Amount: dec("40.00"), Type: domain.TypeExpense}

	creates := StageEdit(nil, eff, accounts)
	if len(creates) != 1 || !creates[0].NewBalance.Equal(dec("960.00")) {
		t.Fatalf("create: got %+v, want 960.00", creates)
	}
	deletes := StageEdit(eff, nil, accounts)
	if len(deletes) != 1 || !deletes[0].NewBalance.Equal(dec("1040.00")) {
		t.Fatalf("delete: got %+v, want 1040.00", deletes)
	}
}
