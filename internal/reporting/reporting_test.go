package reporting

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

func aug(day int) time.Time {
	return time.Date(2026, time.August, day, 12, 0, 0, 0, time.UTC)
}

func sampleLedger() []domain.Transaction {
	return []domain.Transaction{
		{ID: "t1", Date: aug(1), Description: "Salary", Amount: dec("3000"), Type: domain.TypeIncome, Category: "income", AccountID: "checking"},
		{ID: "t2", Date: aug(5), Description: "Groceries", Amount: dec("80"), Type: domain.TypeExpense, Category: "groceries", AccountID: "checking", Tags: []string{"weekly"}},
		{ID: "t3", Date: aug(8), Description: "Dinner with Sam", Amount: dec("90"), Type: domain.TypeExpense, Category: "food", AccountID: "checking",
			Splits: []domain.Split{
				{ID: "s1", Amount: dec("45"), Category: "food", Type: domain.TypeExpense},
				{ID: "s2", Amount: dec("45"), Category: domain.CategoryReceivable, Type: domain.TypeExpense, Target: "Sam", Status: domain.StatusOpen},
			}},
		{ID: "t4", Date: aug(10), Description: "Repayment from Sam", Amount: dec("45"), Type: domain.TypeRepayment, Category: domain.CategoryReceivable, AccountID: "checking"},
		{ID: "t5", Date: time.Date(2026, time.July, 20, 0, 0, 0, 0, time.UTC), Description: "July rent", Amount: dec("1200"), Type: domain.TypeExpense, Category: "housing", AccountID: "checking"},
	}
}

func TestMonthSummary_RepaymentExcluded(t *testing.T) {
	sum := MonthSummary(sampleLedger(), "2026-08")
	if !sum.Income.Equal(dec("3000")) {
		t.Errorf("income = %s, want 3000 (repayment is not income)", sum.Income)
	}
	// 80 groceries + the own 45 half of the split dinner; the lent 45 is a
	// receivable, not spending.
	if !sum.Expenses.Equal(dec("125")) {
		t.Errorf("expenses = %s, want 125", sum.Expenses)
	}
	if !sum.Net.Equal(dec("2875")) {
		t.Errorf("net = %s", sum.Net)
	}
}

func TestMonthSummary_DebtSplitsExcluded(t *testing.T) {
	txs := []domain.Transaction{
		{ID: "t1", Date: aug(3), Description: "Dinner covered for Sam", Amount: dec("100"), Type: domain.TypeExpense, Category: "food", AccountID: "checking",
			Splits: []domain.Split{
				{ID: "s1", Amount: dec("40"), Category: "food", Type: domain.TypeExpense},
				{ID: "s2", Amount: dec("60"), Category: domain.CategoryReceivable, Type: domain.TypeExpense, Target: "Sam", Status: domain.StatusOpen},
			}},
	}
	sum := MonthSummary(txs, "2026-08")
	if !sum.Expenses.Equal(dec("40")) {
		t.Fatalf("expenses = %s, want 40 (debt splits must be excluded)", sum.Expenses)
	}
}

func TestTotals(t *testing.T) {
	totals := Totals(sampleLedger())
	if !totals.Income.Equal(dec("3000")) {
		t.Errorf("income = %s, want 3000", totals.Income)
	}
	// 80 + 45 own dinner half + 1200 July rent; repayment and the lent 45
	// count in neither direction.
	if !totals.Expenses.Equal(dec("1325")) {
		t.Errorf("expenses = %s, want 1325", totals.Expenses)
	}
	if !totals.Net.Equal(dec("1675")) {
		t.Errorf("net = %s", totals.Net)
	}
}

func TestCategorySpend_SplitAwareAndDebtExcluded(t *testing.T) {
	spend := CategorySpend(sampleLedger(), "2026-08")
	if !spend["food"].Equal(dec("45")) {
		t.Errorf("food = %s, want 45 (only own half of the split dinner)", spend["food"])
	}
	if !spend["groceries"].Equal(dec("80")) {
		t.Errorf("groceries = %s", spend["groceries"])
	}
	if _, ok := spend[domain.CategoryReceivable]; ok {
		t.Error("lent money counted as spending")
	}
}

func TestSavingsRate(t *testing.T) {
	txs := append(sampleLedger(), domain.Transaction{
		ID: "t6", Date: aug(15), Description: "To savings", Amount: dec("600"),
		Type: domain.TypeExpense, Category: SavingsCategory, AccountID: "checking",
	})

	// Income 3000, spent 125, saved 600: (3000 - 125) / 3000.
	rate := SavingsRate(txs, "2026-08")
	want := dec("2875").Div(dec("3000"))
	if !rate.Equal(want) {
		t.Fatalf("rate = %s, want %s", rate, want)
	}

	if !SavingsRate(txs, "2026-05").IsZero() {
		t.Error("month without income must report zero")
	}
}

func TestFilter(t *testing.T) {
	txs := sampleLedger()

	byTag := Filter{Tag: "weekly"}.Apply(txs)
	if len(byTag) != 1 || byTag[0].ID != "t2" {
		t.Fatalf("tag filter = %+v", byTag)
	}

	// Category filter reaches into splits.
	byCat := Filter{Category: domain.CategoryReceivable}.Apply(txs)
	found := map[string]bool{}
	for _, tx := range byCat {
		found[tx.ID] = true
	}
	if !found["t3"] || !found["t4"] {
		t.Fatalf("receivable filter = %v", found)
	}

	bySearch := Filter{Search: "sam"}.Apply(txs)
	if len(bySearch) != 2 {
		t.Fatalf("search matched %d, want 2", len(bySearch))
	}

	windowed := Filter{From: aug(4), To: aug(9)}.Apply(txs)
	if len(windowed) != 2 {
		t.Fatalf("window matched %d, want 2", len(windowed))
	}
	if !windowed[0].Date.After(windowed[1].Date) {
		t.Error("results not newest first")
	}

	byAmount := Filter{MinAmount: dec("80"), MaxAmount: dec("100")}.Apply(txs)
	if len(byAmount) != 2 {
		t.Fatalf("amount filter matched %d, want 2", len(byAmount))
	}

	sorted := Filter{Sort: SortAmountAsc}.Apply(txs)
	if sorted[0].ID != "t4" || sorted[len(sorted)-1].ID != "t1" {
		t.Fatalf("amount sort = %s..%s", sorted[0].ID, sorted[len(sorted)-1].ID)
	}
}

func TestTrend(t *testing.T) {
	points := Trend(sampleLedger(), 3, aug(20))
	if len(points) != 3 {
		t.Fatalf("points = %d", len(points))
	}
	if points[0].Period != "2026-06" || points[2].Period != "2026-08" {
		t.Fatalf("months = %s..%s", points[0].Period, points[2].Period)
	}
	if !points[0].Expenses.IsZero() {
		t.Error("empty month must report zero")
	}
	if !points[1].Expenses.Equal(dec("1200")) {
		t.Errorf("July expenses = %s, want 1200", points[1].Expenses)
	}
}

func TestWeeklyTrend(t *testing.T) {
	// Aug 20 2026 is a Thursday; its week starts Monday Aug 17.
	points := WeeklyTrend(sampleLedger(), 2, aug(20))
	if len(points) != 2 {
		t.Fatalf("points = %d", len(points))
	}
	if points[0].Period != "2026-08-10" || points[1].Period != "2026-08-17" {
		t.Fatalf("weeks = %s, %s", points[0].Period, points[1].Period)
	}
	// Aug 10 repayment stays out of the totals.
	if !points[0].Income.IsZero() || !points[0].Expenses.IsZero() {
		t.Errorf("week of Aug 10 = %+v, want zero totals", points[0].Summary)
	}
}

func TestCurrentNetWorth(t *testing.T) {
	nw := CurrentNetWorth([]domain.Account{
		{ID: "checking", Type: domain.AccountAsset, Balance: dec("1000")},
		{ID: "savings", Type: domain.AccountAsset, Balance: dec("5000")},
		{ID: "visa", Type: domain.AccountLiability, Balance: dec("600")},
	})
	if !nw.Net.Equal(dec("5400")) {
		t.Fatalf("net = %s, want 5400", nw.Net)
	}
}
