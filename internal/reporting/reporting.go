// Package reporting derives dashboard figures from the raw ledger. Nothing
// here writes; every function is a pure fold over transactions and accounts.
//
// Aggregates are split-aware: a transaction with a breakdown contributes its
// splits' categories, not its own. Repayment entries are money coming back
// from a debt, not income, and stay out of every total.
package reporting

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
)

// Sort orders for filtered listings.
const (
	SortDateDesc   = "date_desc"
	SortDateAsc    = "date_asc"
	SortAmountDesc = "amount_desc"
	SortAmountAsc  = "amount_asc"
)

// Filter narrows a ledger listing. Zero fields match everything.
type Filter struct {
	From      time.Time
	To        time.Time
	Category  string
	AccountID string
	Type      domain.TransactionType
	Tag       string
	Search    string
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	// Sort is one of the Sort* constants; empty means newest first.
	Sort string
}

// Apply returns the matching transactions in the filter's order.
func (f Filter) Apply(txs []domain.Transaction) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range txs {
		if !f.matches(tx) {
			continue
		}
		out = append(out, tx)
	}
	less := func(i, j int) bool { return out[i].Date.After(out[j].Date) }
	switch f.Sort {
	case SortDateAsc:
		less = func(i, j int) bool { return out[i].Date.Before(out[j].Date) }
	case SortAmountDesc:
		less = func(i, j int) bool { return out[i].Amount.GreaterThan(out[j].Amount) }
	case SortAmountAsc:
		less = func(i, j int) bool { return out[i].Amount.LessThan(out[j].Amount) }
	}
	sort.SliceStable(out, less)
	return out
}

func (f Filter) matches(tx domain.Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Tag != "" && !tx.HasTag(f.Tag) {
		return false
	}
	if f.Category != "" && !txInCategory(tx, f.Category) {
		return false
	}
	if !f.MinAmount.IsZero() && tx.Amount.LessThan(f.MinAmount) {
		return false
	}
	if !f.MaxAmount.IsZero() && tx.Amount.GreaterThan(f.MaxAmount) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(tx.Description), needle) {
			return false
		}
	}
	return true
}

func txInCategory(tx domain.Transaction, category string) bool {
	if tx.HasSplits() {
		for _, sp := range tx.Splits {
			if sp.Category == category {
				return true
			}
		}
		return false
	}
	return tx.Category == category
}

// Summary is one period's headline numbers.
type Summary struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// MonthSummary totals income and spending for one YYYY-MM month.
func MonthSummary(txs []domain.Transaction, month string) Summary {
	sum := Summary{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, tx := range txs {
		if tx.MonthKey() != month {
			continue
		}
		addToSummary(&sum, tx)
	}
	sum.Net = sum.Income.Sub(sum.Expenses)
	return sum
}

func addToSummary(sum *Summary, tx domain.Transaction) {
	if tx.HasSplits() {
		for _, sp := range tx.Splits {
			// Money lent or owed is a debt position, not income or spending.
			if domain.IsDebtCategory(sp.Category) {
				continue
			}
			switch sp.Type {
			case domain.TypeIncome:
				sum.Income = sum.Income.Add(sp.Amount)
			case domain.TypeExpense:
				sum.Expenses = sum.Expenses.Add(sp.Amount)
			}
		}
		return
	}
	switch tx.Type {
	case domain.TypeIncome:
		sum.Income = sum.Income.Add(tx.Amount)
	case domain.TypeExpense:
		sum.Expenses = sum.Expenses.Add(tx.Amount)
	}
}

// Totals sums income and spending over an already-filtered listing, with the
// same split and repayment treatment as MonthSummary.
func Totals(txs []domain.Transaction) Summary {
	sum := Summary{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, tx := range txs {
		addToSummary(&sum, tx)
	}
	sum.Net = sum.Income.Sub(sum.Expenses)
	return sum
}

// CategorySpend totals expense amounts per category for one month. Debt
// splits are excluded: lending money is not spending it.
func CategorySpend(txs []domain.Transaction, month string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	add := func(category string, amount decimal.Decimal) {
		out[category] = out[category].Add(amount)
	}
	for _, tx := range txs {
		if tx.MonthKey() != month {
			continue
		}
		if tx.HasSplits() {
			for _, sp := range tx.Splits {
				if sp.Type != domain.TypeExpense || domain.IsDebtCategory(sp.Category) {
					continue
				}
				add(sp.Category, sp.Amount)
			}
			continue
		}
		if tx.Type != domain.TypeExpense {
			continue
		}
		add(tx.Category, tx.Amount)
	}
	return out
}

// SavingsCategory is the spend category that counts as money kept rather
// than consumed.
const SavingsCategory = "savings"

// SavingsRate is the share of a month's income left after non-savings
// spending, as a fraction in [−∞, 1]. Zero income yields zero.
func SavingsRate(txs []domain.Transaction, month string) decimal.Decimal {
	sum := MonthSummary(txs, month)
	if sum.Income.IsZero() {
		return decimal.Zero
	}
	saved := CategorySpend(txs, month)[SavingsCategory]
	consumed := sum.Expenses.Sub(saved)
	return sum.Income.Sub(consumed).Div(sum.Income)
}

// TrendPoint is one bucket in an income/expense series. Period is the
// bucket's label: YYYY-MM for months, the Monday's date for weeks.
type TrendPoint struct {
	Period string `json:"period"`
	Summary
}

// Trend produces the last n months of summaries ending at the month of now,
// oldest first. Months without activity appear with zero totals.
func Trend(txs []domain.Transaction, n int, now time.Time) []TrendPoint {
	if n <= 0 {
		return nil
	}
	points := make([]TrendPoint, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(n - 1), 0)
	for i := 0; i < n; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		points = append(points, TrendPoint{Period: month, Summary: MonthSummary(txs, month)})
	}
	return points
}

// WeeklyTrend produces the last n weeks of summaries ending at the week of
// now, oldest first. Weeks start on Monday.
func WeeklyTrend(txs []domain.Transaction, n int, now time.Time) []TrendPoint {
	if n <= 0 {
		return nil
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7
	first := day.AddDate(0, 0, -offset-7*(n-1))

	points := make([]TrendPoint, 0, n)
	for i := 0; i < n; i++ {
		start := first.AddDate(0, 0, 7*i)
		end := start.AddDate(0, 0, 7)
		sum := Summary{Income: decimal.Zero, Expenses: decimal.Zero}
		for _, tx := range txs {
			if tx.Date.Before(start) || !tx.Date.Before(end) {
				continue
			}
			addToSummary(&sum, tx)
		}
		sum.Net = sum.Income.Sub(sum.Expenses)
		points = append(points, TrendPoint{Period: start.Format("2006-01-02"), Summary: sum})
	}
	return points
}

// NetWorth aggregates current account balances.
type NetWorth struct {
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Net         decimal.Decimal `json:"net"`
}

// CurrentNetWorth folds the account list.
func CurrentNetWorth(accounts []domain.Account) NetWorth {
	nw := NetWorth{Assets: decimal.Zero, Liabilities: decimal.Zero}
	for _, a := range accounts {
		if a.Type == domain.AccountLiability {
			nw.Liabilities = nw.Liabilities.Add(a.Balance)
		} else {
			nw.Assets = nw.Assets.Add(a.Balance)
		}
	}
	nw.Net = nw.Assets.Sub(nw.Liabilities)
	return nw
}
