// Package reconcile turns "the bank says X" into a ledger adjustment. The
// account's balance is set to the stated figure and a compensating
// transaction records the difference, so reconciliations stay visible in the
// history instead of silently rewriting it.
package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
)

// Tolerance below which a stated balance is considered already matched.
var Tolerance = decimal.RequireFromString("0.01")

// Tag marks adjustment transactions so they can be filtered in reports.
const Tag = "reconciliation"

// Adjustment is the planned outcome of one reconciliation: the balance to
// store and the ledger entry explaining the difference. Record is nil when
// the balances already agree.
type Adjustment struct {
	AccountID  string
	NewBalance decimal.Decimal
	Record     *domain.Transaction
}

// Plan computes the adjustment that brings the account to the actual balance.
//
// For assets a shortfall in the books is missing income and a surplus is a
// missed expense. Liabilities invert: owing more than recorded means an
// untracked charge (expense), owing less means an untracked payment (income).
func Plan(acct domain.Account, actual decimal.Decimal, now time.Time) Adjustment {
	diff := actual.Sub(acct.Balance)
	adj := Adjustment{AccountID: acct.ID, NewBalance: actual}
	if diff.Abs().LessThan(Tolerance) {
		adj.NewBalance = acct.Balance
		return adj
	}

	var txType domain.TransactionType
	if acct.Type == domain.AccountLiability {
		if diff.IsPositive() {
			txType = domain.TypeExpense
		} else {
			txType = domain.TypeIncome
		}
	} else {
		if diff.IsPositive() {
			txType = domain.TypeIncome
		} else {
			txType = domain.TypeExpense
		}
	}

	adj.Record = &domain.Transaction{
		ID:          uuid.NewString(),
		Date:        now,
		Description: fmt.Sprintf("Balance reconciliation for %s", acct.Name),
		Amount:      diff.Abs(),
		Type:        txType,
		Category:    "misc",
		AccountID:   acct.ID,
		Tags:        []string{Tag},
		CreatedAt:   now,
	}
	return adj
}
