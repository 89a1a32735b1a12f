// Package ledger computes the signed balance effect of ledger events and
// their exact inverses. Every balance mutation in the system flows through
// these functions so the sign convention lives in one place.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
)

// EffectiveDelta is the signed change a transaction of the given amount and
// type causes on an account of the given type:
//
//	delta = amount * sign(type) * polarity(accountType)
//
// For an asset account income increases the balance and expense decreases
// it. For a liability the rule inverts: income pays debt down, expense
// charges it up. Repayment moves money like income.
func EffectiveDelta(amount decimal.Decimal, txType domain.TransactionType, acctType domain.AccountType) decimal.Decimal {
	return amount.Mul(txType.Sign()).Mul(acctType.Polarity())
}

// Apply returns the balance after posting a transaction.
func Apply(balance, amount decimal.Decimal, txType domain.TransactionType, acctType domain.AccountType) decimal.Decimal {
	return balance.Add(EffectiveDelta(amount, txType, acctType))
}

// Revert returns the balance after removing a previously posted transaction.
// Revert(Apply(b, ...), ...) == b for every type pair.
func Revert(balance, amount decimal.Decimal, txType domain.TransactionType, acctType domain.AccountType) decimal.Decimal {
	return balance.Sub(EffectiveDelta(amount, txType, acctType))
}

// TransferLegs returns the post-transfer balances of both sides. The from
// side loses the amount when it is an asset and gains owed amount when it is
// a liability (funding a transfer out of a credit line increases the debt).
// The to side mirrors: assets grow, liabilities shrink (paying a card down).
func TransferLegs(from, to domain.Account, amount decimal.Decimal) (newFrom, newTo decimal.Decimal) {
	if from.Type == domain.AccountLiability {
		newFrom = from.Balance.Add(amount)
	} else {
		newFrom = from.Balance.Sub(amount)
	}
	if to.Type == domain.AccountLiability {
		newTo = to.Balance.Sub(amount)
	} else {
		newTo = to.Balance.Add(amount)
	}
	return newFrom, newTo
}

// Effect describes one transaction's balance-relevant fields, used when
// staging an edit.
type Effect struct {
	AccountID string
	Amount    decimal.Decimal
	Type      domain.TransactionType
}

// BalanceChange is a staged new balance for one account, computed from
// explicit before values rather than re-read state.
type BalanceChange struct {
	AccountID  string
	NewBalance decimal.Decimal
}

// StageEdit computes the balance writes needed to replace an old transaction
// effect with a new one. accounts maps id to the current stored account. An
// effect naming an unknown or empty account id contributes nothing.
//
// When old and new effects hit the same account the two deltas are netted
// algebraically into a single write: queuing a revert and an apply as
// independent writes against the same stale in-memory balance would lose one
// of them, since batched writes do not observe each other's effects.
func StageEdit(old, updated *Effect, accounts map[string]domain.Account) []BalanceChange {
	resolve := func(e *Effect) (domain.Account, bool) {
		if e == nil || e.AccountID == "" || e.AccountID == domain.CashOtherAccountID {
			return domain.Account{}, false
		}
		acct, ok := accounts[e.AccountID]
		return acct, ok
	}

	oldAcct, hasOld := resolve(old)
	newAcct, hasNew := resolve(updated)

	if hasOld && hasNew && oldAcct.ID == newAcct.ID {
		bal := Revert(oldAcct.Balance, old.Amount, old.Type, oldAcct.Type)
		bal = Apply(bal, updated.Amount, updated.Type, newAcct.Type)
		return []BalanceChange{{AccountID: oldAcct.ID, NewBalance: bal}}
	}

	var changes []BalanceChange
	if hasOld {
		changes = append(changes, BalanceChange{
			AccountID:  oldAcct.ID,
			NewBalance: Revert(oldAcct.Balance, old.Amount, old.Type, oldAcct.Type),
		})
	}
	if hasNew {
		changes = append(changes, BalanceChange{
			AccountID:  newAcct.ID,
			NewBalance: Apply(newAcct.Balance, updated.Amount, updated.Type, newAcct.Type),
		})
	}
	return changes
}
