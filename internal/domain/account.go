package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType distinguishes money owned from money owed. The sign of every
// balance mutation depends on it.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountAsset || t == AccountLiability
}

// Polarity returns +1 for asset accounts and -1 for liability accounts.
// An asset balance grows with income; a liability balance grows with charges.
func (t AccountType) Polarity() decimal.Decimal {
	if t == AccountLiability {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Account subtypes are descriptive only; they never affect balance math.
const (
	SubtypeChecking   = "checking"
	SubtypeSavings    = "savings"
	SubtypeInvestment = "investment"
	SubtypeTangible   = "tangible"
	SubtypeCreditCard = "credit_card"
	SubtypeLoan       = "loan"
	SubtypeCash       = "cash"
	SubtypeOther      = "other"
)

// CashOtherAccountID is the sentinel for money that is not tracked by any
// account (pocket cash, a friend paying directly). Operations targeting it
// record the transaction but never touch a balance.
const CashOtherAccountID = "cash_other"

// Account is one tracked balance. Balance is the single source of truth for
// current state; it is mutated in the same write batch as the ledger record
// that caused the change and is never recomputed from history on read.
type Account struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    AccountType     `json:"type"`
	Subtype string          `json:"subtype"`
	Balance decimal.Decimal `json:"balance"`
}

// NormalizeName lowercases and trims an account or category name for
// case-insensitive matching (the Scribe refers to accounts by spoken name).
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SlugID derives a stable document id from a display name.
func SlugID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
