package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry. Repayment is a reimbursement of
// a receivable: it moves money like income but is excluded from income and
// expense aggregates.
type TransactionType string

const (
	TypeIncome    TransactionType = "income"
	TypeExpense   TransactionType = "expense"
	TypeRepayment TransactionType = "repayment"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense || t == TypeRepayment
}

// Sign returns +1 for entries that move money toward the user (income,
// repayment) and -1 for expense.
func (t TransactionType) Sign() decimal.Decimal {
	if t == TypeExpense {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// SplitStatus tracks the lifecycle of a debt split. Only receivable and
// payable splits carry a status; transitions are open -> repaid and
// open -> forgiven, both terminal.
type SplitStatus string

const (
	StatusOpen     SplitStatus = "open"
	StatusRepaid   SplitStatus = "repaid"
	StatusForgiven SplitStatus = "forgiven"
)

// Categories with debt semantics. Splits in these categories track a
// counterparty and a resolution status.
const (
	CategoryReceivable = "receivable"
	CategoryPayable    = "payable"
)

// UnassignedTarget is substituted when a debt split names no counterparty.
const UnassignedTarget = "Unassigned"

// IsDebtCategory reports whether a category carries receivable/payable
// semantics.
func IsDebtCategory(category string) bool {
	return category == CategoryReceivable || category == CategoryPayable
}

// Split is a sub-allocation of one transaction's amount into its own
// category/type bucket. Target and Status are meaningful only for debt
// categories.
type Split struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Type     TransactionType `json:"type"`
	Target   string          `json:"target,omitempty"`
	Note     string          `json:"note,omitempty"`
	Status   SplitStatus     `json:"status,omitempty"`
}

// Open reports whether the split is an unresolved debt.
func (s Split) Open() bool {
	return IsDebtCategory(s.Category) && s.Status == StatusOpen
}

// Transaction is one ledger entry. When Splits is non-empty the transaction's
// own Category and Type are secondary to the split breakdown for reporting;
// the balance effect still follows Amount and Type.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	AccountID   string          `json:"accountId,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	IsRecurring bool            `json:"isRecurring"`
	Splits      []Split         `json:"splits,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// HasSplits reports whether the transaction carries a split breakdown.
func (t Transaction) HasSplits() bool {
	return len(t.Splits) > 0
}

// HasTag reports whether the transaction carries the given tag.
func (t Transaction) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// MonthKey returns the YYYY-MM bucket the transaction belongs to.
func (t Transaction) MonthKey() string {
	return t.Date.Format("2006-01")
}
