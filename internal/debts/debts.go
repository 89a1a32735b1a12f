// Package debts validates split breakdowns and drives the receivable/payable
// lifecycle. A debt split starts open and ends repaid or forgiven; each
// terminal transition carries a settlement transaction so the ledger stays the
// single record of what happened.
package debts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
)

// SplitTolerance is the largest allowed rounding gap between a transaction's
// amount and the sum of its splits.
var SplitTolerance = decimal.RequireFromString("0.02")

// ErrSplitMismatch reports a split breakdown that does not add up to the
// parent transaction amount.
type ErrSplitMismatch struct {
	Amount decimal.Decimal
	Sum    decimal.Decimal
}

func (e *ErrSplitMismatch) Error() string {
	return fmt.Sprintf("splits sum to %s but transaction amount is %s", e.Sum, e.Amount)
}

// ValidateTotal checks that the splits account for the full transaction
// amount within SplitTolerance. Transactions without splits always pass.
func ValidateTotal(amount decimal.Decimal, splits []domain.Split) error {
	if len(splits) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	if sum.Sub(amount).Abs().GreaterThan(SplitTolerance) {
		return &ErrSplitMismatch{Amount: amount, Sum: sum}
	}
	return nil
}

// Normalize assigns IDs to new splits and fills the debt bookkeeping fields:
// debt splits get an open status and a default counterparty, non-debt splits
// have those fields cleared. Existing statuses on debt splits are preserved so
// editing a transaction cannot reopen a settled debt.
func Normalize(splits []domain.Split) []domain.Split {
	if len(splits) == 0 {
		return nil
	}
	out := make([]domain.Split, len(splits))
	for i, s := range splits {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if domain.IsDebtCategory(s.Category) {
			if s.Target == "" {
				s.Target = domain.UnassignedTarget
			}
			if s.Status == "" {
				s.Status = domain.StatusOpen
			}
		} else {
			s.Target = ""
			s.Status = ""
		}
		out[i] = s
	}
	return out
}

// Entry is one open debt split joined with its parent transaction, the unit
// the receivables view lists and settles.
type Entry struct {
	TransactionID string          `json:"transactionId"`
	SplitID       string          `json:"splitId"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Target        string          `json:"target"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Note          string          `json:"note,omitempty"`
}

// Book groups the open debt entries by direction.
type Book struct {
	Receivables     []Entry         `json:"receivables"`
	Payables        []Entry         `json:"payables"`
	TotalReceivable decimal.Decimal `json:"totalReceivable"`
	TotalPayable    decimal.Decimal `json:"totalPayable"`
}

// Collect scans the ledger for open debt splits and builds the book.
func Collect(txs []domain.Transaction) Book {
	book := Book{}
	for _, tx := range txs {
		for _, s := range tx.Splits {
			if !s.Open() {
				continue
			}
			e := Entry{
				TransactionID: tx.ID,
				SplitID:       s.ID,
				Date:          tx.Date,
				Description:   tx.Description,
				Target:        s.Target,
				Amount:        s.Amount,
				Category:      s.Category,
				Note:          s.Note,
			}
			switch s.Category {
			case domain.CategoryReceivable:
				book.Receivables = append(book.Receivables, e)
				book.TotalReceivable = book.TotalReceivable.Add(s.Amount)
			case domain.CategoryPayable:
				book.Payables = append(book.Payables, e)
				book.TotalPayable = book.TotalPayable.Add(s.Amount)
			}
		}
	}
	return book
}

// Resolution is the requested terminal transition for one debt split.
type Resolution struct {
	Status SplitStatus
	// AccountID is where repayment money lands (payable: leaves from).
	// domain.CashOtherAccountID means the money moved outside tracked
	// accounts and no balance is touched. Ignored for forgiveness.
	AccountID string
}

// SplitStatus aliases the domain status for resolution requests; only the
// terminal values are accepted.
type SplitStatus = domain.SplitStatus

// ErrNotOpen reports an attempt to resolve a split twice.
var ErrNotOpen = fmt.Errorf("debt split is not open")

// Settlement is everything a resolution changes: the transaction with the
// split's new status, an optional settlement ledger entry, and whether that
// entry's amount should be applied to the chosen account's balance.
type Settlement struct {
	Updated      domain.Transaction
	Record       *domain.Transaction
	ApplyBalance bool
}

// Resolve transitions one debt split out of the open state.
//
// Forgiving a payable books a "debt relief" income and forgiving a receivable
// books a "bad debt" expense; neither touches a balance, the money never
// moved. Repaying a payable books an expense and repaying a receivable books a
// repayment credit, both applied to the chosen account unless it is the
// untracked-cash sentinel.
func Resolve(tx domain.Transaction, splitID string, res Resolution, now time.Time) (Settlement, error) {
	idx := -1
	for i, s := range tx.Splits {
		if s.ID == splitID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Settlement{}, fmt.Errorf("transaction %s has no split %s", tx.ID, splitID)
	}
	split := tx.Splits[idx]
	if !split.Open() {
		return Settlement{}, ErrNotOpen
	}
	if res.Status != domain.StatusRepaid && res.Status != domain.StatusForgiven {
		return Settlement{}, fmt.Errorf("invalid resolution status %q", res.Status)
	}

	updated := tx
	updated.Splits = make([]domain.Split, len(tx.Splits))
	copy(updated.Splits, tx.Splits)
	updated.Splits[idx].Status = res.Status

	record := domain.Transaction{
		ID:        uuid.NewString(),
		Date:      now,
		Amount:    split.Amount,
		CreatedAt: now,
	}

	settlement := Settlement{Updated: updated}
	switch {
	case res.Status == domain.StatusForgiven && split.Category == domain.CategoryPayable:
		record.Type = domain.TypeIncome
		record.Category = "debt relief"
		record.Description = fmt.Sprintf("Forgiven debt to %s", split.Target)
	case res.Status == domain.StatusForgiven && split.Category == domain.CategoryReceivable:
		record.Type = domain.TypeExpense
		record.Category = "bad debt"
		record.Description = fmt.Sprintf("Wrote off debt from %s", split.Target)
	case res.Status == domain.StatusRepaid && split.Category == domain.CategoryPayable:
		record.Type = domain.TypeExpense
		record.Category = domain.CategoryPayable
		record.Description = fmt.Sprintf("Repaid %s", split.Target)
		record.AccountID = res.AccountID
		settlement.ApplyBalance = res.AccountID != "" && res.AccountID != domain.CashOtherAccountID
	default: // repaid receivable
		record.Type = domain.TypeRepayment
		record.Category = domain.CategoryReceivable
		record.Description = fmt.Sprintf("Repayment from %s", split.Target)
		record.AccountID = res.AccountID
		settlement.ApplyBalance = res.AccountID != "" && res.AccountID != domain.CashOtherAccountID
	}
	settlement.Record = &record
	return settlement, nil
}
