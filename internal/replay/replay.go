// Package replay reconstructs an account's historical balance series from the
// transaction and transfer log. The series is anchored to the account's
// current stored balance and walks daily net deltas backward, so the chart can
// never drift from the authoritative balance: the last point is that balance
// by construction.
package replay

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
)

// Window selects how far back the series reaches from today.
type Window string

const (
	WindowMonth   Window = "1m"
	Window3Months Window = "3m"
	Window6Months Window = "6m"
	WindowYear    Window = "1y"
	WindowAll     Window = "all"
)

// maxDays bounds the backward walk so malformed event dates cannot produce an
// unbounded loop.
const maxDays = 5000

// Point is one end-of-day balance.
type Point struct {
	Date    civil.Date      `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// dayKey buckets an event timestamp into its local calendar day.
func dayKey(t time.Time) civil.Date {
	return civil.DateOf(t.Local())
}

// DailyDeltas nets every event touching the account into per-day signed
// contributions, using the same sign rule the delta engine applies on write.
func DailyDeltas(accountID string, acctType domain.AccountType, txs []domain.Transaction, transfers []domain.Transfer) map[civil.Date]decimal.Decimal {
	deltas := make(map[civil.Date]decimal.Decimal)
	add := func(day civil.Date, d decimal.Decimal) {
		deltas[day] = deltas[day].Add(d)
	}

	for _, tx := range txs {
		if tx.AccountID != accountID {
			continue
		}
		add(dayKey(tx.Date), tx.Amount.Mul(tx.Type.Sign()).Mul(acctType.Polarity()))
	}
	for _, tr := range transfers {
		if tr.ToID == accountID {
			if acctType == domain.AccountLiability {
				add(dayKey(tr.Date), tr.Amount.Neg())
			} else {
				add(dayKey(tr.Date), tr.Amount)
			}
		}
		if tr.FromID == accountID {
			if acctType == domain.AccountLiability {
				add(dayKey(tr.Date), tr.Amount)
			} else {
				add(dayKey(tr.Date), tr.Amount.Neg())
			}
		}
	}
	return deltas
}

// windowStart returns the first day of the requested window. Fixed windows
// cover their full range so accounts show a flat line before their first
// event; WindowAll starts at the earliest event.
func windowStart(w Window, today civil.Date, deltas map[civil.Date]decimal.Decimal) civil.Date {
	t := today.In(time.Local)
	switch w {
	case WindowMonth:
		return civil.DateOf(t.AddDate(0, -1, 0))
	case Window3Months:
		return civil.DateOf(t.AddDate(0, -3, 0))
	case Window6Months:
		return civil.DateOf(t.AddDate(0, -6, 0))
	case WindowYear:
		return civil.DateOf(t.AddDate(-1, 0, 0))
	}
	earliest := today
	for day := range deltas {
		if day.Before(earliest) {
			earliest = day
		}
	}
	return earliest
}

// Series produces the (day, end-of-day balance) sequence for one account in
// chronological order. It starts at today's stored balance and subtracts each
// day's net delta to step backward; a day with no events continues flat.
//
// Accounts with no transaction or transfer activity at all (legacy imports
// that only ever had manual snapshots) fall back to recorded history points
// filtered to the window.
func Series(acct domain.Account, txs []domain.Transaction, transfers []domain.Transfer, history []domain.HistorySnapshot, w Window, today civil.Date) []Point {
	deltas := DailyDeltas(acct.ID, acct.Type, txs, transfers)
	if len(deltas) == 0 {
		return snapshotSeries(acct.ID, history, w, today)
	}

	start := windowStart(w, today, deltas)

	var points []Point
	running := acct.Balance
	day := today
	for steps := 0; !day.Before(start) && steps < maxDays; steps++ {
		points = append(points, Point{Date: day, Balance: running})
		running = running.Sub(deltas[day])
		day = day.AddDays(-1)
	}

	// Emitted newest-first; callers want chronological order.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points
}

// snapshotSeries serves recorded history points for accounts without ledger
// activity.
func snapshotSeries(accountID string, history []domain.HistorySnapshot, w Window, today civil.Date) []Point {
	var cutoff civil.Date
	t := today.In(time.Local)
	switch w {
	case WindowMonth:
		cutoff = civil.DateOf(t.AddDate(0, -1, 0))
	case Window3Months:
		cutoff = civil.DateOf(t.AddDate(0, -3, 0))
	case Window6Months:
		cutoff = civil.DateOf(t.AddDate(0, -6, 0))
	case WindowYear:
		cutoff = civil.DateOf(t.AddDate(-1, 0, 0))
	default:
		cutoff = civil.Date{Year: 1, Month: time.January, Day: 1}
	}

	var points []Point
	for _, snap := range history {
		bal, ok := snap.AccountBalances[accountID]
		if !ok {
			continue
		}
		day := dayKey(snap.Date)
		if day.Before(cutoff) {
			continue
		}
		points = append(points, Point{Date: day, Balance: bal})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}
