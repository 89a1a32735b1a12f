package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistorySnapshot is an immutable point-in-time record of every account
// balance plus the derived totals. Snapshots are append-only except for
// manual correction or deletion through the history editor.
type HistorySnapshot struct {
	ID               string                     `json:"id"`
	Date             time.Time                  `json:"date"`
	AccountBalances  map[string]decimal.Decimal `json:"accountBalances"`
	TotalAssets      decimal.Decimal            `json:"totalAssets"`
	TotalLiabilities decimal.Decimal            `json:"totalLiabilities"`
	NetWorth         decimal.Decimal            `json:"netWorth"`
}

// SnapshotAccounts builds a HistorySnapshot from the given account set,
// taken at now. Net worth is assets minus liabilities.
func SnapshotAccounts(accounts []Account, now time.Time) HistorySnapshot {
	snap := HistorySnapshot{
		Date:             now,
		AccountBalances:  make(map[string]decimal.Decimal, len(accounts)),
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
	}
	for _, a := range accounts {
		snap.AccountBalances[a.ID] = a.Balance
		if a.Type == AccountLiability {
			snap.TotalLiabilities = snap.TotalLiabilities.Add(a.Balance)
		} else {
			snap.TotalAssets = snap.TotalAssets.Add(a.Balance)
		}
	}
	snap.NetWorth = snap.TotalAssets.Sub(snap.TotalLiabilities)
	return snap
}
