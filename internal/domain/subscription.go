package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription drives automatic monthly transaction creation. LastProcessed
// is nil until the first auto-post; afterwards it holds the date of the most
// recently materialized transaction, which makes posting idempotent per
// calendar month.
type Subscription struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	DayOfMonth    int             `json:"dayOfMonth"`
	Category      string          `json:"category"`
	Tags          []string        `json:"tags,omitempty"`
	LastProcessed *time.Time      `json:"lastProcessed,omitempty"`
}

// ProcessedIn reports whether the subscription already posted in the given
// month and year.
func (s Subscription) ProcessedIn(year int, month time.Month) bool {
	if s.LastProcessed == nil {
		return false
	}
	return s.LastProcessed.Year() == year && s.LastProcessed.Month() == month
}

// SubscriptionTag is attached to every auto-posted transaction that has no
// tags of its own.
const SubscriptionTag = "subscription"
