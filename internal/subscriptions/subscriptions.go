// Package subscriptions materializes recurring charges into ledger entries.
// Posting runs at startup and is idempotent per calendar month, so restarting
// the server any number of times in a month produces at most one transaction
// per subscription.
package subscriptions

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chronicle-app/chronicle/internal/domain"
)

// Posting pairs a materialized transaction with the subscription update that
// must land atomically with it.
type Posting struct {
	Subscription domain.Subscription
	Transaction  domain.Transaction
}

// Due returns the postings owed for the month containing now. A subscription
// posts once its day of month has arrived and it has not already posted this
// month. The transaction is dated to the subscription's nominal day even when
// posting runs later in the month.
func Due(subs []domain.Subscription, defaultAccountID string, now time.Time) []Posting {
	year, month, today := now.Date()

	var due []Posting
	for _, sub := range subs {
		if sub.DayOfMonth < 1 || sub.DayOfMonth > 31 {
			continue
		}
		if today < sub.DayOfMonth || sub.ProcessedIn(year, month) {
			continue
		}

		posted := time.Date(year, month, sub.DayOfMonth, 0, 0, 0, 0, now.Location())
		tags := sub.Tags
		if len(tags) == 0 {
			tags = []string{domain.SubscriptionTag}
		}

		updated := sub
		updated.LastProcessed = &posted

		due = append(due, Posting{
			Subscription: updated,
			Transaction: domain.Transaction{
				ID:          uuid.NewString(),
				Date:        posted,
				Description: fmt.Sprintf("%s (subscription)", sub.Name),
				Amount:      sub.Amount,
				Type:        domain.TypeExpense,
				Category:    sub.Category,
				AccountID:   defaultAccountID,
				Tags:        tags,
				IsRecurring: true,
				CreatedAt:   now,
			},
		})
	}
	return due
}
