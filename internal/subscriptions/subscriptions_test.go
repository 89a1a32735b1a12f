package subscriptions

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/domain"
)

func sub(name string, day int, last *time.Time) domain.Subscription {
	return domain.Subscription{
		ID:            "sub-" + name,
		Name:          name,
		Amount:        decimal.NewFromInt(15),
		DayOfMonth:    day,
		Category:      "entertainment",
		LastProcessed: last,
	}
}

func TestDue_PostsOncePerMonth(t *testing.T) {
	now := time.Date(2026, time.August, 20, 9, 0, 0, 0, time.UTC)

	postings := Due([]domain.Subscription{sub("netflix", 15, nil)}, "checking", now)
	if len(postings) != 1 {
		t.Fatalf("got %d postings, want 1", len(postings))
	}
	p := postings[0]
	if p.Transaction.Date.Day() != 15 {
		t.Errorf("transaction dated day %d, want nominal day 15", p.Transaction.Date.Day())
	}
	if !p.Transaction.IsRecurring {
		t.Error("auto-posted transaction must be marked recurring")
	}
	if !p.Transaction.HasTag(domain.SubscriptionTag) {
		t.Error("auto-posted transaction missing subscription tag")
	}
	if p.Transaction.AccountID != "checking" {
		t.Errorf("account = %q, want checking", p.Transaction.AccountID)
	}
	if p.Subscription.LastProcessed == nil || p.Subscription.LastProcessed.Month() != time.August {
		t.Fatalf("subscription not stamped: %v", p.Subscription.LastProcessed)
	}

	// Re-running with the stamped subscription is a no-op.
	again := Due([]domain.Subscription{p.Subscription}, "checking", now)
	if len(again) != 0 {
		t.Fatalf("second run produced %d postings, want 0", len(again))
	}
}

func TestDue_NotYetDue(t *testing.T) {
	now := time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC)
	if got := Due([]domain.Subscription{sub("netflix", 15, nil)}, "checking", now); len(got) != 0 {
		t.Fatalf("got %d postings before the posting day, want 0", len(got))
	}
}

func TestDue_PostsInNewMonth(t *testing.T) {
	last := time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.August, 16, 9, 0, 0, 0, time.UTC)

	postings := Due([]domain.Subscription{sub("netflix", 15, &last)}, "checking", now)
	if len(postings) != 1 {
		t.Fatalf("got %d postings, want 1 for the new month", len(postings))
	}
}

func TestDue_CustomTagsPreserved(t *testing.T) {
	s := sub("gym", 1, nil)
	s.Tags = []string{"health", "shared"}
	now := time.Date(2026, time.August, 2, 9, 0, 0, 0, time.UTC)

	postings := Due([]domain.Subscription{s}, "checking", now)
	if len(postings) != 1 {
		t.Fatal("expected one posting")
	}
	if !postings[0].Transaction.HasTag("health") || !postings[0].Transaction.HasTag("shared") {
		t.Fatalf("custom tags lost: %v", postings[0].Transaction.Tags)
	}
}

func TestDue_SkipsInvalidDay(t *testing.T) {
	now := time.Date(2026, time.August, 20, 9, 0, 0, 0, time.UTC)
	if got := Due([]domain.Subscription{sub("broken", 0, nil)}, "checking", now); len(got) != 0 {
		t.Fatalf("invalid day produced %d postings", len(got))
	}
}
