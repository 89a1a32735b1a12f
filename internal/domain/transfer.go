package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer moves money between exactly two accounts atomically. A transfer
// has no income/expense type; direction alone determines the sign of each
// leg's balance effect.
type Transfer struct {
	ID          string          `json:"id"`
	FromID      string          `json:"fromId"`
	ToID        string          `json:"toId"`
	FromName    string          `json:"fromName"`
	ToName      string          `json:"toName"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}
