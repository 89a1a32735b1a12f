package scribe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action is one structured instruction decoded from a model response. The
// concrete type determines what it does; apply.go matches on every variant
// and an unknown kind fails decoding, so a model inventing a new action can
// never be silently dropped.
type Action interface {
	kind() string
}

// SplitPayload mirrors the split shape the model is asked to emit.
type SplitPayload struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Type     string          `json:"type,omitempty"`
	Target   string          `json:"target,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// TransactionAction books a single income or expense.
type TransactionAction struct {
	Date        string          `json:"date,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Account     string          `json:"account,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Splits      []SplitPayload  `json:"splits,omitempty"`
}

// AddAccountAction creates a tracked account with an opening balance.
type AddAccountAction struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Subtype string          `json:"subtype,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

// UpdateAccountBalanceAction sets an account's balance outright.
type UpdateAccountBalanceAction struct {
	Account string          `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

// AddSubscriptionAction registers a recurring monthly charge.
type AddSubscriptionAction struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	DayOfMonth int             `json:"dayOfMonth"`
	Category   string          `json:"category"`
}

// TransferAction moves money between two tracked accounts.
type TransferAction struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date,omitempty"`
	Description string          `json:"description,omitempty"`
}

// AddCategoryAction creates a spending category.
type AddCategoryAction struct {
	Name   string          `json:"name"`
	Budget decimal.Decimal `json:"budget"`
}

// UpdateCategoryBudgetAction changes a category's budget, for one month when
// Month is set ("YYYY-MM") and as the ongoing base budget otherwise.
type UpdateCategoryBudgetAction struct {
	Category string          `json:"category"`
	Budget   decimal.Decimal `json:"budget"`
	Month    string          `json:"month,omitempty"`
}

// RecordHistoryPointAction stores a manual balance snapshot for one account
// on a past date.
type RecordHistoryPointAction struct {
	Account string          `json:"account"`
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// AddPayableAction records money owed to someone without a backing expense.
type AddPayableAction struct {
	Target      string          `json:"target"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date,omitempty"`
}

func (TransactionAction) kind() string          { return "transaction" }
func (AddAccountAction) kind() string           { return "add_account" }
func (UpdateAccountBalanceAction) kind() string { return "update_account_balance" }
func (AddSubscriptionAction) kind() string      { return "add_subscription" }
func (TransferAction) kind() string             { return "transfer" }
func (AddCategoryAction) kind() string          { return "add_category" }
func (UpdateCategoryBudgetAction) kind() string { return "update_category_budget" }
func (RecordHistoryPointAction) kind() string   { return "record_history_point" }
func (AddPayableAction) kind() string           { return "add_payable" }

// DecodeActions parses a cleaned model response into actions. The payload is
// normally a JSON array; a bare object is accepted and treated as a
// one-element batch. Any element with a missing or unknown "action" tag fails
// the whole batch.
func DecodeActions(payload string) ([]Action, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty model response")
	}
	if strings.HasPrefix(payload, "{") {
		payload = "[" + payload + "]"
	}

	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raws); err != nil {
		return nil, fmt.Errorf("decode action batch: %w", err)
	}

	actions := make([]Action, 0, len(raws))
	for i, raw := range raws {
		var tag struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(raw, &tag); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}

		var (
			act Action
			err error
		)
		switch tag.Action {
		case "transaction":
			act, err = decodeAs[TransactionAction](raw)
		case "add_account":
			act, err = decodeAs[AddAccountAction](raw)
		case "update_account_balance":
			act, err = decodeAs[UpdateAccountBalanceAction](raw)
		case "add_subscription":
			act, err = decodeAs[AddSubscriptionAction](raw)
		case "transfer":
			act, err = decodeAs[TransferAction](raw)
		case "add_category":
			act, err = decodeAs[AddCategoryAction](raw)
		case "update_category_budget":
			act, err = decodeAs[UpdateCategoryBudgetAction](raw)
		case "record_history_point":
			act, err = decodeAs[RecordHistoryPointAction](raw)
		case "add_payable":
			act, err = decodeAs[AddPayableAction](raw)
		case "":
			return nil, fmt.Errorf("action %d: missing \"action\" field", i)
		default:
			return nil, fmt.Errorf("action %d: unknown action %q", i, tag.Action)
		}
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, tag.Action, err)
		}
		actions = append(actions, act)
	}
	return actions, nil
}

func decodeAs[T Action](raw json.RawMessage) (Action, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
