package scribe

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeActions_MixedBatch(t *testing.T) {
	payload := `[
		{"action":"transaction","description":"Groceries","amount":52.40,"type":"expense","category":"groceries","account":"Checking"},
		{"action":"transfer","from":"Checking","to":"Savings","amount":200},
		{"action":"add_payable","target":"Alex","amount":30,"description":"Concert ticket"}
	]`

	actions, err := DecodeActions(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3", len(actions))
	}

	tx, ok := actions[0].(TransactionAction)
	if !ok {
		t.Fatalf("action 0 is %T", actions[0])
	}
	if !tx.Amount.Equal(decimal.RequireFromString("52.40")) {
		t.Errorf("amount = %s", tx.Amount)
	}
	if _, ok := actions[1].(TransferAction); !ok {
		t.Fatalf("action 1 is %T", actions[1])
	}
	pay, ok := actions[2].(AddPayableAction)
	if !ok {
		t.Fatalf("action 2 is %T", actions[2])
	}
	if pay.Target != "Alex" {
		t.Errorf("target = %q", pay.Target)
	}
}

func TestDecodeActions_SingleObjectWrapped(t *testing.T) {
	actions, err := DecodeActions(`{"action":"add_category","name":"travel","budget":250}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if _, ok := actions[0].(AddCategoryAction); !ok {
		t.Fatalf("got %T", actions[0])
	}
}

func TestDecodeActions_UnknownKindFailsBatch(t *testing.T) {
	_, err := DecodeActions(`[
		{"action":"transaction","description":"ok","amount":1,"type":"expense","category":"misc"},
		{"action":"launch_rocket"}
	]`)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "launch_rocket") {
		t.Errorf("error does not name the unknown action: %v", err)
	}
}

func TestDecodeActions_MissingTag(t *testing.T) {
	if _, err := DecodeActions(`[{"description":"no tag"}]`); err == nil {
		t.Fatal("expected error for missing action field")
	}
}

func TestDecodeActions_SplitPayload(t *testing.T) {
	actions, err := DecodeActions(`[{
		"action":"transaction","description":"Dinner","amount":90,"type":"expense","category":"food",
		"splits":[
			{"amount":45,"category":"food"},
			{"amount":45,"category":"receivable","target":"Sam"}
		]
	}]`)
	if err != nil {
		t.Fatal(err)
	}
	tx := actions[0].(TransactionAction)
	if len(tx.Splits) != 2 || tx.Splits[1].Target != "Sam" {
		t.Fatalf("splits = %+v", tx.Splits)
	}
}

func TestDecodeActions_Empty(t *testing.T) {
	if _, err := DecodeActions("   "); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
