package scribe

import (
	"fmt"
	"strings"
	"time"

	"github.com/chronicle-app/chronicle/internal/domain"
)

// buildPrompt assembles the instruction block sent ahead of the user's text.
// The model sees the live category and account names so it can reference them
// exactly instead of inventing near-misses.
func buildPrompt(categories []domain.Category, accounts []domain.Account, defaultAccount string, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are a bookkeeping assistant for a personal finance ledger.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Read the user's note and convert it into ledger actions.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of action objects, in the order things happened.\n\n")

	b.WriteString("Every object has an \"action\" field, one of:\n")
	b.WriteString("- \"transaction\": {\"date\", \"description\", \"amount\", \"type\": \"income\"|\"expense\", \"category\", \"account\", \"tags\"?, \"splits\"?}\n")
	b.WriteString("- \"add_account\": {\"name\", \"type\": \"asset\"|\"liability\", \"subtype\"?, \"balance\"}\n")
	b.WriteString("- \"update_account_balance\": {\"account\", \"balance\"}\n")
	b.WriteString("- \"add_subscription\": {\"name\", \"amount\", \"dayOfMonth\", \"category\"}\n")
	b.WriteString("- \"transfer\": {\"from\", \"to\", \"amount\", \"date\"?, \"description\"?}\n")
	b.WriteString("- \"add_category\": {\"name\", \"budget\"}\n")
	b.WriteString("- \"update_category_budget\": {\"category\", \"budget\", \"month\"? as \"YYYY-MM\"}\n")
	b.WriteString("- \"record_history_point\": {\"account\", \"date\", \"balance\"}\n")
	b.WriteString("- \"add_payable\": {\"target\", \"amount\", \"description\"?, \"date\"?}\n\n")

	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Today is %s. Dates are ISO \"YYYY-MM-DD\"; resolve relative dates against today.\n", now.Format("2006-01-02"))
	b.WriteString("- Amounts are positive numbers; direction comes from \"type\".\n")
	b.WriteString("- When someone owes the user part of an expense, add a \"splits\" breakdown where the owed part has category \"receivable\" and a \"target\" naming who owes it. Split amounts must sum to the transaction amount.\n")
	b.WriteString("- When the user owes someone, use \"add_payable\".\n")
	b.WriteString("- Use an existing category when one fits; only use \"add_category\" when the user clearly asks for a new one.\n")

	if len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "\nCategories: %s\n", strings.Join(names, ", "))
	}
	if len(accounts) > 0 {
		names := make([]string, 0, len(accounts))
		for _, a := range accounts {
			names = append(names, fmt.Sprintf("%s (%s)", a.Name, a.Type))
		}
		fmt.Fprintf(&b, "Accounts: %s\n", strings.Join(names, ", "))
	}
	if defaultAccount != "" {
		fmt.Fprintf(&b, "When no account is named, use %q.\n", defaultAccount)
	}

	b.WriteString("\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")
	return b.String()
}
