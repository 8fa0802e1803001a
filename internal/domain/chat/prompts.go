package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

const classifierPromptTemplate = `You are an expense and debt tracking assistant for students in India. When mentioning amounts, always use Indian Rupees (₹) as the currency symbol. Today's date is %s. Analyze the user's message and determine their intent.

You can track BOTH expenses AND debts. Never say you can only track expenses.

Possible intents:
1. "add_expense" - the user spent money
2. "add_debt" - money owed or borrowed between the user and a friend
3. "query_expenses" - a question about their spending
4. "query_debts" - a question about their debts
5. "set_budget" - set the monthly budget to an amount (0 removes the budget)
6. "set_budget_left" - the user wants a specific amount LEFT to spend this month ("I want 2000 left", "make my remaining budget 500")
7. "reset_today" - the user wants today's displayed spending reset to 0
8. "general_help" - help using the app
9. "unclear" - the message is unclear

DEBT KEYWORDS: "debt", "debts", "owe", "owes", "owed", "lent", "lend", "borrow", "borrowed", "loan", "they owe me", "I owe", "paid for them", "gave to", or any money between people.

For "add_expense" extract:
- amount (number)
- category, one of: %s
- description (what they bought)
- date:
  * a date with a year like "july 10 2024", "08/10/2025" (DD/MM/YYYY) or "2025-08-10" -> ISO "YYYY-MM-DD"
  * a date without a year like "august 10" or "08/10" -> "NEED_YEAR:august 10"
  * "yesterday" -> the ISO date of yesterday
  * "last week", "last month" -> "NEED_CLARIFICATION:last week"
  * no date -> "TODAY"
  * "july 10 2024" means July 10, 2024, NOT today

For "add_debt" extract:
- friend_name
- debt_amount (number)
- debt_type: "%s" if the user owes the friend ("I owe", "I borrowed", "pay back"), "%s" if the friend owes the user ("owes me", "lent to", "gave to", "paid for them")
- debt_description (what it was for)

For "set_budget" extract budget_amount. For "set_budget_left" extract budget_left (the amount that should remain).

For "query_expenses" set query_type to one of: total, today, month, category, recent. Use category_filter for category questions.
For "query_debts" set query_type to one of: total_owed, total_owing, net_balance, list.

Always provide a helpful response_text.`

const insightsSystemPrompt = "You are a helpful expense tracking assistant for students in India that provides insights about spending patterns and answers questions about expenses. When mentioning amounts, always use Indian Rupees (₹) as the currency symbol. Be conversational, friendly, and provide actionable advice."

// ClassifierPrompt renders the system prompt for the given day.
func ClassifierPrompt(now time.Time) string {
	names := make([]string, len(ledger.Categories))
	for i, c := range ledger.Categories {
		names[i] = string(c)
	}
	return fmt.Sprintf(classifierPromptTemplate,
		now.Format(isoLayout),
		strings.Join(names, ", "),
		ledger.IOweThem,
		ledger.TheyOweMe,
	)
}

// IntentSchema is the structured-output schema sent with every classification.
func IntentSchema() *Schema {
	str := func() *Schema { return &Schema{Type: "string", Nullable: true} }
	num := func() *Schema { return &Schema{Type: "number", Nullable: true} }

	intents := []string{
		string(KindAddExpense), string(KindAddDebt), string(KindQueryExpenses), string(KindQueryDebts),
		string(KindSetBudget), string(KindSetBudgetLeft), string(KindResetToday),
		string(KindGeneralHelp), string(KindUnclear),
	}

	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"intent":           {Type: "string", Enum: intents},
			"amount":           num(),
			"category":         str(),
			"description":      str(),
			"date":             str(),
			"query_type":       str(),
			"category_filter":  str(),
			"budget_amount":    num(),
			"budget_left":      num(),
			"friend_name":      str(),
			"debt_amount":      num(),
			"debt_type":        str(),
			"debt_description": str(),
			"response_text":    {Type: "string"},
		},
		Required: []string{"intent", "response_text"},
	}
}
