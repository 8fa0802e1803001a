package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
	"github.com/FACorreiaa/student-expense-tracker/pkg/money"
)

const (
	noExpensesText      = "You haven't recorded any expenses yet. Start by adding your first expense using the form above or tell me something like 'I spent ₹50 on coffee at canteen'."
	nothingTodayText    = "Great news! You haven't spent anything today yet. Your wallet is safe! 💸"
	readExpensesFailure = "I couldn't read your expenses right now. Please try again in a moment."
	readDebtsFailure    = "I couldn't read your debts right now. Please try again in a moment."

	recentForOracle  = 10
	insightCacheSize = 256
)

// Insights answers spending and debt questions, computing directly where it
// can and asking the oracle only for open-ended questions.
type Insights struct {
	store   RecordStore
	oracle  Oracle
	timeout time.Duration
	cache   *lru.Cache[string, string]
	logger  *slog.Logger
}

func NewInsights(store RecordStore, oracle Oracle, timeout time.Duration, logger *slog.Logger) *Insights {
	cache, _ := lru.New[string, string](insightCacheSize)
	return &Insights{store: store, oracle: oracle, timeout: timeout, cache: cache, logger: logger}
}

// Expenses answers a spending question. It never fails; errors become text.
func (i *Insights) Expenses(ctx context.Context, message string, q *QueryExpenses, now time.Time) string {
	expenses, err := i.store.ListExpenses(ctx, ledger.ExpenseFilter{})
	if err != nil {
		i.logger.Error("failed to list expenses for insights", slog.Any("error", err))
		return readExpensesFailure
	}
	if len(expenses) == 0 {
		return noExpensesText
	}

	lower := strings.ToLower(message)
	if strings.Contains(lower, "today") {
		return i.todayAnswer(ctx, expenses, now)
	}
	if strings.Contains(lower, "total") || strings.Contains(lower, "how much") {
		return i.totalAnswer(ctx, expenses, now)
	}

	key := insightKey(lower, q, expenses)
	if text, ok := i.cache.Get(key); ok {
		return text
	}

	text, err := i.generate(ctx, message, expenses, now)
	if err != nil {
		i.logger.Warn("insight generation failed, answering directly",
			slog.String("kind", ErrorKind(err).String()),
			slog.Any("error", err),
		)
		return i.totalAnswer(ctx, expenses, now)
	}
	i.cache.Add(key, text)
	return text
}

func (i *Insights) todayAnswer(ctx context.Context, expenses []ledger.Expense, now time.Time) string {
	total, overridden, err := ledger.EffectiveToday(ctx, i.store, expenses, now)
	if err != nil {
		i.logger.Warn("failed to read today override", slog.Any("error", err))
		total = ledger.Total(ledger.ExpensesOn(expenses, now))
		overridden = false
	}
	if overridden {
		return fmt.Sprintf("Today's spending is set to %s.", money.Format(total))
	}
	if total.IsZero() {
		return nothingTodayText
	}

	todays := ledger.ExpensesOn(expenses, now)
	parts := make([]string, len(todays))
	for n, e := range todays {
		parts[n] = fmt.Sprintf("%s on %s", money.Format(e.Amount), e.Description)
	}
	return fmt.Sprintf("Today you've spent %s across %d %s. %s.",
		money.Format(total), len(todays), plural(len(todays), "expense", "expenses"), strings.Join(parts, ", "))
}

func (i *Insights) totalAnswer(ctx context.Context, expenses []ledger.Expense, now time.Time) string {
	today, _, err := ledger.EffectiveToday(ctx, i.store, expenses, now)
	if err != nil {
		today = ledger.Total(ledger.ExpensesOn(expenses, now))
	}
	return fmt.Sprintf("Your total expenses so far are %s across %d transactions. Today's spending: %s.",
		money.Format(ledger.Total(expenses)), len(expenses), money.Format(today))
}

type insightExpense struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (i *Insights) generate(ctx context.Context, question string, expenses []ledger.Expense, now time.Time) (string, error) {
	recent := expenses
	if len(recent) > recentForOracle {
		recent = recent[:recentForOracle]
	}
	rows := make([]insightExpense, len(recent))
	for n, e := range recent {
		rows[n] = insightExpense{
			Amount:      e.Amount.StringFixed(2),
			Category:    string(e.Category),
			Description: e.Description,
			Date:        e.Date.Format(isoLayout),
		}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode expenses: %w", err)
	}

	todayTotal := ledger.Total(ledger.ExpensesOn(expenses, now))
	prompt := fmt.Sprintf(`Based on the following expense data, provide helpful insights and answer the user's question.

Expenses (recent first): %s
Total expenses: %d
Today's total: %s
Overall total: %s

User question: %q

Provide a concise, friendly response about their spending patterns, suggestions, or direct answers to their question. Be conversational and include specific amounts and categories when relevant.`,
		data, len(expenses), money.Format(todayTotal), money.Format(ledger.Total(expenses)), question)

	callCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	text, err := i.oracle.Generate(callCtx, insightsSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewOracleError(OracleInvalidOutput, errors.New("empty insight"))
	}
	return text, nil
}

// insightKey changes whenever the question or the expense data changes.
func insightKey(question string, q *QueryExpenses, expenses []ledger.Expense) string {
	var newest time.Time
	for _, e := range expenses {
		if e.CreatedAt.After(newest) {
			newest = e.CreatedAt
		}
	}
	filter := ""
	if q != nil {
		filter = string(q.QueryType) + "/" + string(q.CategoryFilter)
	}
	return fmt.Sprintf("%s|%s|%d|%s|%d", question, filter, len(expenses), ledger.Total(expenses).String(), newest.UnixNano())
}

// Debts answers debt questions from unsettled debts.
func (i *Insights) Debts(ctx context.Context, q *QueryDebts) string {
	debts, err := i.store.ListDebts(ctx)
	if err != nil {
		i.logger.Error("failed to list debts for insights", slog.Any("error", err))
		return readDebtsFailure
	}

	var open []ledger.Debt
	var iOwe, theyOwe decimal.Decimal
	var nOwe, nOwed int
	for _, d := range debts {
		if d.IsSettled {
			continue
		}
		open = append(open, d)
		if d.Direction == ledger.IOweThem {
			iOwe = iOwe.Add(d.Amount)
			nOwe++
		} else {
			theyOwe = theyOwe.Add(d.Amount)
			nOwed++
		}
	}

	switch q.QueryType {
	case DebtQueryTotalOwed:
		if nOwe == 0 {
			return "You don't owe anyone anything right now. 🎉"
		}
		return fmt.Sprintf("You owe a total of %s across %d %s.", money.Format(iOwe), nOwe, plural(nOwe, "debt", "debts"))
	case DebtQueryTotalOwing:
		if nOwed == 0 {
			return "Nobody owes you anything right now."
		}
		return fmt.Sprintf("Your friends owe you a total of %s across %d %s.", money.Format(theyOwe), nOwed, plural(nOwed, "debt", "debts"))
	case DebtQueryNetBalance:
		net := theyOwe.Sub(iOwe)
		switch {
		case net.IsPositive():
			return fmt.Sprintf("Overall your friends owe you %s (they owe you %s, you owe %s).", money.Format(net), money.Format(theyOwe), money.Format(iOwe))
		case net.IsNegative():
			return fmt.Sprintf("Overall you owe %s (you owe %s, they owe you %s).", money.Format(net.Neg()), money.Format(iOwe), money.Format(theyOwe))
		default:
			return "Your debts are all square."
		}
	default:
		if len(open) == 0 {
			return "You have no outstanding debts."
		}
		parts := make([]string, len(open))
		for n, d := range open {
			if d.Direction == ledger.IOweThem {
				parts[n] = fmt.Sprintf("you owe %s %s for %s", d.FriendName, money.Format(d.Amount), d.Description)
			} else {
				parts[n] = fmt.Sprintf("%s owes you %s for %s", d.FriendName, money.Format(d.Amount), d.Description)
			}
		}
		return "Outstanding debts: " + strings.Join(parts, "; ") + "."
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
