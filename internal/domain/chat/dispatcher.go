package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
	"github.com/FACorreiaa/student-expense-tracker/pkg/money"
)

// RecordStore is the part of the ledger the chat pipeline touches.
type RecordStore interface {
	ledger.StatsSource
	AppendExpense(ctx context.Context, in ledger.NewExpense) (*ledger.Expense, error)
	AppendDebt(ctx context.Context, in ledger.NewDebt) (*ledger.Debt, error)
	ListDebts(ctx context.Context) ([]ledger.Debt, error)
	SetBudget(ctx context.Context, amount decimal.Decimal) error
	SetOverride(ctx context.Context, kind ledger.OverrideKind, o ledger.Override) error
}

const (
	expenseSaveFailText = "I understood your expense details, but couldn't save it. Please try using the form instead."
	debtSaveFailText    = "I understood the debt details, but couldn't save them. Please try using the debt tracker form instead."
	budgetSaveFailText  = "I understood you want to set a budget, but couldn't save it. Please try using the budget field on the dashboard instead."
	resetSaveFailText   = "I understood you want to reset today's spending, but couldn't save it. Please try editing today's total on the dashboard instead."
)

// Outcome is the result of dispatching one intent. Intent always carries the
// final response text; ActionErr is set when a mutation was attempted and failed.
type Outcome struct {
	Intent    Intent
	Mutated   bool
	ActionErr error

	// Date is the stored date of an added expense.
	Date *time.Time
}

// Dispatcher performs the single mutation an intent asks for and rewrites the
// reply to match what was stored. It never retries.
type Dispatcher struct {
	store    RecordStore
	insights *Insights
	now      func() time.Time
	logger   *slog.Logger
}

func NewDispatcher(store RecordStore, insights *Insights, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, insights: insights, now: time.Now, logger: logger}
}

// WithClock replaces time.Now.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch acts on intent. message is the original text, used by queries.
func (d *Dispatcher) Dispatch(ctx context.Context, message string, intent Intent) Outcome {
	now := d.now()

	switch in := intent.(type) {
	case *AddExpense:
		return d.addExpense(ctx, in, now)
	case *AddDebt:
		return d.addDebt(ctx, in)
	case *SetBudget:
		return d.setBudget(ctx, in)
	case *SetBudgetLeft:
		return d.setBudgetLeft(ctx, in, now)
	case *ResetToday:
		return d.resetToday(ctx, in, now)
	case *QueryExpenses:
		in.SetText(d.insights.Expenses(ctx, message, in, now))
		return Outcome{Intent: in}
	case *QueryDebts:
		in.SetText(d.insights.Debts(ctx, in))
		return Outcome{Intent: in}
	default:
		return Outcome{Intent: intent}
	}
}

func (d *Dispatcher) addExpense(ctx context.Context, in *AddExpense, now time.Time) Outcome {
	if in.Description == "" {
		in.Description = string(in.Category)
	}
	if in.Category == "" {
		in.Category = ledger.CategoryOthers
		if in.Description == "" {
			in.Description = string(ledger.CategoryOthers)
		}
	}
	amount := money.Format(in.Amount)

	switch in.Date.Kind {
	case DateNeedsYear:
		in.SetText(fmt.Sprintf(
			"I understood your expense: %s for %s. But I need to know which year you meant for \"%s\". Please specify like \"%s 2024\" or \"%s 2025\".",
			amount, in.Description, in.Date.Text, in.Date.Text, in.Date.Text))
		return Outcome{Intent: in}
	case DateNeedsClarification:
		in.SetText(fmt.Sprintf(
			"I understood your expense: %s for %s. Could you be more specific about \"%s\"? Please provide an exact date like \"august 10 2025\" or \"08/10/2025\".",
			amount, in.Description, in.Date.Text))
		return Outcome{Intent: in}
	case DateInvalid:
		in.SetText(invalidDateText(amount, in.Description, in.Date.Text))
		return Outcome{Intent: in}
	}

	if !in.Amount.IsPositive() {
		in.SetText(fmt.Sprintf("I understood you spent money on %s, but how much was it? Try something like \"I spent ₹50 on %s\".",
			in.Description, in.Description))
		return Outcome{Intent: in}
	}

	date, err := in.Date.Time(now)
	if err != nil {
		in.SetText(invalidDateText(amount, in.Description, in.Date.ISO))
		return Outcome{Intent: in}
	}

	e, err := d.store.AppendExpense(ctx, ledger.NewExpense{
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        date,
	})
	if err != nil {
		d.logger.Error("failed to append expense from chat", slog.Any("error", err))
		in.SetText(expenseSaveFailText)
		return Outcome{Intent: in, ActionErr: err}
	}

	when := "today"
	if !ledger.SameDay(e.Date, now, now.Location()) {
		when = FormatLongDate(e.Date)
	}
	in.Amount = e.Amount
	in.Date = Exact(e.Date.Format(isoLayout))
	in.SetText(fmt.Sprintf("Great! I've added your expense: %s for %s in the %s category for %s.",
		money.Format(e.Amount), e.Description, e.Category, when))
	return Outcome{Intent: in, Mutated: true, Date: &e.Date}
}

func (d *Dispatcher) addDebt(ctx context.Context, in *AddDebt) Outcome {
	if strings.TrimSpace(in.FriendName) == "" || !in.Amount.IsPositive() {
		in.SetText("I can record that debt, but I need the friend's name and the amount. Try \"harish owes me 500 for dinner\".")
		return Outcome{Intent: in}
	}
	if in.Description == "" {
		in.Description = "expense"
	}
	if in.Direction == "" {
		in.Direction = ledger.TheyOweMe
	}

	debt, err := d.store.AppendDebt(ctx, ledger.NewDebt{
		FriendName:  in.FriendName,
		Amount:      in.Amount,
		Direction:   in.Direction,
		Description: in.Description,
	})
	if err != nil {
		d.logger.Error("failed to append debt from chat", slog.Any("error", err))
		in.SetText(debtSaveFailText)
		return Outcome{Intent: in, ActionErr: err}
	}

	if debt.Direction == ledger.IOweThem {
		in.SetText(fmt.Sprintf("Got it! I've recorded that you owe %s %s for %s.",
			debt.FriendName, money.Format(debt.Amount), debt.Description))
	} else {
		in.SetText(fmt.Sprintf("Got it! I've recorded that %s owes you %s for %s.",
			debt.FriendName, money.Format(debt.Amount), debt.Description))
	}
	return Outcome{Intent: in, Mutated: true}
}

func (d *Dispatcher) setBudget(ctx context.Context, in *SetBudget) Outcome {
	if in.Amount.IsNegative() {
		in.SetText("A budget can't be negative. Try \"Set my budget to ₹5000\".")
		return Outcome{Intent: in}
	}
	if err := d.store.SetBudget(ctx, in.Amount); err != nil {
		return d.budgetFailed(in, err)
	}

	if in.Amount.IsZero() {
		in.SetText("Done! I've removed your monthly budget. Set a new one any time, for example \"Set my budget to ₹5000\".")
	} else {
		in.SetText(fmt.Sprintf("Perfect! I've set your monthly budget to %s. You can now track how much you have left to spend each month.",
			money.Format(in.Amount)))
	}
	return Outcome{Intent: in, Mutated: true}
}

func (d *Dispatcher) setBudgetLeft(ctx context.Context, in *SetBudgetLeft, now time.Time) Outcome {
	if in.TargetRemaining.IsNegative() {
		in.SetText("The amount left can't be negative. Try \"I want ₹2000 left this month\".")
		return Outcome{Intent: in}
	}

	expenses, err := d.store.ListExpenses(ctx, ledger.ExpenseFilter{})
	if err != nil {
		return d.budgetFailed(in, err)
	}
	spent, _, err := ledger.EffectiveMonth(ctx, d.store, expenses, now)
	if err != nil {
		return d.budgetFailed(in, err)
	}

	budget := spent.Add(in.TargetRemaining)
	if err := d.store.SetBudget(ctx, budget); err != nil {
		return d.budgetFailed(in, err)
	}
	in.SetText(fmt.Sprintf("Done! I've set your monthly budget to %s so that you have %s left to spend this month (you've spent %s so far).",
		money.Format(budget), money.Format(in.TargetRemaining), money.Format(spent)))
	return Outcome{Intent: in, Mutated: true}
}

func (d *Dispatcher) budgetFailed(in Intent, err error) Outcome {
	d.logger.Error("failed to set budget from chat", slog.String("intent", string(in.Kind())), slog.Any("error", err))
	in.SetText(budgetSaveFailText)
	return Outcome{Intent: in, ActionErr: err}
}

func (d *Dispatcher) resetToday(ctx context.Context, in *ResetToday, now time.Time) Outcome {
	err := d.store.SetOverride(ctx, ledger.OverrideToday, ledger.Override{Amount: decimal.Zero, SetAt: now})
	if err != nil {
		d.logger.Error("failed to reset today from chat", slog.Any("error", err))
		in.SetText(resetSaveFailText)
		return Outcome{Intent: in, ActionErr: err}
	}
	in.SetText("Done! Today's spending now shows ₹0. Your recorded expenses are untouched, and anything you add today will count again.")
	return Outcome{Intent: in, Mutated: true}
}

func invalidDateText(amount, description, typed string) string {
	return fmt.Sprintf(
		"I understood your expense: %s for %s, but I couldn't understand the date \"%s\". Please use formats like \"august 10 2025\" or \"08/10/2025\".",
		amount, description, typed)
}
