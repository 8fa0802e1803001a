package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/pkg/money"
)

// avgDailyWindow is the trailing window used for the daily average.
const avgDailyWindow = 30

// Stats are the dashboard figures.
type Stats struct {
	TodayTotal    decimal.Decimal `json:"todayTotal"`
	MonthTotal    decimal.Decimal `json:"monthTotal"`
	BudgetLeft    decimal.Decimal `json:"budgetLeft"`
	AvgDaily      decimal.Decimal `json:"avgDaily"`
	MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
}

// OverrideReader reads manual stat overrides.
type OverrideReader interface {
	GetOverride(ctx context.Context, kind OverrideKind) (*Override, error)
}

// StatsSource is what ComputeStats reads.
type StatsSource interface {
	OverrideReader
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
	GetBudget(ctx context.Context) (decimal.Decimal, error)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth reports whether a and b fall in the same calendar month in loc.
func SameMonth(a, b time.Time, loc *time.Location) bool {
	ay, am, _ := a.In(loc).Date()
	by, bm, _ := b.In(loc).Date()
	return ay == by && am == bm
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ExpensesOn returns the expenses dated on now's calendar day.
func ExpensesOn(expenses []Expense, now time.Time) []Expense {
	var out []Expense
	for _, e := range expenses {
		if SameDay(e.Date, now, now.Location()) {
			out = append(out, e)
		}
	}
	return out
}

// Total sums expense amounts.
func Total(expenses []Expense) decimal.Decimal {
	amounts := make([]decimal.Decimal, len(expenses))
	for i, e := range expenses {
		amounts[i] = e.Amount
	}
	return money.Sum(amounts...)
}

// MonthTotal sums expenses dated in now's calendar month, ignoring overrides.
func MonthTotal(expenses []Expense, now time.Time) decimal.Decimal {
	var inMonth []Expense
	for _, e := range expenses {
		if SameMonth(e.Date, now, now.Location()) {
			inMonth = append(inMonth, e)
		}
	}
	return Total(inMonth)
}

func avgDaily(expenses []Expense, now time.Time) decimal.Decimal {
	cutoff := now.AddDate(0, 0, -avgDailyWindow)
	var recent []Expense
	for _, e := range expenses {
		if e.Date.After(cutoff) && !e.Date.After(now) {
			recent = append(recent, e)
		}
	}
	return Total(recent).Div(decimal.NewFromInt(avgDailyWindow)).Round(2)
}

// overrideApplies decides whether a manual figure still supersedes the computed
// one: it must belong to the current window and no expense in that window may
// have been recorded after it was set.
func overrideApplies(o *Override, kind OverrideKind, expenses []Expense, now time.Time) bool {
	if o == nil {
		return false
	}
	loc := now.Location()

	inWindow := func(t time.Time) bool {
		switch kind {
		case OverrideToday:
			return SameDay(t, now, loc)
		case OverrideMonth:
			return SameMonth(t, now, loc)
		default:
			return t.After(now.AddDate(0, 0, -avgDailyWindow))
		}
	}

	if kind != OverrideAvgDaily && !inWindow(o.SetAt) {
		return false
	}
	for _, e := range expenses {
		if inWindow(e.Date) && e.CreatedAt.After(o.SetAt) {
			return false
		}
	}
	return true
}

// EffectiveToday returns today's figure, honouring a still-valid override.
func EffectiveToday(ctx context.Context, store OverrideReader, expenses []Expense, now time.Time) (decimal.Decimal, bool, error) {
	o, err := store.GetOverride(ctx, OverrideToday)
	if err != nil {
		return decimal.Zero, false, err
	}
	if overrideApplies(o, OverrideToday, expenses, now) {
		return o.Amount, true, nil
	}
	return Total(ExpensesOn(expenses, now)), false, nil
}

// EffectiveMonth returns the month-to-date figure, honouring a still-valid override.
func EffectiveMonth(ctx context.Context, store OverrideReader, expenses []Expense, now time.Time) (decimal.Decimal, bool, error) {
	o, err := store.GetOverride(ctx, OverrideMonth)
	if err != nil {
		return decimal.Zero, false, err
	}
	if overrideApplies(o, OverrideMonth, expenses, now) {
		return o.Amount, true, nil
	}
	return MonthTotal(expenses, now), false, nil
}

// ComputeStats builds the dashboard figures from the store as of now.
func ComputeStats(ctx context.Context, store StatsSource, now time.Time) (*Stats, error) {
	expenses, err := store.ListExpenses(ctx, ExpenseFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	budget, err := store.GetBudget(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	today, _, err := EffectiveToday(ctx, store, expenses, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get today override: %w", err)
	}

	month, _, err := EffectiveMonth(ctx, store, expenses, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get month override: %w", err)
	}

	avg := avgDaily(expenses, now)
	if o, err := store.GetOverride(ctx, OverrideAvgDaily); err != nil {
		return nil, fmt.Errorf("failed to get avg daily override: %w", err)
	} else if overrideApplies(o, OverrideAvgDaily, expenses, now) {
		avg = o.Amount
	}

	return &Stats{
		TodayTotal:    today,
		MonthTotal:    month,
		BudgetLeft:    budget.Sub(month),
		AvgDaily:      avg,
		MonthlyBudget: budget,
	}, nil
}
