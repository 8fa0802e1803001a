package chat

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

func newAddExpense(amount int64, description string, date DateSpec) *AddExpense {
	return &AddExpense{
		draft:       draft{ResponseText: "draft"},
		Amount:      decimal.NewFromInt(amount),
		Category:    ledger.CategoryCanteen,
		Description: description,
		Date:        date,
	}
}

func TestDispatcher_AddExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("today", func(t *testing.T) {
		store := newTestStore(10000)
		out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", newAddExpense(80, "lunch", Today()))

		require.True(t, out.Mutated)
		require.NoError(t, out.ActionErr)
		assert.Equal(t, "Great! I've added your expense: ₹80 for lunch in the canteen category for today.", out.Intent.Text())

		expenses := listExpenses(t, store)
		require.Len(t, expenses, 1)
		assert.True(t, ledger.SameDay(testNow, expenses[0].Date, time.UTC))
	})

	t.Run("exact date round trips", func(t *testing.T) {
		store := newTestStore(10000)
		out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", newAddExpense(150, "books", Exact("2024-07-15")))

		require.True(t, out.Mutated)
		assert.Contains(t, out.Intent.Text(), "for July 15, 2024.")
		require.NotNil(t, out.Date)

		expenses := listExpenses(t, store)
		require.Len(t, expenses, 1)
		assert.Equal(t, "July 15, 2024", FormatLongDate(expenses[0].Date))
	})

	t.Run("missing description uses the category", func(t *testing.T) {
		store := newTestStore(10000)
		out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", newAddExpense(40, "", Today()))

		require.True(t, out.Mutated)
		assert.Equal(t, "canteen", listExpenses(t, store)[0].Description)
	})

	t.Run("missing amount asks for it", func(t *testing.T) {
		store := newTestStore(10000)
		out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", newAddExpense(0, "chai", Today()))

		assert.False(t, out.Mutated)
		assert.Contains(t, out.Intent.Text(), "how much was it")
		assert.Empty(t, listExpenses(t, store))
	})

	t.Run("store failure keeps the classification", func(t *testing.T) {
		store := newTestStore(10000)
		store.appendErr = errStoreDown
		out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", newAddExpense(80, "lunch", Today()))

		assert.False(t, out.Mutated)
		assert.ErrorIs(t, out.ActionErr, errStoreDown)
		assert.Equal(t, KindAddExpense, out.Intent.Kind())
		assert.Equal(t, expenseSaveFailText, out.Intent.Text())
	})
}

func TestDispatcher_AmbiguousDatesNeverAppend(t *testing.T) {
	ctx := context.Background()
	specs := []DateSpec{
		NeedsYear("august 10"),
		NeedsYear("15/03"),
		NeedsClarification("last week"),
		NeedsClarification("last month"),
		Invalid("31/02/2024"),
	}
	amounts := []int64{0, 1, 80, 99999}

	for _, spec := range specs {
		for _, amount := range amounts {
			store := newTestStore(10000)
			out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", newAddExpense(amount, "lunch", spec))

			assert.False(t, out.Mutated, spec.String())
			assert.Nil(t, out.ActionErr)
			assert.Contains(t, out.Intent.Text(), spec.Text)
			assert.Empty(t, listExpenses(t, store), spec.String())
		}
	}

	store := newTestStore(10000)
	out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", newAddExpense(60, "lunch", NeedsYear("august 10")))
	assert.Equal(t,
		`I understood your expense: ₹60 for lunch. But I need to know which year you meant for "august 10". Please specify like "august 10 2024" or "august 10 2025".`,
		out.Intent.Text())
}

func TestDispatcher_ImpossibleDateIsNotStored(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(10000)
	date := ResolveDate("spent 50 on books on 31/02/2024", "2024-02-31", testNow)

	out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", newAddExpense(50, "books", date))

	assert.False(t, out.Mutated)
	assert.NoError(t, out.ActionErr)
	assert.Nil(t, out.Date)
	assert.Equal(t,
		`I understood your expense: ₹50 for books, but I couldn't understand the date "31/02/2024". Please use formats like "august 10 2025" or "08/10/2025".`,
		out.Intent.Text())
	assert.Empty(t, listExpenses(t, store))
}

func TestDispatcher_AddDebt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(10000)
	d := newTestDispatcher(store, &fakeOracle{})

	out := d.Dispatch(ctx, "", &AddDebt{FriendName: "harish", Amount: decimal.NewFromInt(500), Direction: ledger.TheyOweMe, Description: "dinner"})
	require.True(t, out.Mutated)
	assert.Equal(t, "Got it! I've recorded that harish owes you ₹500 for dinner.", out.Intent.Text())

	out = d.Dispatch(ctx, "", &AddDebt{FriendName: "john", Amount: decimal.NewFromInt(300), Direction: ledger.IOweThem})
	require.True(t, out.Mutated)
	assert.Equal(t, "Got it! I've recorded that you owe john ₹300 for expense.", out.Intent.Text())

	debts, err := store.ListDebts(ctx)
	require.NoError(t, err)
	require.Len(t, debts, 2)
	for _, debt := range debts {
		assert.False(t, debt.IsSettled)
	}

	out = d.Dispatch(ctx, "", &AddDebt{FriendName: "", Amount: decimal.NewFromInt(10)})
	assert.False(t, out.Mutated)
	debts, _ = store.ListDebts(ctx)
	assert.Len(t, debts, 2)
}

func TestDispatcher_SetBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		once := newTestStore(10000)
		twice := newTestStore(10000)

		newTestDispatcher(once, &fakeOracle{}).Dispatch(ctx, "", &SetBudget{Amount: decimal.NewFromInt(5000)})
		d := newTestDispatcher(twice, &fakeOracle{})
		d.Dispatch(ctx, "", &SetBudget{Amount: decimal.NewFromInt(5000)})
		out := d.Dispatch(ctx, "", &SetBudget{Amount: decimal.NewFromInt(5000)})

		a, err := once.GetBudget(ctx)
		require.NoError(t, err)
		b, err := twice.GetBudget(ctx)
		require.NoError(t, err)
		assert.True(t, a.Equal(b))
		assert.True(t, decimal.NewFromInt(5000).Equal(b))
		assert.Contains(t, out.Intent.Text(), "Perfect! I've set your monthly budget to ₹5000.")
	})

	t.Run("zero removes the budget", func(t *testing.T) {
		store := newTestStore(10000)
		out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", &SetBudget{Amount: decimal.Zero})

		require.True(t, out.Mutated)
		assert.Contains(t, out.Intent.Text(), "removed your monthly budget")
		budget, _ := store.GetBudget(ctx)
		assert.True(t, budget.IsZero())
	})

	t.Run("negative rejected", func(t *testing.T) {
		store := newTestStore(10000)
		out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", &SetBudget{Amount: decimal.NewFromInt(-5)})

		assert.False(t, out.Mutated)
		budget, _ := store.GetBudget(ctx)
		assert.True(t, decimal.NewFromInt(10000).Equal(budget))
	})

	t.Run("store failure", func(t *testing.T) {
		store := newTestStore(10000)
		store.budgetErr = errStoreDown
		out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", &SetBudget{Amount: decimal.NewFromInt(100)})

		assert.ErrorIs(t, out.ActionErr, errStoreDown)
		assert.Equal(t, budgetSaveFailText, out.Intent.Text())
	})
}

func TestDispatcher_SetBudgetLeftInvariant(t *testing.T) {
	ctx := context.Background()
	monthSpends := [][]int64{nil, {1200}, {300, 4000, 3000}}
	targets := []int64{0, 500, 2000, 15000}

	for _, spends := range monthSpends {
		for _, target := range targets {
			store := newTestStore(10000)
			for _, amount := range spends {
				addExpense(t, store, amount, "stuff", testNow.AddDate(0, 0, -1))
			}
			// last month's spending must not count
			addExpense(t, store, 700, "old", testNow.AddDate(0, -1, 0))

			out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", &SetBudgetLeft{TargetRemaining: decimal.NewFromInt(target)})
			require.True(t, out.Mutated)

			stats, err := ledger.ComputeStats(ctx, store, testNow)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(target).Equal(stats.BudgetLeft),
				"spends %v target %d left %s", spends, target, stats.BudgetLeft)
		}
	}
}

func TestDispatcher_SetBudgetLeftHonoursMonthOverride(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(10000)
	addExpense(t, store, 900, "stuff", testNow)
	require.NoError(t, store.SetOverride(ctx, ledger.OverrideMonth, ledger.Override{Amount: decimal.NewFromInt(2500), SetAt: testNow}))

	out := newTestDispatcher(store, &fakeOracle{}).Dispatch(ctx, "", &SetBudgetLeft{TargetRemaining: decimal.NewFromInt(1000)})
	require.True(t, out.Mutated)
	assert.Equal(t, "Done! I've set your monthly budget to ₹3500 so that you have ₹1000 left to spend this month (you've spent ₹2500 so far).", out.Intent.Text())

	budget, err := store.GetBudget(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3500).Equal(budget))
}

func TestDispatcher_ResetTodayThenQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(10000)
	addExpense(t, store, 80, "lunch", testNow)
	addExpense(t, store, 30, "chai", testNow)
	d := newTestDispatcher(store, &fakeOracle{})

	before := d.Dispatch(ctx, "what did I spend today", &QueryExpenses{QueryType: ExpenseQueryToday})
	assert.Contains(t, before.Intent.Text(), "₹110")

	out := d.Dispatch(ctx, "reset today", &ResetToday{})
	require.True(t, out.Mutated)

	after := d.Dispatch(ctx, "what did I spend today", &QueryExpenses{QueryType: ExpenseQueryToday})
	assert.Contains(t, after.Intent.Text(), "₹0")
	assert.Len(t, listExpenses(t, store), 2)

	stats, err := ledger.ComputeStats(ctx, store, testNow)
	require.NoError(t, err)
	assert.True(t, stats.TodayTotal.IsZero())
}

func TestDispatcher_ResetTodayFailure(t *testing.T) {
	store := newTestStore(10000)
	store.overrideErr = errStoreDown
	out := newTestDispatcher(store, &fakeOracle{}).Dispatch(context.Background(), "", &ResetToday{})

	assert.ErrorIs(t, out.ActionErr, errStoreDown)
	assert.Equal(t, resetSaveFailText, out.Intent.Text())
}

func TestDispatcher_PassThrough(t *testing.T) {
	store := newTestStore(10000)
	d := newTestDispatcher(store, &fakeOracle{})

	for _, intent := range []Intent{newGeneralHelp("help text"), newUnclear("unclear text")} {
		want := intent.Text()
		out := d.Dispatch(context.Background(), "", intent)
		assert.False(t, out.Mutated)
		assert.Equal(t, want, out.Intent.Text())
	}
}
