package ledger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubCategorizer struct {
	calls []string
	out   Category
}

func (s *stubCategorizer) Categorize(text string) Category {
	s.calls = append(s.calls, text)
	return s.out
}

func newTestService(t *testing.T, now time.Time) (*Service, *MemoryStore, *stubCategorizer) {
	t.Helper()
	store := NewMemoryStore(decimal.NewFromInt(10000), WithClock(steppingClock(now)))
	cat := &stubCategorizer{out: CategoryCanteen}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, cat, logger).WithClock(func() time.Time { return now })
	return svc, store, cat
}

func TestService_CreateExpense(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("infers missing category", func(t *testing.T) {
		svc, _, cat := newTestService(t, now)
		e, err := svc.CreateExpense(ctx, CreateExpenseInput{Amount: decimal.NewFromInt(80), Description: " lunch "})
		require.NoError(t, err)
		assert.Equal(t, CategoryCanteen, e.Category)
		assert.Equal(t, "lunch", e.Description)
		assert.Equal(t, now, e.Date)
		assert.Equal(t, []string{"lunch"}, cat.calls)
	})

	t.Run("keeps explicit category", func(t *testing.T) {
		svc, _, cat := newTestService(t, now)
		e, err := svc.CreateExpense(ctx, CreateExpenseInput{Amount: decimal.NewFromInt(200), Category: "Books", Description: "novel"})
		require.NoError(t, err)
		assert.Equal(t, CategoryBooks, e.Category)
		assert.Empty(t, cat.calls)
	})

	tests := []struct {
		name string
		in   CreateExpenseInput
		want error
	}{
		{"zero amount", CreateExpenseInput{Amount: decimal.Zero, Description: "x"}, ErrInvalidAmount},
		{"negative amount", CreateExpenseInput{Amount: decimal.NewFromInt(-5), Description: "x"}, ErrInvalidAmount},
		{"blank description", CreateExpenseInput{Amount: decimal.NewFromInt(5), Description: "  "}, ErrMissingDescription},
		{"unknown category", CreateExpenseInput{Amount: decimal.NewFromInt(5), Category: "food", Description: "x"}, ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t, now)
			_, err := svc.CreateExpense(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
			all, _ := store.ListExpenses(ctx, ExpenseFilter{})
			assert.Empty(t, all)
		})
	}
}

func TestService_UpdateExpense(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	svc, _, _ := newTestService(t, now)

	e, err := svc.CreateExpense(ctx, CreateExpenseInput{Amount: decimal.NewFromInt(80), Category: "canteen", Description: "lunch"})
	require.NoError(t, err)

	cat := "others"
	updated, err := svc.UpdateExpense(ctx, e.ID, UpdateExpenseInput{Category: &cat})
	require.NoError(t, err)
	assert.Equal(t, CategoryOthers, updated.Category)

	bad := "snacks"
	_, err = svc.UpdateExpense(ctx, e.ID, UpdateExpenseInput{Category: &bad})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	zero := decimal.Zero
	_, err = svc.UpdateExpense(ctx, e.ID, UpdateExpenseInput{Amount: &zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestService_CreateDebt(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	svc, _, _ := newTestService(t, now)

	d, err := svc.CreateDebt(ctx, CreateDebtInput{FriendName: "harish", Amount: decimal.NewFromInt(500), Direction: "THEY_OWE_ME", Description: "dinner"})
	require.NoError(t, err)
	assert.Equal(t, TheyOweMe, d.Direction)
	assert.False(t, d.IsSettled)

	_, err = svc.CreateDebt(ctx, CreateDebtInput{FriendName: "", Amount: decimal.NewFromInt(1), Direction: "I_OWE_THEM", Description: "x"})
	assert.ErrorIs(t, err, ErrMissingFriendName)

	_, err = svc.CreateDebt(ctx, CreateDebtInput{FriendName: "a", Amount: decimal.NewFromInt(1), Direction: "MAYBE", Description: "x"})
	assert.ErrorIs(t, err, ErrUnknownDirection)
}

func TestService_ExpireOverrides(t *testing.T) {
	now := time.Date(2024, 8, 1, 0, 0, 5, 0, time.UTC)
	ctx := context.Background()
	svc, store, _ := newTestService(t, now)

	yesterday := now.Add(-time.Hour)
	require.NoError(t, store.SetOverride(ctx, OverrideToday, Override{Amount: decimal.Zero, SetAt: yesterday}))
	require.NoError(t, store.SetOverride(ctx, OverrideMonth, Override{Amount: decimal.NewFromInt(900), SetAt: yesterday}))
	require.NoError(t, store.SetOverride(ctx, OverrideAvgDaily, Override{Amount: decimal.NewFromInt(30), SetAt: yesterday}))

	n, err := svc.ExpireOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	o, _ := store.GetOverride(ctx, OverrideToday)
	assert.Nil(t, o)
	o, _ = store.GetOverride(ctx, OverrideMonth)
	assert.Nil(t, o)
	o, _ = store.GetOverride(ctx, OverrideAvgDaily)
	assert.NotNil(t, o)

	n, err = svc.ExpireOverrides(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_SetOverrideAndStats(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	svc, _, _ := newTestService(t, now)

	assert.ErrorIs(t, svc.SetOverride(ctx, OverrideMonth, decimal.NewFromInt(-1)), ErrInvalidAmount)
	assert.ErrorIs(t, svc.SetBudget(ctx, decimal.NewFromInt(-1)), ErrInvalidAmount)

	require.NoError(t, svc.SetBudget(ctx, decimal.NewFromInt(3000)))
	require.NoError(t, svc.SetOverride(ctx, OverrideMonth, decimal.NewFromInt(1000)))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2000", stats.BudgetLeft.String())
}

func TestService_ExportCSV(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	svc, store, _ := newTestService(t, now)

	_, err := store.AppendExpense(ctx, NewExpense{Amount: decimal.RequireFromString("80.5"), Category: CategoryCanteen, Description: "lunch", Date: now})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf, ExpenseFilter{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,description,category,amount", lines[0])
	assert.Equal(t, "2024-07-15,lunch,canteen,80.50", lines[1])
}

func TestService_ImportCSV(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	svc, store, cat := newTestService(t, now)

	input := strings.Join([]string{
		"date,description,amount,category",
		"2024-07-10,textbook,450,books",
		"2024-07-11,samosa,₹30,",
		"not-a-date,chai,10,canteen",
		"2024-07-12,movie,abc,entertainment",
	}, "\n")

	res, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, []string{"samosa"}, cat.calls)

	all, err := store.ListExpenses(ctx, ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "samosa", all[0].Description)
	assert.Equal(t, "30", all[0].Amount.String())
}

func TestService_ExportXLSX(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	svc, store, _ := newTestService(t, now)

	for _, amt := range []int64{80, 120} {
		_, err := store.AppendExpense(ctx, NewExpense{Amount: decimal.NewFromInt(amt), Category: CategoryTravel, Description: "auto", Date: now})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(ctx, &buf, ExpenseFilter{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Date", "Description", "Category", "Amount (INR)"}, rows[0])
	assert.Equal(t, "Total", rows[3][2])
	assert.Equal(t, "200", rows[3][3])
}

func TestTestDataGenerator_Seed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(decimal.Zero)

	gen := NewTestDataGeneratorWithSeed(42)
	require.NoError(t, gen.Seed(ctx, store, now, 30, 25, 4))

	expenses, _ := store.ListExpenses(ctx, ExpenseFilter{})
	debts, _ := store.ListDebts(ctx)
	assert.Len(t, expenses, 25)
	assert.Len(t, debts, 4)

	for _, e := range expenses {
		_, ok := ParseCategory(string(e.Category))
		assert.True(t, ok)
		assert.False(t, e.Date.Before(now.AddDate(0, 0, -30)))
		assert.True(t, e.Amount.IsPositive())
	}
}

func TestService_ImportCSV_Semicolon(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	svc, _, _ := newTestService(t, now)

	input := "date;description;amount;category\n2024-07-10;bus pass;300;travel\n2024-07-11;printout;12.50;stationery\n"
	res, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Skipped)
}

func TestService_ImportXLSX_RoundTrip(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	src, store, _ := newTestService(t, now)

	for _, e := range []NewExpense{
		{Amount: decimal.NewFromInt(80), Category: CategoryCanteen, Description: "lunch", Date: now},
		{Amount: decimal.RequireFromString("45.5"), Category: CategoryStationery, Description: "pens", Date: now.AddDate(0, 0, -2)},
	} {
		_, err := store.AppendExpense(ctx, e)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, src.ExportXLSX(ctx, &buf, ExpenseFilter{}))

	dst, dstStore, _ := newTestService(t, now)
	res, err := dst.ImportXLSX(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Skipped)

	all, err := dstStore.ListExpenses(ctx, ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "lunch", all[0].Description)
	assert.Equal(t, CategoryStationery, all[1].Category)
	assert.True(t, decimal.RequireFromString("45.5").Equal(all[1].Amount))
}

func TestService_ImportXLSX_NotAWorkbook(t *testing.T) {
	svc, _, _ := newTestService(t, time.Now())
	_, err := svc.ImportXLSX(context.Background(), strings.NewReader("date,amount\n"))
	assert.Error(t, err)
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{"date,description,amount\n", ','},
		{"date;description;amount\n", ';'},
		{"date\tdescription\tamount\n", '\t'},
		{"\n\ndate;amount\n", ';'},
		{"date\n", ','},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sniffDelimiter([]byte(tt.in)), tt.in)
	}
}

func TestMapColumns(t *testing.T) {
	cols := mapColumns([]string{"Date", "Description", "Category", "Amount (INR)"})
	assert.Equal(t, columnMap{date: 0, description: 1, category: 2, amount: 3}, cols)

	cols = mapColumns([]string{"amount", "note"})
	assert.Equal(t, -1, cols.date)
	assert.Equal(t, 0, cols.amount)
}
