package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 15, 18, 0, 0, 0, time.UTC)
	s := NewMemoryStore(decimal.NewFromInt(5000), WithClock(steppingClock(now.Add(-time.Hour))))

	add := func(amount int64, date time.Time) {
		_, err := s.AppendExpense(ctx, NewExpense{Amount: decimal.NewFromInt(amount), Category: CategoryCanteen, Description: "x", Date: date})
		require.NoError(t, err)
	}
	add(80, now)                     // today
	add(120, now.AddDate(0, 0, -3))  // this month, in 30-day window
	add(300, now.AddDate(0, 0, -20)) // last month, in 30-day window
	add(1000, now.AddDate(0, -3, 0)) // outside everything

	stats, err := ComputeStats(ctx, s, now)
	require.NoError(t, err)

	assert.Equal(t, "80", stats.TodayTotal.String())
	assert.Equal(t, "200", stats.MonthTotal.String())
	assert.Equal(t, "4800", stats.BudgetLeft.String())
	assert.Equal(t, "16.67", stats.AvgDaily.String())
	assert.Equal(t, "5000", stats.MonthlyBudget.String())
}

func TestComputeStats_TodayOverride(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 15, 18, 0, 0, 0, time.UTC)
	clock := steppingClock(now.Add(-time.Hour))
	s := NewMemoryStore(decimal.NewFromInt(5000), WithClock(clock))

	_, err := s.AppendExpense(ctx, NewExpense{Amount: decimal.NewFromInt(80), Category: CategoryCanteen, Description: "lunch", Date: now})
	require.NoError(t, err)

	require.NoError(t, s.SetOverride(ctx, OverrideToday, Override{Amount: decimal.Zero, SetAt: clock()}))

	stats, err := ComputeStats(ctx, s, now)
	require.NoError(t, err)
	assert.True(t, stats.TodayTotal.IsZero(), "override supersedes existing rows")
	assert.Equal(t, "80", stats.MonthTotal.String(), "today override leaves the month alone")

	t.Run("new expense for the day invalidates it", func(t *testing.T) {
		_, err := s.AppendExpense(ctx, NewExpense{Amount: decimal.NewFromInt(40), Category: CategoryCanteen, Description: "chai", Date: now})
		require.NoError(t, err)

		stats, err := ComputeStats(ctx, s, now)
		require.NoError(t, err)
		assert.Equal(t, "120", stats.TodayTotal.String())
	})

	t.Run("override from another day is ignored", func(t *testing.T) {
		require.NoError(t, s.SetOverride(ctx, OverrideToday, Override{Amount: decimal.NewFromInt(7), SetAt: now.AddDate(0, 0, -1)}))
		stats, err := ComputeStats(ctx, s, now)
		require.NoError(t, err)
		assert.Equal(t, "120", stats.TodayTotal.String())
	})
}

func TestComputeStats_MonthAndAvgOverrides(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 15, 18, 0, 0, 0, time.UTC)
	clock := steppingClock(now.Add(-time.Hour))
	s := NewMemoryStore(decimal.NewFromInt(5000), WithClock(clock))

	_, err := s.AppendExpense(ctx, NewExpense{Amount: decimal.NewFromInt(300), Category: CategoryBooks, Description: "textbook", Date: now.AddDate(0, 0, -1)})
	require.NoError(t, err)

	require.NoError(t, s.SetOverride(ctx, OverrideMonth, Override{Amount: decimal.NewFromInt(1200), SetAt: clock()}))
	require.NoError(t, s.SetOverride(ctx, OverrideAvgDaily, Override{Amount: decimal.NewFromInt(55), SetAt: clock()}))

	stats, err := ComputeStats(ctx, s, now)
	require.NoError(t, err)
	assert.Equal(t, "1200", stats.MonthTotal.String())
	assert.Equal(t, "3800", stats.BudgetLeft.String())
	assert.Equal(t, "55", stats.AvgDaily.String())
}

func TestSameDayAcrossZones(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	a := time.Date(2024, 7, 15, 20, 0, 0, 0, time.UTC) // 01:30 on the 16th in IST
	b := time.Date(2024, 7, 16, 9, 0, 0, 0, ist)

	assert.True(t, SameDay(a, b, ist))
	assert.False(t, SameDay(a, b, time.UTC))
	assert.True(t, SameMonth(a, b, time.UTC))
	assert.Equal(t, time.Date(2024, 7, 16, 0, 0, 0, 0, ist), StartOfDay(b))
}
