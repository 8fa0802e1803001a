package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

var errStoreDown = errors.New("store unavailable")

// fakeOracle replays canned replies and counts calls.
type fakeOracle struct {
	mu sync.Mutex

	reply       string
	completeErr error
	block       bool

	insight     string
	generateErr error

	completeCalls int
	generateCalls int
	lastMessage   string
	lastPrompt    string
}

func (f *fakeOracle) Complete(ctx context.Context, systemPrompt, userMessage string, _ *Schema) (json.RawMessage, error) {
	f.mu.Lock()
	f.completeCalls++
	f.lastMessage = userMessage
	f.lastPrompt = systemPrompt
	block, reply, err := f.block, f.reply, f.completeErr
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(reply), nil
}

func (f *fakeOracle) Generate(_ context.Context, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	f.lastPrompt = prompt
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.insight, nil
}

func (f *fakeOracle) calls() (complete, generate int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completeCalls, f.generateCalls
}

// failingStore is a memory store whose writes can be made to fail.
type failingStore struct {
	*ledger.MemoryStore
	appendErr   error
	budgetErr   error
	overrideErr error
	listErr     error
}

func (s *failingStore) AppendExpense(ctx context.Context, in ledger.NewExpense) (*ledger.Expense, error) {
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	return s.MemoryStore.AppendExpense(ctx, in)
}

func (s *failingStore) AppendDebt(ctx context.Context, in ledger.NewDebt) (*ledger.Debt, error) {
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	return s.MemoryStore.AppendDebt(ctx, in)
}

func (s *failingStore) SetBudget(ctx context.Context, amount decimal.Decimal) error {
	if s.budgetErr != nil {
		return s.budgetErr
	}
	return s.MemoryStore.SetBudget(ctx, amount)
}

func (s *failingStore) SetOverride(ctx context.Context, kind ledger.OverrideKind, o ledger.Override) error {
	if s.overrideErr != nil {
		return s.overrideErr
	}
	return s.MemoryStore.SetOverride(ctx, kind, o)
}

func (s *failingStore) ListExpenses(ctx context.Context, filter ledger.ExpenseFilter) ([]ledger.Expense, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.ListExpenses(ctx, filter)
}

type stubNormalizer map[string]ledger.Category

func (s stubNormalizer) Normalize(raw, description string) ledger.Category {
	if c, ok := s[raw]; ok {
		return c
	}
	if c, ok := s[description]; ok {
		return c
	}
	return ledger.CategoryOthers
}

var testNow = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// steppingClock advances one second per call, starting at start.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore returns a store whose rows are all created an hour before testNow.
func newTestStore(budget int64) *failingStore {
	return &failingStore{
		MemoryStore: ledger.NewMemoryStore(decimal.NewFromInt(budget),
			ledger.WithClock(steppingClock(testNow.Add(-time.Hour)))),
	}
}

func addExpense(t *testing.T, store RecordStore, amount int64, description string, date time.Time) {
	t.Helper()
	_, err := store.AppendExpense(context.Background(), ledger.NewExpense{
		Amount:      decimal.NewFromInt(amount),
		Category:    ledger.CategoryCanteen,
		Description: description,
		Date:        date,
	})
	require.NoError(t, err)
}

func listExpenses(t *testing.T, store RecordStore) []ledger.Expense {
	t.Helper()
	expenses, err := store.ListExpenses(context.Background(), ledger.ExpenseFilter{})
	require.NoError(t, err)
	return expenses
}

func newTestDispatcher(store RecordStore, oracle Oracle) *Dispatcher {
	insights := NewInsights(store, oracle, time.Second, discardLogger())
	return NewDispatcher(store, insights, discardLogger()).WithClock(fixedClock(testNow))
}
