package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps everything in process. Reads take the shared lock; each
// append or overwrite is a single exclusive section.
type MemoryStore struct {
	mu        sync.RWMutex
	expenses  map[uuid.UUID]Expense
	debts     map[uuid.UUID]Debt
	budget    decimal.Decimal
	overrides map[OverrideKind]Override
	now       func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty store with the given starting budget.
func NewMemoryStore(budget decimal.Decimal, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		expenses:  make(map[uuid.UUID]Expense),
		debts:     make(map[uuid.UUID]Debt),
		budget:    budget,
		overrides: make(map[OverrideKind]Override),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) AppendExpense(_ context.Context, in NewExpense) (*Expense, error) {
	if in.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	e := Expense{
		ID:          uuid.New(),
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	s.expenses[e.ID] = e
	s.mu.Unlock()

	return &e, nil
}

func (s *MemoryStore) GetExpense(_ context.Context, id uuid.UUID) (*Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	return &e, nil
}

func (s *MemoryStore) UpdateExpense(_ context.Context, id uuid.UUID, upd ExpenseUpdate) (*Expense, error) {
	if upd.Amount != nil && upd.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if upd.Amount != nil {
		e.Amount = *upd.Amount
	}
	if upd.Category != nil {
		e.Category = *upd.Category
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Date != nil {
		e.Date = *upd.Date
	}
	s.expenses[id] = e
	return &e, nil
}

func (s *MemoryStore) DeleteExpense(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *MemoryStore) ListExpenses(_ context.Context, filter ExpenseFilter) ([]Expense, error) {
	s.mu.RLock()
	out := make([]Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) AppendDebt(_ context.Context, in NewDebt) (*Debt, error) {
	if in.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	d := Debt{
		ID:          uuid.New(),
		FriendName:  in.FriendName,
		Amount:      in.Amount,
		Direction:   in.Direction,
		Description: in.Description,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	s.debts[d.ID] = d
	s.mu.Unlock()

	return &d, nil
}

func (s *MemoryStore) ListDebts(_ context.Context) ([]Debt, error) {
	s.mu.RLock()
	out := make([]Debt, 0, len(s.debts))
	for _, d := range s.debts {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sortDebtsNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) SettleDebt(_ context.Context, id uuid.UUID) (*Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.debts[id]
	if !ok {
		return nil, fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	if !d.IsSettled {
		settledAt := s.now()
		d.IsSettled = true
		d.SettledAt = &settledAt
		s.debts[id] = d
	}
	return &d, nil
}

func (s *MemoryStore) DeleteDebt(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.debts[id]; !ok {
		return fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	delete(s.debts, id)
	return nil
}

func (s *MemoryStore) GetBudget(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget, nil
}

func (s *MemoryStore) SetBudget(_ context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	s.budget = amount
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetOverride(_ context.Context, kind OverrideKind, o Override) error {
	if o.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	s.overrides[kind] = o
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetOverride(_ context.Context, kind OverrideKind) (*Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.overrides[kind]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *MemoryStore) ClearOverride(_ context.Context, kind OverrideKind) error {
	s.mu.Lock()
	delete(s.overrides, kind)
	s.mu.Unlock()
	return nil
}
