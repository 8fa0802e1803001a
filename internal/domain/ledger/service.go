package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingDescription = errors.New("description is required")
	ErrMissingFriendName  = errors.New("friend name is required")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownDirection   = errors.New("unknown debt type")
)

// Categorizer guesses a category from free text.
type Categorizer interface {
	Categorize(text string) Category
}

// Service exposes the form-driven ledger operations.
type Service struct {
	store       Store
	categorizer Categorizer
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a ledger service.
func NewService(store Store, categorizer Categorizer, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		categorizer: categorizer,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces time.Now; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Store returns the underlying record store.
func (s *Service) Store() Store {
	return s.store
}

// CreateExpenseInput is the form payload for a new expense.
type CreateExpenseInput struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        *time.Time
}

func (s *Service) CreateExpense(ctx context.Context, in CreateExpenseInput) (*Expense, error) {
	if in.Amount.IsNegative() || in.Amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, ErrMissingDescription
	}

	category, err := s.resolveCategory(in.Category, description)
	if err != nil {
		return nil, err
	}

	date := s.now()
	if in.Date != nil {
		date = *in.Date
	}

	e, err := s.store.AppendExpense(ctx, NewExpense{
		Amount:      in.Amount,
		Category:    category,
		Description: description,
		Date:        date,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense created",
		slog.String("expense_id", e.ID.String()),
		slog.String("category", string(e.Category)),
		slog.String("amount", e.Amount.String()),
	)
	return e, nil
}

// resolveCategory accepts a known category, infers one when blank, and rejects anything else.
func (s *Service) resolveCategory(raw, description string) (Category, error) {
	if strings.TrimSpace(raw) == "" {
		if s.categorizer == nil {
			return CategoryOthers, nil
		}
		return s.categorizer.Categorize(description), nil
	}
	c, ok := ParseCategory(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
	return c, nil
}

// UpdateExpenseInput is a partial form update.
type UpdateExpenseInput struct {
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	Date        *time.Time
}

func (s *Service) UpdateExpense(ctx context.Context, id uuid.UUID, in UpdateExpenseInput) (*Expense, error) {
	upd := ExpenseUpdate{Amount: in.Amount, Date: in.Date}
	if in.Amount != nil && !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if in.Category != nil {
		c, ok := ParseCategory(*in.Category)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, *in.Category)
		}
		upd.Category = &c
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			return nil, ErrMissingDescription
		}
		upd.Description = &d
	}
	return s.store.UpdateExpense(ctx, id, upd)
}

func (s *Service) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *Service) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logger.Info("expense deleted", slog.String("expense_id", id.String()))
	return nil
}

func (s *Service) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	return s.store.ListExpenses(ctx, filter)
}

// CreateDebtInput is the form payload for a new debt.
type CreateDebtInput struct {
	FriendName  string
	Amount      decimal.Decimal
	Direction   string
	Description string
}

func (s *Service) CreateDebt(ctx context.Context, in CreateDebtInput) (*Debt, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	name := strings.TrimSpace(in.FriendName)
	if name == "" {
		return nil, ErrMissingFriendName
	}
	dir, ok := ParseDirection(in.Direction)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, in.Direction)
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, ErrMissingDescription
	}

	d, err := s.store.AppendDebt(ctx, NewDebt{
		FriendName:  name,
		Amount:      in.Amount,
		Direction:   dir,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("debt created",
		slog.String("debt_id", d.ID.String()),
		slog.String("type", string(d.Direction)),
	)
	return d, nil
}

func (s *Service) ListDebts(ctx context.Context) ([]Debt, error) {
	return s.store.ListDebts(ctx)
}

func (s *Service) SettleDebt(ctx context.Context, id uuid.UUID) (*Debt, error) {
	d, err := s.store.SettleDebt(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("debt settled", slog.String("debt_id", id.String()))
	return d, nil
}

func (s *Service) DeleteDebt(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteDebt(ctx, id)
}

// Stats computes the dashboard figures as of now.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return ComputeStats(ctx, s.store, s.now())
}

// SetBudget overwrites the monthly budget. Zero means unset.
func (s *Service) SetBudget(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	return s.store.SetBudget(ctx, amount)
}

// SetOverride stores a manual figure for one of the dashboard stats.
func (s *Service) SetOverride(ctx context.Context, kind OverrideKind, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if err := s.store.SetOverride(ctx, kind, Override{Amount: amount, SetAt: s.now()}); err != nil {
		return err
	}
	s.logger.Info("stat override set",
		slog.String("kind", string(kind)),
		slog.String("amount", amount.String()),
	)
	return nil
}

// ExpireOverrides drops overrides whose window has ended as of now. Month
// overrides survive until the month turns; avg-daily overrides never expire here.
func (s *Service) ExpireOverrides(ctx context.Context) (int, error) {
	now := s.now()
	loc := now.Location()
	expired := 0

	for _, kind := range []OverrideKind{OverrideToday, OverrideMonth} {
		o, err := s.store.GetOverride(ctx, kind)
		if err != nil {
			return expired, err
		}
		if o == nil {
			continue
		}
		stale := kind == OverrideToday && !SameDay(o.SetAt, now, loc) ||
			kind == OverrideMonth && !SameMonth(o.SetAt, now, loc)
		if !stale {
			continue
		}
		if err := s.store.ClearOverride(ctx, kind); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
