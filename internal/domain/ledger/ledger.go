// Package ledger is the record store for expenses, peer debts, the monthly
// budget and the manual stat overrides shown on the dashboard.
package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidAmount = errors.New("amount must not be negative")
)

// Category is one of the fixed student spending buckets.
type Category string

const (
	CategoryCanteen       Category = "canteen"
	CategoryTravel        Category = "travel"
	CategoryBooks         Category = "books"
	CategoryMobile        Category = "mobile"
	CategoryAccommodation Category = "accommodation"
	CategoryEntertainment Category = "entertainment"
	CategoryMedical       Category = "medical"
	CategoryClothing      Category = "clothing"
	CategoryStationery    Category = "stationery"
	CategoryOthers        Category = "others"
)

// Categories lists the vocabulary in display order.
var Categories = []Category{
	CategoryCanteen,
	CategoryTravel,
	CategoryBooks,
	CategoryMobile,
	CategoryAccommodation,
	CategoryEntertainment,
	CategoryMedical,
	CategoryClothing,
	CategoryStationery,
	CategoryOthers,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Direction says who owes whom in a debt.
type Direction string

const (
	IOweThem  Direction = "I_OWE_THEM"
	TheyOweMe Direction = "THEY_OWE_ME"
)

// ParseDirection accepts the canonical constants in any case.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case IOweThem:
		return IOweThem, true
	case TheyOweMe:
		return TheyOweMe, true
	}
	return "", false
}

type Expense struct {
	ID          uuid.UUID       `json:"id" csv:"id"`
	Amount      decimal.Decimal `json:"amount" csv:"amount"`
	Category    Category        `json:"category" csv:"category"`
	Description string          `json:"description" csv:"description"`
	Date        time.Time       `json:"date" csv:"date"`
	CreatedAt   time.Time       `json:"createdAt" csv:"created_at"`
}

// NewExpense is the input for AppendExpense.
type NewExpense struct {
	Amount      decimal.Decimal
	Category    Category
	Description string
	Date        time.Time
}

// ExpenseUpdate carries a partial update; nil fields are left alone.
type ExpenseUpdate struct {
	Amount      *decimal.Decimal
	Category    *Category
	Description *string
	Date        *time.Time
}

// ExpenseFilter narrows ListExpenses. Zero value lists everything.
type ExpenseFilter struct {
	Category *Category
	From     *time.Time // inclusive
	To       *time.Time // inclusive
}

func (f ExpenseFilter) matches(e Expense) bool {
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	return true
}

type Debt struct {
	ID          uuid.UUID       `json:"id"`
	FriendName  string          `json:"friendName"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"type"`
	Description string          `json:"description"`
	IsSettled   bool            `json:"isSettled"`
	CreatedAt   time.Time       `json:"createdAt"`
	SettledAt   *time.Time      `json:"settledAt,omitempty"`
}

// NewDebt is the input for AppendDebt.
type NewDebt struct {
	FriendName  string
	Amount      decimal.Decimal
	Direction   Direction
	Description string
}

// OverrideKind names a dashboard figure that can be set by hand.
type OverrideKind string

const (
	OverrideToday    OverrideKind = "today"
	OverrideMonth    OverrideKind = "month"
	OverrideAvgDaily OverrideKind = "avg_daily"
)

// Override is a manually entered figure. It is advisory: SetAt is compared
// with expense creation times to decide whether it still applies.
type Override struct {
	Amount decimal.Decimal
	SetAt  time.Time
}

// Store is the record-store contract shared by the memory and postgres backends.
type Store interface {
	AppendExpense(ctx context.Context, in NewExpense) (*Expense, error)
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	UpdateExpense(ctx context.Context, id uuid.UUID, upd ExpenseUpdate) (*Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	// ListExpenses returns matching expenses newest first.
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)

	AppendDebt(ctx context.Context, in NewDebt) (*Debt, error)
	// ListDebts returns debts newest first.
	ListDebts(ctx context.Context) ([]Debt, error)
	SettleDebt(ctx context.Context, id uuid.UUID) (*Debt, error)
	DeleteDebt(ctx context.Context, id uuid.UUID) error

	GetBudget(ctx context.Context) (decimal.Decimal, error)
	SetBudget(ctx context.Context, amount decimal.Decimal) error

	SetOverride(ctx context.Context, kind OverrideKind, o Override) error
	// GetOverride returns nil when no override is stored.
	GetOverride(ctx context.Context, kind OverrideKind) (*Override, error)
	ClearOverride(ctx context.Context, kind OverrideKind) error
}

func sortNewestFirst(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return newer(expenses[i], expenses[j])
	})
}

func newer(a, b Expense) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func sortDebtsNewestFirst(debts []Debt) {
	sort.SliceStable(debts, func(i, j int) bool {
		return debts[i].CreatedAt.After(debts[j].CreatedAt)
	})
}
