package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// descriptionsByCategory feeds realistic student spending into generated data.
var descriptionsByCategory = map[Category][]string{
	CategoryCanteen:       {"lunch", "chai", "samosa", "dinner", "coffee", "maggi"},
	CategoryTravel:        {"bus pass", "auto", "metro card", "train ticket", "uber"},
	CategoryBooks:         {"textbook", "novel", "reference book", "lab manual"},
	CategoryMobile:        {"recharge", "data pack", "phone cover"},
	CategoryAccommodation: {"hostel fee", "pg rent", "electricity bill"},
	CategoryEntertainment: {"movie", "concert", "netflix", "game"},
	CategoryMedical:       {"medicine", "doctor visit", "pharmacy"},
	CategoryClothing:      {"t-shirt", "jeans", "shoes"},
	CategoryStationery:    {"notebook", "pens", "printout", "xerox"},
	CategoryOthers:        {"gift", "donation", "laundry"},
}

// TestDataGenerator generates ledger records using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// Expense generates one expense dated between from and to.
func (g *TestDataGenerator) Expense(from, to time.Time) NewExpense {
	category := Categories[g.faker.Number(0, len(Categories)-1)]
	descriptions := descriptionsByCategory[category]

	return NewExpense{
		Amount:      decimal.NewFromInt(int64(g.faker.Number(10, 1500))),
		Category:    category,
		Description: g.faker.RandomString(descriptions),
		Date:        g.faker.DateRange(from, to),
	}
}

// Debt generates one open debt with a random friend.
func (g *TestDataGenerator) Debt() NewDebt {
	dir := TheyOweMe
	if g.faker.Bool() {
		dir = IOweThem
	}
	return NewDebt{
		FriendName:  g.faker.FirstName(),
		Amount:      decimal.NewFromInt(int64(g.faker.Number(50, 2000))),
		Direction:   dir,
		Description: g.faker.RandomString([]string{"dinner", "movie tickets", "books", "cab", "lunch"}),
	}
}

// Seed appends the requested number of expenses spread over the last days and debts.
func (g *TestDataGenerator) Seed(ctx context.Context, store Store, now time.Time, days, expenses, debts int) error {
	from := now.AddDate(0, 0, -days)
	for i := 0; i < expenses; i++ {
		if _, err := store.AppendExpense(ctx, g.Expense(from, now)); err != nil {
			return fmt.Errorf("failed to seed expense %d: %w", i, err)
		}
	}
	for i := 0; i < debts; i++ {
		if _, err := store.AppendDebt(ctx, g.Debt()); err != nil {
			return fmt.Errorf("failed to seed debt %d: %w", i, err)
		}
	}
	return nil
}
