package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is the subset of pgxpool.Pool the store needs; pgxmock satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the ledger in PostgreSQL.
type PostgresStore struct {
	db            DBTX
	defaultBudget decimal.Decimal
	now           func() time.Time
}

// NewPostgresStore creates a store. defaultBudget is returned until a budget is written.
func NewPostgresStore(db DBTX, defaultBudget decimal.Decimal) *PostgresStore {
	return &PostgresStore{db: db, defaultBudget: defaultBudget, now: time.Now}
}

const expenseColumns = `id, amount, category, description, date, created_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	var category string
	if err := row.Scan(&e.ID, &e.Amount, &category, &e.Description, &e.Date, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Category = Category(category)
	return &e, nil
}

func (s *PostgresStore) AppendExpense(ctx context.Context, in NewExpense) (*Expense, error) {
	if in.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + expenseColumns

	e, err := scanExpense(s.db.QueryRow(ctx, query,
		uuid.New(), in.Amount, string(in.Category), in.Description, in.Date, s.now(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert expense: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	e, err := scanExpense(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) UpdateExpense(ctx context.Context, id uuid.UUID, upd ExpenseUpdate) (*Expense, error) {
	if upd.Amount != nil && upd.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var category *string
	if upd.Category != nil {
		c := string(*upd.Category)
		category = &c
	}

	query := `
		UPDATE expenses SET
			amount = COALESCE($2, amount),
			category = COALESCE($3, category),
			description = COALESCE($4, description),
			date = COALESCE($5, date)
		WHERE id = $1
		RETURNING ` + expenseColumns

	e, err := scanExpense(s.db.QueryRow(ctx, query, id, upd.Amount, category, upd.Description, upd.Date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

const debtColumns = `id, friend_name, amount, direction, description, is_settled, created_at, settled_at`

func scanDebt(row pgx.Row) (*Debt, error) {
	var d Debt
	var direction string
	if err := row.Scan(&d.ID, &d.FriendName, &d.Amount, &direction, &d.Description,
		&d.IsSettled, &d.CreatedAt, &d.SettledAt); err != nil {
		return nil, err
	}
	d.Direction = Direction(direction)
	return &d, nil
}

func (s *PostgresStore) AppendDebt(ctx context.Context, in NewDebt) (*Debt, error) {
	if in.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	query := `
		INSERT INTO debts (id, friend_name, amount, direction, description, is_settled, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING ` + debtColumns

	d, err := scanDebt(s.db.QueryRow(ctx, query,
		uuid.New(), in.FriendName, in.Amount, string(in.Direction), in.Description, s.now(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert debt: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDebts(ctx context.Context) ([]Debt, error) {
	rows, err := s.db.Query(ctx, `SELECT `+debtColumns+` FROM debts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var out []Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SettleDebt(ctx context.Context, id uuid.UUID) (*Debt, error) {
	query := `
		UPDATE debts SET is_settled = true, settled_at = COALESCE(settled_at, $2)
		WHERE id = $1
		RETURNING ` + debtColumns

	d, err := scanDebt(s.db.QueryRow(ctx, query, id, s.now()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to settle debt: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) DeleteDebt(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetBudget(ctx context.Context) (decimal.Decimal, error) {
	var budget decimal.Decimal
	err := s.db.QueryRow(ctx, `SELECT monthly_budget FROM ledger_settings WHERE id = 1`).Scan(&budget)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.defaultBudget, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get budget: %w", err)
	}
	return budget, nil
}

func (s *PostgresStore) SetBudget(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}

	query := `
		INSERT INTO ledger_settings (id, monthly_budget, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET
			monthly_budget = EXCLUDED.monthly_budget,
			updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, amount); err != nil {
		return fmt.Errorf("failed to set budget: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetOverride(ctx context.Context, kind OverrideKind, o Override) error {
	if o.Amount.IsNegative() {
		return ErrInvalidAmount
	}

	query := `
		INSERT INTO stat_overrides (kind, amount, set_at) VALUES ($1, $2, $3)
		ON CONFLICT (kind) DO UPDATE SET
			amount = EXCLUDED.amount,
			set_at = EXCLUDED.set_at
	`
	if _, err := s.db.Exec(ctx, query, string(kind), o.Amount, o.SetAt); err != nil {
		return fmt.Errorf("failed to set %s override: %w", kind, err)
	}
	return nil
}

func (s *PostgresStore) GetOverride(ctx context.Context, kind OverrideKind) (*Override, error) {
	var o Override
	err := s.db.QueryRow(ctx, `SELECT amount, set_at FROM stat_overrides WHERE kind = $1`, string(kind)).
		Scan(&o.Amount, &o.SetAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s override: %w", kind, err)
	}
	return &o, nil
}

func (s *PostgresStore) ClearOverride(ctx context.Context, kind OverrideKind) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM stat_overrides WHERE kind = $1`, string(kind)); err != nil {
		return fmt.Errorf("failed to clear %s override: %w", kind, err)
	}
	return nil
}
