package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

// Canned replies for oracle failures.
const (
	quotaText   = "I'm currently unable to help due to API quota limits. Please check your Gemini account usage."
	rateText    = "I'm being rate limited. Please wait a moment and try again."
	genericText = "I'm having trouble connecting to my AI service right now. Please try again in a moment."
)

// CategoryNormalizer maps a free-form category onto the vocabulary.
type CategoryNormalizer interface {
	Normalize(raw, description string) ledger.Category
}

// Classifier asks the oracle for a structured intent.
type Classifier struct {
	oracle     Oracle
	categories CategoryNormalizer
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewClassifier creates a classifier. A zero timeout disables the per-call deadline.
func NewClassifier(oracle Oracle, categories CategoryNormalizer, timeout time.Duration, logger *slog.Logger) *Classifier {
	return &Classifier{
		oracle:     oracle,
		categories: categories,
		timeout:    timeout,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces time.Now.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// rawIntent is the oracle's JSON shape. Every field but intent and
// response_text may be missing or null.
type rawIntent struct {
	Intent          string           `json:"intent"`
	Amount          *decimal.Decimal `json:"amount"`
	Category        *string          `json:"category"`
	Description     *string          `json:"description"`
	Date            *string          `json:"date"`
	QueryType       *string          `json:"query_type"`
	CategoryFilter  *string          `json:"category_filter"`
	BudgetAmount    *decimal.Decimal `json:"budget_amount"`
	BudgetLeft      *decimal.Decimal `json:"budget_left"`
	FriendName      *string          `json:"friend_name"`
	DebtAmount      *decimal.Decimal `json:"debt_amount"`
	DebtType        *string          `json:"debt_type"`
	DebtDescription *string          `json:"debt_description"`
	ResponseText    *string          `json:"response_text"`
}

// Classify never fails: oracle errors become Unclear with a reply naming the cause.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	intent, _ := c.classify(ctx, message)
	return intent
}

// classify also returns the oracle error so the caller can record it.
func (c *Classifier) classify(ctx context.Context, message string) (Intent, error) {
	now := c.now()

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.oracle.Complete(callCtx, ClassifierPrompt(now), message, IntentSchema())
	if err != nil {
		c.logger.Warn("intent classification failed", slog.Any("error", err))
		return failureIntent(err), err
	}

	var raw rawIntent
	if err := json.Unmarshal(out, &raw); err != nil {
		oerr := NewOracleError(OracleInvalidOutput, err)
		c.logger.Warn("oracle returned invalid JSON", slog.Any("error", err))
		return failureIntent(oerr), oerr
	}

	intent, err := c.toIntent(message, raw, now)
	if err != nil {
		oerr := NewOracleError(OracleInvalidOutput, err)
		c.logger.Warn("oracle returned unusable intent", slog.String("intent", raw.Intent), slog.Any("error", err))
		return failureIntent(oerr), oerr
	}
	return intent, nil
}

func failureIntent(err error) *Unclear {
	switch ErrorKind(err) {
	case OracleQuotaExceeded:
		return newUnclear(quotaText)
	case OracleRateLimited:
		return newUnclear(rateText)
	default:
		return newUnclear(genericText)
	}
}

var errMissingField = errors.New("missing required field")

func (c *Classifier) toIntent(message string, raw rawIntent, now time.Time) (Intent, error) {
	if raw.Intent == "" || raw.ResponseText == nil {
		return nil, errMissingField
	}
	d := draft{ResponseText: *raw.ResponseText}

	switch IntentKind(strings.ToLower(strings.TrimSpace(raw.Intent))) {
	case KindAddExpense:
		description := str(raw.Description)
		return &AddExpense{
			draft:       d,
			Amount:      firstAmount(raw.Amount),
			Category:    c.category(str(raw.Category), description),
			Description: description,
			Date:        ResolveDate(message, str(raw.Date), now),
		}, nil

	case KindAddDebt:
		direction, ok := ledger.ParseDirection(str(raw.DebtType))
		if !ok {
			direction = ledger.TheyOweMe
		}
		description := str(raw.DebtDescription)
		if description == "" {
			description = str(raw.Description)
		}
		return &AddDebt{
			draft:       d,
			FriendName:  str(raw.FriendName),
			Amount:      firstAmount(raw.DebtAmount, raw.Amount),
			Direction:   direction,
			Description: description,
		}, nil

	case KindQueryExpenses:
		q := &QueryExpenses{draft: d, QueryType: ExpenseQuery(strings.ToLower(str(raw.QueryType)))}
		if cat, ok := ledger.ParseCategory(str(raw.CategoryFilter)); ok {
			q.CategoryFilter = cat
		}
		return q, nil

	case KindQueryDebts:
		qt := DebtQuery(strings.ToLower(str(raw.QueryType)))
		switch qt {
		case DebtQueryTotalOwed, DebtQueryTotalOwing, DebtQueryNetBalance:
		default:
			qt = DebtQueryList
		}
		return &QueryDebts{draft: d, QueryType: qt}, nil

	case KindSetBudget:
		if raw.BudgetAmount == nil && raw.Amount == nil {
			return newUnclear("How much would you like your monthly budget to be? Try \"Set my budget to ₹5000\"."), nil
		}
		return &SetBudget{draft: d, Amount: firstAmount(raw.BudgetAmount, raw.Amount)}, nil

	case KindSetBudgetLeft:
		if raw.BudgetLeft == nil && raw.Amount == nil {
			return newUnclear("How much would you like to have left this month? Try \"I want ₹2000 left\"."), nil
		}
		return &SetBudgetLeft{draft: d, TargetRemaining: firstAmount(raw.BudgetLeft, raw.Amount)}, nil

	case KindResetToday:
		return &ResetToday{d}, nil
	case KindGeneralHelp:
		return &GeneralHelp{d}, nil
	case KindUnclear:
		return &Unclear{d}, nil
	default:
		return nil, errors.New("unknown intent " + raw.Intent)
	}
}

func (c *Classifier) category(raw, description string) ledger.Category {
	if cat, ok := ledger.ParseCategory(raw); ok {
		return cat
	}
	if c.categories == nil || (raw == "" && description == "") {
		return ledger.CategoryOthers
	}
	return c.categories.Normalize(raw, description)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func firstAmount(candidates ...*decimal.Decimal) decimal.Decimal {
	for _, a := range candidates {
		if a != nil {
			return a.Round(2)
		}
	}
	return decimal.Zero
}
