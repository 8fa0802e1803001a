package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/student-expense-tracker/pkg/metrics"
)

var chatTracer = otel.Tracer("chat/service")

// ErrEmptyMessage is returned for blank messages before any work is done.
var ErrEmptyMessage = errors.New("message is required")

const budgetReminderText = "🎯 **First set your budget!** Try: \"Set my budget to ₹5000\""

// Pipeline paths, used as a metric label and in logs.
const (
	PathBudgetGate = "budget_gate"
	PathFastPath   = "fast_path"
	PathOracle     = "oracle"
)

// Response is what the chat endpoint returns.
type Response struct {
	Intent       IntentKind       `json:"intent"`
	ResponseText string           `json:"response_text"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Category     string           `json:"category,omitempty"`
	Description  string           `json:"description,omitempty"`
	Date         string           `json:"date,omitempty"`
	BudgetAmount *decimal.Decimal `json:"budget_amount,omitempty"`
	FriendName   string           `json:"friend_name,omitempty"`
	DebtType     string           `json:"debt_type,omitempty"`
	QueryType    string           `json:"query_type,omitempty"`

	Path    string `json:"-"`
	Mutated bool   `json:"-"`
}

// Options tune the pipeline.
type Options struct {
	// OracleTimeout bounds each oracle call. Zero disables the deadline.
	OracleTimeout time.Duration
}

// Service runs one chat message through the budget gate, the fast path or
// the oracle, and the dispatcher.
type Service struct {
	store      RecordStore
	fastPath   *FastPath
	classifier *Classifier
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(store RecordStore, oracle Oracle, categories CategoryNormalizer, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	oracle = &observedOracle{next: oracle, metrics: m}
	insights := NewInsights(store, oracle, opts.OracleTimeout, logger)
	return &Service{
		store:      store,
		fastPath:   NewFastPath(),
		classifier: NewClassifier(oracle, categories, opts.OracleTimeout, logger),
		dispatcher: NewDispatcher(store, insights, logger),
		metrics:    m,
		logger:     logger,
	}
}

// WithClock replaces time.Now for every stage.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.classifier.WithClock(now)
	s.dispatcher.WithClock(now)
	return s
}

// HandleChatMessage classifies message, performs at most one mutation and
// returns a reply describing what was done. Only an empty message is an error;
// every downstream failure is reported in the reply text.
func (s *Service) HandleChatMessage(ctx context.Context, message string) (*Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	ctx, span := chatTracer.Start(ctx, "ChatService.HandleChatMessage")
	defer span.End()

	if intent, ok := s.budgetGate(ctx, message); ok {
		return s.finish(ctx, PathBudgetGate, Outcome{Intent: intent}), nil
	}

	path := PathFastPath
	intent, matched := s.fastPath.Match(message)
	if !matched {
		path = PathOracle
		var err error
		intent, err = s.classify(ctx, message)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "classification failed")
		}
	}
	span.SetAttributes(
		attribute.String("chat.path", path),
		attribute.String("chat.intent", string(intent.Kind())),
	)

	outcome := s.dispatch(ctx, message, intent)
	return s.finish(ctx, path, outcome), nil
}

// budgetGate asks the user to set a budget first while none is set, unless
// the message is already about setting one.
func (s *Service) budgetGate(ctx context.Context, message string) (Intent, bool) {
	budget, err := s.store.GetBudget(ctx)
	if err != nil {
		s.logger.Warn("failed to read budget, skipping budget reminder", slog.Any("error", err))
		return nil, false
	}
	if !budget.IsZero() {
		return nil, false
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "budget") || strings.Contains(lower, "set") {
		return nil, false
	}
	return newGeneralHelp(budgetReminderText), true
}

func (s *Service) classify(ctx context.Context, message string) (Intent, error) {
	ctx, span := chatTracer.Start(ctx, "Classifier.Classify")
	defer span.End()

	intent, err := s.classifier.classify(ctx, message)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("oracle.error_kind", ErrorKind(err).String()))
	}
	return intent, err
}

func (s *Service) dispatch(ctx context.Context, message string, intent Intent) Outcome {
	ctx, span := chatTracer.Start(ctx, "Dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("chat.intent", string(intent.Kind())))

	outcome := s.dispatcher.Dispatch(ctx, message, intent)
	if outcome.ActionErr != nil {
		span.RecordError(outcome.ActionErr)
		span.SetStatus(codes.Error, "action failed")
		s.metrics.ActionFailed(string(intent.Kind()))
	}
	span.SetAttributes(attribute.Bool("chat.mutated", outcome.Mutated))
	return outcome
}

func (s *Service) finish(ctx context.Context, path string, outcome Outcome) *Response {
	kind := outcome.Intent.Kind()
	s.metrics.IntentHandled(string(kind), path)
	s.logger.InfoContext(ctx, "chat message handled",
		slog.String("intent", string(kind)),
		slog.String("path", path),
		slog.Bool("mutated", outcome.Mutated),
		slog.Bool("action_failed", outcome.ActionErr != nil),
	)

	resp := toResponse(outcome)
	resp.Path = path
	return resp
}

func toResponse(outcome Outcome) *Response {
	resp := &Response{
		Intent:       outcome.Intent.Kind(),
		ResponseText: outcome.Intent.Text(),
		Mutated:      outcome.Mutated,
	}

	switch in := outcome.Intent.(type) {
	case *AddExpense:
		resp.Amount = amountPtr(in.Amount)
		resp.Category = string(in.Category)
		resp.Description = in.Description
		if outcome.Date != nil {
			resp.Date = outcome.Date.Format(isoLayout)
		} else {
			resp.Date = in.Date.String()
		}
	case *AddDebt:
		resp.Amount = amountPtr(in.Amount)
		resp.FriendName = in.FriendName
		resp.DebtType = string(in.Direction)
		resp.Description = in.Description
	case *SetBudget:
		resp.BudgetAmount = amountPtr(in.Amount)
	case *SetBudgetLeft:
		resp.Amount = amountPtr(in.TargetRemaining)
	case *QueryExpenses:
		resp.QueryType = string(in.QueryType)
		resp.Category = string(in.CategoryFilter)
	case *QueryDebts:
		resp.QueryType = string(in.QueryType)
	}
	return resp
}

func amountPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// observedOracle times every oracle call.
type observedOracle struct {
	next    Oracle
	metrics *metrics.Metrics
}

func (o *observedOracle) Complete(ctx context.Context, systemPrompt, userMessage string, schema *Schema) (json.RawMessage, error) {
	start := time.Now()
	out, err := o.next.Complete(ctx, systemPrompt, userMessage, schema)
	o.metrics.OracleObserved("classify", outcomeLabel(err), time.Since(start))
	return out, err
}

func (o *observedOracle) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	start := time.Now()
	out, err := o.next.Generate(ctx, systemPrompt, prompt)
	o.metrics.OracleObserved("insight", outcomeLabel(err), time.Since(start))
	return out, err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return ErrorKind(err).String()
}
