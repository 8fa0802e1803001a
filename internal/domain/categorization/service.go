package categorization

import (
	"log/slog"
	"strings"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

// Layer names the step that produced a category.
type Layer string

const (
	LayerExplicit Layer = "explicit"
	LayerKeyword  Layer = "keyword"
	LayerSearch   Layer = "search"
	LayerFuzzy    Layer = "fuzzy"
	LayerDefault  Layer = "default"
)

// Result is the outcome of a categorization.
type Result struct {
	Category ledger.Category
	Layer    Layer
	Match    string // keyword or candidate that decided it, empty for the default
}

// Service picks a category for free text. It is safe for concurrent use.
type Service struct {
	engine    *Engine
	index     *SearchIndex
	fuzzy     *FuzzyMatcher
	threshold int
	logger    *slog.Logger
}

// NewService builds every layer from rules. A nil rules slice loads DefaultRules.
func NewService(rules []Rule, logger *slog.Logger) (*Service, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}

	index, err := NewSearchIndex(rules)
	if err != nil {
		return nil, err
	}

	return &Service{
		engine:    NewEngine(rules),
		index:     index,
		fuzzy:     NewFuzzyMatcher(rules),
		threshold: DefaultFuzzyThreshold,
		logger:    logger,
	}, nil
}

// Categorize implements ledger.Categorizer.
func (s *Service) Categorize(text string) ledger.Category {
	return s.Explain(text).Category
}

// Explain runs keyword, search and fuzzy layers in order and stops at the first hit.
func (s *Service) Explain(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Category: ledger.CategoryOthers, Layer: LayerDefault}
	}

	if m := s.engine.Match(text); m != nil {
		return Result{Category: m.Category, Layer: LayerKeyword, Match: m.Keyword}
	}

	hits, err := s.index.Search(text, 1)
	if err != nil {
		s.logger.Warn("category search failed", slog.String("text", text), slog.Any("error", err))
	} else if len(hits) > 0 {
		return Result{Category: hits[0].Category, Layer: LayerSearch}
	}

	if m := s.fuzzy.Match(text, s.threshold); m != nil {
		return Result{Category: m.Category, Layer: LayerFuzzy, Match: m.Candidate}
	}

	return Result{Category: ledger.CategoryOthers, Layer: LayerDefault}
}

// Normalize maps a category proposed by someone else (the oracle, a CSV
// column) onto the vocabulary. Known names pass through; anything else is
// run through the layers together with the description.
func (s *Service) Normalize(raw, description string) ledger.Category {
	if c, ok := ledger.ParseCategory(raw); ok {
		return c
	}
	res := s.Explain(strings.TrimSpace(raw + " " + description))
	s.logger.Debug("normalized category",
		slog.String("raw", raw),
		slog.String("category", string(res.Category)),
		slog.String("layer", string(res.Layer)),
	)
	return res.Category
}

// Close releases the search index.
func (s *Service) Close() error {
	return s.index.Close()
}
