package categorization

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

// MatchResult is a keyword hit with the rule that produced it.
type MatchResult struct {
	Keyword  string
	Category ledger.Category
	Priority int
}

// Engine matches every keyword in one pass over the text using Aho-Corasick.
type Engine struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	metadata [][]MatchResult // one group per unique pattern, same order as patterns
	mu       sync.RWMutex
}

// NewEngine builds an engine from rules.
func NewEngine(rules []Rule) *Engine {
	e := &Engine{}
	e.Build(rules)
	return e
}

// Build replaces the matcher. Patterns are padded with spaces so "pen" does
// not fire inside "spend".
func (e *Engine) Build(rules []Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(rules) == 0 {
		e.matcher = nil
		e.patterns = nil
		e.metadata = nil
		return
	}

	patternToIndex := make(map[string]int, len(rules))
	patterns := make([]string, 0, len(rules))
	metadata := make([][]MatchResult, 0, len(rules))

	for _, rule := range rules {
		kw := strings.TrimSpace(strings.ToLower(rule.Keyword))
		if kw == "" {
			continue
		}
		pattern := " " + kw + " "
		result := MatchResult{Keyword: kw, Category: rule.Category, Priority: rule.Priority}
		if idx, ok := patternToIndex[pattern]; ok {
			metadata[idx] = append(metadata[idx], result)
			continue
		}
		patternToIndex[pattern] = len(patterns)
		patterns = append(patterns, pattern)
		metadata = append(metadata, []MatchResult{result})
	}

	e.patterns = patterns
	e.metadata = metadata
	if len(patterns) == 0 {
		e.matcher = nil
		return
	}
	e.matcher = ahocorasick.NewStringMatcher(patterns)
}

// Match returns the best hit in text, or nil. Priority wins first, then the
// longer keyword.
func (e *Engine) Match(text string) *MatchResult {
	all := e.MatchAll(text)
	if len(all) == 0 {
		return nil
	}
	best := all[0]
	return &best
}

// MatchAll returns every hit, best first.
func (e *Engine) MatchAll(text string) []MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return nil
	}

	hits := e.matcher.MatchThreadSafe([]byte(normalize(text)))
	if len(hits) == 0 {
		return nil
	}

	results := make([]MatchResult, 0, len(hits))
	for _, idx := range hits {
		if idx >= 0 && idx < len(e.metadata) {
			results = append(results, e.metadata[idx]...)
		}
	}

	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && better(results[j], results[j-1]); j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	return results
}

// PatternCount returns the number of unique keywords loaded.
func (e *Engine) PatternCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.patterns)
}

func better(a, b MatchResult) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return len(a.Keyword) > len(b.Keyword)
}
