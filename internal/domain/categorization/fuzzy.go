package categorization

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

// DefaultFuzzyThreshold is the minimum similarity (0-100) accepted by Categorize.
const DefaultFuzzyThreshold = 75

// FuzzyMatchResult is a candidate with its similarity score.
type FuzzyMatchResult struct {
	Candidate string
	Category  ledger.Category
	Score     int // 0-100, higher is closer
	Distance  int // Levenshtein
}

// FuzzyMatcher compares single words against keywords and category names.
type FuzzyMatcher struct {
	candidates []fuzzyCandidate
	mu         sync.RWMutex
}

type fuzzyCandidate struct {
	text     string
	category ledger.Category
}

// NewFuzzyMatcher builds a matcher from rules plus the category names themselves.
func NewFuzzyMatcher(rules []Rule) *FuzzyMatcher {
	fm := &FuzzyMatcher{}
	fm.Build(rules)
	return fm
}

func (fm *FuzzyMatcher) Build(rules []Rule) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	fm.candidates = make([]fuzzyCandidate, 0, len(rules)+len(ledger.Categories))
	for _, c := range ledger.Categories {
		if c == ledger.CategoryOthers {
			continue
		}
		fm.candidates = append(fm.candidates, fuzzyCandidate{text: string(c), category: c})
	}
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if len(kw) < 3 {
			continue
		}
		fm.candidates = append(fm.candidates, fuzzyCandidate{text: kw, category: r.Category})
	}
}

// Match returns the best candidate for any token of text scoring at least
// threshold, or nil.
func (fm *FuzzyMatcher) Match(text string, threshold int) *FuzzyMatchResult {
	ranked := fm.Rank(text, 1)
	if len(ranked) == 0 || ranked[0].Score < threshold {
		return nil
	}
	return &ranked[0]
}

// Rank scores every candidate against the best token of text, best first.
func (fm *FuzzyMatcher) Rank(text string, limit int) []FuzzyMatchResult {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	words := tokens(text)
	if len(words) == 0 || len(fm.candidates) == 0 {
		return nil
	}

	results := make([]FuzzyMatchResult, 0, len(fm.candidates))
	for _, c := range fm.candidates {
		best := FuzzyMatchResult{Candidate: c.text, Category: c.category, Score: -1}
		for _, w := range words {
			score := fuzzyScore(w, c.text)
			if score > best.Score {
				best.Score = score
				best.Distance = levenshteinDistance(w, c.text)
			}
		}
		results = append(results, best)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

// fuzzyScore rates two words 0-100 from containment, edit distance and
// subsequence rank, taking the best of the three.
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}

	// "medicines" vs "medicine"
	if strings.HasPrefix(s1, s2) && len(s2) >= 4 {
		return 75 + (25 * len(s2) / len(s1))
	}
	if strings.HasPrefix(s2, s1) && len(s1) >= 4 {
		return 75 + (25 * len(s1) / len(s2))
	}

	distance := levenshteinDistance(s1, s2)
	maxLen := max(len(s1), len(s2))
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	// abbreviations like "txtbk" against "textbook"
	subsequenceScore := 0
	if rank := fuzzy.RankMatch(s1, s2); rank >= 0 && len(s1) >= 4 {
		subsequenceScore = 85 - (rank * 40 / len(s2))
	}

	return max(levenshteinScore, subsequenceScore)
}

func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
