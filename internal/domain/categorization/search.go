package categorization

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/FACorreiaa/student-expense-tracker/internal/domain/ledger"
)

// SearchDocument is one category with every keyword that points at it.
type SearchDocument struct {
	Category string `json:"category"`
	Keywords string `json:"keywords"`
}

// SearchResult is a category hit with its relevance score.
type SearchResult struct {
	Category ledger.Category
	Score    float64
}

// SearchIndex is an in-memory Bleve index used for typo-tolerant lookups
// such as "lunhc" or "recharg".
type SearchIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewSearchIndex builds an in-memory index over rules.
func NewSearchIndex(rules []Rule) (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	si := &SearchIndex{index: index}
	if err := si.IndexRules(rules); err != nil {
		_ = index.Close()
		return nil, err
	}
	return si, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("keywords", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// IndexRules (re)indexes one document per category.
func (si *SearchIndex) IndexRules(rules []Rule) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	grouped := make(map[ledger.Category][]string)
	for _, r := range rules {
		grouped[r.Category] = append(grouped[r.Category], strings.ToLower(r.Keyword))
	}

	batch := si.index.NewBatch()
	for category, kws := range grouped {
		doc := SearchDocument{
			Category: string(category),
			Keywords: string(category) + " " + strings.Join(kws, " "),
		}
		if err := batch.Index(doc.Category, doc); err != nil {
			return fmt.Errorf("failed to index category %s: %w", category, err)
		}
	}
	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search runs a fuzziness-1 match query over the useful tokens of text.
func (si *SearchIndex) Search(text string, limit int) ([]SearchResult, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	words := tokens(text)
	if len(words) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	matchQuery := bleve.NewMatchQuery(strings.Join(words, " "))
	matchQuery.SetField("keywords")
	matchQuery.SetFuzziness(1)

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit

	res, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		category, ok := ledger.ParseCategory(hit.ID)
		if !ok {
			continue
		}
		out = append(out, SearchResult{Category: category, Score: hit.Score})
	}
	return out, nil
}

// DocumentCount returns the number of indexed categories.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return si.index.DocCount()
}

// Close closes the index.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	if si.index != nil {
		return si.index.Close()
	}
	return nil
}
