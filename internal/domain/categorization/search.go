package categorization

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// RecordDocument is the indexed form of a ledger record.
type RecordDocument struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Payee       string  `json:"payee"`
	PayeeKey    string  `json:"payee_key"` // grouping key, exact-match field
	Memo        string  `json:"memo"`
	Text        string  `json:"text"` // payee and memo, for full-text queries
	CategoryID  string  `json:"category_id"`
	AccountID   string  `json:"account_id"`
	AmountCents float64 `json:"amount_cents"`
}

// SearchResult is a hit with its relevance score.
type SearchResult struct {
	Record ledger.Record `json:"record"`
	Score  float64       `json:"score"`
}

// SearchIndex is a full-text index over ledger records with fuzzy, prefix and
// query-string search.
type SearchIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
	path    string // empty for in-memory
}

// NewSearchIndex opens the index at path, creating it if needed. An empty
// path builds an in-memory index.
func NewSearchIndex(path string) (*SearchIndex, error) {
	si := &SearchIndex{path: path}

	var (
		index bleve.Index
		err   error
	)
	indexMapping := buildIndexMapping()

	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", mkdirErr)
		}
		index, err = bleve.New(path, indexMapping)
	} else {
		index, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	si.index = index
	return si, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	numericFieldMapping := bleve.NewNumericFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("date", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("payee", textFieldMapping)
	docMapping.AddFieldMappingsAt("payee_key", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("memo", textFieldMapping)
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("category_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("account_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("amount_cents", numericFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// IndexRecords adds or replaces records in one batch.
func (si *SearchIndex) IndexRecords(records []ledger.Record) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	batch := si.index.NewBatch()
	for _, r := range records {
		doc := RecordDocument{
			ID:          r.ID,
			Date:        r.Date,
			Payee:       r.Payee,
			PayeeKey:    normalizer.NormalizeForGrouping(r.Payee),
			Memo:        r.Memo,
			Text:        strings.TrimSpace(r.Payee + " " + r.Memo),
			CategoryID:  nullable(r.CategoryID),
			AccountID:   r.AccountID,
			AmountCents: float64(r.AmountCents),
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to index record %s: %w", r.ID, err)
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search matches payee and memo text, tolerating one typo per term.
func (si *SearchIndex) Search(text string, limit int) ([]SearchResult, error) {
	matchQuery := bleve.NewMatchQuery(text)
	matchQuery.SetField("text")
	matchQuery.SetFuzziness(1)
	return si.run(matchQuery, limit, "search")
}

// SearchWithPrefix finds records whose payee or memo has a word starting with prefix.
func (si *SearchIndex) SearchWithPrefix(prefix string, limit int) ([]SearchResult, error) {
	prefixQuery := bleve.NewPrefixQuery(strings.ToLower(strings.TrimSpace(prefix)))
	prefixQuery.SetField("text")
	return si.run(prefixQuery, limit, "prefix search")
}

// SearchFuzzy runs a single-term fuzzy query. fuzziness is clamped to 0-2.
func (si *SearchIndex) SearchFuzzy(term string, fuzziness int, limit int) ([]SearchResult, error) {
	fuzziness = max(0, min(fuzziness, 2))
	fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(term))
	fuzzyQuery.SetField("text")
	fuzzyQuery.SetFuzziness(fuzziness)
	return si.run(fuzzyQuery, limit, "fuzzy search")
}

// SearchAdvanced accepts bleve query-string syntax, e.g.
// "+payee:lidl -memo:refund amount_cents:<0".
func (si *SearchIndex) SearchAdvanced(queryString string, limit int) ([]SearchResult, error) {
	return si.run(bleve.NewQueryStringQuery(queryString), limit, "advanced search")
}

// SearchByPayee returns records whose grouping key equals payee's.
func (si *SearchIndex) SearchByPayee(payee string, limit int) ([]SearchResult, error) {
	termQuery := bleve.NewTermQuery(normalizer.NormalizeForGrouping(payee))
	termQuery.SetField("payee_key")
	return si.run(termQuery, limit, "payee search")
}

// SearchByCategory returns records filed under categoryID.
func (si *SearchIndex) SearchByCategory(categoryID string, limit int) ([]SearchResult, error) {
	termQuery := bleve.NewTermQuery(categoryID)
	termQuery.SetField("category_id")
	if limit <= 0 {
		limit = 100
	}
	return si.run(termQuery, limit, "category search")
}

func (si *SearchIndex) run(q query.Query, limit int, what string) ([]SearchResult, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", what, err)
	}
	return convertResults(searchResults), nil
}

func convertResults(searchResults *bleve.SearchResult) []SearchResult {
	results := make([]SearchResult, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		r := ledger.Record{ID: hit.ID}
		if v, ok := hit.Fields["date"].(string); ok {
			r.Date = v
		}
		if v, ok := hit.Fields["payee"].(string); ok {
			r.Payee = v
		}
		if v, ok := hit.Fields["memo"].(string); ok {
			r.Memo = v
		}
		if v, ok := hit.Fields["category_id"].(string); ok && v != "" {
			r.CategoryID = &v
		}
		if v, ok := hit.Fields["account_id"].(string); ok {
			r.AccountID = v
		}
		if v, ok := hit.Fields["amount_cents"].(float64); ok {
			r.AmountCents = int64(v)
		}
		results = append(results, SearchResult{Record: r, Score: hit.Score})
	}
	return results
}

// Clear removes every document.
func (si *SearchIndex) Clear() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	for {
		searchRequest := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
		searchRequest.Size = 10000
		searchResults, err := si.index.Search(searchRequest)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(searchResults.Hits) == 0 {
			return nil
		}

		batch := si.index.NewBatch()
		for _, hit := range searchResults.Hits {
			batch.Delete(hit.ID)
		}
		if err := si.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
	}
}

func (si *SearchIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	if si.index != nil {
		return si.index.Close()
	}
	return nil
}

// DocumentCount returns the number of indexed records.
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()
	return si.index.DocCount()
}

func nullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
