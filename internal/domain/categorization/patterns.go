package categorization

import (
	"fmt"
	"sort"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// DefaultMinCount is the smallest group of uncategorized records worth a
// bulk suggestion.
const DefaultMinCount = 2

// PayeePattern is a group of uncategorized records sharing a payee, with the
// category most often used for that payee elsewhere in the ledger.
type PayeePattern struct {
	Payee                 string   `json:"payee"` // as written on the first record of the group
	TransactionIDs        []string `json:"transaction_ids"`
	Count                 int      `json:"count"`
	SuggestedCategoryID   string   `json:"suggested_category_id,omitempty"`
	SuggestedCategoryName string   `json:"suggested_category_name,omitempty"`
	ExistingCount         int      `json:"existing_count"`
}

type payeeGroup struct {
	key     string
	records []ledger.Record
}

type categoryTally struct {
	categoryID string
	count      int
}

// DetectPatterns groups uncategorized records by payee and suggests the most
// used category for each group from all. Groups smaller than minCount are
// dropped; minCount < 1 means DefaultMinCount. The result is sorted by Count
// descending, ties keeping first-seen order.
func DetectPatterns(uncategorized, all []ledger.Record, minCount int) []PayeePattern {
	return DetectPatternsWithCategories(uncategorized, all, nil, minCount)
}

// DetectPatternsWithCategories is DetectPatterns with SuggestedCategoryName
// resolved from categories.
func DetectPatternsWithCategories(uncategorized, all []ledger.Record, categories []ledger.Category, minCount int) []PayeePattern {
	if minCount < 1 {
		minCount = DefaultMinCount
	}

	groups := groupByPayee(uncategorized, minCount)
	best := mostUsedCategories(all)
	names := ledger.CategoryNames(categories)

	patterns := make([]PayeePattern, 0, len(groups))
	for _, g := range groups {
		p := PayeePattern{
			Payee:          g.records[0].Payee,
			TransactionIDs: make([]string, 0, len(g.records)),
			Count:          len(g.records),
		}
		for _, r := range g.records {
			p.TransactionIDs = append(p.TransactionIDs, r.ID)
		}
		if tally, ok := best[g.key]; ok {
			p.SuggestedCategoryID = tally.categoryID
			p.SuggestedCategoryName = names[tally.categoryID]
			p.ExistingCount = tally.count
		}
		patterns = append(patterns, p)
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Count > patterns[j].Count
	})
	return patterns
}

// FormatSuggestion renders the prompt shown next to a pattern.
func FormatSuggestion(p PayeePattern) string {
	if p.SuggestedCategoryName == "" {
		return fmt.Sprintf("Categorize all %d '%s' transactions", p.Count, p.Payee)
	}
	return fmt.Sprintf("Categorize all '%s' as %s?", p.Payee, p.SuggestedCategoryName)
}

// groupByPayee keeps only records with a nil CategoryID and a non-empty key.
func groupByPayee(records []ledger.Record, minCount int) []payeeGroup {
	index := make(map[string]int)
	var groups []payeeGroup

	for _, r := range records {
		if r.CategoryID != nil {
			continue
		}
		key := normalizer.NormalizeForGrouping(r.Payee)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, payeeGroup{key: key})
		}
		groups[i].records = append(groups[i].records, r)
	}

	kept := groups[:0]
	for _, g := range groups {
		if len(g.records) >= minCount {
			kept = append(kept, g)
		}
	}
	return kept
}

// mostUsedCategories maps a grouping key to its most frequent category among
// categorized records. Ties go to the category seen first.
func mostUsedCategories(records []ledger.Record) map[string]categoryTally {
	type counts struct {
		order []string
		n     map[string]int
	}
	byPayee := make(map[string]*counts)
	var payeeOrder []string

	for _, r := range records {
		if !r.IsCategorized() {
			continue
		}
		key := normalizer.NormalizeForGrouping(r.Payee)
		if key == "" {
			continue
		}
		c, ok := byPayee[key]
		if !ok {
			c = &counts{n: make(map[string]int)}
			byPayee[key] = c
			payeeOrder = append(payeeOrder, key)
		}
		id := *r.CategoryID
		if _, seen := c.n[id]; !seen {
			c.order = append(c.order, id)
		}
		c.n[id]++
	}

	result := make(map[string]categoryTally, len(byPayee))
	for _, key := range payeeOrder {
		c := byPayee[key]
		var best categoryTally
		for _, id := range c.order {
			if c.n[id] > best.count {
				best = categoryTally{categoryID: id, count: c.n[id]}
			}
		}
		result[key] = best
	}
	return result
}
