package categorization

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

var ErrEmptyKeyword = errors.New("keyword rule has no keyword")

// RuleSource tells where a keyword rule came from.
type RuleSource string

const (
	SourceKeyword RuleSource = "keyword" // written by the user
	SourceHistory RuleSource = "history" // learned from categorized ledger records
)

// userRuleBoost keeps any user rule ahead of any learned rule.
const userRuleBoost = 1000

// minLearnedKeyword is the shortest payee key turned into a learned rule.
// Shorter keys match inside too many unrelated payees.
const minLearnedKeyword = 3

// KeywordRule assigns CategoryID to any text containing Keyword, ignoring case.
type KeywordRule struct {
	ID           string     `csv:"id" json:"id"`
	Keyword      string     `csv:"keyword" json:"keyword"`
	CategoryID   string     `csv:"category_id" json:"category_id"`
	CategoryName string     `csv:"category_name" json:"category_name,omitempty"`
	Priority     int        `csv:"priority" json:"priority"`
	Source       RuleSource `csv:"-" json:"source"`
}

// ReadRulesCSV loads user keyword rules. Rows without an id get a new one.
func ReadRulesCSV(r io.Reader) ([]KeywordRule, error) {
	var rows []*KeywordRule
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read keyword rules: %w", err)
	}

	rules := make([]KeywordRule, 0, len(rows))
	for i, row := range rows {
		row.Keyword = strings.TrimSpace(row.Keyword)
		if row.Keyword == "" {
			return nil, fmt.Errorf("line %d: %w", i+2, ErrEmptyKeyword)
		}
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.Source = SourceKeyword
		rules = append(rules, *row)
	}
	return rules, nil
}

// WriteRulesCSV writes rules in the layout ReadRulesCSV accepts.
func WriteRulesCSV(w io.Writer, rules []KeywordRule) error {
	rows := make([]*KeywordRule, 0, len(rules))
	for i := range rules {
		rows = append(rows, &rules[i])
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write keyword rules: %w", err)
	}
	return nil
}

// RulesFromLedger learns one rule per payee from categorized records: the
// payee's grouping key maps to its most used category, with the usage count
// as priority. Payees used fewer than minCount times are ignored. IDs are
// stable for the same payee key.
func RulesFromLedger(records []ledger.Record, categories []ledger.Category, minCount int) []KeywordRule {
	if minCount < 1 {
		minCount = 1
	}
	names := ledger.CategoryNames(categories)

	best := mostUsedCategories(records)
	keys := make([]string, 0, len(best))
	for key, tally := range best {
		if tally.count >= minCount && len([]rune(key)) >= minLearnedKeyword {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	rules := make([]KeywordRule, 0, len(keys))
	for _, key := range keys {
		tally := best[key]
		rules = append(rules, KeywordRule{
			ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte("payee:"+key)).String(),
			Keyword:      key,
			CategoryID:   tally.categoryID,
			CategoryName: names[tally.categoryID],
			Priority:     tally.count,
			Source:       SourceHistory,
		})
	}
	return rules
}

// keywordKey is the form rules and text are compared in.
func keywordKey(s string) string {
	return strings.ToUpper(normalizer.NormalizeForGrouping(s))
}
