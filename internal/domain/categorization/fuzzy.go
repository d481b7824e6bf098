package categorization

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// PayeeSuggestion is a known ledger payee ranked against some input.
type PayeeSuggestion struct {
	Payee      string `json:"payee"`       // as first written in the ledger
	CategoryID string `json:"category_id"` // most used category, empty if never categorized
	Count      int    `json:"count"`       // ledger records with this payee
	Score      int    `json:"score"`       // 0-100, higher is closer
	Distance   int    `json:"distance"`    // Levenshtein distance on the normalized forms
}

// PayeeMatcher ranks known ledger payees against free text. It backs payee
// autocomplete and the fallback category guess for statement rows that no
// keyword rule covers.
type PayeeMatcher struct {
	payees []knownPayee
	mu     sync.RWMutex
}

type knownPayee struct {
	normalized string // uppercase grouping key
	display    string
	categoryID string
	count      int
}

// NewPayeeMatcher indexes the distinct payees of records.
func NewPayeeMatcher(records []ledger.Record) *PayeeMatcher {
	pm := &PayeeMatcher{}
	pm.Build(records)
	return pm
}

// Build replaces the known payees.
func (pm *PayeeMatcher) Build(records []ledger.Record) {
	best := mostUsedCategories(records)

	index := make(map[string]int)
	payees := make([]knownPayee, 0)
	for _, r := range records {
		key := normalizer.NormalizeForGrouping(r.Payee)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			payees[i].count++
			continue
		}
		index[key] = len(payees)
		payees = append(payees, knownPayee{
			normalized: strings.ToUpper(key),
			display:    strings.TrimSpace(r.Payee),
			categoryID: best[key].categoryID,
			count:      1,
		})
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.payees = payees
}

// Match returns the closest payee scoring at least threshold (0-100), or nil.
// Equal scores prefer the payee seen more often.
func (pm *PayeeMatcher) Match(text string, threshold int) *PayeeSuggestion {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	normalized := keywordKey(cleanDescription(text))
	if normalized == "" {
		return nil
	}

	var best *PayeeSuggestion
	for _, p := range pm.payees {
		score := fuzzyScore(normalized, p.normalized)
		if score < threshold {
			continue
		}
		if best == nil || score > best.Score || (score == best.Score && p.count > best.Count) {
			s := p.suggestion(normalized, score)
			best = &s
		}
	}
	return best
}

// Suggest ranks known payees for autocomplete. Payees scoring below
// threshold are left out; limit <= 0 returns all.
func (pm *PayeeMatcher) Suggest(text string, threshold, limit int) []PayeeSuggestion {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	normalized := keywordKey(text)
	if normalized == "" {
		return nil
	}

	var results []PayeeSuggestion
	for _, p := range pm.payees {
		if score := fuzzyScore(normalized, p.normalized); score >= threshold {
			results = append(results, p.suggestion(normalized, score))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Count > results[j].Count
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

// PayeeCount returns the number of distinct payees known.
func (pm *PayeeMatcher) PayeeCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.payees)
}

func (p knownPayee) suggestion(normalized string, score int) PayeeSuggestion {
	return PayeeSuggestion{
		Payee:      p.display,
		CategoryID: p.categoryID,
		Count:      p.count,
		Score:      score,
		Distance:   fuzzy.LevenshteinDistance(normalized, p.normalized),
	}
}

// fuzzyScore rates two normalized strings from 0 to 100: 100 when equal,
// 75-100 when one contains the other, otherwise the better of an edit
// distance ratio and a subsequence rank.
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}

	l1, l2 := len([]rune(s1)), len([]rune(s2))
	if l1 == 0 || l2 == 0 {
		return 0
	}
	if strings.Contains(s1, s2) {
		return 75 + 25*l2/l1
	}
	if strings.Contains(s2, s1) {
		return 75 + 25*l1/l2
	}

	maxLen := max(l1, l2)
	distance := fuzzy.LevenshteinDistance(s1, s2)
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	rankScore := 0
	if rank := fuzzy.RankMatch(s1, s2); rank >= 0 && rank < l2 {
		rankScore = 60 - rank*40/l2
	}

	return max(levenshteinScore, rankScore)
}
