package categorization

import (
	"sort"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// MatchResult is one rule that matched a text.
type MatchResult struct {
	RuleID       string     `json:"rule_id"`
	Keyword      string     `json:"keyword"`
	CategoryID   string     `json:"category_id"`
	CategoryName string     `json:"category_name,omitempty"`
	Priority     int        `json:"priority"` // user rules are boosted above learned ones
	Source       RuleSource `json:"source"`
}

// better orders matches: higher priority first, then the longer keyword.
func (m *MatchResult) better(other *MatchResult) bool {
	if other == nil {
		return true
	}
	if m.Priority != other.Priority {
		return m.Priority > other.Priority
	}
	return len(m.Keyword) > len(other.Keyword)
}

// Engine matches every keyword rule against a text in a single pass using the
// Aho-Corasick algorithm. It is safe for concurrent use and can be rebuilt
// while in use.
type Engine struct {
	matcher  *ahocorasick.Matcher
	patterns []string        // unique normalized keywords, in matcher order
	metadata [][]MatchResult // rules sharing a keyword
	mu       sync.RWMutex
}

// NewEngine builds an engine from user and learned rules.
func NewEngine(rules []KeywordRule) *Engine {
	e := &Engine{}
	e.Build(rules)
	return e
}

// Build replaces the loaded rules. Rules with the same normalized keyword are
// grouped so one hit reports all of them.
func (e *Engine) Build(rules []KeywordRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	patternToIndex := make(map[string]int, len(rules))
	patterns := make([]string, 0, len(rules))
	metadata := make([][]MatchResult, 0, len(rules))

	for _, rule := range rules {
		pattern := keywordKey(rule.Keyword)
		if pattern == "" || rule.CategoryID == "" {
			continue
		}

		priority := rule.Priority
		if rule.Source != SourceHistory {
			priority += userRuleBoost
		}
		result := MatchResult{
			RuleID:       rule.ID,
			Keyword:      pattern,
			CategoryID:   rule.CategoryID,
			CategoryName: rule.CategoryName,
			Priority:     priority,
			Source:       rule.Source,
		}
		if result.Source == "" {
			result.Source = SourceKeyword
		}

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
	e.matcher = nil
	if len(patterns) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(patterns)
	}
}

// Match returns the best rule found in text, or nil.
func (e *Engine) Match(text string) *MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.best(text)
}

func (e *Engine) best(text string) *MatchResult {
	if e.matcher == nil {
		return nil
	}

	var best *MatchResult
	for _, idx := range e.matcher.Match([]byte(keywordKey(text))) {
		if idx < 0 || idx >= len(e.metadata) {
			continue
		}
		for i := range e.metadata[idx] {
			m := &e.metadata[idx][i]
			if m.better(best) {
				c := *m
				best = &c
			}
		}
	}
	return best
}

// MatchAll returns every rule found in text, best first.
func (e *Engine) MatchAll(text string) []MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return nil
	}

	var results []MatchResult
	for _, idx := range e.matcher.Match([]byte(keywordKey(text))) {
		if idx >= 0 && idx < len(e.metadata) {
			results = append(results, e.metadata[idx]...)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].better(&results[j])
	})
	return results
}

// MatchBatch matches many texts under one read lock. Misses are nil.
func (e *Engine) MatchBatch(texts []string) []*MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	results := make([]*MatchResult, len(texts))
	for i, text := range texts {
		results[i] = e.best(text)
	}
	return results
}

// PatternCount returns the number of distinct keywords loaded.
func (e *Engine) PatternCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.patterns)
}

func (e *Engine) IsEmpty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher == nil
}
