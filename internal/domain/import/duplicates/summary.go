package duplicates

import (
	"sort"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/parser"
)

// DateRange is the earliest and latest candidate date, compared as strings.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// Summary is the headline numbers shown before the user confirms an import.
type Summary struct {
	TotalTransactions int        `json:"total_transactions"`
	DuplicatesFound   int        `json:"duplicates_found"`
	DateRange         *DateRange `json:"date_range"`
	ToImport          int        `json:"to_import"`
}

// GetDateRange returns nil when no candidate has a non-empty date.
func GetDateRange(candidates []parser.Candidate) *DateRange {
	dates := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Date != "" {
			dates = append(dates, c.Date)
		}
	}
	if len(dates) == 0 {
		return nil
	}
	sort.Strings(dates)
	return &DateRange{Earliest: dates[0], Latest: dates[len(dates)-1]}
}

// BuildSummary counts what a confirm would write: every clean candidate plus
// the duplicates the user opted back in.
func BuildSummary(candidates []parser.Candidate, result *Result) Summary {
	s := Summary{
		TotalTransactions: len(candidates),
		DateRange:         GetDateRange(candidates),
	}
	if result == nil {
		s.ToImport = len(candidates)
		return s
	}
	s.DuplicatesFound = len(result.Matches)
	s.ToImport = result.CleanCount + result.IncludedCount()
	return s
}

// SetInclude opts the i-th match in or out. It reports false when i is out of range.
func (r *Result) SetInclude(i int, include bool) bool {
	if r == nil || i < 0 || i >= len(r.Matches) {
		return false
	}
	r.Matches[i].Include = include
	return true
}

// IncludeAll sets Include on every match.
func (r *Result) IncludeAll(include bool) {
	if r == nil {
		return
	}
	for i := range r.Matches {
		r.Matches[i].Include = include
	}
}

// IncludedCount is the number of duplicates opted back in.
func (r *Result) IncludedCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, m := range r.Matches {
		if m.Include {
			n++
		}
	}
	return n
}

// Accepted returns the candidates to persist, in input order: everything that
// is not a duplicate plus duplicates with Include set.
func (r *Result) Accepted(candidates []parser.Candidate) []parser.Candidate {
	skip := make(map[int]bool)
	if r != nil {
		for _, m := range r.Matches {
			if !m.Include {
				skip[m.ImportIndex] = true
			}
		}
	}
	out := make([]parser.Candidate, 0, max(len(candidates)-len(skip), 0))
	for i, c := range candidates {
		if !skip[i] {
			out = append(out, c)
		}
	}
	return out
}
