package categorization

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/parser"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// DefaultPayeeThreshold is the minimum fuzzy score for a similar-payee guess.
const DefaultPayeeThreshold = 85

// SourceSimilarPayee marks a suggestion taken from the closest known payee.
const SourceSimilarPayee RuleSource = "similar-payee"

// Suggestion is a proposed category for one import candidate.
type Suggestion struct {
	Index        int        `json:"index"` // candidate position
	Payee        string     `json:"payee"` // cleaned display payee
	CategoryID   string     `json:"category_id"`
	CategoryName string     `json:"category_name,omitempty"`
	Source       RuleSource `json:"source"`
	Keyword      string     `json:"keyword,omitempty"`
	Score        int        `json:"score"`
}

// Suggester proposes categories for statement rows. Keyword rules are tried
// first (user rules, then rules learned from the ledger); rows they miss fall
// back to the closest known payee.
type Suggester struct {
	engine    *Engine
	payees    *PayeeMatcher
	names     map[string]string
	threshold int
	mu        sync.RWMutex
	logger    *slog.Logger
}

func NewSuggester(logger *slog.Logger) *Suggester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suggester{
		engine:    NewEngine(nil),
		payees:    NewPayeeMatcher(nil),
		names:     map[string]string{},
		threshold: DefaultPayeeThreshold,
		logger:    logger,
	}
}

// WithPayeeThreshold sets the fuzzy score a similar payee must reach.
func (s *Suggester) WithPayeeThreshold(threshold int) *Suggester {
	s.mu.Lock()
	defer s.mu.Unlock()
	if threshold > 0 && threshold <= 100 {
		s.threshold = threshold
	}
	return s
}

// Refresh rebuilds the rules and known payees from a ledger snapshot.
func (s *Suggester) Refresh(records []ledger.Record, categories []ledger.Category, userRules []KeywordRule) {
	learned := RulesFromLedger(records, categories, 1)
	rules := make([]KeywordRule, 0, len(userRules)+len(learned))
	rules = append(rules, userRules...)
	rules = append(rules, learned...)

	s.engine.Build(rules)
	s.payees.Build(records)

	s.mu.Lock()
	s.names = ledger.CategoryNames(categories)
	s.mu.Unlock()

	s.logger.Debug("categorization rules rebuilt",
		slog.Int("user_rules", len(userRules)),
		slog.Int("learned_rules", len(learned)),
		slog.Int("known_payees", s.payees.PayeeCount()),
	)
}

// Suggest proposes a category for one payee and memo, or returns nil.
func (s *Suggester) Suggest(payee, memo string) *Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cleaned := cleanDescription(payee)
	if m := s.engine.Match(strings.TrimSpace(payee + " " + memo)); m != nil {
		name := m.CategoryName
		if name == "" {
			name = s.names[m.CategoryID]
		}
		return &Suggestion{
			Payee:        cleaned,
			CategoryID:   m.CategoryID,
			CategoryName: name,
			Source:       m.Source,
			Keyword:      m.Keyword,
			Score:        100,
		}
	}

	if p := s.payees.Match(payee, s.threshold); p != nil && p.CategoryID != "" {
		return &Suggestion{
			Payee:        cleaned,
			CategoryID:   p.CategoryID,
			CategoryName: s.names[p.CategoryID],
			Source:       SourceSimilarPayee,
			Keyword:      p.Payee,
			Score:        p.Score,
		}
	}
	return nil
}

// SuggestCandidates proposes categories for the candidates that have none,
// in candidate order.
func (s *Suggester) SuggestCandidates(candidates []parser.Candidate) []Suggestion {
	suggestions := []Suggestion{}
	for i, c := range candidates {
		if strings.TrimSpace(c.Category) != "" {
			continue
		}
		if sug := s.Suggest(c.Payee, c.Memo); sug != nil {
			sug.Index = i
			suggestions = append(suggestions, *sug)
		}
	}
	return suggestions
}

// cardPrefixes are terminal and transfer markers banks put before the payee.
var cardPrefixes = []string{
	"BEA, BETAALPAS ",
	"BEA ",
	"GEA ",
	"SEPA OVERBOEKING ",
	"IDEAL ",
	"COMPRAS C.DEB ",
	"COMPRA ",
	"PURCHASE ",
	"CARD PAYMENT ",
	"POS ",
	"DEBIT CARD ",
	"PAGAMENTO ",
	"PAG*",
}

// cleanDescription drops a leading card marker and a short trailing *1234
// reference, then title-cases the rest.
func cleanDescription(desc string) string {
	cleaned := strings.TrimSpace(desc)
	upper := strings.ToUpper(cleaned)

	for _, prefix := range cardPrefixes {
		if strings.HasPrefix(upper, prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
			break
		}
	}

	if idx := strings.LastIndex(cleaned, "*"); idx > 0 {
		ref := cleaned[idx+1:]
		if len(ref) <= 6 && isNumeric(ref) {
			cleaned = strings.TrimSpace(cleaned[:idx])
		}
	}

	return toTitleCase(cleaned)
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func toTitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		r := []rune(word)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}
