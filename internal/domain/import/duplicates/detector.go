// Package duplicates flags import candidates that already exist in the ledger.
// A candidate is a duplicate of the first ledger record, in ledger order, with
// the same date, the same amount and a payee that matches exactly or likely.
package duplicates

import (
	"context"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/parser"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// DefaultThreshold is the minimum bigram similarity for a likely payee match.
const DefaultThreshold = 0.85

// Tier is the strength of a payee match.
type Tier string

const (
	TierNone   Tier = ""
	TierExact  Tier = "exact"
	TierLikely Tier = "likely"
)

// Match pairs a candidate with the ledger record it duplicates. Include starts
// false; the user opts a duplicate back in with Result.SetInclude.
type Match struct {
	ImportIndex int              `json:"import_index"`
	Imported    parser.Candidate `json:"imported"`
	Existing    ledger.Record    `json:"existing"`
	Confidence  Tier             `json:"confidence"`
	Include     bool             `json:"include"`
}

// Result lists matches in candidate order.
type Result struct {
	Matches    []Match `json:"duplicates"`
	CleanCount int     `json:"clean_count"`
	TotalCount int     `json:"total_count"`
}

// Detector compares candidates against a ledger snapshot. The zero value is
// not usable; build one with NewDetector.
type Detector struct {
	normalizer *normalizer.PayeeNormalizer
	threshold  float64
	useIndex   bool
	workers    int
}

type Option func(*Detector)

// WithThreshold sets the likely-match similarity threshold. Values outside
// (0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(d *Detector) {
		if threshold > 0 && threshold <= 1 {
			d.threshold = threshold
		}
	}
}

// WithNormalizer replaces the payee normalizer used before comparison.
func WithNormalizer(n *normalizer.PayeeNormalizer) Option {
	return func(d *Detector) {
		if n != nil {
			d.normalizer = n
		}
	}
}

// WithIndex groups ledger records by date and amount before scanning.
func WithIndex(enabled bool) Option {
	return func(d *Detector) { d.useIndex = enabled }
}

// WithWorkers splits candidates across n goroutines. n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(d *Detector) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		d.workers = n
	}
}

func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		normalizer: normalizer.NewPayeeNormalizer(nil),
		threshold:  DefaultThreshold,
		workers:    1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDetector = NewDetector()

// Detect runs the plain linear scan with default settings.
func Detect(candidates []parser.Candidate, existing []ledger.Record) *Result {
	result, _ := defaultDetector.Detect(context.Background(), candidates, existing)
	return result
}

// MatchPayee classifies two raw payees with the default normalizer and threshold.
func MatchPayee(a, b string) Tier {
	return defaultDetector.MatchPayee(a, b)
}

// MatchPayee normalizes both payees and classifies the pair. Empty payees
// never match.
func (d *Detector) MatchPayee(a, b string) Tier {
	return d.matchNormalized(d.normalizer.Normalize(a), d.normalizer.Normalize(b))
}

func (d *Detector) matchNormalized(a, b string) Tier {
	if a == "" || b == "" {
		return TierNone
	}
	if a == b {
		return TierExact
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return TierLikely
	}
	if Similarity(a, b) >= d.threshold {
		return TierLikely
	}
	return TierNone
}

// Detect returns the duplicates among candidates. existing is only read. The
// only error is the context's.
func (d *Detector) Detect(ctx context.Context, candidates []parser.Candidate, existing []ledger.Record) (*Result, error) {
	snapshot := d.prepare(existing)
	found := make([]*Match, len(candidates))

	scan := func(ctx context.Context, from, to int) error {
		for i := from; i < to; i++ {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			found[i] = d.findMatch(i, candidates[i], snapshot)
		}
		return nil
	}

	if d.workers <= 1 || len(candidates) < 2*d.workers {
		if err := scan(ctx, 0, len(candidates)); err != nil {
			return nil, err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		chunk := (len(candidates) + d.workers - 1) / d.workers
		for from := 0; from < len(candidates); from += chunk {
			from, to := from, min(from+chunk, len(candidates))
			g.Go(func() error { return scan(gctx, from, to) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	result := &Result{Matches: []Match{}, TotalCount: len(candidates)}
	for _, m := range found {
		if m != nil {
			result.Matches = append(result.Matches, *m)
		}
	}
	result.CleanCount = result.TotalCount - len(result.Matches)
	return result, nil
}

type snapshot struct {
	records []ledger.Record
	payees  []string         // normalized, parallel to records
	index   map[string][]int // date+amount key to record positions, ascending
}

func (d *Detector) prepare(existing []ledger.Record) *snapshot {
	s := &snapshot{records: existing, payees: make([]string, len(existing))}
	for i, r := range existing {
		s.payees[i] = d.normalizer.Normalize(r.Payee)
	}
	if d.useIndex {
		s.index = make(map[string][]int, len(existing))
		for i, r := range existing {
			k := key(r.Date, r.AmountCents)
			s.index[k] = append(s.index[k], i)
		}
	}
	return s
}

func (d *Detector) findMatch(i int, c parser.Candidate, s *snapshot) *Match {
	payee := d.normalizer.Normalize(c.Payee)

	try := func(j int) *Match {
		r := s.records[j]
		if r.Date != c.Date || r.AmountCents != c.AmountCents {
			return nil
		}
		tier := d.matchNormalized(payee, s.payees[j])
		if tier == TierNone {
			return nil
		}
		return &Match{ImportIndex: i, Imported: c, Existing: r, Confidence: tier}
	}

	if s.index != nil {
		for _, j := range s.index[key(c.Date, c.AmountCents)] {
			if m := try(j); m != nil {
				return m
			}
		}
		return nil
	}
	for j := range s.records {
		if m := try(j); m != nil {
			return m
		}
	}
	return nil
}

func key(date string, amountCents int64) string {
	return date + "|" + strconv.FormatInt(amountCents, 10)
}
