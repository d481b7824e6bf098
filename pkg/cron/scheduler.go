// Package cron runs the periodic payee pattern scan using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/ledger-import/internal/domain/categorization"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// DefaultSchedule rescans once an hour.
const DefaultSchedule = "@every 1h"

const scanTimeout = 5 * time.Minute

// PatternReport is the outcome of one scan.
type PatternReport struct {
	RanAt         time.Time                     `json:"ran_at"`
	Records       int                           `json:"records"`
	Uncategorized int                           `json:"uncategorized"`
	Patterns      []categorization.PayeePattern `json:"patterns"`
}

// Scheduler recomputes payee patterns from a ledger snapshot on a schedule.
type Scheduler struct {
	cron     *cron.Cron
	source   ledger.Source
	spec     string
	minCount int
	onScan   func(PatternReport)
	logger   *slog.Logger

	mu   sync.Mutex
	last *PatternReport
}

// NewScheduler creates a scheduler. An empty spec uses DefaultSchedule.
func NewScheduler(source ledger.Source, spec string, minCount int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if spec == "" {
		spec = DefaultSchedule
	}
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		source:   source,
		spec:     spec,
		minCount: minCount,
		logger:   logger,
	}
}

// OnScan registers a callback run after every successful scan.
func (s *Scheduler) OnScan(fn func(PatternReport)) *Scheduler {
	s.onScan = fn
	return s
}

// Start schedules the scan and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.scheduledScan); err != nil {
		return fmt.Errorf("failed to schedule pattern scan %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.spec),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop stops scheduling; the returned context is done once a running scan ends.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// Last returns the most recent successful report, or nil.
func (s *Scheduler) Last() *PatternReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) scheduledScan() {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	if _, err := s.RunNow(ctx); err != nil {
		s.logger.Error("pattern scan failed", slog.Any("error", err))
	}
}

// RunNow scans immediately.
func (s *Scheduler) RunNow(ctx context.Context) (*PatternReport, error) {
	s.logger.Info("starting payee pattern scan")

	records, err := s.source.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger records: %w", err)
	}
	categories, err := s.source.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger categories: %w", err)
	}

	uncategorized := ledger.Uncategorized(records)
	report := &PatternReport{
		RanAt:         time.Now().UTC(),
		Records:       len(records),
		Uncategorized: len(uncategorized),
		Patterns:      categorization.DetectPatternsWithCategories(uncategorized, records, categories, s.minCount),
	}

	for _, p := range report.Patterns {
		s.logger.Debug("payee pattern",
			slog.String("payee", p.Payee),
			slog.Int("count", p.Count),
			slog.String("suggestion", categorization.FormatSuggestion(p)),
		)
	}
	s.logger.Info("payee pattern scan completed",
		slog.Int("records", report.Records),
		slog.Int("uncategorized", report.Uncategorized),
		slog.Int("patterns", len(report.Patterns)),
	)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.onScan != nil {
		s.onScan(*report)
	}
	return report, nil
}
