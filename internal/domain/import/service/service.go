// Package service runs the import pipeline: a file is analyzed into a preview
// with suggested column mappings, then reviewed into candidates, row errors,
// duplicates of ledger records, a summary and category suggestions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/ledger-import/internal/domain/categorization"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/duplicates"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/intake"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/mapper"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/parser"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
	"github.com/FACorreiaa/ledger-import/pkg/metrics"
)

const tracerName = "github.com/FACorreiaa/ledger-import/internal/domain/import/service"

// dialectSampleRows is how many rows the regional dialect probe looks at.
const dialectSampleRows = 20

var (
	ErrInvalidMapping = errors.New("invalid column mapping")
	ErrNoLedger       = errors.New("no ledger source configured")
)

// MappingError lists what a mapping set is missing.
type MappingError struct {
	Problems []string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidMapping, strings.Join(e.Problems, "; "))
}

func (e *MappingError) Unwrap() error {
	return ErrInvalidMapping
}

// Config tunes the pipeline. Zero values fall back to the defaults of each stage.
type Config struct {
	MaxFileBytes        int64
	PreviewRows         int
	DateOrder           normalizer.DateOrder
	Workers             int // 0 means GOMAXPROCS
	SimilarityThreshold float64
	UseIndex            bool
	PatternMinCount     int
	EntitySuffixes      []string
	Vocabulary          *mapper.Vocabulary
}

func DefaultConfig() Config {
	return Config{
		MaxFileBytes:        intake.DefaultMaxBytes,
		PreviewRows:         5,
		DateOrder:           normalizer.DayFirst,
		SimilarityThreshold: duplicates.DefaultThreshold,
		UseIndex:            true,
		PatternMinCount:     categorization.DefaultMinCount,
	}
}

// File is an uploaded statement.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Preview is what the user sees before confirming a mapping.
type Preview struct {
	RunID        string                   `json:"run_id"`
	FileName     string                   `json:"file_name"`
	Format       string                   `json:"format"`
	Table        *sniffer.RawTable        `json:"-"`
	Headers      []string                 `json:"headers"`
	Delimiter    string                   `json:"delimiter,omitempty"`
	Fingerprint  string                   `json:"fingerprint"`
	TotalRows    int                      `json:"total_rows"`
	Mappings     []mapper.ColumnMapping   `json:"mappings"`
	Problems     []string                 `json:"problems"`
	PreviewRows  [][]string               `json:"preview_rows"`
	Dialect      *sniffer.RegionalDialect `json:"dialect"`
	TemplateName string                   `json:"template_name,omitempty"`
}

// Review is a statement ready for the user to accept.
type Review struct {
	RunID       string                      `json:"run_id"`
	Candidates  []parser.Candidate          `json:"candidates"`
	Errors      []parser.RowError           `json:"errors"`
	Duplicates  *duplicates.Result          `json:"duplicates"`
	Summary     duplicates.Summary          `json:"summary"`
	Suggestions []categorization.Suggestion `json:"suggestions"`
}

// Accepted returns the candidates to import: every non-duplicate plus the
// duplicates the user opted back in.
func (r *Review) Accepted() []parser.Candidate {
	return r.Duplicates.Accepted(r.Candidates)
}

// ImportService orchestrates file analysis and review.
type ImportService struct {
	cfg       Config
	mapper    *mapper.Mapper
	ledger    ledger.Source
	suggester *categorization.Suggester
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger

	templatesMu sync.RWMutex
	templates   map[string]*mapper.Template
}

// NewImportService creates a service. A nil logger uses slog.Default.
func NewImportService(cfg Config, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	vocab := mapper.DefaultVocabulary()
	if cfg.Vocabulary != nil {
		vocab = *cfg.Vocabulary
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 5
	}
	if cfg.PatternMinCount < 1 {
		cfg.PatternMinCount = categorization.DefaultMinCount
	}
	return &ImportService{
		cfg:       cfg,
		mapper:    mapper.NewMapper(vocab),
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
		templates: make(map[string]*mapper.Template),
	}
}

// WithLedger sets the ledger snapshot used for duplicates and patterns.
func (s *ImportService) WithLedger(source ledger.Source) *ImportService {
	s.ledger = source
	return s
}

// WithSuggester enables category suggestions during review.
func (s *ImportService) WithSuggester(suggester *categorization.Suggester) *ImportService {
	s.suggester = suggester
	return s
}

func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

func (s *ImportService) WithTracer(t trace.Tracer) *ImportService {
	if t != nil {
		s.tracer = t
	}
	return s
}

// RegisterTemplate makes Analyze apply t to files with its header fingerprint.
func (s *ImportService) RegisterTemplate(t *mapper.Template) {
	if t == nil || t.Fingerprint == "" {
		return
	}
	s.templatesMu.Lock()
	defer s.templatesMu.Unlock()
	s.templates[t.Fingerprint] = t
}

func (s *ImportService) template(fingerprint string) *mapper.Template {
	s.templatesMu.RLock()
	defer s.templatesMu.RUnlock()
	return s.templates[fingerprint]
}

// Analyze accepts a file and proposes mappings for it. Rejected files return
// an *intake.FileError.
func (s *ImportService) Analyze(ctx context.Context, file File) (*Preview, error) {
	ctx, span := s.tracer.Start(ctx, "import.analyze", trace.WithAttributes(
		attribute.String("file.name", file.Name),
		attribute.Int("file.size", len(file.Data)),
	))
	defer span.End()
	defer s.metrics.ObserveStage("analyze", time.Now())

	format, _ := intake.DetectFormat(file.Name, file.MimeType)
	table, err := intake.Load(file.Name, file.MimeType, file.Data, s.cfg.MaxFileBytes)
	if err != nil {
		s.metrics.ObserveFile(format.String(), metrics.OutcomeRejected)
		recordError(span, err)
		s.logger.WarnContext(ctx, "file rejected",
			slog.String("file", file.Name),
			slog.Any("error", err),
		)
		return nil, err
	}
	s.metrics.ObserveFile(format.String(), metrics.OutcomeAccepted)

	preview := &Preview{
		RunID:       uuid.NewString(),
		FileName:    file.Name,
		Format:      format.String(),
		Table:       table,
		Headers:     table.Headers,
		Fingerprint: table.Fingerprint,
		TotalRows:   table.TotalRows,
		PreviewRows: table.SampleRows(s.cfg.PreviewRows),
	}
	if format == intake.FormatCSV {
		preview.Delimiter = string(table.Delimiter)
	}

	if t := s.template(table.Fingerprint); t != nil {
		preview.Mappings = t.Apply(table.Headers, table.FirstRow())
		preview.TemplateName = t.Name
	} else {
		preview.Mappings = s.mapper.AutoDetect(table.Headers, table.FirstRow())
	}
	preview.Problems = mapper.Validate(preview.Mappings)
	if preview.Problems == nil {
		preview.Problems = []string{}
	}

	amountIdx, dateIdx := probeColumns(preview.Mappings)
	preview.Dialect = sniffer.ProbeDialect(table.SampleRows(dialectSampleRows), amountIdx, dateIdx)

	span.SetAttributes(
		attribute.String("run.id", preview.RunID),
		attribute.Int("rows.total", table.TotalRows),
		attribute.Int("mapping.problems", len(preview.Problems)),
	)
	s.logger.InfoContext(ctx, "file analyzed",
		slog.String("run_id", preview.RunID),
		slog.String("file", file.Name),
		slog.String("format", preview.Format),
		slog.Int("rows", table.TotalRows),
		slog.Int("problems", len(preview.Problems)),
		slog.String("template", preview.TemplateName),
	)
	return preview, nil
}

// probeColumns picks the amount and date columns the dialect probe samples.
func probeColumns(mappings []mapper.ColumnMapping) (amountIdx, dateIdx int) {
	cols := mapper.Columns(mappings)
	amountIdx, dateIdx = -1, -1
	for _, f := range []mapper.Field{mapper.FieldAmount, mapper.FieldOutflow, mapper.FieldInflow} {
		if idx, ok := cols[f]; ok {
			amountIdx = idx
			break
		}
	}
	if idx, ok := cols[mapper.FieldDate]; ok {
		dateIdx = idx
	}
	return amountIdx, dateIdx
}

// Review builds candidates from table and flags duplicates against existing.
// A nil existing loads the configured ledger; without a ledger nothing is a
// duplicate. Incomplete mappings return a *MappingError.
func (s *ImportService) Review(ctx context.Context, table *sniffer.RawTable, mappings []mapper.ColumnMapping, existing []ledger.Record) (*Review, error) {
	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "import.review", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()
	defer s.metrics.ObserveStage("review", time.Now())

	if problems := mapper.Validate(mappings); len(problems) > 0 {
		err := &MappingError{Problems: problems}
		recordError(span, err)
		return nil, err
	}

	built, err := s.buildCandidates(ctx, table, mappings)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	s.metrics.ObserveRows(len(built.Candidates), len(built.Errors))

	if existing == nil {
		existing, err = s.loadRecords(ctx)
		if err != nil {
			recordError(span, err)
			return nil, err
		}
	}

	dups, err := s.detectDuplicates(ctx, built.Candidates, existing)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	review := &Review{
		RunID:       runID,
		Candidates:  built.Candidates,
		Errors:      built.Errors,
		Duplicates:  dups,
		Summary:     duplicates.BuildSummary(built.Candidates, dups),
		Suggestions: s.suggest(ctx, built.Candidates),
	}

	span.SetAttributes(
		attribute.Int("candidates", len(review.Candidates)),
		attribute.Int("row_errors", len(review.Errors)),
		attribute.Int("duplicates", len(dups.Matches)),
		attribute.Int("suggestions", len(review.Suggestions)),
	)
	s.logger.InfoContext(ctx, "import reviewed",
		slog.String("run_id", runID),
		slog.Int("candidates", len(review.Candidates)),
		slog.Int("row_errors", len(review.Errors)),
		slog.Int("duplicates", review.Summary.DuplicatesFound),
		slog.Int("to_import", review.Summary.ToImport),
		slog.Int("suggestions", len(review.Suggestions)),
	)
	return review, nil
}

func (s *ImportService) buildCandidates(ctx context.Context, table *sniffer.RawTable, mappings []mapper.ColumnMapping) (*parser.Result, error) {
	ctx, span := s.tracer.Start(ctx, "import.build_candidates")
	defer span.End()
	defer s.metrics.ObserveStage("build", time.Now())

	builder := parser.NewBuilder(normalizer.DateParser{Order: s.cfg.DateOrder}, s.cfg.Workers)
	result, err := builder.Build(ctx, table, mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to build candidates: %w", err)
	}
	return result, nil
}

func (s *ImportService) detectDuplicates(ctx context.Context, candidates []parser.Candidate, existing []ledger.Record) (*duplicates.Result, error) {
	ctx, span := s.tracer.Start(ctx, "import.detect_duplicates", trace.WithAttributes(
		attribute.Int("existing", len(existing)),
	))
	defer span.End()
	defer s.metrics.ObserveStage("duplicates", time.Now())

	opts := []duplicates.Option{
		duplicates.WithIndex(s.cfg.UseIndex),
		duplicates.WithWorkers(s.cfg.Workers),
	}
	if s.cfg.SimilarityThreshold > 0 {
		opts = append(opts, duplicates.WithThreshold(s.cfg.SimilarityThreshold))
	}
	if len(s.cfg.EntitySuffixes) > 0 {
		opts = append(opts, duplicates.WithNormalizer(normalizer.NewPayeeNormalizer(s.cfg.EntitySuffixes)))
	}

	result, err := duplicates.NewDetector(opts...).Detect(ctx, candidates, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to detect duplicates: %w", err)
	}
	for _, m := range result.Matches {
		s.metrics.ObserveDuplicate(string(m.Confidence))
	}
	return result, nil
}

func (s *ImportService) suggest(ctx context.Context, candidates []parser.Candidate) []categorization.Suggestion {
	if s.suggester == nil {
		return []categorization.Suggestion{}
	}
	_, span := s.tracer.Start(ctx, "import.suggest_categories")
	defer span.End()

	suggestions := s.suggester.SuggestCandidates(candidates)
	for _, sug := range suggestions {
		s.metrics.ObserveSuggestion(string(sug.Source))
	}
	return suggestions
}

func (s *ImportService) loadRecords(ctx context.Context) ([]ledger.Record, error) {
	if s.ledger == nil {
		return []ledger.Record{}, nil
	}
	records, err := s.ledger.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger records: %w", err)
	}
	return records, nil
}

// RefreshSuggester rebuilds the suggester from the ledger snapshot and the
// given user keyword rules.
func (s *ImportService) RefreshSuggester(ctx context.Context, userRules []categorization.KeywordRule) error {
	if s.suggester == nil {
		return nil
	}
	if s.ledger == nil {
		s.suggester.Refresh(nil, nil, userRules)
		return nil
	}

	records, err := s.ledger.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger records: %w", err)
	}
	categories, err := s.ledger.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger categories: %w", err)
	}
	s.suggester.Refresh(records, categories, userRules)
	return nil
}

// Patterns groups uncategorized ledger records by payee. minCount < 1 uses
// the configured minimum.
func (s *ImportService) Patterns(ctx context.Context, minCount int) ([]categorization.PayeePattern, error) {
	ctx, span := s.tracer.Start(ctx, "import.patterns")
	defer span.End()
	defer s.metrics.ObserveStage("patterns", time.Now())

	if s.ledger == nil {
		recordError(span, ErrNoLedger)
		return nil, ErrNoLedger
	}
	if minCount < 1 {
		minCount = s.cfg.PatternMinCount
	}

	records, err := s.ledger.ListRecords(ctx)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to load ledger records: %w", err)
	}
	categories, err := s.ledger.ListCategories(ctx)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to load ledger categories: %w", err)
	}

	patterns := categorization.DetectPatternsWithCategories(ledger.Uncategorized(records), records, categories, minCount)
	s.metrics.SetPatterns(len(patterns))
	span.SetAttributes(attribute.Int("patterns", len(patterns)))
	s.logger.InfoContext(ctx, "payee patterns detected",
		slog.Int("records", len(records)),
		slog.Int("patterns", len(patterns)),
		slog.Int("min_count", minCount),
	)
	return patterns, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
