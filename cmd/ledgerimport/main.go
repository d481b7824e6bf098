// Command ledgerimport previews, reviews and mines bank statement imports
// against a ledger snapshot.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/FACorreiaa/ledger-import/internal/domain/categorization"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/service"
	"github.com/FACorreiaa/ledger-import/pkg/config"
	"github.com/FACorreiaa/ledger-import/pkg/cron"
	"github.com/FACorreiaa/ledger-import/pkg/push"
	"github.com/FACorreiaa/ledger-import/pkg/storage"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}

	command := args[0]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage(stdout)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Observability, stderr)

	deps, err := InitDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	if cfg.Observability.MetricsEnabled {
		srv := serveMetrics(cfg.Observability.MetricsAddr, deps)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	cmdArgs := args[1:]
	switch command {
	case "analyze":
		return runAnalyze(ctx, deps, cmdArgs, stdout)
	case "review":
		return runReview(ctx, deps, cmdArgs, stdout)
	case "patterns":
		return runPatterns(ctx, deps, cmdArgs, stdout)
	case "watch":
		return runWatch(ctx, deps, cmdArgs, stdout)
	case "search":
		return runSearch(ctx, deps, cmdArgs, stdout)
	case "payees":
		return runPayees(ctx, deps, cmdArgs, stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return errUsage
	}
}

func newLogger(cfg config.ObservabilityConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func serveMetrics(addr string, deps *Dependencies) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", deps.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		deps.Logger.Info("serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("metrics server stopped", slog.Any("error", err))
		}
	}()
	return srv
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ledgerimport - bank statement import tool

Usage:
  ledgerimport <command> [options]

Commands:
  analyze   Detect format, dialect and column mapping of a statement
  review    Parse a statement and flag duplicates against the ledger
  patterns  List recurring uncategorized payees
  watch     Rescan payee patterns on a schedule
  search    Full-text search over ledger records
  payees    Suggest known payees for a description
  help      Show this help

Examples:
  ledgerimport analyze statement.csv
  ledgerimport review --out review.csv statement.xlsx
  ledgerimport patterns --min-count 3
  ledgerimport watch --schedule "@every 30m"
  ledgerimport search --fuzzy "albrt heijn"
  ledgerimport payees "POS ALBERT HEIJN 1234"

Configuration is read from the environment (and .env): LEDGER_DRIVER,
LEDGER_PATH, LEDGER_CATEGORIES_PATH, IMPORT_*, DUPLICATES_*, PATTERNS_*,
METRICS_ENABLED, LOG_LEVEL and LOG_FORMAT.`)
}

func readFile(path string) (service.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.File{}, fmt.Errorf("failed to read file: %w", err)
	}
	return service.File{
		Name:     filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Data:     data,
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runAnalyze(ctx context.Context, deps *Dependencies, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("analyze requires a file argument")
	}

	file, err := readFile(fs.Arg(0))
	if err != nil {
		return err
	}
	preview, err := deps.ImportService.Analyze(ctx, file)
	if err != nil {
		return err
	}
	return writeJSON(stdout, preview)
}

func runReview(ctx context.Context, deps *Dependencies, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	templatePath := fs.String("template", "", "Column mapping template CSV to apply")
	outPath := fs.String("out", "", "Write review rows as CSV to this path")
	includeAll := fs.Bool("include-all", false, "Include flagged duplicates in the import")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("review requires a file argument")
	}

	file, err := readFile(fs.Arg(0))
	if err != nil {
		return err
	}
	preview, err := deps.ImportService.Analyze(ctx, file)
	if err != nil {
		return err
	}

	mappings := preview.Mappings
	if *templatePath != "" {
		t, err := readTemplate(*templatePath)
		if err != nil {
			return err
		}
		var first []string
		if len(preview.Table.Rows) > 0 {
			first = preview.Table.Rows[0]
		}
		mappings = t.Apply(preview.Headers, first)
	}

	if err := deps.ImportService.RefreshSuggester(ctx, deps.UserRules); err != nil {
		return err
	}

	review, err := deps.ImportService.Review(ctx, preview.Table, mappings, nil)
	if err != nil {
		return err
	}
	if *includeAll {
		review.Duplicates.IncludeAll(true)
	}

	if deps.Archive != nil {
		if err := archiveRun(ctx, deps, file, review); err != nil {
			return err
		}
	}

	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := service.WriteReviewCSV(f, review); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}
		deps.Logger.Info("review written", slog.String("path", *outPath))
	}

	return writeJSON(stdout, struct {
		*service.Review
		Accepted int `json:"accepted"`
	}{review, len(review.Accepted())})
}

// archiveRun stores the statement and its review export under the run ID.
// A statement already archived by an earlier run is logged, not rejected.
func archiveRun(ctx context.Context, deps *Dependencies, file service.File, review *service.Review) error {
	previous, err := deps.Archive.FindByChecksum(ctx, storage.Checksum(file.Data))
	if err != nil {
		return err
	}
	for _, e := range previous {
		deps.Logger.Warn("statement was already imported",
			slog.String("file", file.Name),
			slog.String("previous_run", e.RunID),
			slog.Time("archived_at", e.CreatedAt),
		)
	}

	if _, err := deps.Archive.Put(ctx, review.RunID, storage.KindStatement, file.Name, file.MimeType, bytes.NewReader(file.Data)); err != nil {
		return fmt.Errorf("failed to archive statement: %w", err)
	}

	var buf bytes.Buffer
	if err := service.WriteReviewCSV(&buf, review); err != nil {
		return err
	}
	if _, err := deps.Archive.Put(ctx, review.RunID, storage.KindReview, "review.csv", "text/csv", &buf); err != nil {
		return fmt.Errorf("failed to archive review: %w", err)
	}
	return nil
}

type patternLine struct {
	categorization.PayeePattern
	Prompt string `json:"prompt"`
}

func withPrompts(patterns []categorization.PayeePattern) []patternLine {
	lines := make([]patternLine, 0, len(patterns))
	for _, p := range patterns {
		lines = append(lines, patternLine{PayeePattern: p, Prompt: categorization.FormatSuggestion(p)})
	}
	return lines
}

func runPatterns(ctx context.Context, deps *Dependencies, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("patterns", flag.ContinueOnError)
	minCount := fs.Int("min-count", deps.Config.Patterns.MinCount, "Minimum occurrences for a payee pattern")
	if err := fs.Parse(args); err != nil {
		return err
	}

	patterns, err := deps.ImportService.Patterns(ctx, *minCount)
	if err != nil {
		return err
	}
	deps.Metrics.SetPatterns(len(patterns))
	return writeJSON(stdout, withPrompts(patterns))
}

func runWatch(ctx context.Context, deps *Dependencies, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	schedule := fs.String("schedule", deps.Config.Patterns.Schedule, "Cron spec for rescans")
	minCount := fs.Int("min-count", deps.Config.Patterns.MinCount, "Minimum occurrences for a payee pattern")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if deps.Ledger == nil {
		return service.ErrNoLedger
	}

	scheduler := cron.NewScheduler(deps.Ledger, *schedule, *minCount, deps.Logger).
		OnScan(func(report cron.PatternReport) {
			deps.Metrics.SetPatterns(len(report.Patterns))
			if err := writeJSON(stdout, report); err != nil {
				deps.Logger.Warn("failed to write report", slog.Any("error", err))
			}
			notifyPatterns(deps, report)
		})

	if _, err := scheduler.RunNow(ctx); err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	<-scheduler.Stop().Done()
	deps.Logger.Info("watch stopped")
	return nil
}

// notifyPatterns posts a scan that found patterns to the configured webhook.
func notifyPatterns(deps *Dependencies, report cron.PatternReport) {
	if deps.Notifier == nil || len(report.Patterns) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), push.RequestTimeout)
	defer cancel()

	payees := make([]string, 0, len(report.Patterns))
	for _, p := range report.Patterns {
		payees = append(payees, p.Payee)
	}
	msg := &push.Message{
		Event: "payee_patterns",
		Title: "Recurring uncategorized payees",
		Body:  fmt.Sprintf("%d payees appear repeatedly without a category", len(report.Patterns)),
		Data: map[string]any{
			"payees":        payees,
			"uncategorized": report.Uncategorized,
			"records":       report.Records,
		},
		SentAt: report.RanAt,
	}
	if err := deps.Notifier.Send(ctx, msg); err != nil {
		deps.Logger.Warn("failed to send pattern notification", slog.Any("error", err))
	}
}

func runSearch(ctx context.Context, deps *Dependencies, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "Maximum number of hits")
	byPayee := fs.Bool("payee", false, "Match the normalized payee exactly")
	fuzzy := fs.Bool("fuzzy", false, "Tolerate typos")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("search requires a query")
	}
	if deps.Ledger == nil {
		return service.ErrNoLedger
	}
	text := strings.Join(fs.Args(), " ")

	records, err := deps.Ledger.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	index, err := categorization.NewSearchIndex(deps.Config.Ledger.IndexPath)
	if err != nil {
		return err
	}
	defer index.Close()
	if err := index.IndexRecords(records); err != nil {
		return err
	}

	var results []categorization.SearchResult
	switch {
	case *byPayee:
		results, err = index.SearchByPayee(text, *limit)
	case *fuzzy:
		results, err = index.SearchFuzzy(text, 2, *limit)
	default:
		results, err = index.Search(text, *limit)
	}
	if err != nil {
		return err
	}
	return writeJSON(stdout, results)
}

func runPayees(ctx context.Context, deps *Dependencies, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("payees", flag.ContinueOnError)
	threshold := fs.Int("threshold", 60, "Minimum similarity score (0-100)")
	limit := fs.Int("limit", 5, "Maximum number of suggestions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("payees requires a description")
	}
	if deps.Ledger == nil {
		return service.ErrNoLedger
	}

	records, err := deps.Ledger.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	matcher := categorization.NewPayeeMatcher(records)
	return writeJSON(stdout, matcher.Suggest(strings.Join(fs.Args(), " "), *threshold, *limit))
}
