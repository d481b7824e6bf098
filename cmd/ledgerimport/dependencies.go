package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/FACorreiaa/ledger-import/internal/domain/categorization"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/mapper"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/service"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
	"github.com/FACorreiaa/ledger-import/pkg/config"
	"github.com/FACorreiaa/ledger-import/pkg/metrics"
	"github.com/FACorreiaa/ledger-import/pkg/push"
	"github.com/FACorreiaa/ledger-import/pkg/storage"
)

// Dependencies holds everything a subcommand may need.
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	Metrics       *metrics.Metrics
	Ledger        ledger.Source
	Suggester     *categorization.Suggester
	ImportService *service.ImportService
	UserRules     []categorization.KeywordRule
	Archive       storage.Archive
	Notifier      *push.Notifier

	closers []func() error
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if err := deps.initLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to init ledger: %w", err)
	}

	if err := deps.initRules(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init rules: %w", err)
	}

	if err := deps.initIntegrations(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init integrations: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Debug("all dependencies initialized successfully",
		slog.String("ledger_driver", cfg.Ledger.Driver),
		slog.Bool("ledger", deps.Ledger != nil),
		slog.Int("user_rules", len(deps.UserRules)),
		slog.Bool("archive", deps.Archive != nil),
	)
	return deps, nil
}

// initLedger opens the snapshot source. The csv driver without a path runs
// without a ledger.
func (d *Dependencies) initLedger(ctx context.Context) error {
	cfg := d.Config.Ledger
	switch cfg.Driver {
	case config.DriverCSV:
		if cfg.Path == "" {
			return nil
		}
		d.Ledger = ledger.NewCSVSource(cfg.Path, cfg.CategoriesPath, d.Logger)

	case config.DriverSQLite:
		if cfg.Path == "" {
			return errors.New("LEDGER_PATH is required for the sqlite driver")
		}
		src, err := ledger.OpenSQLite(cfg.Path, d.Logger)
		if err != nil {
			return err
		}
		d.Ledger = src
		d.closers = append(d.closers, src.Close)

	case config.DriverPostgres:
		pool, err := ledger.NewPostgresPool(ctx, d.Config.Database.DSN(), int32(d.Config.Database.MaxConns))
		if err != nil {
			return err
		}
		d.Ledger = ledger.NewPostgresSource(pool, d.Logger)
		d.closers = append(d.closers, func() error {
			pool.Close()
			return nil
		})

	default:
		return fmt.Errorf("%w: %q", ledger.ErrUnknownDriver, cfg.Driver)
	}

	d.Logger.Info("ledger source ready", slog.String("driver", cfg.Driver))
	return nil
}

func (d *Dependencies) initRules() error {
	path := d.Config.Import.RulesPath
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	rules, err := categorization.ReadRulesCSV(f)
	if err != nil {
		return err
	}
	d.UserRules = rules
	return nil
}

// initIntegrations sets up the optional statement archive and webhook.
func (d *Dependencies) initIntegrations() error {
	if dir := d.Config.Import.ArchiveDir; dir != "" {
		archive, err := storage.NewLocalArchive(dir)
		if err != nil {
			return err
		}
		d.Archive = archive
	}

	if endpoint := d.Config.Patterns.WebhookURL; endpoint != "" {
		notifier, err := push.NewNotifier(endpoint, d.Logger)
		if err != nil {
			return err
		}
		d.Notifier = notifier
	}
	return nil
}

func (d *Dependencies) initServices() error {
	dateOrder, err := d.Config.Import.ParseDateOrder()
	if err != nil {
		return err
	}

	svcCfg := service.DefaultConfig()
	svcCfg.MaxFileBytes = d.Config.Import.MaxFileBytes
	svcCfg.PreviewRows = d.Config.Import.PreviewRows
	svcCfg.DateOrder = dateOrder
	svcCfg.Workers = d.Config.Import.Workers
	svcCfg.SimilarityThreshold = d.Config.Duplicates.SimilarityThreshold
	svcCfg.UseIndex = d.Config.Duplicates.UseIndex
	svcCfg.PatternMinCount = d.Config.Patterns.MinCount

	d.Suggester = categorization.NewSuggester(d.Logger)
	d.ImportService = service.NewImportService(svcCfg, d.Logger).
		WithLedger(d.Ledger).
		WithSuggester(d.Suggester).
		WithMetrics(d.Metrics)

	if dir := d.Config.Import.TemplatesDir; dir != "" {
		paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return fmt.Errorf("failed to list templates: %w", err)
		}
		for _, path := range paths {
			t, err := readTemplate(path)
			if err != nil {
				return err
			}
			d.ImportService.RegisterTemplate(t)
		}
		d.Logger.Debug("templates loaded", slog.Int("count", len(paths)))
	}
	return nil
}

func readTemplate(path string) (*mapper.Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	t, err := mapper.ReadTemplateCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// Cleanup releases the ledger connection.
func (d *Dependencies) Cleanup() {
	for _, closeFn := range d.closers {
		if err := closeFn(); err != nil {
			d.Logger.Warn("failed to close dependency", slog.Any("error", err))
		}
	}
	d.closers = nil
}
