package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Ledger drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Import        ImportConfig
	Duplicates    DuplicatesConfig
	Patterns      PatternsConfig
	Ledger        LedgerConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
}

type ImportConfig struct {
	MaxFileBytes int64
	PreviewRows  int
	DateOrder    string
	Workers      int
	TemplatesDir string
	RulesPath    string
	ArchiveDir   string
}

type DuplicatesConfig struct {
	SimilarityThreshold float64
	UseIndex            bool
}

type PatternsConfig struct {
	MinCount   int
	Schedule   string
	WebhookURL string
}

// LedgerConfig selects the snapshot source. Path is the records CSV for the
// csv driver and the database file for sqlite.
type LedgerConfig struct {
	Driver         string
	Path           string
	CategoriesPath string
	IndexPath      string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsAddr    string
	LogLevel       string
	LogFormat      string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Import: ImportConfig{
			MaxFileBytes: int64(getEnvAsInt("IMPORT_MAX_FILE_BYTES", 10<<20)),
			PreviewRows:  getEnvAsInt("IMPORT_PREVIEW_ROWS", 5),
			DateOrder:    getEnv("IMPORT_DATE_ORDER", "day-first"),
			Workers:      getEnvAsInt("IMPORT_WORKERS", 0),
			TemplatesDir: getEnv("IMPORT_TEMPLATES_DIR", ""),
			RulesPath:    getEnv("IMPORT_RULES_PATH", ""),
			ArchiveDir:   getEnv("IMPORT_ARCHIVE_DIR", ""),
		},
		Duplicates: DuplicatesConfig{
			SimilarityThreshold: getEnvAsFloat("DUPLICATES_SIMILARITY_THRESHOLD", 0.85),
			UseIndex:            getEnvAsBool("DUPLICATES_USE_INDEX", true),
		},
		Patterns: PatternsConfig{
			MinCount:   getEnvAsInt("PATTERNS_MIN_COUNT", 2),
			Schedule:   getEnv("PATTERNS_SCHEDULE", "@every 1h"),
			WebhookURL: getEnv("PATTERNS_WEBHOOK_URL", ""),
		},
		Ledger: LedgerConfig{
			Driver:         strings.ToLower(getEnv("LEDGER_DRIVER", DriverCSV)),
			Path:           getEnv("LEDGER_PATH", ""),
			CategoriesPath: getEnv("LEDGER_CATEGORIES_PATH", ""),
			IndexPath:      getEnv("LEDGER_INDEX_PATH", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "ledger"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 4),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", false),
			MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Import.ParseDateOrder(); err != nil {
		errs = append(errs, err)
	}
	if c.Import.Workers < 0 {
		errs = append(errs, fmt.Errorf("IMPORT_WORKERS must not be negative, got %d", c.Import.Workers))
	}
	if c.Import.MaxFileBytes <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_MAX_FILE_BYTES must be positive, got %d", c.Import.MaxFileBytes))
	}
	if t := c.Duplicates.SimilarityThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("DUPLICATES_SIMILARITY_THRESHOLD must be in (0, 1], got %v", t))
	}
	switch c.Ledger.Driver {
	case DriverCSV, DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_DRIVER %q", c.Ledger.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ParseDateOrder returns the configured reading of ambiguous dates.
func (c ImportConfig) ParseDateOrder() (normalizer.DateOrder, error) {
	return normalizer.ParseDateOrder(c.DateOrder)
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
