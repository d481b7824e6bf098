package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(10<<20), cfg.Import.MaxFileBytes)
	assert.Equal(t, 5, cfg.Import.PreviewRows)
	assert.Equal(t, 0, cfg.Import.Workers)
	assert.Equal(t, 0.85, cfg.Duplicates.SimilarityThreshold)
	assert.True(t, cfg.Duplicates.UseIndex)
	assert.Equal(t, 2, cfg.Patterns.MinCount)
	assert.Equal(t, "@every 1h", cfg.Patterns.Schedule)
	assert.Equal(t, DriverCSV, cfg.Ledger.Driver)
	assert.False(t, cfg.Observability.MetricsEnabled)

	order, err := cfg.Import.ParseDateOrder()
	require.NoError(t, err)
	assert.Equal(t, normalizer.DayFirst, order)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("IMPORT_DATE_ORDER", "month-first")
	t.Setenv("IMPORT_WORKERS", "4")
	t.Setenv("DUPLICATES_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("DUPLICATES_USE_INDEX", "false")
	t.Setenv("LEDGER_DRIVER", "SQLite")
	t.Setenv("LEDGER_PATH", "/tmp/ledger.db")
	t.Setenv("POSTGRES_PORT", "6543")

	cfg, err := Load()
	require.NoError(t, err)

	order, err := cfg.Import.ParseDateOrder()
	require.NoError(t, err)
	assert.Equal(t, normalizer.MonthFirst, order)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, 0.9, cfg.Duplicates.SimilarityThreshold)
	assert.False(t, cfg.Duplicates.UseIndex)
	assert.Equal(t, DriverSQLite, cfg.Ledger.Driver)
	assert.Equal(t, "/tmp/ledger.db", cfg.Ledger.Path)
	assert.Contains(t, cfg.Database.DSN(), "port=6543")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Import:     ImportConfig{MaxFileBytes: 1024, DateOrder: "day-first"},
			Duplicates: DuplicatesConfig{SimilarityThreshold: 0.85},
			Ledger:     LedgerConfig{Driver: DriverPostgres},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad date order", func(c *Config) { c.Import.DateOrder = "year-first" }, "invalid date order"},
		{"negative workers", func(c *Config) { c.Import.Workers = -1 }, "IMPORT_WORKERS"},
		{"zero file limit", func(c *Config) { c.Import.MaxFileBytes = 0 }, "IMPORT_MAX_FILE_BYTES"},
		{"threshold zero", func(c *Config) { c.Duplicates.SimilarityThreshold = 0 }, "DUPLICATES_SIMILARITY_THRESHOLD"},
		{"threshold above one", func(c *Config) { c.Duplicates.SimilarityThreshold = 1.5 }, "DUPLICATES_SIMILARITY_THRESHOLD"},
		{"unknown driver", func(c *Config) { c.Ledger.Driver = "mysql" }, `unknown LEDGER_DRIVER "mysql"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "mysql")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
