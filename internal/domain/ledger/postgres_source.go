package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the part of *pgxpool.Pool the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads a ledger hosted in Postgres. Tags are a text[] column
// and timestamps are timestamptz.
type PostgresSource struct {
	db     Querier
	logger *slog.Logger
}

// NewPostgresPool connects and pings dsn.
func NewPostgresPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping ledger database: %w", err)
	}
	return pool, nil
}

func NewPostgresSource(db Querier, logger *slog.Logger) *PostgresSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSource{db: db, logger: logger}
}

func (s *PostgresSource) ListRecords(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id::text, to_char(date, 'YYYY-MM-DD'), payee, category_id::text, memo,
		       amount_cents, account_id::text, tags, is_reconciled, import_source,
		       created_at, updated_at
		FROM transactions
		ORDER BY date DESC, created_at DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                  Record
			memo, importSource   *string
			tags                 []string
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Date,
			&rec.Payee,
			&rec.CategoryID,
			&memo,
			&rec.AmountCents,
			&rec.AccountID,
			&tags,
			&rec.IsReconciled,
			&importSource,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		rec.Memo = nullableString(memo)
		rec.ImportSource = nullableString(importSource)
		rec.Tags = tags
		if rec.Tags == nil {
			rec.Tags = []string{}
		}
		rec.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		rec.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	s.logger.Debug("ledger records loaded", slog.Int("count", len(records)))
	return records, nil
}

func (s *PostgresSource) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id::text, name, parent_id::text, type, icon, color, sort_order
		FROM categories
		ORDER BY sort_order
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var (
			c           Category
			typ         string
			icon, color *string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &typ, &icon, &color, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if c.Type, err = ParseCategoryType(typ); err != nil {
			return nil, fmt.Errorf("category %s: %w", c.ID, err)
		}
		c.Icon = nullableString(icon)
		c.Color = nullableString(color)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
