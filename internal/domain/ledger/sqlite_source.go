package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

const (
	listRecordsQuery = `
		SELECT id, date, payee, category_id, memo, amount_cents, account_id, tags,
		       is_reconciled, import_source, created_at, updated_at
		FROM transactions
		ORDER BY date DESC, created_at DESC`

	listCategoriesQuery = `
		SELECT id, name, parent_id, type, icon, color, sort_order
		FROM categories
		ORDER BY sort_order`
)

// SQLiteSource reads the desktop ledger database.
type SQLiteSource struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens path read-only. The file must already exist.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger database: %w", err)
	}
	return NewSQLiteSource(db, logger), nil
}

// NewSQLiteSource wraps an open handle. The caller keeps ownership of db
// unless Close is called.
func NewSQLiteSource(db *sql.DB, logger *slog.Logger) *SQLiteSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteSource{db: db, logger: logger}
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, listRecordsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                          Record
			categoryID, memo, importFrom sql.NullString
			tags                         sql.NullString
			reconciled                   int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Date,
			&rec.Payee,
			&categoryID,
			&memo,
			&rec.AmountCents,
			&rec.AccountID,
			&tags,
			&reconciled,
			&importFrom,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if categoryID.Valid {
			rec.CategoryID = stringPtr(categoryID.String)
		}
		rec.Memo = memo.String
		rec.Tags = decodeTags(tags.String)
		rec.IsReconciled = reconciled == 1
		rec.ImportSource = importFrom.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	s.logger.Debug("ledger records loaded", slog.Int("count", len(records)))
	return records, nil
}

func (s *SQLiteSource) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, listCategoriesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var (
			c                     Category
			parentID, icon, color sql.NullString
			typ                   string
		)
		if err := rows.Scan(&c.ID, &c.Name, &parentID, &typ, &icon, &color, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if c.Type, err = ParseCategoryType(typ); err != nil {
			return nil, fmt.Errorf("category %s: %w", c.ID, err)
		}
		if parentID.Valid {
			c.ParentID = stringPtr(parentID.String)
		}
		c.Icon = icon.String
		c.Color = color.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
