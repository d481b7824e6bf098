package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// recordRow is the CSV layout of a ledger export. Empty category_id means
// uncategorized.
type recordRow struct {
	ID           string `csv:"id"`
	Date         string `csv:"date"`
	Payee        string `csv:"payee"`
	CategoryID   string `csv:"category_id"`
	Memo         string `csv:"memo"`
	AmountCents  int64  `csv:"amount_cents"`
	AccountID    string `csv:"account_id"`
	Tags         string `csv:"tags"` // JSON array
	IsReconciled string `csv:"is_reconciled"`
	ImportSource string `csv:"import_source"`
	CreatedAt    string `csv:"created_at"`
	UpdatedAt    string `csv:"updated_at"`
}

type categoryRow struct {
	ID        string `csv:"id"`
	Name      string `csv:"name"`
	ParentID  string `csv:"parent_id"`
	Type      string `csv:"type"`
	Icon      string `csv:"icon"`
	Color     string `csv:"color"`
	SortOrder int    `csv:"sort_order"`
}

// CSVSource reads a ledger export from disk on every call. The categories
// file is optional.
type CSVSource struct {
	recordsPath    string
	categoriesPath string
	logger         *slog.Logger
}

func NewCSVSource(recordsPath, categoriesPath string, logger *slog.Logger) *CSVSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSource{recordsPath: recordsPath, categoriesPath: categoriesPath, logger: logger}
}

func (s *CSVSource) ListRecords(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.recordsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger records: %w", err)
	}
	defer f.Close()

	records, err := ReadRecordsCSV(f)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("ledger records loaded", slog.String("path", s.recordsPath), slog.Int("count", len(records)))
	return records, nil
}

func (s *CSVSource) ListCategories(ctx context.Context) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.categoriesPath == "" {
		return []Category{}, nil
	}
	f, err := os.Open(s.categoriesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger categories: %w", err)
	}
	defer f.Close()
	return ReadCategoriesCSV(f)
}

// ReadRecordsCSV parses a records export. Rows keep file order.
func ReadRecordsCSV(r io.Reader) ([]Record, error) {
	var rows []*recordRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read ledger records: %w", err)
	}
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		reconciled, err := parseFlag(row.IsReconciled)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid is_reconciled %q: %w", i+2, row.IsReconciled, err)
		}
		rec := Record{
			ID:           row.ID,
			Date:         row.Date,
			Payee:        row.Payee,
			Memo:         row.Memo,
			AmountCents:  row.AmountCents,
			AccountID:    row.AccountID,
			Tags:         decodeTags(row.Tags),
			IsReconciled: reconciled,
			ImportSource: row.ImportSource,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		}
		if row.CategoryID != "" {
			rec.CategoryID = stringPtr(row.CategoryID)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecordsCSV writes records in the layout ReadRecordsCSV accepts.
func WriteRecordsCSV(w io.Writer, records []Record) error {
	rows := make([]*recordRow, 0, len(records))
	for _, rec := range records {
		tags := rec.Tags
		if tags == nil {
			tags = []string{}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("failed to encode tags: %w", err)
		}
		rows = append(rows, &recordRow{
			ID:           rec.ID,
			Date:         rec.Date,
			Payee:        rec.Payee,
			CategoryID:   nullableString(rec.CategoryID),
			Memo:         rec.Memo,
			AmountCents:  rec.AmountCents,
			AccountID:    rec.AccountID,
			Tags:         string(encoded),
			IsReconciled: strconv.FormatBool(rec.IsReconciled),
			ImportSource: rec.ImportSource,
			CreatedAt:    rec.CreatedAt,
			UpdatedAt:    rec.UpdatedAt,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write ledger records: %w", err)
	}
	return nil
}

// ReadCategoriesCSV parses a categories export.
func ReadCategoriesCSV(r io.Reader) ([]Category, error) {
	var rows []*categoryRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read ledger categories: %w", err)
	}
	categories := make([]Category, 0, len(rows))
	for i, row := range rows {
		typ, err := ParseCategoryType(row.Type)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		c := Category{
			ID:        row.ID,
			Name:      row.Name,
			Type:      typ,
			Icon:      row.Icon,
			Color:     row.Color,
			SortOrder: row.SortOrder,
		}
		if row.ParentID != "" {
			c.ParentID = stringPtr(row.ParentID)
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func parseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
