package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedgerDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("testdata/schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO categories (id, name, parent_id, type, icon, color, sort_order) VALUES
			('cat-groceries', 'Groceries', NULL, 'expense', 'cart', NULL, 2),
			('cat-salary', 'Salary', NULL, 'income', NULL, NULL, 1),
			('cat-fresh', 'Fresh', 'cat-groceries', 'expense', NULL, '#00ff00', 3)`)
	require.NoError(t, err)

	_, err = db.Exec(`
		INSERT INTO transactions (id, date, payee, category_id, memo, amount_cents, account_id, tags, is_reconciled, import_source, created_at, updated_at) VALUES
			('t-1', '2025-01-10', 'Albert Heijn', 'cat-groceries', 'Weekly', -2500, 'acc-1', '["food"]', 1, 'bunq.csv', '2025-01-10 09:00:00', '2025-01-10 09:00:00'),
			('t-2', '2025-01-15', 'Coffee Shop', NULL, NULL, -350, 'acc-1', '[]', 0, NULL, '2025-01-15 08:00:00', '2025-01-15 08:00:00'),
			('t-3', '2025-01-15', 'Acme Inc', 'cat-salary', NULL, 250000, 'acc-1', 'garbage', 0, NULL, '2025-01-15 12:00:00', '2025-01-15 12:00:00')`)
	require.NoError(t, err)

	return db
}

func TestSQLiteSource_ListRecords(t *testing.T) {
	src := NewSQLiteSource(newTestLedgerDB(t), nil)

	records, err := src.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	// newest date first, then newest creation time
	assert.Equal(t, "t-3", records[0].ID)
	assert.Equal(t, "t-2", records[1].ID)
	assert.Equal(t, "t-1", records[2].ID)

	assert.Equal(t, []string{}, records[0].Tags)
	assert.Nil(t, records[1].CategoryID)
	assert.Empty(t, records[1].Memo)
	assert.Empty(t, records[1].ImportSource)

	oldest := records[2]
	require.NotNil(t, oldest.CategoryID)
	assert.Equal(t, "cat-groceries", *oldest.CategoryID)
	assert.Equal(t, "Weekly", oldest.Memo)
	assert.Equal(t, int64(-2500), oldest.AmountCents)
	assert.Equal(t, []string{"food"}, oldest.Tags)
	assert.True(t, oldest.IsReconciled)
	assert.Equal(t, "bunq.csv", oldest.ImportSource)
	assert.Equal(t, "2025-01-10 09:00:00", oldest.CreatedAt)
}

func TestSQLiteSource_ListCategories(t *testing.T) {
	src := NewSQLiteSource(newTestLedgerDB(t), nil)

	categories, err := src.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 3)

	assert.Equal(t, "Salary", categories[0].Name)
	assert.Equal(t, CategoryIncome, categories[0].Type)
	assert.Equal(t, "cart", categories[1].Icon)
	require.NotNil(t, categories[2].ParentID)
	assert.Equal(t, "cat-groceries", *categories[2].ParentID)
	assert.Equal(t, "#00ff00", categories[2].Color)
}

func TestOpenSQLite(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "missing.db"), nil)
	assert.Error(t, err)
}
