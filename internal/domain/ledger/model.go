// Package ledger holds the read-only snapshot of persisted transactions and
// categories that an import is reconciled against.
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrUnknownDriver       = errors.New("unknown ledger driver")
)

// CategoryType is the kind of money movement a category describes.
type CategoryType string

const (
	CategoryIncome   CategoryType = "income"
	CategoryExpense  CategoryType = "expense"
	CategoryTransfer CategoryType = "transfer"
)

// ParseCategoryType accepts the stored lowercase names. Empty means expense.
func ParseCategoryType(s string) (CategoryType, error) {
	switch t := CategoryType(strings.ToLower(strings.TrimSpace(s))); t {
	case CategoryIncome, CategoryExpense, CategoryTransfer:
		return t, nil
	case "":
		return CategoryExpense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategoryType, s)
}

// Record is a persisted transaction. A nil CategoryID means the record was
// never categorized.
type Record struct {
	ID           string   `json:"id"`
	Date         string   `json:"date"` // YYYY-MM-DD
	Payee        string   `json:"payee"`
	CategoryID   *string  `json:"category_id"`
	Memo         string   `json:"memo,omitempty"`
	AmountCents  int64    `json:"amount_cents"`
	AccountID    string   `json:"account_id"`
	Tags         []string `json:"tags"`
	IsReconciled bool     `json:"is_reconciled"`
	ImportSource string   `json:"import_source,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// IsCategorized reports whether the record carries a non-empty category.
func (r Record) IsCategorized() bool {
	return r.CategoryID != nil && *r.CategoryID != ""
}

// Category is a user category. Categories may nest one level through ParentID.
type Category struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	ParentID  *string      `json:"parent_id"`
	Type      CategoryType `json:"type"`
	Icon      string       `json:"icon,omitempty"`
	Color     string       `json:"color,omitempty"`
	SortOrder int          `json:"sort_order"`
}

// Uncategorized returns the records whose CategoryID is nil, in order.
// A pointer to an empty string counts as categorized here, matching how the
// pattern scan treats stored values.
func Uncategorized(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.CategoryID == nil {
			out = append(out, r)
		}
	}
	return out
}

// CategoryNames maps category ID to name.
func CategoryNames(categories []Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

// Payees returns the distinct trimmed payees of records in first-seen order.
func Payees(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	var out []string
	for _, r := range records {
		p := strings.TrimSpace(r.Payee)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func stringPtr(s string) *string { return &s }
