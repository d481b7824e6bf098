package ledger

import (
	"context"
	"encoding/json"
	"strings"
)

// Source provides a read-only snapshot of the ledger. Database sources return
// records newest first (date, then creation time) and categories by sort
// order; file sources keep file order.
type Source interface {
	ListRecords(ctx context.Context) ([]Record, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// StaticSource serves fixed slices. Useful for callers that already hold the
// snapshot in memory.
type StaticSource struct {
	Records    []Record
	Categories []Category
}

func (s StaticSource) ListRecords(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Record(nil), s.Records...), nil
}

func (s StaticSource) ListCategories(ctx context.Context) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Category(nil), s.Categories...), nil
}

// decodeTags reads the JSON array stored in the tags column. Malformed or
// empty values yield no tags.
func decodeTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func nullableString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
