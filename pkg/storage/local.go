package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDir = ".meta"

// LocalArchive keeps files under basePath/<run>/ with JSON metadata in
// basePath/.meta/.
type LocalArchive struct {
	basePath string
}

// NewLocalArchive creates the archive directory if needed.
func NewLocalArchive(basePath string) (*LocalArchive, error) {
	if err := os.MkdirAll(filepath.Join(basePath, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchive{basePath: basePath}, nil
}

func (a *LocalArchive) Put(ctx context.Context, runID string, kind Kind, name, contentType string, r io.Reader) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.New()

	runDir := sanitizeFilename(runID)
	if runDir == "" {
		runDir = "unassigned"
	}
	if err := os.MkdirAll(filepath.Join(a.basePath, runDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	stored := filepath.Join(runDir, fmt.Sprintf("%s_%s", id.String()[:8], sanitizeFilename(name)))
	fullPath := filepath.Join(a.basePath, stored)

	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	entry := &Entry{
		ID:          id,
		RunID:       runID,
		Kind:        kind,
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Checksum:    hex.EncodeToString(hash.Sum(nil)),
		Path:        stored,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.saveMetadata(entry); err != nil {
		os.Remove(fullPath)
		return nil, err
	}
	return entry, nil
}

func (a *LocalArchive) Get(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Entry, error) {
	entry, err := a.Info(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(a.basePath, entry.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, entry, nil
}

func (a *LocalArchive) Info(ctx context.Context, id uuid.UUID) (*Entry, error) {
	data, err := os.ReadFile(a.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &entry, nil
}

// List is sorted oldest first.
func (a *LocalArchive) List(ctx context.Context, runID string) ([]*Entry, error) {
	all, err := a.entries(ctx)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		return all, nil
	}
	out := make([]*Entry, 0, len(all))
	for _, e := range all {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *LocalArchive) FindByChecksum(ctx context.Context, checksum string) ([]*Entry, error) {
	all, err := a.entries(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Entry
	for _, e := range all {
		if e.Kind == KindStatement && e.Checksum == checksum {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *LocalArchive) Delete(ctx context.Context, id uuid.UUID) error {
	entry, err := a.Info(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(a.basePath, entry.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := os.Remove(a.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

func (a *LocalArchive) entries(ctx context.Context) ([]*Entry, error) {
	dirEntries, err := os.ReadDir(filepath.Join(a.basePath, metaDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []*Entry{}, nil
		}
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	entries := make([]*Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(de.Name(), ".json"))
		if err != nil {
			continue
		}
		entry, err := a.Info(ctx, id)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (a *LocalArchive) metaPath(id uuid.UUID) string {
	return filepath.Join(a.basePath, metaDir, id.String()+".json")
}

func (a *LocalArchive) saveMetadata(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(a.metaPath(entry.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename replaces path separators and characters that are unsafe
// on common filesystems.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

var _ Archive = (*LocalArchive)(nil)
