// Package storage archives imported statements and their review exports so a
// run can be inspected or replayed later.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("archived file not found")

// Kind says what an archived file is.
type Kind string

const (
	KindStatement Kind = "statement"
	KindReview    Kind = "review"
)

// Entry is the metadata of an archived file.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	RunID       string    `json:"run_id"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Checksum    string    `json:"checksum"` // hex SHA-256 of the content
	Path        string    `json:"path"`     // relative to the archive root
	CreatedAt   time.Time `json:"created_at"`
}

// Archive stores files per import run.
type Archive interface {
	// Put stores r under runID and returns its metadata
	Put(ctx context.Context, runID string, kind Kind, name, contentType string, r io.Reader) (*Entry, error)

	// Get opens an archived file
	Get(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Entry, error)

	// Info returns metadata without opening the file
	Info(ctx context.Context, id uuid.UUID) (*Entry, error)

	// List returns the files of a run, or every file when runID is empty
	List(ctx context.Context, runID string) ([]*Entry, error)

	// FindByChecksum returns statements with the given content hash
	FindByChecksum(ctx context.Context, checksum string) ([]*Entry, error)

	// Delete removes a file and its metadata
	Delete(ctx context.Context, id uuid.UUID) error
}

// Checksum returns the hex SHA-256 of data, as stored in Entry.Checksum.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
