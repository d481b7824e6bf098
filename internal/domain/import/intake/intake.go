// Package intake accepts or rejects an uploaded statement before any parsing
// happens and turns its bytes into a RawTable. Rejections are *FileError values
// carrying the message shown to the user.
package intake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/parser"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/sniffer"
)

// DefaultMaxBytes is the upload limit used when none is configured.
const DefaultMaxBytes int64 = 10 << 20

var (
	ErrEmpty           = errors.New("file is empty")
	ErrInvalidType     = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds size limit")
	ErrEncodingFailure = errors.New("unsupported file encoding")
	ErrNoData          = errors.New("no data rows found")
)

// Kind classifies a rejected file.
type Kind string

const (
	KindEmpty    Kind = "empty"
	KindInvalid  Kind = "invalid"
	KindTooLarge Kind = "too-large"
	KindEncoding Kind = "encoding"
)

// FileError is a rejected upload. Message is safe to show to the user.
type FileError struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message"`
	err     error
}

func (e *FileError) Error() string {
	return e.Message
}

func (e *FileError) Unwrap() error {
	return e.err
}

func newFileError(kind Kind, sentinel error, message string) *FileError {
	return &FileError{Kind: kind, Message: message, err: sentinel}
}

// Format is the container of an accepted file.
type Format int

const (
	FormatCSV Format = iota
	FormatWorkbook
)

func (f Format) String() string {
	if f == FormatWorkbook {
		return "xlsx"
	}
	return "csv"
}

var (
	csvMimeTypes      = []string{"text/csv", "application/csv"}
	workbookMimeTypes = []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}
)

// DetectFormat tells a CSV from an XLSX upload by extension, then MIME type.
func DetectFormat(name, mimeType string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, true
	case ".xlsx":
		return FormatWorkbook, true
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, m := range csvMimeTypes {
		if mimeType == m {
			return FormatCSV, true
		}
	}
	for _, m := range workbookMimeTypes {
		if mimeType == m {
			return FormatWorkbook, true
		}
	}
	return FormatCSV, false
}

// Validate checks a CSV upload: type first, then the size limit, then
// emptiness. maxBytes <= 0 means DefaultMaxBytes.
func Validate(name, mimeType string, size, maxBytes int64) error {
	if format, ok := DetectFormat(name, mimeType); !ok || format != FormatCSV {
		return newFileError(KindInvalid, ErrInvalidType, "Please select a valid CSV file")
	}
	return checkSize(size, maxBytes)
}

// ValidateWorkbook is Validate for uploads that may also be XLSX workbooks.
func ValidateWorkbook(name, mimeType string, size, maxBytes int64) error {
	if _, ok := DetectFormat(name, mimeType); !ok {
		return newFileError(KindInvalid, ErrInvalidType, "Please select a valid CSV or Excel file")
	}
	return checkSize(size, maxBytes)
}

func checkSize(size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if size > maxBytes {
		return newFileError(KindTooLarge, ErrTooLarge,
			fmt.Sprintf("File is too large. Maximum size is %s.", humanSize(maxBytes)))
	}
	if size == 0 {
		return newFileError(KindEmpty, ErrEmpty, "The file is empty")
	}
	return nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns data as text. A UTF-8 BOM is dropped, valid UTF-8 is kept
// as is and anything else is read as Windows-1252. Content with NUL bytes,
// such as UTF-16 exports, is rejected.
func Decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if bytes.IndexByte(data, 0) >= 0 {
		return "", encodingError()
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder()))
	if err != nil {
		return "", encodingError()
	}
	return string(decoded), nil
}

func encodingError() *FileError {
	return newFileError(KindEncoding, ErrEncodingFailure, "Failed to read file. The encoding may not be supported.")
}

// Load validates and tokenizes an upload. CSV content that is blank after
// decoding is empty; a table without a header row is ErrNoData.
func Load(name, mimeType string, data []byte, maxBytes int64) (*sniffer.RawTable, error) {
	if err := ValidateWorkbook(name, mimeType, int64(len(data)), maxBytes); err != nil {
		return nil, err
	}

	format, _ := DetectFormat(name, mimeType)
	if format == FormatWorkbook {
		return loadWorkbook(data)
	}

	content, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, newFileError(KindEmpty, ErrEmpty, "The file is empty")
	}

	table := sniffer.Tokenize(content)
	if table.IsEmpty() {
		return nil, noDataError()
	}
	return table, nil
}

func loadWorkbook(data []byte) (*sniffer.RawTable, error) {
	table, err := parser.ReadWorkbook(bytes.NewReader(data))
	if errors.Is(err, parser.ErrNoSheet) {
		return nil, noDataError()
	}
	if err != nil {
		return nil, newFileError(KindInvalid, fmt.Errorf("%w: %w", ErrInvalidType, err), "Please select a valid CSV or Excel file")
	}
	if table.IsEmpty() {
		return nil, noDataError()
	}
	return table, nil
}

func noDataError() *FileError {
	return newFileError(KindInvalid, ErrNoData, "No valid data found in CSV file")
}
