// Package sniffer turns decoded statement text into a header row and data rows.
// It detects the field delimiter from the header line, honours quoting and
// generates a header fingerprint used to recognise a bank layout again.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

const byteOrderMark = "\uFEFF"

// RawTable is the tokenized form of an import file.
// Rows may be ragged: a row keeps exactly the fields that were present.
type RawTable struct {
	Headers     []string   `json:"headers"`
	Rows        [][]string `json:"rows"`
	TotalRows   int        `json:"total_rows"`
	Delimiter   rune       `json:"-"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

// IsEmpty reports whether no header was found.
func (t *RawTable) IsEmpty() bool {
	return t == nil || len(t.Headers) == 0
}

// FirstRow returns the first data row, or nil when the table has no rows.
func (t *RawTable) FirstRow() []string {
	if t == nil || len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// SampleRows returns up to n leading data rows for preview rendering.
func (t *RawTable) SampleRows(n int) [][]string {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// Tokenize splits content into a RawTable. The delimiter is detected once from
// the header line and applied to every row. Empty input yields an empty table.
func Tokenize(content string) *RawTable {
	content = strings.TrimPrefix(content, byteOrderMark)
	lines := SplitLines(strings.TrimSpace(content))
	if len(lines) == 0 {
		return &RawTable{
			Headers:   []string{},
			Rows:      [][]string{},
			TotalRows: 0,
			Delimiter: ',',
		}
	}

	delimiter := DetectDelimiter(lines[0])
	headers := ParseLine(lines[0], delimiter)

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		row := ParseLine(line, delimiter)
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}
		rows = append(rows, row)
	}

	return &RawTable{
		Headers:     headers,
		Rows:        rows,
		TotalRows:   len(rows),
		Delimiter:   delimiter,
		Fingerprint: Fingerprint(headers),
	}
}

// SplitLines breaks content into logical lines. \r\n, \r and \n end a line
// unless a quoted field is open, so quoted values may span several lines.
// Whitespace-only lines are dropped. Quote characters are kept in the line.
func SplitLines(content string) []string {
	var lines []string
	inQuotes := false
	start := 0

	for i := 0; i < len(content); i++ {
		switch c := content[i]; {
		case c == '"':
			inQuotes = !inQuotes
		case (c == '\n' || c == '\r') && !inQuotes:
			line := content[start:i]
			if c == '\r' && i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
			start = i + 1
		}
	}

	if tail := content[start:]; strings.TrimSpace(tail) != "" {
		lines = append(lines, tail)
	}
	return lines
}

// ParseLine splits one logical line into trimmed fields. A delimiter inside an
// open quote is literal, "" inside quotes is an escaped quote and the
// surrounding quotes are not part of the value.
func ParseLine(line string, delimiter rune) []string {
	d := byte(delimiter)
	fields := make([]string, 0, 8)
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == d && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}

	fields = append(fields, strings.TrimSpace(current.String()))
	return fields
}

// DetectDelimiter counts commas, semicolons and tabs outside quotes.
// The strictly highest count wins; anything else falls back to a comma.
func DetectDelimiter(line string) rune {
	var commas, semicolons, tabs int
	inQuotes := false

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				commas++
			}
		case ';':
			if !inQuotes {
				semicolons++
			}
		case '\t':
			if !inQuotes {
				tabs++
			}
		}
	}

	switch {
	case semicolons > commas && semicolons > tabs:
		return ';'
	case tabs > commas && tabs > semicolons:
		return '\t'
	default:
		return ','
	}
}

// Fingerprint creates a stable hash from header names. Case, spacing and
// punctuation do not change the result.
func Fingerprint(headers []string) string {
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}
	if len(normalized) == 0 {
		return ""
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
