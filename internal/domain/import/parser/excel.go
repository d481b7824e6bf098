package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/sniffer"
)

var ErrNoSheet = errors.New("no suitable sheet found")

// ReadWorkbook reads the transaction sheet of an XLSX file into a RawTable.
// The first non-empty row is the header. Cells are trimmed and rows without
// any value are dropped.
func ReadWorkbook(reader io.Reader) (*sniffer.RawTable, error) {
	return ReadWorkbookSheet(reader, "")
}

// ReadWorkbookSheet reads the named sheet, or the preferred one when sheet is "".
func ReadWorkbookSheet(reader io.Reader, sheet string) (*sniffer.RawTable, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = findTransactionSheet(f)
	}
	if sheet == "" {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	table := &sniffer.RawTable{
		Headers: []string{},
		Rows:    [][]string{},
	}
	for _, row := range rows {
		trimmed := trimCells(row)
		if isBlank(trimmed) {
			continue
		}
		if len(table.Headers) == 0 {
			table.Headers = trimmed
			continue
		}
		table.Rows = append(table.Rows, trimmed)
	}

	table.TotalRows = len(table.Rows)
	table.Fingerprint = sniffer.Fingerprint(table.Headers)
	return table, nil
}

// SheetNames lists the sheets of an XLSX file.
func SheetNames(reader io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// findTransactionSheet prefers a sheet with a statement-like name and falls
// back to the first sheet.
func findTransactionSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}

	preferredNames := []string{
		"transactions", "transacties", "umsätze", "movimientos",
		"statement", "data", "sheet1",
	}
	for _, preferred := range preferredNames {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}
	return sheets[0]
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
