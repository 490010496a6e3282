package core

// input.go reads uploaded CSV files.
//
// Input is decoded through golang.org/x/text so a UTF-8 BOM is dropped,
// UTF-16 files with a BOM are transcoded, and invalid UTF-8 bytes become
// U+FFFD instead of failing the parse. Blank lines are skipped, including
// trailing ones.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a parsed CSV file.
type Table struct {
	Header []string
	Rows   []TableRow
}

// TableRow is a non-blank data row with its line number in the file.
// The header is line 1 of a file without leading blank lines.
type TableRow struct {
	Line  int
	Cells []string
}

// NewInputReader wraps r with BOM handling and UTF-8 sanitizing.
func NewInputReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// ReadTable parses a whole CSV file of the given kind. A file without a
// header or without any non-blank data row yields a *StructuralError.
func ReadTable(kind RecordKind, r io.Reader) (*Table, error) {
	cr := csv.NewReader(NewInputReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &Table{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &StructuralError{Kind: kind, Err: fmt.Errorf("invalid csv: %w", err)}
		}

		if t.Header == nil {
			if isBlankRow(record) {
				continue
			}
			t.Header = record
			continue
		}

		if isBlankRow(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		t.Rows = append(t.Rows, TableRow{Line: line, Cells: record})
	}

	if t.Header == nil || len(t.Rows) == 0 {
		return nil, &StructuralError{Kind: kind, Err: ErrEmptyFile}
	}
	return t, nil
}
