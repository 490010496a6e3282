package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewInputReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte("a\xffb"),
			expected: "a�b",
		},
		{
			name:     "utf16 little endian with BOM",
			input:    []byte{0xFF, 0xFE, 'h', 0, 'i', 0},
			expected: "hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewInputReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestReadTable(t *testing.T) {
	input := "\xEF\xBB\xBFname,vpa,phone\n" +
		"Alice,alice@ybl,9876543210\n" +
		"\n" +
		" , ,\n" +
		"Bob,bob@ybl,1234567890\n" +
		"\n\n"

	table, err := ReadTable(KindRegistrant, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}

	if got := strings.Join(table.Header, ","); got != "name,vpa,phone" {
		t.Errorf("Header = %q, want BOM stripped", got)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(table.Rows))
	}
	if table.Rows[0].Line != 2 {
		t.Errorf("Rows[0].Line = %d, want 2", table.Rows[0].Line)
	}
	if table.Rows[1].Line != 5 {
		t.Errorf("Rows[1].Line = %d, want 5", table.Rows[1].Line)
	}
}

func TestReadTable_RaggedRows(t *testing.T) {
	input := "vpa,phone\nalice@ybl\nbob@ybl,1234567890,extra\n"

	table, err := ReadTable(KindRegistrant, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(table.Rows))
	}
}

func TestReadTable_Empty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no bytes", ""},
		{"header only", "vpa,phone\n"},
		{"header and blank lines", "vpa,phone\n\n , \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(KindRegistrant, strings.NewReader(tt.input))
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("ReadTable() error = %v, want *StructuralError", err)
			}
			if !errors.Is(err, ErrEmptyFile) {
				t.Errorf("ReadTable() error = %v, want ErrEmptyFile", err)
			}
		})
	}
}
