package core

import (
	"testing"
)

// ----------------------------------------------------------------------------
// ParseAmount Tests
// ----------------------------------------------------------------------------

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		wantValue string
	}{
		// Valid: plain numbers
		{name: "positive integer", input: "123", wantValue: "123"},
		{name: "zero", input: "0", wantValue: "0"},
		{name: "decimal number", input: "123.45", wantValue: "123.45"},
		{name: "leading decimal point", input: ".99", wantValue: "0.99"},
		{name: "surrounding whitespace", input: "  42.50 ", wantValue: "42.5"},

		// Valid: currency markers and separators
		{name: "rupee symbol", input: "₹1,250.00", wantValue: "1250"},
		{name: "rs prefix", input: "Rs. 300", wantValue: "300"},
		{name: "inr suffix", input: "75 INR", wantValue: "75"},
		{name: "dollar with thousands", input: "$1,234,567.89", wantValue: "1234567.89"},

		// Invalid
		{name: "empty", input: "", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "negative", input: "-10", wantErr: true},
		{name: "accounting negative", input: "(10.00)", wantErr: true},
		{name: "two decimal points", input: "1.2.3", wantErr: true},
		{name: "scientific notation", input: "1e5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %s, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) error = %v", tt.input, err)
			}
			if got.String() != tt.wantValue {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got.String(), tt.wantValue)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// NormalizeVPA Tests
// ----------------------------------------------------------------------------

func TestNormalizeVPA(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"alice@ybl", "alice@ybl"},
		{"X@YBL", "x@ybl"},
		{"  Bob.Smith@okaxis \t", "bob.smith@okaxis"},
		{"", ""},
	}

	for _, tt := range tests {
		got := NormalizeVPA(tt.input)
		if got != tt.want {
			t.Errorf("NormalizeVPA(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if again := NormalizeVPA(got); again != got {
			t.Errorf("NormalizeVPA not idempotent for %q: %q then %q", tt.input, got, again)
		}
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple string unchanged", input: "hello", want: "hello"},
		{name: "empty string", input: "", want: ""},
		{name: "surrounded by whitespace", input: "  hello  ", want: "hello"},
		{name: "Excel formula with quotes", input: `="9876543210"`, want: "9876543210"},
		{name: "bare equals sign", input: "=SUM(A1)", want: "SUM(A1)"},
		{name: "double quotes", input: `"alice@ybl"`, want: "alice@ybl"},
		{name: "single quotes", input: `'9876543210'`, want: "9876543210"},
		{name: "whitespace inside quotes", input: `" alice@ybl "`, want: "alice@ybl"},
		{name: "leading apostrophe kept", input: "'Neill", want: "'Neill"},
		{name: "trailing apostrophe kept", input: "Jones'", want: "Jones'"},
		{name: "inner apostrophe kept", input: "O'Neill", want: "O'Neill"},
		{name: "mismatched quotes kept", input: `"Neill'`, want: `"Neill'`},
		{name: "only one pair removed", input: `"'Neill'"`, want: "'Neill'"},
		{name: "lone quote", input: `"`, want: `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsBlankRow(t *testing.T) {
	tests := []struct {
		row  []string
		want bool
	}{
		{nil, true},
		{[]string{"", " ", `""`}, true},
		{[]string{"", "x"}, false},
	}
	for _, tt := range tests {
		if got := isBlankRow(tt.row); got != tt.want {
			t.Errorf("isBlankRow(%q) = %v, want %v", tt.row, got, tt.want)
		}
	}
}
