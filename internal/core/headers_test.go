package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalize_SynonymVariants(t *testing.T) {
	hn := NewHeaderNormalizer()

	tests := []struct {
		kind RecordKind
		want string
		in   []string
	}{
		{KindRegistrant, FieldVPA, []string{"VPA", " vpa ", "UPI ID", "upi_id", "Customer VPA (UPI)", "CUSTOMER-VPA-UPI", "CustomerVPAs", "customer vpas"}},
		{KindRegistrant, FieldPhone, []string{"Phone", "PHONE NO", "phone_number", "Mobile No."}},
		{KindRegistrant, FieldCCNo, []string{"cc_no", "CC No", "CC-NO", "cc number"}},
		{KindRegistrant, FieldRouteNo, []string{"Route No", "route_no", "ROUTE"}},
		{KindRegistrant, FieldName, []string{"Name", "  NAME", "Full Name"}},
		{KindTransaction, FieldSNo, []string{"S.NO", "s.no", "SNo", "Serial No"}},
		{KindTransaction, FieldTransactionDate, []string{"Transaction Date", "DATE", "txn_date"}},
		{KindTransaction, FieldAmount, []string{"Transaction Amount", "amount", "AMOUNT"}},
		{KindTransaction, FieldReferenceNumber, []string{"RRN", "rrn", "Reference Number", "Ref No"}},
		{KindTransaction, FieldCustomerVPA, []string{"Customer VPA", "customer_vpa", "VPA", "upi"}},
	}

	for _, tt := range tests {
		for _, in := range tt.in {
			if got := hn.Normalize(tt.kind, in); got != tt.want {
				t.Errorf("Normalize(%s, %q) = %q, want %q", tt.kind, in, got, tt.want)
			}
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	hn := NewHeaderNormalizer()
	inputs := []string{"Customer VPA (UPI)", "S.NO", "cc_no", "Unknown Column", "  Extra  ", "RRN"}

	for _, kind := range []RecordKind{KindRegistrant, KindTransaction} {
		for _, in := range inputs {
			once := hn.Normalize(kind, in)
			twice := hn.Normalize(kind, once)
			if once != twice {
				t.Errorf("Normalize(%s) not idempotent for %q: %q then %q", kind, in, once, twice)
			}
		}
	}
}

func TestNormalize_UnknownPassesThrough(t *testing.T) {
	hn := NewHeaderNormalizer()
	if got := hn.Normalize(KindRegistrant, "  Address "); got != "address" {
		t.Errorf("Normalize(unknown) = %q, want %q", got, "address")
	}
}

func TestNormalize_KindSpecific(t *testing.T) {
	hn := NewHeaderNormalizer()
	if got := hn.Normalize(KindRegistrant, "VPA"); got != FieldVPA {
		t.Errorf("registrant VPA = %q, want %q", got, FieldVPA)
	}
	if got := hn.Normalize(KindTransaction, "VPA"); got != FieldCustomerVPA {
		t.Errorf("transaction VPA = %q, want %q", got, FieldCustomerVPA)
	}
}

func TestIndex_FirstDuplicateWins(t *testing.T) {
	hn := NewHeaderNormalizer()
	idx := hn.Index(KindRegistrant, []string{"Name", "VPA", "UPI ID", "Phone"})

	if idx[FieldVPA] != 1 {
		t.Errorf("idx[vpa] = %d, want 1", idx[FieldVPA])
	}
	if idx[FieldPhone] != 3 {
		t.Errorf("idx[phone] = %d, want 3", idx[FieldPhone])
	}
}

func TestRequireColumns(t *testing.T) {
	hn := NewHeaderNormalizer()

	tests := []struct {
		name        string
		kind        RecordKind
		header      []string
		wantMissing []string
	}{
		{"registrant ok with phone", KindRegistrant, []string{"name", "vpa", "phone"}, nil},
		{"registrant ok with cc_no", KindRegistrant, []string{"UPI", "CC No"}, nil},
		{"registrant missing vpa", KindRegistrant, []string{"name", "phone"}, []string{"vpa"}},
		{"registrant missing identifier", KindRegistrant, []string{"vpa", "name"}, []string{"phone or cc_no"}},
		{"registrant missing both", KindRegistrant, []string{"name"}, []string{"vpa", "phone or cc_no"}},
		{"transaction ok", KindTransaction, []string{"S.NO", "Transaction Date", "Transaction Amount", "RRN", "Customer VPA"}, nil},
		{"transaction missing amount", KindTransaction, []string{"Customer VPA", "RRN"}, []string{"amount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hn.RequireColumns(tt.kind, tt.header)
			if tt.wantMissing == nil {
				if err != nil {
					t.Fatalf("RequireColumns() error = %v", err)
				}
				return
			}

			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("RequireColumns() error = %v, want *StructuralError", err)
			}
			if strings.Join(se.Missing, "|") != strings.Join(tt.wantMissing, "|") {
				t.Errorf("Missing = %v, want %v", se.Missing, tt.wantMissing)
			}
		})
	}
}

func TestLoadHeaderNormalizer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	content := "registrant:\n  vpa: [\"payee handle\"]\ntransaction:\n  reference_number: [\"bank ref\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	hn, err := LoadHeaderNormalizer(path)
	if err != nil {
		t.Fatalf("LoadHeaderNormalizer() error = %v", err)
	}
	if got := hn.Normalize(KindRegistrant, "Payee Handle"); got != FieldVPA {
		t.Errorf("extension synonym = %q, want %q", got, FieldVPA)
	}
	if got := hn.Normalize(KindTransaction, "BANK_REF"); got != FieldReferenceNumber {
		t.Errorf("extension synonym = %q, want %q", got, FieldReferenceNumber)
	}
	if got := hn.Normalize(KindRegistrant, "UPI ID"); got != FieldVPA {
		t.Errorf("built-in synonym lost after merge: %q", got)
	}
}

func TestLoadHeaderNormalizer_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown kind", "payouts:\n  vpa: [\"x\"]\n"},
		{"unknown field", "registrant:\n  address: [\"addr\"]\n"},
		{"bad yaml", "registrant: [\n"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "s"+string(rune('a'+i))+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadHeaderNormalizer(path); err == nil {
				t.Error("LoadHeaderNormalizer() expected error")
			}
		})
	}

	if _, err := LoadHeaderNormalizer(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadHeaderNormalizer() expected error for missing file")
	}
}
