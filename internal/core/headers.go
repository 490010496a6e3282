package core

// headers.go maps the many spellings of CSV column headers onto canonical
// field names.
//
// Each record kind has its own synonym table because the same header means
// different things: "VPA" is the registrant's own address in a registry
// file but the payer's address in a statement.
//
// Lookup keys are squashed (lowercased with spaces, underscores, hyphens,
// dots and parentheses removed) so "Customer VPA (UPI)", "customer_vpa_upi"
// and "CUSTOMER-VPA-UPI" all hit the same entry.

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// builtinSynonyms is the default header table, keyed by canonical field.
var builtinSynonyms = map[RecordKind]map[string][]string{
	KindRegistrant: {
		FieldID:      {"id", "registrant id", "uuid"},
		FieldVPA:     {"vpa", "upi", "upi id", "customer vpa", "customer vpas", "customervpas", "customer vpa (upi)", "virtual payment address"},
		FieldPhone:   {"phone", "phone no", "phone number", "mobile", "mobile no", "mobile number", "contact"},
		FieldCCNo:    {"cc_no", "cc no", "cc number", "cc", "collection centre", "collection center"},
		FieldRouteNo: {"route_no", "route no", "route", "route number"},
		FieldName:    {"name", "full name", "payee", "payee name", "registrant name"},
	},
	KindTransaction: {
		FieldSNo:             {"sno", "s.no", "s no", "serial no", "serial number", "sr no"},
		FieldTransactionDate: {"transaction_date", "transaction date", "date", "txn date", "value date"},
		FieldAmount:          {"amount", "transaction amount", "txn amount"},
		FieldReferenceNumber: {"reference_number", "rrn", "reference", "reference number", "ref no", "utr"},
		FieldCustomerVPA:     {"customer_vpa", "customer vpa", "vpa", "upi", "upi id", "payer vpa"},
	},
}

// requiredColumns are the canonical columns a file of each kind must carry.
// Registrants additionally need phone or cc_no, checked after normalization.
var requiredColumns = map[RecordKind][]string{
	KindRegistrant:  {FieldVPA},
	KindTransaction: {FieldCustomerVPA, FieldAmount},
}

// ColumnIndex maps canonical field names to their position in a CSV row.
type ColumnIndex map[string]int

// Has reports whether the canonical field is present.
func (c ColumnIndex) Has(field string) bool {
	_, ok := c[field]
	return ok
}

// Value returns the cleaned cell for field, or "" when the column is absent
// or the row is short.
func (c ColumnIndex) Value(row []string, field string) string {
	pos, ok := c[field]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// HeaderNormalizer resolves header tokens to canonical field names.
// It is immutable once built and safe for concurrent use.
type HeaderNormalizer struct {
	tables map[RecordKind]map[string]string // squashed token -> canonical
}

// NewHeaderNormalizer returns a normalizer with the built-in synonym table.
func NewHeaderNormalizer() *HeaderNormalizer {
	n := &HeaderNormalizer{tables: make(map[RecordKind]map[string]string)}
	for kind, fields := range builtinSynonyms {
		n.merge(kind, fields)
	}
	return n
}

// SynonymFile is the YAML layout of an extension file:
//
//	registrant:
//	  vpa: ["payee upi"]
//	transaction:
//	  reference_number: ["bank ref"]
type SynonymFile map[RecordKind]map[string][]string

// LoadHeaderNormalizer builds a normalizer from the built-in table and, when
// path is non-empty, merges the synonyms in the YAML file at path over it.
func LoadHeaderNormalizer(path string) (*HeaderNormalizer, error) {
	n := NewHeaderNormalizer()
	if path == "" {
		return n, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read header synonyms: %w", err)
	}

	var file SynonymFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse header synonyms %s: %w", path, err)
	}

	for kind, fields := range file {
		if _, ok := builtinSynonyms[kind]; !ok {
			return nil, fmt.Errorf("header synonyms %s: unknown record kind %q", path, kind)
		}
		for field := range fields {
			if _, ok := builtinSynonyms[kind][field]; !ok {
				return nil, fmt.Errorf("header synonyms %s: unknown %s field %q", path, kind, field)
			}
		}
		n.merge(kind, fields)
	}

	return n, nil
}

func (n *HeaderNormalizer) merge(kind RecordKind, fields map[string][]string) {
	table := n.tables[kind]
	if table == nil {
		table = make(map[string]string)
		n.tables[kind] = table
	}
	for canonical, synonyms := range fields {
		table[squash(canonical)] = canonical
		for _, s := range synonyms {
			table[squash(s)] = canonical
		}
	}
}

// Normalize maps a header token to its canonical field name. Unknown tokens
// are returned trimmed and lowercased. Normalize is idempotent.
func (n *HeaderNormalizer) Normalize(kind RecordKind, token string) string {
	token = strings.ToLower(CleanCell(token))
	if canonical, ok := n.tables[kind][squash(token)]; ok {
		return canonical
	}
	return token
}

// Index normalizes every header token and returns the canonical column
// positions. When two columns normalize to the same field the first wins.
func (n *HeaderNormalizer) Index(kind RecordKind, header []string) ColumnIndex {
	idx := make(ColumnIndex, len(header))
	for i, h := range header {
		field := n.Normalize(kind, h)
		if field == "" {
			continue
		}
		if _, dup := idx[field]; dup {
			continue
		}
		idx[field] = i
	}
	return idx
}

// RequireColumns indexes header and fails with a *StructuralError naming
// every required canonical column that is missing.
func (n *HeaderNormalizer) RequireColumns(kind RecordKind, header []string) (ColumnIndex, error) {
	idx := n.Index(kind, header)

	var missing []string
	for _, field := range requiredColumns[kind] {
		if !idx.Has(field) {
			missing = append(missing, field)
		}
	}
	if kind == KindRegistrant && !idx.Has(FieldPhone) && !idx.Has(FieldCCNo) {
		missing = append(missing, FieldPhone+" or "+FieldCCNo)
	}

	if len(missing) > 0 {
		return nil, &StructuralError{Kind: kind, Missing: missing}
	}
	return idx, nil
}

// squash reduces a header token to its lookup key.
func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '_', '-', '.', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
