package core

// validation.go checks rows before they are written or matched.
//
// Validation happens at two levels:
//  1. Header validation: required canonical columns are present (headers.go)
//  2. Row validation: each row is checked in rule order and the first
//     failing rule is reported
//
// A rejected row never stops validation of the rows after it.

import (
	"io"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// Rejection reasons. They double as MapError patterns.
const (
	ReasonRequired          = "required field is empty"
	ReasonMissingIdentifier = "missing identifying number (phone or cc_no)"
	ReasonInvalidPhone      = "invalid phone format: must be exactly 10 digits"
	ReasonInvalidVPA        = "invalid vpa format: must look like name@bank"
	ReasonInvalidID         = "invalid registrant id: must be a UUID"
)

var (
	phoneRegex = regexp.MustCompile(`^\d{10}$`)
	vpaRegex   = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+$`)
)

// ValidPhone reports whether s is exactly ten ASCII digits.
func ValidPhone(s string) bool { return phoneRegex.MatchString(s) }

// ValidVPA reports whether s looks like local-part@handle.
func ValidVPA(s string) bool { return vpaRegex.MatchString(s) }

// ValidateRegistrant applies the registrant rules in order:
// required presence, then phone format, then VPA format.
// The first failure is returned as a RowError with Row 0.
func ValidateRegistrant(in RegistrantInput) *RowError {
	switch {
	case in.VPA == "":
		return &RowError{Field: FieldVPA, Reason: ReasonRequired}
	case in.Phone == "" && in.CCNo == "":
		return &RowError{Field: FieldPhone, Reason: ReasonMissingIdentifier}
	case in.Phone != "" && !ValidPhone(in.Phone):
		return &RowError{Field: FieldPhone, Reason: ReasonInvalidPhone}
	case !ValidVPA(in.VPA):
		return &RowError{Field: FieldVPA, Reason: ReasonInvalidVPA}
	}
	return nil
}

// registrantFromRow extracts the registrant fields of row. A non-blank id
// cell must parse as a UUID; a blank one leaves the id to the store.
func registrantFromRow(cols ColumnIndex, row []string) (RegistrantInput, *RowError) {
	in := RegistrantInput{
		VPA:     cols.Value(row, FieldVPA),
		Phone:   cols.Value(row, FieldPhone),
		CCNo:    cols.Value(row, FieldCCNo),
		RouteNo: cols.Value(row, FieldRouteNo),
		Name:    cols.Value(row, FieldName),
	}
	if rerr := ValidateRegistrant(in); rerr != nil {
		return in, rerr
	}

	if raw := cols.Value(row, FieldID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return in, &RowError{Field: FieldID, Reason: ReasonInvalidID}
		}
		in.ID = &id
	}
	return in, nil
}

// ValidateRegistrantRows validates every row and splits them into accepted
// inputs and rejections. Accepted order follows file order.
func ValidateRegistrantRows(cols ColumnIndex, rows []TableRow) ([]RegistrantInput, []RowError) {
	accepted := make([]RegistrantInput, 0, len(rows))
	var rejected []RowError

	for _, r := range rows {
		in, rerr := registrantFromRow(cols, r.Cells)
		if rerr != nil {
			rerr.Row = r.Line
			rejected = append(rejected, *rerr)
			continue
		}
		accepted = append(accepted, in)
	}
	return accepted, rejected
}

// ValidateTransactionRows validates statement rows. customer_vpa and amount
// are required and amount must be a non-negative decimal. A blank sno
// defaults to the row's 1-based position among data rows.
func ValidateTransactionRows(cols ColumnIndex, rows []TableRow) ([]Transaction, []RowError) {
	txns := make([]Transaction, 0, len(rows))
	var rejected []RowError

	for i, r := range rows {
		vpa := cols.Value(r.Cells, FieldCustomerVPA)
		if vpa == "" {
			rejected = append(rejected, RowError{Row: r.Line, Field: FieldCustomerVPA, Reason: ReasonRequired})
			continue
		}

		rawAmount := cols.Value(r.Cells, FieldAmount)
		if rawAmount == "" {
			rejected = append(rejected, RowError{Row: r.Line, Field: FieldAmount, Reason: ReasonRequired})
			continue
		}
		amount, err := ParseAmount(rawAmount)
		if err != nil {
			rejected = append(rejected, RowError{Row: r.Line, Field: FieldAmount, Reason: err.Error()})
			continue
		}

		sno := cols.Value(r.Cells, FieldSNo)
		if sno == "" {
			sno = strconv.Itoa(i + 1)
		}

		txns = append(txns, Transaction{
			SNo:             sno,
			TransactionDate: cols.Value(r.Cells, FieldTransactionDate),
			ReferenceNumber: cols.Value(r.Cells, FieldReferenceNumber),
			CustomerVPA:     vpa,
			Amount:          amount,
		})
	}
	return txns, rejected
}

// RegistrantFile is a validated registrant upload.
type RegistrantFile struct {
	Accepted []RegistrantInput
	Rejected []RowError
}

// ParseRegistrants reads, normalizes and validates a registrant CSV.
// Structural problems are returned as *StructuralError and no rows are kept.
func ParseRegistrants(r io.Reader, hn *HeaderNormalizer) (*RegistrantFile, error) {
	table, err := ReadTable(KindRegistrant, r)
	if err != nil {
		return nil, err
	}
	cols, err := hn.RequireColumns(KindRegistrant, table.Header)
	if err != nil {
		return nil, err
	}
	accepted, rejected := ValidateRegistrantRows(cols, table.Rows)
	return &RegistrantFile{Accepted: accepted, Rejected: rejected}, nil
}

// TransactionFile is a validated statement upload.
type TransactionFile struct {
	Transactions []Transaction
	Rejected     []RowError
}

// ParseTransactions reads, normalizes and validates a statement CSV.
func ParseTransactions(r io.Reader, hn *HeaderNormalizer) (*TransactionFile, error) {
	table, err := ReadTable(KindTransaction, r)
	if err != nil {
		return nil, err
	}
	cols, err := hn.RequireColumns(KindTransaction, table.Header)
	if err != nil {
		return nil, err
	}
	txns, rejected := ValidateTransactionRows(cols, table.Rows)
	return &TransactionFile{Transactions: txns, Rejected: rejected}, nil
}
