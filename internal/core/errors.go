package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRegistryData is returned by matching when the registry is empty.
	// It is distinct from a run that simply matched nothing.
	ErrNoRegistryData = errors.New("no registry data available for matching")

	// ErrEmptyFile is wrapped by StructuralError when a file has no data rows.
	ErrEmptyFile = errors.New("empty file")

	// ErrTooManyRecords is wrapped by StructuralError when an import exceeds the record ceiling.
	ErrTooManyRecords = errors.New("too many records")
)

// StructuralError means the input as a whole cannot be processed:
// missing required columns, no data rows, or too many records.
type StructuralError struct {
	Kind    RecordKind
	Missing []string // canonical columns absent from the header
	Err     error
}

func (e *StructuralError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s file: missing required columns: %s", e.Kind, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s file: %v", e.Kind, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// RowError is a single rejected row. Row numbers are 1-based with the header as row 1;
// Row is 0 when a single record was validated outside a file.
type RowError struct {
	Row    int    `json:"row"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	if e.Row == 0 {
		if e.Field != "" {
			return fmt.Sprintf("%s: %s", e.Field, e.Reason)
		}
		return e.Reason
	}
	if e.Field != "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ConflictError is returned by a store when a write violates a uniqueness constraint.
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("duplicate entry violates unique constraint %q", e.Constraint)
	}
	return "duplicate entry violates unique constraint"
}

func (e *ConflictError) Unwrap() error { return e.Err }

// NotFoundError is returned when a registrant does not exist. Bulk
// operations list every missing id in IDs.
type NotFoundError struct {
	Resource string
	ID       string
	IDs      []string
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("%s not found: %s", e.Resource, strings.Join(e.IDs, ", "))
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// PartialBatchFailure reports that some batches of a bulk run failed.
type PartialBatchFailure struct {
	Op     string
	Failed int
	Total  int
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%s: %d of %d batches failed", e.Op, e.Failed, e.Total)
}

// IsConflict reports whether err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStructural reports whether err is or wraps a *StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
