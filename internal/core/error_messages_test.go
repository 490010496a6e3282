package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "conflict error", err: &ConflictError{Constraint: "registrants_vpa_key"}, wantCode: "DB001"},
		{name: "raw duplicate key", err: errors.New("ERROR: duplicate key value violates unique constraint"), wantCode: "DB001"},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), wantCode: "DB004"},
		{name: "not found", err: &NotFoundError{Resource: "registrant", ID: "abc"}, wantCode: "REG001"},
		{name: "empty registry", err: ErrNoRegistryData, wantCode: "REG002"},
		{name: "missing columns", err: &StructuralError{Kind: KindRegistrant, Missing: []string{"vpa"}}, wantCode: "VAL004"},
		{name: "empty file", err: &StructuralError{Kind: KindTransaction, Err: ErrEmptyFile}, wantCode: "FILE005"},
		{name: "too many records", err: &StructuralError{Kind: KindRegistrant, Err: ErrTooManyRecords}, wantCode: "FILE006"},
		{name: "invalid vpa row", err: RowError{Row: 3, Field: FieldVPA, Reason: ReasonInvalidVPA}, wantCode: "VAL007"},
		{name: "invalid phone row", err: RowError{Row: 2, Field: FieldPhone, Reason: ReasonInvalidPhone}, wantCode: "VAL008"},
		{name: "bad json", err: errors.New("invalid request body: unexpected EOF"), wantCode: "VAL001"},
		{name: "bad id", err: errors.New("invalid registrant id: invalid UUID length: 3"), wantCode: "VAL005"},
		{name: "partial batch failure", err: &PartialBatchFailure{Op: "delete", Failed: 1, Total: 3}, wantCode: "RUN001"},
		{name: "too many runs", err: ErrTooManyRuns, wantCode: "RUN002"},
		{name: "cancelled", err: fmt.Errorf("import: %w", context.Canceled), wantCode: "RUN004"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: "RUN005"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
		{name: "case insensitive matching", err: errors.New("DUPLICATE KEY value violates"), wantCode: "DB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(&ConflictError{})

	expected := "A registrant with this VPA or phone already exists (Code: DB001). Remove the duplicate rows or switch the import to upsert"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrNoRegistryData, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &ConflictError{Constraint: "registrants_phone_vpa_key"}
		userErr := NewUserError(techErr)

		if userErr.Error() != "A registrant with this VPA or phone already exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !IsConflict(userErr) {
			t.Error("Unwrap() should expose the ConflictError")
		}
	})
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("store: %w", &NotFoundError{Resource: "registrant", ID: "x"})
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsConflict(wrapped) {
		t.Error("IsConflict should be false for NotFoundError")
	}

	se := &StructuralError{Kind: KindRegistrant, Err: ErrEmptyFile}
	if !IsStructural(fmt.Errorf("import: %w", se)) {
		t.Error("IsStructural should see through wrapping")
	}
	if !errors.Is(se, ErrEmptyFile) {
		t.Error("StructuralError should unwrap to its cause")
	}
}
