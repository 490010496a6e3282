// Package core provides the registry import, reconciliation and bulk delete logic.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate entry: A registrant with this VPA or phone already exists
//	        Patterns: "duplicate entry", "duplicate key"
//	DB004 - Connection refused: Unable to connect to the registry
//	DB005 - Connection reset: Registry connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Registry was busy with conflicting operations
//
// # Registry Errors (REG001-REG099)
//
//	REG001 - Not found: The registrant does not exist
//	         Patterns: "not found"
//	REG002 - Empty registry: No registrants to match against
//	         Patterns: "no registry data"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid request body: JSON could not be decoded
//	VAL002 - Invalid amount: Amount is not a non-negative number
//	VAL003 - Required field: Required field is empty
//	VAL004 - Missing column: Required column is missing from CSV
//	VAL005 - Invalid id: Registrant id is not a UUID
//	VAL007 - Invalid VPA: VPA must look like name@bank
//	VAL008 - Invalid phone: Phone must be exactly 10 digits
//	VAL009 - Missing identifier: Phone or CC number is required
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE004 - No file provided
//	FILE005 - Empty file
//	FILE006 - Too many records
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Partial failure: Some batches failed
//	RUN002 - System busy: Too many concurrent runs
//	RUN004 - Request cancelled
//	RUN005 - Request timeout
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Errors (DB001-DB007)
	// =========================================================================
	{
		pattern: "duplicate entry",
		msg: UserMessage{
			Message: "A registrant with this VPA or phone already exists",
			Action:  "Remove the duplicate rows or switch the import to upsert",
			Code:    "DB001",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A registrant with this VPA or phone already exists",
			Action:  "Remove the duplicate rows or switch the import to upsert",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the registry",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Registry connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Registry was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Registry Errors (REG001-REG002)
	// =========================================================================
	{
		pattern: "no registry data",
		msg: UserMessage{
			Message: "The registry is empty",
			Action:  "Import registrants before reconciling a statement",
			Code:    "REG002",
		},
	},
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "The registrant does not exist",
			Action:  "Refresh the list and try again",
			Code:    "REG001",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL009)
	// =========================================================================
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body could not be read",
			Action:  "Send valid JSON matching the documented fields",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid registrant id",
		msg: UserMessage{
			Message: "Registrant id is not a valid UUID",
			Action:  "Check the id and try again",
			Code:    "VAL005",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Check that all required columns are present in your file",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid vpa",
		msg: UserMessage{
			Message: "VPA format is invalid",
			Action:  "Use the form name@bank, for example alice@ybl",
			Code:    "VAL007",
		},
	},
	{
		pattern: "invalid phone",
		msg: UserMessage{
			Message: "Phone number format is invalid",
			Action:  "Use exactly 10 digits without spaces or country code",
			Code:    "VAL008",
		},
	},
	{
		pattern: "identifying number",
		msg: UserMessage{
			Message: "Phone or CC number is required",
			Action:  "Provide at least one of phone or cc_no for every registrant",
			Code:    "VAL009",
		},
	},
	{
		pattern: "invalid amount",
		msg: UserMessage{
			Message: "Invalid amount detected",
			Action:  "Use a non-negative number without currency words",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all required columns have values",
			Code:    "VAL003",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Please upload a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "too many records",
		msg: UserMessage{
			Message: "The file has more records than a single import allows",
			Action:  "Split the file and import each part separately",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Run Errors (RUN001-RUN005)
	// =========================================================================
	{
		pattern: "batches failed",
		msg: UserMessage{
			Message: "Some batches could not be written",
			Action:  "Review the failed batches and retry them",
			Code:    "RUN001",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "System is busy processing other runs",
			Action:  "Please wait a moment and try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "RUN005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New("duplicate key violation")
//	msg := MapError(err)
//	// msg.Code == "DB001"
//	// msg.Message == "A registrant with this VPA or phone already exists"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "A registrant with this VPA or phone already exists (Code: DB001). Remove the duplicate rows or switch the import to upsert"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(dbErr)
//	log.Error(ue.Technical)          // Log original error
//	fmt.Println(ue.Error())           // Show "A registrant with this VPA or phone already exists"
//	fmt.Println(ue.User.Code)         // Show "DB001"
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
