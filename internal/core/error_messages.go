package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Sheet Errors (SHT001-SHT099)
//
//	SHT001 - Version conflict: The sheet changed since it was loaded
//	         Action: Reload the page and apply your changes again
//	         Patterns: "sheet version conflict"
//
//	SHT002 - Row not found: The row no longer exists
//	         Action: Reload the page to see the current rows
//	         Patterns: "row out of range"
//
//	SHT003 - Unknown column: The column is not part of the sheet
//	         Patterns: "unknown column"
//
//	SHT004 - Sheet busy: Another change to this sheet is in progress
//	         Patterns: "sheet is busy"
//
//	SHT005 - Unknown sheet
//	         Patterns: "unknown sheet"
//
//	SHT006 - Store unavailable: The sheet could not be read
//	         Patterns: "failed after"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Required field is empty            Patterns: "is required"
//	VAL002 - Amount must be greater than zero   Patterns: "greater than zero"
//	VAL003 - Amount cannot be negative          Patterns: "cannot be negative"
//	VAL004 - Invalid payment status             Patterns: "invalid payment status"
//	VAL005 - Invalid value                      Patterns: "invalid value"
//
// # Delete Errors (DEL001-DEL099)
//
//	DEL001 - Confirmation expired or unknown    Patterns: "delete confirmation not found"
//	DEL002 - Row changed before confirmation    Patterns: "row changed"
//
// # History Errors (HIS001)
//
//	HIS001 - History entry not found            Patterns: "history entry not found"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - File too large                     Patterns: "import file too large"
//	IMP002 - Header row not found               Patterns: "header row not found"
//	IMP003 - Sheet does not accept imports      Patterns: "does not accept imports"
//	IMP004 - Malformed CSV                      Patterns: "parse csv"
//
// # Write Errors (WRT001)
//
//	WRT001 - Too many concurrent writes         Patterns: "too many concurrent writes"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused                  Patterns: "connection refused"
//	DB002 - Connection reset                    Patterns: "connection reset"
//	DB003 - Deadlock                            Patterns: "deadlock"
//	DB004 - Database locked                     Patterns: "database is locked"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled                  Patterns: "context canceled"
//	REQ002 - Request timeout                    Patterns: "context deadline exceeded", "timeout"
//	REQ003 - Malformed request                  Patterns: "malformed request"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests                 Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check the
// application logs for the original technical error.
//
// Patterns are matched case-insensitively using strings.Contains and the
// first match wins, so specific patterns come before general ones.

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

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Sheet Errors (SHT001-SHT006)
	// =========================================================================
	{
		pattern: "sheet version conflict",
		msg: UserMessage{
			Message: "The sheet was modified by someone else",
			Action:  "Reload the page and apply your changes again",
			Code:    "SHT001",
		},
	},
	{
		pattern: "row out of range",
		msg: UserMessage{
			Message: "The row no longer exists",
			Action:  "Reload the page to see the current rows",
			Code:    "SHT002",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "The column is not part of this sheet",
			Action:  "Check the column name",
			Code:    "SHT003",
		},
	},
	{
		pattern: "sheet is busy",
		msg: UserMessage{
			Message: "Another change to this sheet is in progress",
			Action:  "Please try again in a moment",
			Code:    "SHT004",
		},
	},
	{
		pattern: "unknown sheet",
		msg: UserMessage{
			Message: "Unknown sheet",
			Action:  "Verify the sheet name is correct",
			Code:    "SHT005",
		},
	},
	{
		pattern: "failed after",
		msg: UserMessage{
			Message: "The sheet could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "SHT006",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL005)
	// =========================================================================
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "A required field is empty",
			Action:  "Fill in the product name and the other required fields",
			Code:    "VAL001",
		},
	},
	{
		pattern: "greater than zero",
		msg: UserMessage{
			Message: "The amount must be greater than zero",
			Action:  "Enter the product cost before saving",
			Code:    "VAL002",
		},
	},
	{
		pattern: "cannot be negative",
		msg: UserMessage{
			Message: "Amounts cannot be negative",
			Action:  "Enter zero or a positive amount",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid payment status",
		msg: UserMessage{
			Message: "Invalid payment status",
			Action:  "Use Owed, Partially-Paid or Paid",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid value",
		msg: UserMessage{
			Message: "A value is not in the allowed list",
			Action:  "Check the allowed values for this field",
			Code:    "VAL005",
		},
	},

	// =========================================================================
	// Delete Errors (DEL001-DEL002)
	// =========================================================================
	{
		pattern: "delete confirmation not found",
		msg: UserMessage{
			Message: "The delete confirmation has expired",
			Action:  "Select the row and request the deletion again",
			Code:    "DEL001",
		},
	},
	{
		pattern: "row changed",
		msg: UserMessage{
			Message: "The row changed before the deletion was confirmed",
			Action:  "Review the row and request the deletion again",
			Code:    "DEL002",
		},
	},

	// =========================================================================
	// History Errors (HIS001)
	// =========================================================================
	{
		pattern: "history entry not found",
		msg: UserMessage{
			Message: "History entry not found",
			Action:  "The entry may be older than the history shown; refresh the list",
			Code:    "HIS001",
		},
	},

	// =========================================================================
	// Import Errors (IMP001-IMP004)
	// =========================================================================
	{
		pattern: "import file too large",
		msg: UserMessage{
			Message: "The file is too large to import",
			Action:  "Split the file into smaller parts",
			Code:    "IMP001",
		},
	},
	{
		pattern: "header row not found",
		msg: UserMessage{
			Message: "Could not find the column headers in the file",
			Action:  "Make sure the file has a header row with the sheet's column names",
			Code:    "IMP002",
		},
	},
	{
		pattern: "does not accept imports",
		msg: UserMessage{
			Message: "This sheet cannot be imported into",
			Action:  "Choose the orders or inventory sheet",
			Code:    "IMP003",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "The file is not a valid CSV",
			Action:  "Export the sheet as CSV and try again",
			Code:    "IMP004",
		},
	},

	// =========================================================================
	// Write Errors (WRT001)
	// =========================================================================
	{
		pattern: "too many concurrent writes",
		msg: UserMessage{
			Message: "The system is busy saving other changes",
			Action:  "Please wait a moment and try again",
			Code:    "WRT001",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB004)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the data store",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The data store connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The data store was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The data store is locked by another writer",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ003)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "malformed request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the submitted fields and try again",
			Code:    "REQ003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
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
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
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

// NewUserError creates a UserError by mapping a technical error to a
// user-friendly message. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
