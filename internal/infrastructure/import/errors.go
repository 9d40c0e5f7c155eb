package csvimport

import (
	"errors"
	"fmt"
)

// Import error codes surfaced in batch error payloads
const (
	ErrCodeInvalidFile     = "ERR_IMPORT_INVALID_FILE"
	ErrCodeEmptyFile       = "ERR_IMPORT_EMPTY_FILE"
	ErrCodeInvalidEncoding = "ERR_IMPORT_INVALID_ENCODING"
	ErrCodeMissingHeader   = "ERR_IMPORT_MISSING_HEADER"
	ErrCodeMalformedRow    = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeRequiredField   = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidAmount   = "ERR_IMPORT_INVALID_AMOUNT"
	ErrCodeInvalidMonth    = "ERR_IMPORT_INVALID_MONTH"
	ErrCodeInvalidDate     = "ERR_IMPORT_INVALID_DATE"
	ErrCodeUnknownClass    = "ERR_IMPORT_UNKNOWN_CLASS"
	ErrCodeRowFailed       = "ERR_IMPORT_ROW_FAILED"
)

// Sheet-level errors that abort a batch before any row is processed
var (
	ErrEmptyFile       = errors.New("sheet is empty")
	ErrInvalidEncoding = errors.New("sheet is not valid UTF-8")
	ErrMissingHeader   = errors.New("sheet is missing its header row")
	ErrNoDataRows      = errors.New("sheet contains no data rows")
)

// RowError records why one sheet row could not be imported
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// NewRowErrorWithValue creates a new RowError carrying the offending value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message, Value: value}
}

// ErrorCollection caps how many row errors a batch accumulates so one
// pathological sheet cannot balloon the batch record.
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a collection with a maximum retained error count
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, maxErrors),
		maxErrors: maxErrors,
	}
}

// Add records an error, retaining at most maxErrors details
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// Errors returns the retained error details
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns how many errors occurred, including dropped ones
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if any error was recorded
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// Truncated returns true if more errors occurred than were retained
func (ec *ErrorCollection) Truncated() bool {
	return ec.totalCount > len(ec.errors)
}
