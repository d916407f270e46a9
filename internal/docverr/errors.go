// Package docverr defines the error taxonomy shared across the ingestion and
// retrieval pipelines, matching the code/message/details envelope the public
// API boundary (out of scope here) would render.
package docverr

import (
	"errors"
	"fmt"
)

// Code identifies a taxonomy entry (spec §7).
type Code string

const (
	CodeConfiguration       Code = "CONFIGURATION_ERROR"
	CodeDatabase            Code = "DATABASE_ERROR"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeEmbedding           Code = "EMBEDDING_ERROR"
	CodeSearch              Code = "SEARCH_ERROR"
	CodeIngestion           Code = "INGESTION_ERROR"
	CodeProcessing          Code = "PROCESSING_ERROR"
	CodeRateLimitExceeded   Code = "RATE_LIMIT_EXCEEDED"
	CodeAuthenticationReqd  Code = "AUTHENTICATION_REQUIRED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeInvalidConfig       Code = "INVALID_CONFIG"
	CodeFetchFailed         Code = "FETCH_FAILED"
	CodeSourceExists        Code = "SOURCE_EXISTS"
	CodeSourceNotFound      Code = "SOURCE_NOT_FOUND"
)

// Error is a typed error carrying a taxonomy code plus arbitrary details.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New constructs a typed Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a typed Error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Wrapped: cause}
}

// WithDetails attaches structured details and returns the same *Error for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the taxonomy Code from err, if any, and reports whether one was found.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Sentinel errors for common not-found conditions, matching repository idioms
// used throughout the teacher's persistence layer (e.g. rag/ingest lookups).
var (
	ErrNotFound      = errors.New("not found")
	ErrSourceExists  = errors.New("source already exists")
	ErrEmptyInput    = errors.New("empty input")
)
