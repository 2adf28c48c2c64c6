package domain

import (
	"errors"
	"fmt"
)

// DomainError is a coded business error. Codes read LS-<subsystem>-
// <number>, with subsystems SRC (backing source), WIN (window), CACHE,
// FRAME (live feed), INTAKE (device protocol), ARG and SYS. The
// sentinels below are the identities callers compare against with
// errors.Is; WithDetails and WithCause derive per-occurrence copies
// that still match their sentinel.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on code alone, so derived copies compare equal to their
// sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// NewDomainError returns a sentinel with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails derives a copy carrying occurrence-specific detail text.
func (e *DomainError) WithDetails(details string) *DomainError {
	d := *e
	d.Details = details
	return &d
}

// WithCause derives a copy wrapping the underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	d := *e
	d.Cause = cause
	return &d
}

// IsDomainError reports whether err is (or wraps) a DomainError with
// the given code. An empty code matches any DomainError.
func IsDomainError(err error, code string) bool {
	got := GetErrorCode(err)
	if got == "" {
		return false
	}
	return code == "" || got == code
}

// GetErrorCode returns the code of the DomainError in err's chain, or
// the empty string.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Source and window errors.
var (
	// ErrSourceUnavailable indicates the backing file is missing or
	// unreadable and no last-good snapshot exists to serve instead.
	ErrSourceUnavailable = NewDomainError("LS-SRC-5030", "backing source unavailable")

	// ErrEmptyWindow indicates a read against a window with no readings.
	ErrEmptyWindow = NewDomainError("LS-WIN-4040", "window is empty")

	// ErrSchemaViolation indicates a record-level fault: missing or
	// unparsable timestamp, or a column count mismatch. The record is
	// dropped; processing continues.
	ErrSchemaViolation = NewDomainError("LS-WIN-4000", "record violates window schema")
)

// Cache and frame errors.
var (
	// ErrCacheStale indicates a reload exceeded its I/O timeout and a
	// stale snapshot was served in its place.
	ErrCacheStale = NewDomainError("LS-CACHE-5040", "reload timed out, serving stale snapshot")

	// ErrEncodeFailure indicates one tick's frame could not be composed
	// or encoded. The session retries on the next tick.
	ErrEncodeFailure = NewDomainError("LS-FRAME-5001", "frame encode failed")
)

// Argument and system errors.
var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("LS-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("LS-ARG-1002", "missing required argument")

	// ErrInternalServer indicates an unclassified internal error.
	ErrInternalServer = NewDomainError("LS-SYS-5000", "internal server error")
)
