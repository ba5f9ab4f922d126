// Package errors provides centralized error definitions and classification
// helpers for HangFixer.
//
// Every filesystem fault the recovery mechanism can hit is reported as an
// [IOError] carrying the operation, the path and a classified [Kind]. None of
// these are fatal: callers at the host boundary log them and carry on, so the
// helpers here exist mostly to make the log lines and the tests precise.
//
// # Usage
//
//	if err := mgr.Arm(id); err != nil {
//	    var ioErr *errors.IOError
//	    if errors.As(err, &ioErr) && ioErr.Kind == errors.KindPermission {
//	        ...
//	    }
//	}
//
//	// Sentinel checks work through the wrapping
//	if errors.Is(err, errors.ErrNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound indicates the target path did not exist.
	ErrNotFound = New("path not found")
	// ErrPermission indicates the process was not allowed to touch the path.
	ErrPermission = New("permission denied")
	// ErrPathTooLong indicates the path exceeded the platform limit.
	ErrPathTooLong = New("path too long")
	// ErrInvalidWorkspace indicates an empty or unusable workspace identifier.
	ErrInvalidWorkspace = New("invalid workspace identifier")
)

// Kind classifies an I/O failure.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindPermission  Kind = "permission_denied"
	KindPathTooLong Kind = "path_too_long"
	KindOther       Kind = "other"
)

// Op names the operation that produced an IOError.
type Op string

const (
	OpArm     Op = "arm"
	OpDisarm  Op = "disarm"
	OpProbe   Op = "probe"
	OpRecover Op = "recover"
)

// Classify maps an error from the filesystem layer onto a Kind.
// A nil error classifies as KindOther; callers should not classify nil.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOther
	case Is(err, fs.ErrNotExist):
		return KindNotFound
	case Is(err, fs.ErrPermission):
		return KindPermission
	case Is(err, syscall.ENAMETOOLONG):
		return KindPathTooLong
	default:
		return KindOther
	}
}

// -----------------------------------------------------------------------------
// IOError
// -----------------------------------------------------------------------------

// IOError is a filesystem failure absorbed by the recovery mechanism.
//
// Example:
//
//	err := errors.NewIOError(errors.OpArm, "/ws/app.tmp", cause)
//	fmt.Println(err) // "io failure [op=arm, path=/ws/app.tmp, kind=permission_denied]: ..."
type IOError struct {
	Op   Op
	Path string
	Kind Kind

	cause error
}

// NewIOError creates an IOError and classifies its cause.
func NewIOError(op Op, path string, cause error) *IOError {
	return &IOError{
		Op:    op,
		Path:  path,
		Kind:  Classify(cause),
		cause: cause,
	}
}

// Error returns the formatted error message.
func (e *IOError) Error() string {
	parts := []string{fmt.Sprintf("op=%s", e.Op)}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	parts = append(parts, fmt.Sprintf("kind=%s", e.Kind))

	prefix := fmt.Sprintf("io failure [%s]", strings.Join(parts, ", "))
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.cause
}

// Is matches the package sentinel corresponding to the Kind, then defers to
// the wrapped cause.
func (e *IOError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrPermission:
		return e.Kind == KindPermission
	case ErrPathTooLong:
		return e.Kind == KindPathTooLong
	}
	if _, ok := target.(*IOError); ok {
		return true
	}
	return false
}

// Severity reports Warning for every IOError: the mechanism degrades but the
// host load continues.
func (e *IOError) Severity() Severity {
	return SeverityWarning
}

// -----------------------------------------------------------------------------
// ValidationError
// -----------------------------------------------------------------------------

// ValidationError represents invalid input, such as an empty descriptor path.
type ValidationError struct {
	Field   string
	Value   any
	Message string

	cause error
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// WithField sets the field that failed validation.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue sets the offending value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause sets the underlying cause.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	msg := "validation failed"
	if e.Field != "" {
		msg = fmt.Sprintf("validation failed for %s", e.Field)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Message)
	if e.Value != nil {
		msg = fmt.Sprintf("%s (got: %v)", msg, e.Value)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsIOFailure reports whether err is, or wraps, an IOError.
func IsIOFailure(err error) bool {
	var ioErr *IOError
	return As(err, &ioErr)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't carry one.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var ioErr *IOError
	if As(err, &ioErr) {
		return ioErr.Severity()
	}
	return SeverityError
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
