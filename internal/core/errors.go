package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input or arguments
	ErrCatConnection ErrorCategory = "connection" // Transport could not be established
	ErrCatTimeout    ErrorCategory = "timeout"    // Command exceeded its deadline
	ErrCatCollection ErrorCategory = "collection" // Command ran but output was unusable
	ErrCatPlatform   ErrorCategory = "platform"   // Target platform not supported
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatState      ErrorCategory = "state"      // Invalid lifecycle transition
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrConnection creates a transport error: the target could not be reached
// or the session could not be established.
func ErrConnection(target, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConnection,
		Code:      CodeConnectionFailed,
		Message:   fmt.Sprintf("%s: %s", target, message),
		Retryable: true,
	}
}

// ErrCommandTimeout creates an error for a command that exceeded its deadline.
func ErrCommandTimeout(command string, timeout time.Duration) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeCommandTimeout,
		Message:   fmt.Sprintf("command timed out after %v", timeout),
		Retryable: false,
		Details: map[string]interface{}{
			"command": command,
			"timeout": timeout.String(),
		},
	}
}

// ErrCollection creates an error for a command whose output was unusable.
func ErrCollection(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCollection,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrInvalidArgs creates a validation error for malformed arguments.
func ErrInvalidArgs(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrUnsupportedPlatform signals that a probe does not apply to the target.
// Callers treat it as "skip", never as a failure.
func ErrUnsupportedPlatform(probe string, family OSFamily) *DomainError {
	return &DomainError{
		Category:  ErrCatPlatform,
		Code:      CodeUnsupportedPlatform,
		Message:   fmt.Sprintf("%s does not support OS family %s", probe, family),
		Retryable: false,
		Details: map[string]interface{}{
			"os_family": family.String(),
		},
	}
}

// ErrPluginNotFound creates an error for an unregistered plugin name.
func ErrPluginNotFound(name string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodePluginNotFound,
		Message:   fmt.Sprintf("plugin not found: %s", name),
		Retryable: false,
	}
}

// ErrNotFound creates a generic not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrState creates an error for an invalid lifecycle transition.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrInternal creates an unexpected internal error.
func ErrInternal(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      "INTERNAL",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsSkip reports whether an error means "probe not applicable" rather than a
// real failure. Skips map to StatusNotRun instead of StatusExecutionFailure.
func IsSkip(err error) bool {
	return IsCategory(err, ErrCatPlatform)
}

// Predefined error codes
const (
	CodeConnectionFailed    = "CONNECTION_FAILED"
	CodeCommandTimeout      = "COMMAND_TIMEOUT"
	CodeUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
	CodePluginNotFound      = "PLUGIN_NOT_FOUND"
	CodeCollatorNotFound    = "COLLATOR_NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeCommandFailed       = "COMMAND_FAILED"
	CodeParseFailed         = "PARSE_FAILED"
	CodeUnknownArgs         = "UNKNOWN_ARGS"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeAuthFailed          = "AUTH_FAILED"
)
