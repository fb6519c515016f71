// Package errors provides standardized error values for the tuple facility.
package errors

import (
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	// CategoryValidation covers user errors in construction requests.
	CategoryValidation ErrorCategory = "VALIDATION"
	// CategoryEnvironment covers a referenced type universe that lacks
	// something the facility needs.
	CategoryEnvironment ErrorCategory = "ENVIRONMENT"
	// CategoryInternal covers inconsistencies between the expected and
	// the actual shape of an underlying definition.
	CategoryInternal ErrorCategory = "INTERNAL"
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Is reports whether target is a StandardError with the same category and code.
// It lets sentinel values declared with New match errors built with Newf.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// New creates a sentinel error with no caller information.
func New(category ErrorCategory, code, message string) *StandardError {
	return &StandardError{Category: category, Code: code, Message: message}
}

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   callerName(2),
	}
}

func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		return fn.Name()
	}
	return "unknown"
}

// Newf derives an error from sentinel with a formatted message and context.
func Newf(sentinel *StandardError, context map[string]interface{}, format string, args ...interface{}) *StandardError {
	return &StandardError{
		Category: sentinel.Category,
		Code:     sentinel.Code,
		Message:  fmt.Sprintf(format, args...),
		Context:  context,
		Caller:   callerName(2),
	}
}
