// Package errors provides a lightweight structured error type (AutoDocError)
// for category-based classification across the build pipeline and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of an AutoDoc error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig   ErrorCategory = "config"
	CategoryTemplate ErrorCategory = "template"

	// Discovery and per-file analysis errors
	CategoryDiscovery  ErrorCategory = "discovery"
	CategoryParse      ErrorCategory = "parse"
	CategoryDependency ErrorCategory = "dependency"

	// Build and processing errors
	CategoryCache     ErrorCategory = "cache"
	CategoryRender    ErrorCategory = "render"
	CategoryConverter ErrorCategory = "converter"

	// Runtime and infrastructure errors
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the whole run
	SeverityError   ErrorSeverity = "error"   // Fails one unit of work, run continues
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
)

// AutoDocError is a structured error with category, severity, and context
type AutoDocError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for AutoDocError
type ContextFields map[string]any

// Error implements the error interface
func (e *AutoDocError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *AutoDocError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *AutoDocError) WithContext(key string, value any) *AutoDocError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new AutoDocError
func New(category ErrorCategory, severity ErrorSeverity, message string) *AutoDocError {
	return &AutoDocError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new AutoDocError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *AutoDocError {
	return &AutoDocError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if ade, ok := err.(*AutoDocError); ok {
		return ade.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if the error is not an AutoDocError
func GetCategory(err error) ErrorCategory {
	if ade, ok := err.(*AutoDocError); ok {
		return ade.Category
	}
	return CategoryInternal
}

// IsFatal reports whether an error should abort the whole run.
func IsFatal(err error) bool {
	if ade, ok := err.(*AutoDocError); ok {
		return ade.Severity == SeverityFatal
	}
	return false
}
