// Package errors defines the error taxonomy for the statement ingestion
// engine. Errors carry a category, a specific code, an optional suggestion
// for the user, and arbitrary context, on top of a stack trace captured at
// construction time.
//
// The one condition callers routinely branch on is AI quota exhaustion:
// use IsQuotaExceeded to classify errors coming back from an AI collaborator.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryCategorization ErrorCategory = "categorization"
	CategoryMatching       ErrorCategory = "matching"
	CategoryAI             ErrorCategory = "ai"
	CategoryStorage        ErrorCategory = "storage"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Parse errors
	CodeMalformedResponse ErrorCode = "malformed_response"
	CodeEmptyResponse     ErrorCode = "empty_response"
	CodeUnexpectedShape   ErrorCode = "unexpected_shape"

	// Validation errors
	CodeInvalidStatement ErrorCode = "invalid_statement"
	CodeMissingField     ErrorCode = "missing_field"

	// Categorization errors
	CodeClassificationFailed ErrorCode = "classification_failed"
	CodeUnknownCategory      ErrorCode = "unknown_category"

	// Matching errors
	CodeAmbiguousMatch ErrorCode = "ambiguous_match"
	CodeUnsafeCreate   ErrorCode = "unsafe_create"

	// AI errors
	CodeQuotaExceeded ErrorCode = "quota_exceeded"
	CodeAICallFailed  ErrorCode = "ai_call_failed"

	// Storage errors
	CodeStorageFailure ErrorCode = "storage_failure"
	CodeRecordNotFound ErrorCode = "record_not_found"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// EngineError is the base error type for all engine errors
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new EngineError
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// ParseError creates an error for AI-response parsing failures. These are
// diagnostic only; the parser itself always returns a usable value.
func ParseError(code ErrorCode, detail string) *EngineError {
	var message, suggestion string

	switch code {
	case CodeMalformedResponse:
		message = fmt.Sprintf("model response could not be parsed as JSON: %s", detail)
		suggestion = "the extraction can be retried, or the raw response inspected manually"
	case CodeEmptyResponse:
		message = "model returned an empty response"
		suggestion = "retry the extraction or try a different page of the statement"
	case CodeUnexpectedShape:
		message = fmt.Sprintf("model response has an unexpected shape: %s", detail)
		suggestion = "check the prompt instructs the model to return the expected JSON shape"
	default:
		message = fmt.Sprintf("parse error: %s", detail)
		suggestion = "inspect the raw model response"
	}

	return New(CategoryParse, code, message).WithSuggestion(suggestion)
}

// AIError creates an error for AI collaborator failures, classifying quota
// exhaustion separately so batch loops can halt.
func AIError(operation string, err error) *EngineError {
	if err == nil {
		return nil
	}

	if IsQuotaExceeded(err) {
		return Wrap(err, CategoryAI, CodeQuotaExceeded,
			fmt.Sprintf("AI quota exceeded during %s", operation)).
			WithSuggestion("wait for the quota window to reset or switch AI providers").
			WithContext("operation", operation)
	}

	return Wrap(err, CategoryAI, CodeAICallFailed,
		fmt.Sprintf("AI call failed during %s", operation)).
		WithSuggestion("the operation can be retried; transient model errors are common").
		WithContext("operation", operation)
}

// CategorizationError creates a categorization-related error
func CategorizationError(code ErrorCode, description string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeClassificationFailed:
		message = fmt.Sprintf("failed to classify transaction %q", description)
		suggestion = "the transaction falls back to the 'other' category and can be corrected manually"
	case CodeUnknownCategory:
		message = fmt.Sprintf("classifier returned an unknown category for %q", description)
		suggestion = "unknown categories collapse to 'other'"
	default:
		message = fmt.Sprintf("categorization error for %q", description)
		suggestion = "review the transaction description"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryCategorization, code, message)
	} else {
		result = New(CategoryCategorization, code, message)
	}

	return result.WithSuggestion(suggestion).WithContext("description", description)
}

// StorageError creates a persistence-related error
func StorageError(code ErrorCode, operation string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeStorageFailure:
		message = fmt.Sprintf("storage operation failed: %s", operation)
		suggestion = "check the database file is writable and not locked by another process"
	case CodeRecordNotFound:
		message = fmt.Sprintf("record not found during %s", operation)
		suggestion = "the record may have been removed; reload and retry"
	default:
		message = fmt.Sprintf("storage error during %s", operation)
		suggestion = "check the database and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryStorage, code, message)
	} else {
		result = New(CategoryStorage, code, message)
	}

	return result.WithSuggestion(suggestion).WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for %q: %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting via flag, environment variable or config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *EngineError {
	var result *EngineError
	message := fmt.Sprintf("unexpected error during %s", operation)
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// quotaMarkers are the substrings AI providers embed in quota-exhaustion
// errors. Matched case-insensitively against the whole error chain text.
var quotaMarkers = []string{
	"429",
	"quota",
	"too many requests",
	"quotafailure",
	"resource_exhausted",
}

// IsQuotaExceeded reports whether err represents AI quota exhaustion,
// either as a tagged EngineError or by provider-specific markers in the
// error text.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}

	if engineErr, ok := AsEngineError(err); ok && engineErr.Code == CodeQuotaExceeded {
		return true
	}

	text := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}

	return false
}

// IsEngineError checks if an error is an EngineError
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already an EngineError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	if engineErr, ok := AsEngineError(err); ok {
		return engineErr
	}

	return Wrap(err, category, code, message)
}
