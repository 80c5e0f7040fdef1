// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigParse    ErrorCode = "CONFIG_PARSE"
	ErrCodeBackendInit    ErrorCode = "BACKEND_INIT"
	ErrCodeNavigation     ErrorCode = "NAVIGATION"
	ErrCodeNoMatch        ErrorCode = "NO_MATCH"
	ErrCodeExtraction     ErrorCode = "EXTRACTION"
	ErrCodeDriver         ErrorCode = "DRIVER"
	ErrCodeClosed         ErrorCode = "CLOSED"
)

// Sentinels for errors.Is. Matching is by code, so any EngineError created
// with NewEngineError(ErrCodeNavigation, ...) satisfies errors.Is(err, ErrNavigation).
var (
	ErrConfigNotFound = &EngineError{Code: ErrCodeConfigNotFound, Message: "configuration not found"}
	ErrConfigParse    = &EngineError{Code: ErrCodeConfigParse, Message: "configuration is not a JSON object"}
	ErrBackendInit    = &EngineError{Code: ErrCodeBackendInit, Message: "backend unavailable"}
	ErrNavigation     = &EngineError{Code: ErrCodeNavigation, Message: "navigation failed"}
	ErrNoMatch        = &EngineError{Code: ErrCodeNoMatch, Message: "no element matches selector"}
	ErrExtraction     = &EngineError{Code: ErrCodeExtraction, Message: "extraction failed"}
	ErrDriver         = &EngineError{Code: ErrCodeDriver, Message: "driver handle unusable"}
	ErrClosed         = &EngineError{Code: ErrCodeClosed, Message: "already closed"}
)

// EngineError wraps errors with additional context
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewEngineError creates a new EngineError
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithRetry marks the error as retryable
func (e *EngineError) WithRetry() *EngineError {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Retryable reports whether err carries an EngineError marked for retry.
func Retryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retry
	}
	return false
}
