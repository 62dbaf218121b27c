package contextgov

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the governor configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTurn is returned when a turn's input cannot be processed
	ErrInvalidTurn = errors.New("invalid turn input")
)

// GovernorError represents an error with additional context
type GovernorError struct {
	Op        string         // Operation that failed
	Err       error          // Underlying error
	RequestID string         // Request ID if applicable
	Context   map[string]any // Additional context
}

// Error implements the error interface
func (e *GovernorError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (request=%s): %v", e.Op, e.RequestID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *GovernorError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *GovernorError) WithContext(key string, value any) *GovernorError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewGovernorError creates a new GovernorError
func NewGovernorError(op string, err error) *GovernorError {
	return &GovernorError{
		Op:  op,
		Err: err,
	}
}

// NewGovernorErrorWithRequest creates a new GovernorError with request ID
func NewGovernorErrorWithRequest(op string, requestID string, err error) *GovernorError {
	return &GovernorError{
		Op:        op,
		Err:       err,
		RequestID: requestID,
	}
}
