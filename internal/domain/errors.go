package domain

import "fmt"

// Error types for consistent error handling across the calculator.

// ErrValidation indicates a validation error (bad input).
// A DebtRequest that fails validation is never constructed.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrIndexUnavailable indicates the UFV pair for a date range could not be
// obtained or is unusable. Zero or negative index values end up here too.
type ErrIndexUnavailable struct {
	Reason string
	Err    error
}

func (e *ErrIndexUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("UFV index unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("UFV index unavailable: %s", e.Reason)
}

func (e *ErrIndexUnavailable) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates a missing or invalid bearer token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
