package device

import (
	"fmt"
)

// ErrorType categorizes runtime failures.
type ErrorType int

const (
	ErrTypeMemory ErrorType = iota
	ErrTypeLaunch
	ErrTypeEvent
	ErrTypeInvalidArg
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeLaunch:
		return "Launch"
	case ErrTypeEvent:
		return "Event"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error is a structured device-runtime error carrying the failing operation
// and category. Harness code treats any *Error as fatal for the current
// trial.
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device %s error in %s: %s (caused by: %v)",
			e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("device %s error in %s: %s", e.Type, e.Op, e.Message)
}

// Unwrap allows error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewMemoryError creates an allocation or transfer error.
func NewMemoryError(op, message string, err error) error {
	return &Error{Type: ErrTypeMemory, Op: op, Message: message, Err: err}
}

// NewLaunchError creates a kernel launch error.
func NewLaunchError(op, message string, err error) error {
	return &Error{Type: ErrTypeLaunch, Op: op, Message: message, Err: err}
}

// NewEventError creates an event lifecycle error.
func NewEventError(op, message string, err error) error {
	return &Error{Type: ErrTypeEvent, Op: op, Message: message, Err: err}
}

// IsMemoryError reports whether err is a device memory error.
func IsMemoryError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeMemory
	}
	return false
}
