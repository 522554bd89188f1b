// Package errors provides standardized error handling patterns for pipekit.
// It includes error classification, standard error variables, and helper
// functions for consistent error wrapping and classification across the
// pipeline setup path.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
type ErrorClass int

const (
	// ErrorInvalid represents errors due to invalid construction arguments
	// or invalid lifecycle transitions. Caller error, not retried.
	ErrorInvalid ErrorClass = iota
	// ErrorNotFound represents references to unknown names (endpoints,
	// blocks, task factories).
	ErrorNotFound
	// ErrorTypeMismatch represents binding endpoints of different element
	// datatypes.
	ErrorTypeMismatch
	// ErrorUnreachable represents internal invariant violations, such as a
	// datatype outside the supported fixed set. Indicates a collaborator
	// contract violation, not a caller mistake.
	ErrorUnreachable
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorNotFound:
		return "not_found"
	case ErrorTypeMismatch:
		return "type_mismatch"
	case ErrorUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Construction and argument errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNilTask         = errors.New("task cannot be nil")

	// Lookup errors
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrBlockNotFound    = errors.New("block not found")
	ErrFactoryNotFound  = errors.New("factory not found")

	// Binding errors
	ErrTypeMismatch = errors.New("endpoint datatype mismatch")
	ErrAlreadyBound = errors.New("input endpoint already bound")
	ErrUnreachable  = errors.New("unreachable: datatype outside supported set")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("already started")
	ErrNotStarted     = errors.New("not started")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Classify returns the error class for an error. Unclassified errors
// default to ErrorInvalid since everything on the setup path is a caller
// error unless proven otherwise.
func Classify(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ErrorInvalid
}

// IsInvalid checks if an error is due to invalid arguments or lifecycle misuse
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNilTask) ||
		errors.Is(err, ErrAlreadyStarted) ||
		errors.Is(err, ErrNotStarted)
}

// IsNotFound checks if an error is a lookup failure
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorNotFound
	}

	return errors.Is(err, ErrEndpointNotFound) ||
		errors.Is(err, ErrBlockNotFound) ||
		errors.Is(err, ErrFactoryNotFound)
}

// IsTypeMismatch checks if an error is a binding datatype mismatch
func IsTypeMismatch(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTypeMismatch
	}

	return errors.Is(err, ErrTypeMismatch)
}

// IsUnreachable checks if an error is an internal invariant violation
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorUnreachable
	}

	return errors.Is(err, ErrUnreachable)
}

// newClassified creates a new classified error.
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as an invalid-argument error with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapNotFound wraps an error as a lookup failure with context
func WrapNotFound(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorNotFound, wrappedErr, component, method, wrappedErr.Error())
}

// WrapTypeMismatch wraps an error as a datatype mismatch with context
func WrapTypeMismatch(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTypeMismatch, wrappedErr, component, method, wrappedErr.Error())
}

// WrapUnreachable wraps an error as an internal invariant violation with context
func WrapUnreachable(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorUnreachable, wrappedErr, component, method, wrappedErr.Error())
}
