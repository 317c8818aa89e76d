package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the livesub library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// Components wrap them with context using fmt.Errorf("%w: detail", Err...), and
// wrap external errors with fmt.Errorf("%s: %w", msg, err).
//
// Error Naming Convention:
//   - Use descriptive names with Err prefix
//   - Group by failure class (caller usage, transport, lifecycle)

// Caller-usage errors - returned synchronously before any network interaction.
var (
	// ErrInvalidFunctionReference is returned when a reference is nil, unnamed or of the wrong kind.
	ErrInvalidFunctionReference = errors.New("invalid function reference")

	// ErrInvalidListener is returned when a nil listener or callback is tracked.
	ErrInvalidListener = errors.New("invalid listener")

	// ErrInvalidArgs is returned when function arguments cannot be canonically encoded.
	ErrInvalidArgs = errors.New("invalid function arguments")

	// ErrEventArgs is returned when a UI event object is passed where mutation arguments were expected.
	ErrEventArgs = errors.New("function called with an event object instead of arguments")

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrURLRequired is returned when no server URL is configured.
	ErrURLRequired = errors.New("no server URL provided")

	// ErrClientRequired is returned when a nil LiveQueryClient is supplied.
	ErrClientRequired = errors.New("live query client is required")

	// ErrTrackerRequired is returned when a nil Tracker is supplied.
	ErrTrackerRequired = errors.New("tracker is required")

	// ErrRuntimeRequired is returned when a nil ReactiveRuntime is supplied.
	ErrRuntimeRequired = errors.New("reactive runtime is required")

	// ErrInvalidPageSize is returned when a page size is not positive.
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// Transport errors - delivered through listener results, never panicked.
var (
	// ErrTransport wraps failures of the backend transport.
	ErrTransport = errors.New("transport failure")

	// ErrConnectivity indicates a connectivity issue with the backend.
	ErrConnectivity = errors.New("connectivity issue")

	// ErrMalformedResult is returned when a backend result cannot be decoded.
	ErrMalformedResult = errors.New("malformed backend result")

	// ErrUnknownFunction is returned by backends for unregistered function names.
	ErrUnknownFunction = errors.New("unknown function")
)

// Lifecycle errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed component.
	ErrClosed = errors.New("closed")
)

// FunctionError is a failure raised by a backend function.
type FunctionError struct {
	// Function is the fully qualified function name.
	Function string

	// Message is the backend's error message.
	Message string
}

// Error implements error.
func (e *FunctionError) Error() string {
	return fmt.Sprintf("function %s failed: %s", e.Function, e.Message)
}

// IsFunctionError reports whether err is, or wraps, a *FunctionError.
func IsFunctionError(err error) bool {
	var fe *FunctionError

	return errors.As(err, &fe)
}
