package livesub

import "github.com/arloliu/livesub/types"

// Sentinel errors, re-exported from the types package so that callers can use
// errors.Is without importing it.
var (
	// ErrInvalidFunctionReference is returned when a reference is nil, unnamed or of the wrong kind.
	ErrInvalidFunctionReference = types.ErrInvalidFunctionReference

	// ErrInvalidListener is returned when a nil listener is tracked.
	ErrInvalidListener = types.ErrInvalidListener

	// ErrInvalidArgs is returned when arguments cannot be canonically encoded.
	ErrInvalidArgs = types.ErrInvalidArgs

	// ErrEventArgs is returned when a UI event object is passed as mutation arguments.
	ErrEventArgs = types.ErrEventArgs

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrURLRequired is returned by Dial when no server URL is configured.
	ErrURLRequired = types.ErrURLRequired

	// ErrClientRequired is returned when the LiveQueryClient is nil.
	ErrClientRequired = types.ErrClientRequired

	// ErrTransport wraps failures of the backend transport.
	ErrTransport = types.ErrTransport

	// ErrConnectivity indicates a connectivity issue with the backend.
	ErrConnectivity = types.ErrConnectivity

	// ErrClosed is returned when a closed Multiplexer or Client is used.
	ErrClosed = types.ErrClosed
)
