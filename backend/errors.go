package backend

import (
	"errors"

	"github.com/arloliu/livesub/types"
)

// Re-exported for callers that only import backend.
var (
	ErrInvalidConfig   = types.ErrInvalidConfig
	ErrUnknownFunction = types.ErrUnknownFunction
	ErrClosed          = types.ErrClosed
)

var (
	// ErrDuplicateFunction is returned when a function name is registered twice.
	ErrDuplicateFunction = errors.New("function already registered")

	// ErrDocumentNotFound is returned by Patch and Delete for unknown ids.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidPagination is returned for malformed pagination options.
	ErrInvalidPagination = errors.New("invalid pagination options")
)
