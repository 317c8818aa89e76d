package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("errors.Is works correctly", func(t *testing.T) {
		require.True(t, errors.Is(ErrInvalidArgs, ErrInvalidArgs))
		require.False(t, errors.Is(ErrInvalidArgs, ErrInvalidListener))

		// Wrapped errors maintain identity
		wrapped := fmt.Errorf("%w: reference is nil", ErrInvalidFunctionReference)
		require.True(t, errors.Is(wrapped, ErrInvalidFunctionReference))
	})

	t.Run("all errors are distinct", func(t *testing.T) {
		allErrors := []error{
			// Caller-usage errors
			ErrInvalidFunctionReference,
			ErrInvalidListener,
			ErrInvalidArgs,
			ErrEventArgs,
			ErrInvalidConfig,
			ErrURLRequired,
			ErrClientRequired,
			ErrTrackerRequired,
			ErrRuntimeRequired,
			ErrInvalidPageSize,
			// Transport errors
			ErrTransport,
			ErrConnectivity,
			ErrMalformedResult,
			ErrUnknownFunction,
			// Lifecycle errors
			ErrClosed,
		}

		for i, err1 := range allErrors {
			for j, err2 := range allErrors {
				if i == j {
					require.True(t, errors.Is(err1, err2), "error should equal itself: %v", err1)
				} else {
					require.False(t, errors.Is(err1, err2), "errors should be distinct: %v vs %v", err1, err2)
				}
			}
		}
	})
}

func TestFunctionError(t *testing.T) {
	err := &FunctionError{Function: "tasks:create", Message: "title required"}
	require.Equal(t, "function tasks:create failed: title required", err.Error())

	wrapped := fmt.Errorf("%w: %w", ErrTransport, err)
	require.True(t, IsFunctionError(wrapped))
	require.True(t, errors.Is(wrapped, ErrTransport))

	var fe *FunctionError
	require.True(t, errors.As(wrapped, &fe))
	require.Equal(t, "tasks:create", fe.Function)

	require.False(t, IsFunctionError(ErrTransport))
	require.False(t, IsFunctionError(nil))
}
