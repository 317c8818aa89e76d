package logger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/livesub/types"
)

func TestNopLogger(t *testing.T) {
	logger := NewNop()

	require.NotPanics(t, func() {
		logger.Debug("test message", "key", "value")
		logger.Info("test message", "key", "value")
		logger.Warn("test message", "key", "value")
		logger.Error("test message", "key", "value")
		logger.Fatal("test message", "key", "value") // must not exit
	})
}

func TestNopLogger_OddArguments(t *testing.T) {
	logger := NewNop()

	require.NotPanics(t, func() {
		logger.Debug("")
		logger.Info("", nil)
		logger.Error("message", "single")
	})
}

func TestOrNop(t *testing.T) {
	require.IsType(t, &NopLogger{}, OrNop(nil))

	custom := NewTest(t)
	require.Same(t, custom, OrNop(custom))
}

func TestFormatKeyValues(t *testing.T) {
	require.Empty(t, formatKeyValues(nil))
	require.Equal(t, "a=1 b=x", formatKeyValues([]any{"a", 1, "b", "x"}))
	require.Equal(t, "a=1 dangling=<missing>", formatKeyValues([]any{"a", 1, "dangling"}))
}

func TestTestLogger_ImplementsLogger(t *testing.T) {
	var l types.Logger = NewTest(t)
	l.Info("hello", "k", "v")
}

func BenchmarkNopLogger(b *testing.B) {
	logger := NewNop()

	for b.Loop() {
		logger.Debug("benchmark message", "key1", "value1", "key2", 42)
	}
}
