package testing

import (
	"testing"

	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/types"
)

// NewTestLogger returns a logger that writes to tb.Logf.
//
// Lines logged by background goroutines after the test finished are dropped.
func NewTestLogger(tb testing.TB) types.Logger {
	return logger.NewTest(tb)
}
