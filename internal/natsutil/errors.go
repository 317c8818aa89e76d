// Package natsutil classifies NATS client errors.
package natsutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/livesub/types"
)

// IsConnectivityError reports whether err is caused by a connectivity issue.
//
// This includes NATS timeouts, missing responders, refused connections and
// closed connections. Kept out of types/ to avoid importing NATS there.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true if err indicates a connectivity issue
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, types.ErrConnectivity) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}

// WrapTransport wraps err as a transport failure of op.
//
// Connectivity failures additionally wrap types.ErrConnectivity so callers can
// tell them apart from protocol failures with errors.Is.
func WrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectivityError(err) && !errors.Is(err, types.ErrConnectivity) {
		return fmt.Errorf("%w: %w: %s: %w", types.ErrTransport, types.ErrConnectivity, op, err)
	}

	return fmt.Errorf("%w: %s: %w", types.ErrTransport, op, err)
}
