package natsbridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextRetryDelay_BoundsAndCap(t *testing.T) {
	base := 200 * time.Millisecond
	capDur := 500 * time.Millisecond
	rng := newRetryRNG(42)

	prev := time.Duration(0)
	for range 20 {
		next := nextRetryDelay(prev, base, 1.6, capDur, rng)
		require.GreaterOrEqual(t, next, base)
		require.LessOrEqual(t, next, capDur)
		prev = next
	}
}

func TestNextRetryDelay_EdgeCases(t *testing.T) {
	require.Equal(t, retryBase, nextRetryDelay(0, 0, 1.6, 0, nil))
	require.Equal(t, 100*time.Millisecond, nextRetryDelay(0, 100*time.Millisecond, 1.6, time.Second, nil))

	// A cap below base wins.
	require.Equal(t, 10*time.Millisecond, nextRetryDelay(time.Second, 100*time.Millisecond, 2, 10*time.Millisecond, nil))

	// Without growth the delay stays within [base, 2*base).
	rng := newRetryRNG(7)
	for range 20 {
		d := nextRetryDelay(100*time.Millisecond, 100*time.Millisecond, 0.5, 0, rng)
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.Less(t, d, 200*time.Millisecond)
	}
}

func TestNextRetryDelay_Deterministic(t *testing.T) {
	a, b := newRetryRNG(99), newRetryRNG(99)
	prevA, prevB := time.Duration(0), time.Duration(0)
	for range 10 {
		prevA = nextRetryDelay(prevA, retryBase, retryMult, retryCap, a)
		prevB = nextRetryDelay(prevB, retryBase, retryMult, retryCap, b)
		require.Equal(t, prevA, prevB)
	}
	require.Nil(t, newRetryRNG(0))
}
