package natsbridge

import (
	rand "math/rand/v2"
	"time"
)

const (
	retryBase = 50 * time.Millisecond
	retryMult = 1.6
	retryCap  = 2 * time.Second
)

// nextRetryDelay returns the delay before the next resubscribe attempt using
// decorrelated jitter with a cap: base + rand[0, prev*mult-base), at most capDur.
//
// A non-positive prev starts from base. mult below 1 means no growth. A nil
// rng selects the package-level generator.
func nextRetryDelay(prev, base time.Duration, mult float64, capDur time.Duration, rng *rand.Rand) time.Duration {
	if base <= 0 {
		base = retryBase
	}
	mult = max(mult, 1.0)
	if capDur > 0 && capDur < base {
		return capDur
	}
	if prev <= 0 {
		return base
	}

	spread := time.Duration(float64(prev)*mult) - base
	if spread <= 0 {
		spread = base
	}

	var jitter int64
	if rng != nil {
		jitter = rng.Int64N(int64(spread))
	} else {
		jitter = rand.Int64N(int64(spread)) //nolint:gosec // non-crypto retry jitter
	}

	next := base + time.Duration(jitter)
	if capDur > 0 && next > capDur {
		return capDur
	}

	return next
}

// newRetryRNG returns a deterministic generator for a non-zero seed, nil otherwise.
//
//nolint:gosec
func newRetryRNG(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}

	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
