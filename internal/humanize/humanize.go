// File: internal/humanize/humanize.go

// Package humanize generates the stochastic raw material that makes synthetic
// input statistically resemble a human operator: curved pointer trajectories,
// gaussian timing, and per-run variation primitives.
package humanize

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Humanizer is the shared source of curves, delays and variation. It is not
// safe for concurrent use; the control loop is single-threaded by design.
type Humanizer struct {
	rng    *rand.Rand
	logger *zap.Logger
	// sleep is swapped out by tests so timing behavior can be asserted
	// without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Humanizer.
type Option func(*Humanizer)

// WithRand injects a deterministic random source. Tests use this to make
// sampled values reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(h *Humanizer) { h.rng = rng }
}

// New creates a Humanizer backed by a time-seeded random source unless one is
// injected via WithRand.
func New(logger *zap.Logger, opts ...Option) *Humanizer {
	h := &Humanizer{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.Named("humanize"),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// sleepCtx blocks for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ClampedGaussian draws from N(mean, stddev^2) and clamps the result into
// [lo, hi]. Every stochastic quantity in the system (delays, session lengths,
// curve offsets) goes through this one primitive.
func (h *Humanizer) ClampedGaussian(mean, stddev, lo, hi float64) float64 {
	v := h.rng.NormFloat64()*stddev + mean
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Uniform draws a uniform float in [lo, hi).
func (h *Humanizer) Uniform(lo, hi float64) float64 {
	return lo + h.rng.Float64()*(hi-lo)
}
