// File: internal/humanize/timing.go
package humanize

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// minDelayMs is the floor for any gaussian delay; nothing human happens
// faster than this.
const minDelayMs = 30.0

// actionDelays maps an action name to its (mean ms, variance ms) profile.
// Tuned against recordings of manual play.
var actionDelays = map[string][2]float64{
	"click":            {115, 35},
	"between_casts":    {350, 100},
	"after_portal":     {1000, 300},
	"before_loot":      {550, 150},
	"between_pickups":  {275, 80},
	"menu_interaction": {400, 120},
	"game_creation":    {5000, 2000},
	"after_load":       {800, 300},
	"before_combat":    {400, 200},
	"skill_select":     {150, 50},
}

// defaultActionDelay is used for unknown action names.
var defaultActionDelay = [2]float64{200, 50}

// Delay sleeps for a gaussian-distributed duration around meanMs, never less
// than 30ms.
func (h *Humanizer) Delay(ctx context.Context, meanMs, varianceMs float64) error {
	ms := h.ClampedGaussian(meanMs, varianceMs, minDelayMs, math.Inf(1))
	return h.sleep(ctx, time.Duration(ms)*time.Millisecond)
}

// ActionDelay sleeps for a duration appropriate to the named action, falling
// back to a generic profile for unknown names.
func (h *Humanizer) ActionDelay(ctx context.Context, action string) error {
	profile, ok := actionDelays[action]
	if !ok {
		profile = defaultActionDelay
		h.logger.Debug("Unknown action type, using default delay", zap.String("action", action))
	}
	return h.Delay(ctx, profile[0], profile[1])
}

// RandomPause simulates a short human distraction (checking phone, sipping a
// drink): roughly two seconds, clamped to [0.5s, 4s].
func (h *Humanizer) RandomPause(ctx context.Context) error {
	ms := h.ClampedGaussian(2000, 500, 500, 4000)
	h.logger.Debug("Random human pause", zap.Float64("ms", ms))
	return h.sleep(ctx, time.Duration(ms)*time.Millisecond)
}

// VaryCastCount randomizes the number of casts in an attack sequence around
// base, clamped to [min, max].
func (h *Humanizer) VaryCastCount(base, min, max int) int {
	count := int(math.Round(h.rng.NormFloat64()*0.8 + float64(base)))
	if count < min {
		return min
	}
	if count > max {
		return max
	}
	return count
}

// ShouldDoRandomAction reports true with the given probability.
func (h *Humanizer) ShouldDoRandomAction(probability float64) bool {
	return h.rng.Float64() < probability
}

// ShouldSkipLoot reports true with the given probability.
func (h *Humanizer) ShouldSkipLoot(probability float64) bool {
	return h.rng.Float64() < probability
}

// VaryPath returns a copy of waypoints with an independent uniform offset in
// [-maxOffset, maxOffset] added to each coordinate, so no two traversals of
// the same route are identical.
func (h *Humanizer) VaryPath(waypoints []Point, maxOffset int) []Point {
	varied := make([]Point, len(waypoints))
	for i, wp := range waypoints {
		varied[i] = Point{
			X: wp.X + h.uniformInt(-maxOffset, maxOffset),
			Y: wp.Y + h.uniformInt(-maxOffset, maxOffset),
		}
	}
	return varied
}

// JitterPoint adds gaussian jitter to a click target.
func (h *Humanizer) JitterPoint(p Point, radius float64) Point {
	return Point{
		X: p.X + int(math.Round(h.rng.NormFloat64()*radius/2)),
		Y: p.Y + int(math.Round(h.rng.NormFloat64()*radius/2)),
	}
}

// uniformInt draws an integer in [lo, hi] inclusive.
func (h *Humanizer) uniformInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + h.rng.Intn(hi-lo+1)
}
