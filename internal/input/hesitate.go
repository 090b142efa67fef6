// File: internal/input/hesitate.go
package input

import (
	"context"
	"math"
	"time"

	"github.com/craigjson/pindlebot-v2/internal/humanize"
)

const (
	// hesitateStep is the cadence of idle micro-movements.
	hesitateStep = 25 * time.Millisecond
	// driftAmplitude bounds how far (px) the cursor wanders while idling.
	driftAmplitude = 4.0
	// driftFrequency scales time into Perlin noise space.
	driftFrequency = 0.8
)

// Hesitate idles the cursor for the given duration with subtle Perlin-noise
// drift around its current position, the way a resting hand never holds a
// pixel-perfect stance. Callers use it to fill long pauses between actions.
func (r *Router) Hesitate(ctx context.Context, duration time.Duration) error {
	anchor, err := r.Position()
	if err != nil {
		return err
	}

	steps := int(duration / hesitateStep)
	if steps < 1 {
		return r.sleep(ctx, duration)
	}

	prev := anchor
	for i := 0; i < steps; i++ {
		t := float64(i) * hesitateStep.Seconds() * driftFrequency
		target := humanize.Point{
			X: anchor.X + int(math.Round(r.noiseX.Noise1D(t)*driftAmplitude)),
			Y: anchor.Y + int(math.Round(r.noiseY.Noise1D(t)*driftAmplitude)),
		}

		if target != prev {
			if r.useRelay() {
				r.dev.MouseMoveRelative(target.X-prev.X, target.Y-prev.Y)
			} else if backend := r.backendOrInit(); backend != nil {
				if err := backend.MoveTo(target); err != nil {
					return err
				}
			}
			prev = target
		}

		if err := r.sleep(ctx, hesitateStep); err != nil {
			return err
		}
	}

	// Settle back on the anchor so the drift never accumulates.
	if prev != anchor {
		if r.useRelay() {
			r.dev.MouseMoveRelative(anchor.X-prev.X, anchor.Y-prev.Y)
		} else if backend := r.backendOrInit(); backend != nil {
			return backend.MoveTo(anchor)
		}
	}
	return nil
}
