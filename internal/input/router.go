// File: internal/input/router.go
package input

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/craigjson/pindlebot-v2/internal/config"
	"github.com/craigjson/pindlebot-v2/internal/humanize"
	"github.com/craigjson/pindlebot-v2/internal/relay"
)

var (
	// ErrUnsafeTarget means the interlock refused a left-button action.
	ErrUnsafeTarget = errors.New("input: pointer over forbidden region, action refused")
	// ErrActionFailed means the selected backend reported failure.
	ErrActionFailed = errors.New("input: action failed")
	// ErrNoBackend means neither the relay nor a software fallback is available.
	ErrNoBackend = errors.New("input: no backend available")
)

// Relay is the slice of the relay device the router drives. Satisfied by
// *relay.Device; tests substitute a fake.
type Relay interface {
	Connected() bool
	MouseMoveRelative(dx, dy int) bool
	MouseClick(button string, holdMs int) bool
	MouseDown(button string) bool
	MouseUp(button string) bool
	KeyPress(key string, holdMs int) bool
	KeyDown(key string) bool
	KeyUp(key string) bool
	TypeText(text string, holdMs int) bool
}

// JitterSpec describes target randomization: a symmetric pixel range, or
// independent per-axis ranges.
type JitterSpec struct {
	Sym   int
	AxisX int
	AxisY int
}

// MoveOptions tune a single pointer move.
type MoveOptions struct {
	// Relative interprets the target as an offset from the current position.
	Relative bool
	// Jitter overrides the configured default target jitter.
	Jitter *JitterSpec
	// SpeedFactor overrides the configured [min, max] speed multiplier range.
	SpeedFactor *[2]float64
}

// Router is the single public input surface. It plans every action with the
// humanizer, enforces the safety interlock, and executes through the relay
// when connected, else through a lazily-built software fallback.
type Router struct {
	dev      Relay
	logger   *zap.Logger
	human    *humanize.Humanizer
	ui       UIState
	safety   config.SafetyConfig
	humanCfg config.HumanizeConfig

	fallback    Backend
	newFallback func() Backend

	// queryCursor reads the physical cursor via the platform, decoupled from
	// how it was last moved.
	queryCursor func() (int, int)
	sleep       func(ctx context.Context, d time.Duration) error

	// Idle-drift noise for Hesitate. Independent seeds per axis so the
	// wander is not diagonal.
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
}

// NewRouter builds a Router. relayDev may be nil when running pure-software.
// ui may be nil, which disables the interlock (no detection layer attached).
func NewRouter(relayDev *relay.Device, human *humanize.Humanizer, ui UIState,
	safety config.SafetyConfig, humanCfg config.HumanizeConfig, logger *zap.Logger) *Router {
	seed := time.Now().UnixNano()
	r := &Router{
		logger:      logger.Named("input"),
		human:       human,
		ui:          ui,
		safety:      safety,
		humanCfg:    humanCfg,
		newFallback: NewSoftwareBackend,
		queryCursor: cursorPosition,
		sleep:       sleepCtx,
		noiseX:      perlin.NewPerlin(2, 2, 3, seed),
		noiseY:      perlin.NewPerlin(2, 2, 3, seed+1),
	}
	if relayDev != nil {
		r.dev = relayDev
	}
	if r.dev != nil && r.dev.Connected() {
		r.logger.Info("Input routing through hardware relay")
	} else {
		r.logger.Info("Input routing through software fallback")
	}
	return r
}

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

// useRelay reports whether the relay path should carry the next action.
func (r *Router) useRelay() bool {
	return r.dev != nil && r.dev.Connected()
}

// backendOrInit lazily constructs the software fallback.
func (r *Router) backendOrInit() Backend {
	if r.fallback == nil && r.newFallback != nil {
		r.fallback = r.newFallback()
	}
	return r.fallback
}

// Move moves the pointer to target with a humanized curved stroke. Target
// jitter, stroke shape and speed vary per call.
func (r *Router) Move(ctx context.Context, target humanize.Point, opts MoveOptions) error {
	from, err := r.Position()
	if err != nil {
		return err
	}

	if opts.Relative {
		target = humanize.Point{X: from.X + target.X, Y: from.Y + target.Y}
	}
	target = r.applyJitter(target, opts.Jitter)

	if !r.useRelay() {
		backend := r.backendOrInit()
		if backend == nil {
			return ErrNoBackend
		}
		return backend.MoveTo(target)
	}

	dist := from.Dist(target)
	speed := [2]float64{r.humanCfg.SpeedFactorMin, r.humanCfg.SpeedFactorMax}
	if opts.SpeedFactor != nil {
		speed = *opts.SpeedFactor
	}
	duration := clampF(dist*0.0004, 0.05, 0.5) * r.human.Uniform(speed[0], speed[1])

	points := r.human.Curve(from, target)
	stepDelay := time.Duration(duration / float64(max(len(points), 1)) * float64(time.Second))

	prev := from
	for _, p := range points {
		if !r.dev.MouseMoveRelative(p.X-prev.X, p.Y-prev.Y) {
			// The device demoted itself on a transport failure; the stroke
			// is abandoned mid-flight.
			if !r.dev.Connected() {
				return ErrActionFailed
			}
		}
		prev = p
		if err := r.sleep(ctx, stepDelay); err != nil {
			return err
		}
	}
	return nil
}

// applyJitter adds a uniform random offset to the target.
func (r *Router) applyJitter(target humanize.Point, spec *JitterSpec) humanize.Point {
	rx, ry := r.humanCfg.TargetJitterPx, r.humanCfg.TargetJitterPx
	if spec != nil {
		if spec.Sym > 0 {
			rx, ry = spec.Sym, spec.Sym
		} else {
			rx, ry = spec.AxisX, spec.AxisY
		}
	}
	if rx > 0 {
		target.X += int(r.human.Uniform(float64(-rx), float64(rx)))
	}
	if ry > 0 {
		target.Y += int(r.human.Uniform(float64(-ry), float64(ry)))
	}
	return target
}

// Click clicks a button. Left clicks pass through the safety interlock first.
func (r *Router) Click(ctx context.Context, button Button) error {
	if button == ButtonLeft && !r.clickSafe() {
		return ErrUnsafeTarget
	}

	if r.useRelay() {
		holdMs := int(r.human.ClampedGaussian(60, 15, 30, math.Inf(1)))
		if !r.dev.MouseClick(string(button), holdMs) {
			return ErrActionFailed
		}
		return nil
	}

	backend := r.backendOrInit()
	if backend == nil {
		return ErrNoBackend
	}
	return backend.Click(button)
}

// Press presses and holds a button, interlocked like Click.
func (r *Router) Press(ctx context.Context, button Button) error {
	if button == ButtonLeft && !r.clickSafe() {
		return ErrUnsafeTarget
	}

	if r.useRelay() {
		if !r.dev.MouseDown(string(button)) {
			return ErrActionFailed
		}
		return nil
	}

	backend := r.backendOrInit()
	if backend == nil {
		return ErrNoBackend
	}
	return backend.Press(button)
}

// Release releases a held button. Never interlocked: a stuck button is worse
// than a misplaced release.
func (r *Router) Release(ctx context.Context, button Button) error {
	if r.useRelay() {
		if !r.dev.MouseUp(string(button)) {
			return ErrActionFailed
		}
		return nil
	}

	backend := r.backendOrInit()
	if backend == nil {
		return ErrNoBackend
	}
	return backend.Release(button)
}

// Position reads the current pointer position. The relay path always uses
// the platform query; the relay moved the physical cursor, so only the OS
// knows where it is.
func (r *Router) Position() (humanize.Point, error) {
	if r.useRelay() {
		x, y := r.queryCursor()
		return humanize.Point{X: x, Y: y}, nil
	}
	if backend := r.backendOrInit(); backend != nil {
		return backend.Position()
	}
	x, y := r.queryCursor()
	return humanize.Point{X: x, Y: y}, nil
}

// Wheel scrolls. The relay firmware has no scroll primitive, so this always
// takes the software path.
func (r *Router) Wheel(ctx context.Context, delta int) error {
	backend := r.backendOrInit()
	if backend == nil {
		r.logger.Warn("Mouse wheel unavailable: relay has no scroll support and no software fallback exists")
		return ErrNoBackend
	}
	return backend.Wheel(delta)
}

// -- Keyboard surface --

// Send presses and releases a key.
func (r *Router) Send(ctx context.Context, key string) error {
	if r.useRelay() {
		if !r.dev.KeyPress(key, 50) {
			return ErrActionFailed
		}
		return nil
	}
	backend := r.backendOrInit()
	if backend == nil {
		return ErrNoBackend
	}
	return backend.KeyTap(key)
}

// KeyDown holds a key down.
func (r *Router) KeyDown(key string) error {
	if r.useRelay() {
		if !r.dev.KeyDown(key) {
			return ErrActionFailed
		}
		return nil
	}
	backend := r.backendOrInit()
	if backend == nil {
		return ErrNoBackend
	}
	return backend.KeyDown(key)
}

// KeyUp releases a held key.
func (r *Router) KeyUp(key string) error {
	if r.useRelay() {
		if !r.dev.KeyUp(key) {
			return ErrActionFailed
		}
		return nil
	}
	backend := r.backendOrInit()
	if backend == nil {
		return ErrNoBackend
	}
	return backend.KeyUp(key)
}

// Type enters a whole string.
func (r *Router) Type(ctx context.Context, text string) error {
	if r.useRelay() {
		if !r.dev.TypeText(text, 30) {
			return ErrActionFailed
		}
		return nil
	}
	backend := r.backendOrInit()
	if backend == nil {
		return ErrNoBackend
	}
	return backend.TypeText(text)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
