// File: internal/relay/command.go

// Package relay speaks the line-oriented ASCII protocol of the hardware
// input-relay board: a microcontroller on a serial link that turns commands
// into real USB HID keyboard/mouse events on the host.
package relay

import (
	"fmt"
	"strings"
)

// Kind discriminates the closed set of relay command variants.
type Kind int

const (
	KindPing Kind = iota
	KindKeyPress
	KindKeyDown
	KindKeyUp
	KindSpecialKey
	KindMouseMove
	KindMouseClick
	KindMouseDown
	KindMouseUp
	KindTypeText
)

// Button codes as the board firmware understands them.
const (
	ButtonLeft   = 1
	ButtonRight  = 2
	ButtonMiddle = 3
)

// MaxMoveDelta is the largest relative mouse step the firmware can represent
// per command; larger deltas must be decomposed into multiple steps.
const MaxMoveDelta = 127

// Command is one relay protocol request. Only the fields relevant to its Kind
// are meaningful; Encode serializes them centrally so the grammar lives in
// one place.
type Command struct {
	Kind   Kind
	Char   byte
	Code   int
	HoldMs int
	DX, DY int
	Button int
	Text   string
}

// NeedsAck reports whether the device answers this command with a response
// line. Relative mouse moves are fire-and-forget for throughput; everything
// else round-trips.
func (c Command) NeedsAck() bool {
	return c.Kind != KindMouseMove
}

// Encode serializes the command to its ASCII line form (without the trailing
// newline).
func (c Command) Encode() string {
	switch c.Kind {
	case KindPing:
		return "PING"
	case KindKeyPress:
		return fmt.Sprintf("KEY:%c:%d", c.Char, c.HoldMs)
	case KindKeyDown:
		return fmt.Sprintf("KEY_DOWN:%c", c.Char)
	case KindKeyUp:
		return fmt.Sprintf("KEY_UP:%c", c.Char)
	case KindSpecialKey:
		return fmt.Sprintf("SPECIAL:%d:%d", c.Code, c.HoldMs)
	case KindMouseMove:
		return fmt.Sprintf("MOUSE_MOVE:%d:%d", clampDelta(c.DX), clampDelta(c.DY))
	case KindMouseClick:
		return fmt.Sprintf("MOUSE_CLICK:%d:%d", c.Button, c.HoldMs)
	case KindMouseDown:
		return fmt.Sprintf("MOUSE_DOWN:%d", c.Button)
	case KindMouseUp:
		return fmt.Sprintf("MOUSE_UP:%d", c.Button)
	case KindTypeText:
		return fmt.Sprintf("KEYS:%s:%d", c.Text, c.HoldMs)
	}
	return ""
}

func clampDelta(d int) int {
	if d > MaxMoveDelta {
		return MaxMoveDelta
	}
	if d < -MaxMoveDelta {
		return -MaxMoveDelta
	}
	return d
}

// SplitDelta decomposes an arbitrary relative move into firmware-sized steps
// whose deltas sum exactly to (dx, dy).
func SplitDelta(dx, dy int) []Command {
	var steps []Command
	for dx != 0 || dy != 0 {
		sx := clampDelta(dx)
		sy := clampDelta(dy)
		steps = append(steps, Command{Kind: KindMouseMove, DX: sx, DY: sy})
		dx -= sx
		dy -= sy
	}
	return steps
}

// specialKeys maps key names to the keycodes baked into the board firmware
// (Arduino Keyboard.h values). The table must match the firmware exactly.
var specialKeys = map[string]int{
	"esc":         177,
	"escape":      177,
	"enter":       176,
	"return":      176,
	"tab":         179,
	"backspace":   178,
	"insert":      209,
	"delete":      212,
	"home":        210,
	"end":         213,
	"pageup":      211,
	"pagedown":    214,
	"up":          218,
	"down":        217,
	"left":        216,
	"right":       215,
	"left_ctrl":   128,
	"left_shift":  129,
	"left_alt":    130,
	"right_ctrl":  132,
	"right_shift": 133,
	"right_alt":   134,
	"f1":          194,
	"f2":          195,
	"f3":          196,
	"f4":          197,
	"f5":          198,
	"f6":          199,
	"f7":          200,
	"f8":          201,
	"f9":          202,
	"f10":         203,
	"f11":         204,
	"f12":         205,
}

// keyAliases normalizes the generic key names callers use to the names the
// special-key table knows.
var keyAliases = map[string]string{
	"shift":    "left_shift",
	"ctrl":     "left_ctrl",
	"alt":      "left_alt",
	"space":    " ",
	"spacebar": " ",
}

// NormalizeKey lowercases a key name and resolves aliases.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// SpecialKeyCode looks up the firmware keycode for a named special key.
func SpecialKeyCode(name string) (int, bool) {
	code, ok := specialKeys[NormalizeKey(name)]
	return code, ok
}

// ButtonCode converts a button name to the firmware's numeric code. Unknown
// names map to the left button, matching the firmware's lenient parsing.
func ButtonCode(button string) int {
	switch strings.ToLower(button) {
	case "right":
		return ButtonRight
	case "middle":
		return ButtonMiddle
	default:
		return ButtonLeft
	}
}
