// File: internal/input/backend.go

// Package input is the single public surface through which synthetic
// keyboard/mouse actions reach the host: through the hardware relay when one
// is connected, through a local software backend otherwise.
package input

import "github.com/craigjson/pindlebot-v2/internal/humanize"

// Button identifies a mouse button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Backend is the software input mechanism used when no relay board is
// connected. It is selected once and passed by reference; there is no runtime
// swapping of process-wide input symbols.
type Backend interface {
	MoveTo(p humanize.Point) error
	Click(button Button) error
	Press(button Button) error
	Release(button Button) error
	Position() (humanize.Point, error)
	Wheel(delta int) error

	KeyTap(key string) error
	KeyDown(key string) error
	KeyUp(key string) error
	TypeText(text string) error
}
