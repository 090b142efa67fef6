// File: internal/input/software.go
package input

import (
	"github.com/go-vgo/robotgo"

	"github.com/craigjson/pindlebot-v2/internal/humanize"
)

// softwareBackend drives input through robotgo, the OS-level automation
// library. It is the fallback path; curve animation is skipped here because
// the relay's stepwise emulation is what carries the humanization.
type softwareBackend struct{}

// NewSoftwareBackend returns the robotgo-based fallback backend.
func NewSoftwareBackend() Backend {
	return &softwareBackend{}
}

func (s *softwareBackend) MoveTo(p humanize.Point) error {
	robotgo.Move(p.X, p.Y)
	return nil
}

func (s *softwareBackend) Click(button Button) error {
	robotgo.Click(string(button))
	return nil
}

func (s *softwareBackend) Press(button Button) error {
	return robotgo.Toggle(string(button), "down")
}

func (s *softwareBackend) Release(button Button) error {
	return robotgo.Toggle(string(button), "up")
}

func (s *softwareBackend) Position() (humanize.Point, error) {
	x, y := robotgo.Location()
	return humanize.Point{X: x, Y: y}, nil
}

func (s *softwareBackend) Wheel(delta int) error {
	robotgo.Scroll(0, delta)
	return nil
}

func (s *softwareBackend) KeyTap(key string) error {
	return robotgo.KeyTap(key)
}

func (s *softwareBackend) KeyDown(key string) error {
	return robotgo.KeyToggle(key, "down")
}

func (s *softwareBackend) KeyUp(key string) error {
	return robotgo.KeyToggle(key, "up")
}

func (s *softwareBackend) TypeText(text string) error {
	robotgo.TypeStr(text)
	return nil
}

// cursorPosition reads the physical cursor through the platform query,
// independent of how the cursor was last moved.
func cursorPosition() (int, int) {
	return robotgo.Location()
}
