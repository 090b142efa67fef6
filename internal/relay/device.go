// File: internal/relay/device.go
package relay

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/craigjson/pindlebot-v2/internal/config"
)

// ErrNotConnected is returned when an operation needing the serial link runs
// while the device is disconnected.
var ErrNotConnected = errors.New("relay: device not connected")

// Port is the narrow slice of the serial transport the device needs. The
// production implementation is go.bug.st/serial; tests script a fake.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Drain() error
}

// Device owns the serial connection to the relay board and runs its
// one-command-in-flight request/acknowledgment protocol. It is not safe for
// concurrent use; the wire format has no correlation ids, so a send plus its
// optional ack is a single synchronous round trip.
type Device struct {
	cfg    config.RelayConfig
	logger *zap.Logger

	port      Port
	connected bool

	// Seams for tests: transport opener, settle sleep, and port discovery.
	open   func(name string, baud int) (Port, error)
	sleep  func(d time.Duration)
	detect func(logger *zap.Logger) (string, error)
}

// NewDevice creates a Device for the given relay configuration. No I/O
// happens until Connect.
func NewDevice(cfg config.RelayConfig, logger *zap.Logger) *Device {
	return &Device{
		cfg:    cfg,
		logger: logger.Named("relay"),
		open:   openSerial,
		sleep:  time.Sleep,
		detect: Detect,
	}
}

func openSerial(name string, baud int) (Port, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// Connected reports whether the serial link is currently up.
func (d *Device) Connected() bool {
	return d.connected
}

// Connect opens the serial transport, waits out the board's power-on reset,
// discards any boot chatter, and marks the device connected. Transport
// failures are logged and returned; they never panic past this boundary.
func (d *Device) Connect() error {
	name := d.cfg.Port
	if name == "" {
		detected, err := d.detect(d.logger)
		if err != nil {
			d.connected = false
			d.logger.Error("Relay auto-detection failed", zap.Error(err))
			return err
		}
		name = detected
	}

	port, err := d.open(name, d.cfg.Baud)
	if err != nil {
		d.connected = false
		d.logger.Error("Failed to open relay port",
			zap.String("port", name), zap.Error(err))
		return fmt.Errorf("relay: open %s: %w", name, err)
	}

	if err := port.SetReadTimeout(d.cfg.ReadTimeout); err != nil {
		port.Close()
		d.connected = false
		d.logger.Error("Failed to set read timeout", zap.Error(err))
		return fmt.Errorf("relay: set read timeout: %w", err)
	}

	// The board resets when the host opens the port; give it time to come
	// back, then throw away whatever it printed while booting.
	d.sleep(d.cfg.SettleTime)
	if err := port.ResetInputBuffer(); err != nil {
		d.logger.Warn("Failed to flush boot chatter", zap.Error(err))
	}

	d.port = port
	d.connected = true
	d.logger.Info("Connected to relay board", zap.String("port", name))
	return nil
}

// Disconnect sends a best-effort liveness probe, closes the transport and
// unconditionally marks the device disconnected.
func (d *Device) Disconnect() {
	if d.port != nil {
		// Best effort; the board may already be gone.
		d.Send(Command{Kind: KindPing})
		if err := d.port.Close(); err != nil {
			d.logger.Debug("Error closing relay port", zap.Error(err))
		}
		d.port = nil
	}
	d.connected = false
	d.logger.Info("Disconnected from relay board")
}

// Send serializes the command, writes it to the wire, and, for commands that
// require one, waits for the acknowledgment line. It reports whether the
// command succeeded. Transport errors demote the device to disconnected.
func (d *Device) Send(cmd Command) bool {
	if !d.connected || d.port == nil {
		d.logger.Warn("Cannot send command, not connected",
			zap.String("command", cmd.Encode()))
		return false
	}

	line := cmd.Encode() + "\n"
	if _, err := d.port.Write([]byte(line)); err != nil {
		d.logger.Error("Serial error sending command", zap.Error(err))
		d.connected = false
		return false
	}
	if err := d.port.Drain(); err != nil {
		d.logger.Error("Serial error draining output", zap.Error(err))
		d.connected = false
		return false
	}

	if !cmd.NeedsAck() {
		return true
	}

	response, err := d.readLine()
	if err != nil {
		d.logger.Error("Serial error reading response", zap.Error(err))
		d.connected = false
		return false
	}

	switch {
	case response == "OK":
		return true
	case response == "SAFETY":
		d.logger.Warn("Relay safety interlock tripped",
			zap.String("command", cmd.Encode()))
		return false
	case strings.HasPrefix(response, "ERR"):
		d.logger.Error("Relay reported error",
			zap.String("response", response),
			zap.String("command", cmd.Encode()))
		return false
	case response == "":
		// Nothing arrived before the read timeout. Silence is not assent:
		// the firmware acks everything it executes, so treat it as failure.
		d.logger.Warn("No response from relay before timeout",
			zap.String("command", cmd.Encode()))
		return false
	default:
		// A response we do not recognize most likely means newer firmware;
		// the command itself was received, so count it as success.
		d.logger.Debug("Unexpected relay response",
			zap.String("response", response))
		return true
	}
}

// readLine reads one newline-terminated response. An empty string with nil
// error means the read timed out with no data.
func (d *Device) readLine() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := d.port.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			// Read timeout.
			return strings.TrimRight(sb.String(), "\r"), nil
		}
		if buf[0] == '\n' {
			return strings.TrimRight(sb.String(), "\r"), nil
		}
		sb.WriteByte(buf[0])
	}
}

// -- High-level command helpers --

// Ping checks that the board is alive and answering.
func (d *Device) Ping() bool {
	return d.Send(Command{Kind: KindPing})
}

// KeyPress presses and releases a key, resolving named special keys through
// the firmware keycode table.
func (d *Device) KeyPress(key string, holdMs int) bool {
	k := NormalizeKey(key)
	if code, ok := SpecialKeyCode(k); ok {
		return d.SpecialKey(code, holdMs)
	}
	if len(k) == 1 {
		return d.Send(Command{Kind: KindKeyPress, Char: k[0], HoldMs: holdMs})
	}
	d.logger.Warn("Unknown key", zap.String("key", key))
	return false
}

// KeyDown presses and holds a key.
func (d *Device) KeyDown(key string) bool {
	k := NormalizeKey(key)
	if len(k) == 1 {
		return d.Send(Command{Kind: KindKeyDown, Char: k[0]})
	}
	if code, ok := SpecialKeyCode(k); ok {
		return d.Send(Command{Kind: KindKeyDown, Char: byte(code)})
	}
	d.logger.Warn("Unknown key", zap.String("key", key))
	return false
}

// KeyUp releases a held key.
func (d *Device) KeyUp(key string) bool {
	k := NormalizeKey(key)
	if len(k) == 1 {
		return d.Send(Command{Kind: KindKeyUp, Char: k[0]})
	}
	if code, ok := SpecialKeyCode(k); ok {
		return d.Send(Command{Kind: KindKeyUp, Char: byte(code)})
	}
	d.logger.Warn("Unknown key", zap.String("key", key))
	return false
}

// SpecialKey presses a special key by raw firmware keycode.
func (d *Device) SpecialKey(code, holdMs int) bool {
	return d.Send(Command{Kind: KindSpecialKey, Code: code, HoldMs: holdMs})
}

// MouseMoveRelative moves the cursor by (dx, dy), decomposed into as many
// firmware-sized steps as needed so the emitted deltas sum exactly to the
// request. Steps are fire-and-forget.
func (d *Device) MouseMoveRelative(dx, dy int) bool {
	ok := true
	for _, step := range SplitDelta(dx, dy) {
		if !d.Send(step) {
			ok = false
		}
	}
	return ok
}

// MouseClick clicks a button with the given hold time.
func (d *Device) MouseClick(button string, holdMs int) bool {
	return d.Send(Command{Kind: KindMouseClick, Button: ButtonCode(button), HoldMs: holdMs})
}

// MouseDown presses and holds a button.
func (d *Device) MouseDown(button string) bool {
	return d.Send(Command{Kind: KindMouseDown, Button: ButtonCode(button)})
}

// MouseUp releases a held button.
func (d *Device) MouseUp(button string) bool {
	return d.Send(Command{Kind: KindMouseUp, Button: ButtonCode(button)})
}

// TypeText types a whole string with a per-key hold time.
func (d *Device) TypeText(text string, holdMs int) bool {
	return d.Send(Command{Kind: KindTypeText, Text: text, HoldMs: holdMs})
}
