// File: internal/relay/device_test.go
package relay

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/craigjson/pindlebot-v2/internal/config"
)

// fakePort scripts the serial transport: writes are recorded, reads are
// served from queued response lines. A nil entry simulates a read timeout.
type fakePort struct {
	written   []string
	responses []string
	respIdx   int
	readBuf   []byte

	writeErr error
	readErr  error
	closed   bool
	flushed  bool
}

func (f *fakePort) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, string(p))
	return len(p), nil
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.readBuf) == 0 {
		if f.respIdx >= len(f.responses) {
			// Nothing queued: behave like a read timeout.
			return 0, nil
		}
		f.readBuf = []byte(f.responses[f.respIdx])
		f.respIdx++
		if len(f.readBuf) == 0 {
			return 0, nil
		}
	}
	n := copy(p, f.readBuf)
	f.readBuf = f.readBuf[n:]
	return n, nil
}

func (f *fakePort) Close() error { f.closed = true; return nil }

func (f *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (f *fakePort) ResetInputBuffer() error { f.flushed = true; return nil }

func (f *fakePort) Drain() error { return nil }

func testRelayConfig() config.RelayConfig {
	return config.RelayConfig{
		Port:        "/dev/ttyTEST",
		Baud:        115200,
		ReadTimeout: time.Second,
		SettleTime:  2 * time.Second,
	}
}

// newConnectedDevice wires a Device to a fakePort and connects it without
// real sleeps or serial I/O.
func newConnectedDevice(t *testing.T, port *fakePort) *Device {
	t.Helper()
	d := NewDevice(testRelayConfig(), zap.NewNop())
	var slept []time.Duration
	d.open = func(name string, baud int) (Port, error) { return port, nil }
	d.sleep = func(dur time.Duration) { slept = append(slept, dur) }
	require.NoError(t, d.Connect())
	require.True(t, d.Connected())
	require.True(t, port.flushed, "boot chatter must be discarded on connect")
	require.Equal(t, []time.Duration{2 * time.Second}, slept, "connect must wait out the settle interval")
	return d
}

func TestConnectOpenFailure(t *testing.T) {
	d := NewDevice(testRelayConfig(), zap.NewNop())
	d.open = func(name string, baud int) (Port, error) {
		return nil, errors.New("permission denied")
	}
	d.sleep = func(time.Duration) {}

	err := d.Connect()
	require.Error(t, err)
	assert.False(t, d.Connected())
}

func TestConnectAutoDetect(t *testing.T) {
	cfg := testRelayConfig()
	cfg.Port = ""
	d := NewDevice(cfg, zap.NewNop())

	port := &fakePort{}
	var opened string
	d.open = func(name string, baud int) (Port, error) {
		opened = name
		return port, nil
	}
	d.sleep = func(time.Duration) {}
	d.detect = func(*zap.Logger) (string, error) { return "/dev/ttyACM7", nil }

	require.NoError(t, d.Connect())
	assert.Equal(t, "/dev/ttyACM7", opened)
}

func TestConnectAutoDetectNoBoard(t *testing.T) {
	cfg := testRelayConfig()
	cfg.Port = ""
	d := NewDevice(cfg, zap.NewNop())
	d.detect = func(*zap.Logger) (string, error) { return "", ErrNoDeviceFound }

	err := d.Connect()
	assert.ErrorIs(t, err, ErrNoDeviceFound)
	assert.False(t, d.Connected())
}

func TestSendWhileDisconnected(t *testing.T) {
	d := NewDevice(testRelayConfig(), zap.NewNop())

	ok := d.Send(Command{Kind: KindPing})
	assert.False(t, ok, "sending while disconnected must fail without I/O")
}

func TestSendAckHandling(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"ok", "OK\n", true},
		{"ok with cr", "OK\r\n", true},
		{"safety", "SAFETY\n", false},
		{"device error", "ERR:unknown command\n", false},
		{"unexpected text", "BOOT v2.1\n", true},
		{"timeout no response", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakePort{responses: []string{tt.response}}
			d := newConnectedDevice(t, port)

			got := d.Send(Command{Kind: KindMouseClick, Button: ButtonLeft, HoldMs: 55})
			assert.Equal(t, tt.want, got)
			require.Len(t, port.written, 1)
			assert.Equal(t, "MOUSE_CLICK:1:55\n", port.written[0])
			// Protocol failures do not demote the connection.
			assert.True(t, d.Connected())
		})
	}
}

func TestSendNoAckForMouseMove(t *testing.T) {
	port := &fakePort{}
	d := newConnectedDevice(t, port)

	ok := d.Send(Command{Kind: KindMouseMove, DX: 10, DY: -4})
	assert.True(t, ok)
	require.Len(t, port.written, 1)
	assert.Equal(t, "MOUSE_MOVE:10:-4\n", port.written[0])
}

func TestSendWriteErrorDemotesConnection(t *testing.T) {
	port := &fakePort{writeErr: errors.New("device unplugged")}
	d := newConnectedDevice(t, port)

	ok := d.Send(Command{Kind: KindPing})
	assert.False(t, ok)
	assert.False(t, d.Connected(), "transport failure must flip state to disconnected")

	// Subsequent sends fail fast without touching the transport.
	port.writeErr = nil
	assert.False(t, d.Send(Command{Kind: KindPing}))
	assert.Empty(t, port.written)
}

func TestSendReadErrorDemotesConnection(t *testing.T) {
	port := &fakePort{readErr: errors.New("io error")}
	d := newConnectedDevice(t, port)

	ok := d.Send(Command{Kind: KindPing})
	assert.False(t, ok)
	assert.False(t, d.Connected())
}

func TestDisconnectSendsProbeAndCloses(t *testing.T) {
	port := &fakePort{responses: []string{"OK\n"}}
	d := newConnectedDevice(t, port)

	d.Disconnect()
	assert.False(t, d.Connected())
	assert.True(t, port.closed)
	require.NotEmpty(t, port.written)
	assert.Equal(t, "PING\n", port.written[len(port.written)-1])

	// Disconnecting twice is harmless.
	d.Disconnect()
}

func TestMouseMoveRelativeDecomposesLargeDeltas(t *testing.T) {
	port := &fakePort{}
	d := newConnectedDevice(t, port)

	require.True(t, d.MouseMoveRelative(300, -200))
	require.Len(t, port.written, 3)

	sumX, sumY := 0, 0
	for _, line := range port.written {
		var dx, dy int
		trimmed := strings.TrimSuffix(line, "\n")
		err := parseMouseMove(trimmed, &dx, &dy)
		require.NoError(t, err)
		assert.LessOrEqual(t, dx, MaxMoveDelta)
		assert.GreaterOrEqual(t, dx, -MaxMoveDelta)
		sumX += dx
		sumY += dy
	}
	assert.Equal(t, 300, sumX)
	assert.Equal(t, -200, sumY)
}

// parseMouseMove parses a MOUSE_MOVE line.
func parseMouseMove(line string, dx, dy *int) error {
	parts := strings.Split(line, ":")
	if len(parts) != 3 || parts[0] != "MOUSE_MOVE" {
		return errors.New("not a mouse move line: " + line)
	}
	var err error
	*dx, err = atoiSigned(parts[1])
	if err != nil {
		return err
	}
	*dy, err = atoiSigned(parts[2])
	return err
}

func atoiSigned(s string) (int, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("bad digit")
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func TestKeyPressRouting(t *testing.T) {
	port := &fakePort{responses: []string{"OK\n", "OK\n", "OK\n"}}
	d := newConnectedDevice(t, port)

	require.True(t, d.KeyPress("a", 50))
	require.True(t, d.KeyPress("escape", 40))
	require.True(t, d.KeyPress("Shift", 40))
	assert.False(t, d.KeyPress("not_a_key", 40))

	require.Len(t, port.written, 3)
	assert.Equal(t, "KEY:a:50\n", port.written[0])
	assert.Equal(t, "SPECIAL:177:40\n", port.written[1])
	assert.Equal(t, "SPECIAL:129:40\n", port.written[2])
}

func TestKeyDownUpSpecialUsesFirmwareChar(t *testing.T) {
	port := &fakePort{responses: []string{"OK\n", "OK\n"}}
	d := newConnectedDevice(t, port)

	require.True(t, d.KeyDown("shift"))
	require.True(t, d.KeyUp("shift"))

	require.Len(t, port.written, 2)
	assert.Equal(t, "KEY_DOWN:"+string(rune(129))+"\n", port.written[0])
	assert.Equal(t, "KEY_UP:"+string(rune(129))+"\n", port.written[1])
}

func TestTypeText(t *testing.T) {
	port := &fakePort{responses: []string{"OK\n"}}
	d := newConnectedDevice(t, port)

	require.True(t, d.TypeText("hello world", 30))
	require.Len(t, port.written, 1)
	assert.Equal(t, "KEYS:hello world:30\n", port.written[0])
}
