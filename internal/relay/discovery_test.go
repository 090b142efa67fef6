// File: internal/relay/discovery_test.go
package relay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

func withPortList(t *testing.T, ports []*enumerator.PortDetails, err error) {
	t.Helper()
	orig := listPorts
	listPorts = func() ([]*enumerator.PortDetails, error) { return ports, err }
	t.Cleanup(func() { listPorts = orig })
}

func TestDetectFirstMatchWins(t *testing.T) {
	withPortList(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"}, // FTDI, not ours
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "8037"}, // Arduino Micro
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "1B4F", PID: "9205"}, // also supported
	}, nil)

	port, err := Detect(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", port)
}

func TestDetectCaseInsensitiveIDs(t *testing.T) {
	withPortList(t, []*enumerator.PortDetails{
		{Name: "COM5", IsUSB: true, VID: "1b4f", PID: "9206"},
	}, nil)

	port, err := Detect(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "COM5", port)
}

func TestDetectSkipsNonUSBPorts(t *testing.T) {
	withPortList(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0", IsUSB: false},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "10C4", PID: "EA60"},
	}, nil)

	_, err := Detect(zap.NewNop())
	assert.ErrorIs(t, err, ErrNoDeviceFound)
}

func TestDetectEnumerationError(t *testing.T) {
	withPortList(t, nil, errors.New("udev unavailable"))

	_, err := Detect(zap.NewNop())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDeviceFound)
}
