// File: internal/relay/discovery.go
package relay

import (
	"errors"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// ErrNoDeviceFound is returned when no serial endpoint matches the allow-list
// of known relay boards.
var ErrNoDeviceFound = errors.New("relay: no supported board found")

// usbID identifies a supported board by USB vendor/product id (hex strings,
// the form the enumerator reports).
type usbID struct {
	vid, pid string
}

// knownBoards is the fixed allow-list of relay hardware.
var knownBoards = []usbID{
	{"2341", "8036"}, // Arduino Leonardo
	{"2341", "8037"}, // Arduino Micro
	{"1B4F", "9205"}, // SparkFun Pro Micro 5V
	{"1B4F", "9206"}, // SparkFun Pro Micro 3.3V
}

// listPorts is a seam for tests.
var listPorts = enumerator.GetDetailedPortsList

// Detect enumerates serial endpoints and returns the first whose USB
// vendor/product id matches a known relay board.
func Detect(logger *zap.Logger) (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", err
	}

	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		for _, id := range knownBoards {
			if strings.EqualFold(port.VID, id.vid) && strings.EqualFold(port.PID, id.pid) {
				logger.Info("Found relay board",
					zap.String("port", port.Name),
					zap.String("vid", port.VID),
					zap.String("pid", port.PID))
				return port.Name, nil
			}
		}
	}

	logger.Warn("No relay board found via auto-detection")
	return "", ErrNoDeviceFound
}
