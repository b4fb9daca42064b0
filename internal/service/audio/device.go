// Package audio captures microphone audio and cuts it into fixed-length
// segments.
package audio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDeviceUnavailable is returned when the microphone cannot be acquired:
// permission denied, no device, or the device failed to open.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// WAVHeaderSize is the size of a canonical PCM WAV header.
const WAVHeaderSize = 44

// DataCallback receives 16-bit little-endian PCM.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Context enumerates and opens capture devices.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice is one open capture stream. Stop must not return while the
// callback is still running.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

// Opener creates a Context. It is called once per session so the platform
// audio connection lives exactly as long as the session's capture.
type Opener func() (Context, error)

// FindDevice resolves a device by exact ID or case-insensitive name
// substring. An empty name selects the system default (nil).
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerating devices: %v", ErrDeviceUnavailable, err)
	}
	lower := strings.ToLower(name)
	for i, d := range devices {
		if d.ID == name || strings.Contains(strings.ToLower(d.Name), lower) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no capture device matching %q", ErrDeviceUnavailable, name)
}
