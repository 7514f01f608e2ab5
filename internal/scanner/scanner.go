// Package scanner runs a live barcode scan: it owns the camera stream,
// drives a bounded-rate detection loop over the frames and hands accepted
// values to a result sink.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"
)

const (
	// DefaultInterval is the detection cadence, about 25 passes per second.
	DefaultInterval = 40 * time.Millisecond
	// DefaultCooldown is the window during which a repeated value is ignored.
	DefaultCooldown = 1000 * time.Millisecond
)

var (
	// ErrCapabilityUnavailable means no detector supports any symbology.
	// Scanning stays disabled for the life of the scanner.
	ErrCapabilityUnavailable = errors.New("barcode detection is not supported")
	// ErrNoCamera is reported when enumeration finds no video input.
	ErrNoCamera = errors.New("no camera detected")
)

// DeviceError wraps a camera failure. The session stays usable and the
// operation may be retried.
type DeviceError struct {
	Op       string
	DeviceID string
	Err      error
}

func (e *DeviceError) Error() string {
	if e.DeviceID != "" {
		return fmt.Sprintf("camera %s failed for device %s: %v", e.Op, e.DeviceID, e.Err)
	}
	return fmt.Sprintf("camera %s failed: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Point is a corner of a detected barcode in frame coordinates.
type Point struct {
	X float64
	Y float64
}

// Barcode is one detection result.
type Barcode struct {
	RawValue     string
	Format       string
	CornerPoints [4]Point
}

// Detector finds barcodes in a frame.
type Detector interface {
	SupportedFormats(ctx context.Context) ([]string, error)
	Detect(ctx context.Context, frame image.Image) ([]Barcode, error)
}

// KindVideoInput is the device kind of cameras.
const KindVideoInput = "videoinput"

// DeviceInfo describes an enumerated media device.
type DeviceInfo struct {
	DeviceID string
	Label    string
	Kind     string
}

// Constraints select the stream requested from MediaDevices. An empty
// DeviceID lets the implementation pick any camera.
type Constraints struct {
	Video    bool
	Audio    bool
	DeviceID string
}

// Track is one media track of a stream.
type Track interface {
	Stop() error
}

// Stream is an open capture.
type Stream interface {
	Tracks() []Track
}

// MediaDevices opens captures and lists devices.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
}

// Surface shows a stream and exposes its current frame.
type Surface interface {
	// Bind attaches stream, replacing the previous one. nil detaches.
	Bind(stream Stream)
	// Frame returns the latest frame, or false before any frame arrived.
	Frame() (image.Image, bool)
	// Ready is closed once the bound stream produced usable frame data.
	Ready() <-chan struct{}
	Size() (width, height int)
}

// ResultSink receives accepted barcode values.
type ResultSink interface {
	SetValue(value string)
}

// Reporter is where user-facing scanner errors go.
type Reporter interface {
	Report(err error)
}

// OverlaySink receives the overlay drawn in debug mode.
type OverlaySink interface {
	ShowOverlay(o Overlay)
}

// ResultFunc adapts a function to ResultSink.
type ResultFunc func(value string)

func (f ResultFunc) SetValue(value string) { f(value) }

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) { f(err) }

// OverlayFunc adapts a function to OverlaySink.
type OverlayFunc func(o Overlay)

func (f OverlayFunc) ShowOverlay(o Overlay) { f(o) }

// Mode decides what happens with detections.
type Mode int

const (
	// ModeAutoFill writes the first accepted detection to the sink.
	ModeAutoFill Mode = iota
	// ModeDebug draws every detection and waits for a Select.
	ModeDebug
)

func (m Mode) String() string {
	if m == ModeDebug {
		return "debug"
	}
	return "autofill"
}

// ParseMode accepts "autofill" or "debug".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "autofill", "auto":
		return ModeAutoFill, nil
	case "debug":
		return ModeDebug, nil
	default:
		return ModeAutoFill, fmt.Errorf("unknown scanner mode %q", s)
	}
}

// State is the lifecycle position of a scanner.
type State int

const (
	StateIdle State = iota
	StateDeviceEnumeration
	StateStreaming
	StateDetecting
	StateCooldown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDeviceEnumeration:
		return "device-enumeration"
	case StateStreaming:
		return "streaming"
	case StateDetecting:
		return "detecting"
	case StateCooldown:
		return "cooldown"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Device is a camera offered for selection.
type Device struct {
	ID    string
	Label string
}
