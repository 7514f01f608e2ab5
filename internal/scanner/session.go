package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"
)

// Options configures a Scanner. Devices and Surface are required.
type Options struct {
	Detector Detector
	Devices  MediaDevices
	Surface  Surface
	Sink     ResultSink
	Reporter Reporter
	Overlay  OverlaySink

	Mode     Mode
	Interval time.Duration
	Cooldown time.Duration

	// OnComplete is called after an auto-fill detection reached the sink.
	OnComplete func(value string)

	// Now is the clock used for the cooldown window.
	Now    func() time.Time
	Logger *slog.Logger
}

// Scanner is the state of one interactive scan session. Every method is
// safe for concurrent use.
type Scanner struct {
	opts   Options
	logger *slog.Logger

	capability chan struct{}
	capErr     error
	formats    []string

	busy atomic.Bool

	mu          sync.Mutex
	state       State
	generation  uint64
	stream      Stream
	deviceID    string
	devices     []Device
	cancelLoop  context.CancelFunc
	lastValue   string
	lastAt      time.Time
	lastOverlay Overlay
}

// New creates a scanner and starts checking the detection capability in the
// background. ctx bounds that check only.
func New(ctx context.Context, opts Options) (*Scanner, error) {
	if opts.Devices == nil {
		return nil, errors.New("scanner needs media devices")
	}
	if opts.Surface == nil {
		return nil, errors.New("scanner needs a video surface")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Scanner{
		opts:       opts,
		logger:     opts.Logger,
		capability: make(chan struct{}),
		state:      StateIdle,
	}
	go s.checkCapability(ctx)
	return s, nil
}

func (s *Scanner) checkCapability(ctx context.Context) {
	defer close(s.capability)

	if s.opts.Detector == nil {
		s.capErr = ErrCapabilityUnavailable
		s.report(s.capErr)
		return
	}

	formats, err := s.opts.Detector.SupportedFormats(ctx)
	if err != nil {
		s.capErr = fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
		s.report(s.capErr)
		return
	}
	if len(formats) == 0 {
		s.capErr = ErrCapabilityUnavailable
		s.report(s.capErr)
		return
	}

	s.formats = formats
	s.logger.Debug("Barcode detection available", "formats", formats)
}

// WaitCapability blocks until the capability check finished and returns its
// outcome.
func (s *Scanner) WaitCapability(ctx context.Context) error {
	select {
	case <-s.capability:
		return s.capErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Available reports whether scanning can start. It is false while the
// capability check is still running.
func (s *Scanner) Available() bool {
	select {
	case <-s.capability:
		return s.capErr == nil
	default:
		return false
	}
}

// Formats returns the symbologies supported by the detector.
func (s *Scanner) Formats() []string {
	select {
	case <-s.capability:
		return append([]string(nil), s.formats...)
	default:
		return nil
	}
}

// Start acquires a camera, lists the video inputs and plays the default one:
// the last device whose label mentions "back", else the first.
func (s *Scanner) Start(ctx context.Context) error {
	if err := s.WaitCapability(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	gen := s.generation
	s.state = StateDeviceEnumeration
	s.mu.Unlock()

	stream, err := s.opts.Devices.GetUserMedia(ctx, Constraints{Video: true})
	if err != nil {
		derr := &DeviceError{Op: "capture", Err: err}
		s.report(derr)
		s.setStateIf(gen, StateIdle)
		return derr
	}
	if !s.own(gen, stream) {
		return nil
	}

	infos, err := s.opts.Devices.EnumerateDevices(ctx)
	if err != nil {
		derr := &DeviceError{Op: "enumerate", Err: err}
		s.report(derr)
		s.abandon(gen)
		return derr
	}
	if !s.current(gen) {
		s.logger.Debug("Dropping stale device enumeration")
		return nil
	}

	devices := BuildDeviceList(infos)
	if len(devices) == 0 {
		derr := &DeviceError{Op: "enumerate", Err: ErrNoCamera}
		s.report(derr)
		s.abandon(gen)
		return derr
	}

	idx := DefaultDevice(devices)
	s.mu.Lock()
	s.devices = devices
	s.mu.Unlock()

	s.logger.Info("Cameras found", "count", len(devices), "default", devices[idx].Label)
	return s.Play(ctx, devices[idx].ID)
}

// abandon releases the stream owned by a failed Start and returns the
// session to idle, unless the session already moved on.
func (s *Scanner) abandon(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	stream := s.stream
	s.stream = nil
	if stream != nil {
		s.opts.Surface.Bind(nil)
	}
	s.state = StateIdle
	s.mu.Unlock()

	s.release(stream, true)
}

// BuildDeviceList keeps the video inputs of infos and names unlabeled ones
// "Camera N", N counting unlabeled cameras from 0.
func BuildDeviceList(infos []DeviceInfo) []Device {
	var devices []Device
	unlabeled := 0
	for _, info := range infos {
		if info.Kind != KindVideoInput {
			continue
		}
		label := info.Label
		if label == "" {
			label = fmt.Sprintf("Camera %d", unlabeled)
			unlabeled++
		}
		devices = append(devices, Device{ID: info.DeviceID, Label: label})
	}
	return devices
}

var fold = cases.Fold()

// DefaultDevice returns the index of the last device whose label contains
// "back" in any case, or 0.
func DefaultDevice(devices []Device) int {
	idx := 0
	for i, d := range devices {
		if strings.Contains(fold.String(d.Label), "back") {
			idx = i
		}
	}
	return idx
}

// Play stops the current stream, then captures deviceID (any camera when
// empty) and starts detecting once the surface has frames.
func (s *Scanner) Play(ctx context.Context, deviceID string) error {
	s.Stop()

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	stream, err := s.opts.Devices.GetUserMedia(ctx, Constraints{Video: true, DeviceID: deviceID})
	if err != nil {
		derr := &DeviceError{Op: "capture", DeviceID: deviceID, Err: err}
		s.report(derr)
		return derr
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		cancel()
		s.logger.Debug("Dropping stale capture", "device", deviceID)
		s.release(stream, false)
		return nil
	}
	s.stream = stream
	s.deviceID = deviceID
	s.state = StateStreaming
	s.cancelLoop = cancel
	s.opts.Surface.Bind(stream)
	ready := s.opts.Surface.Ready()
	s.mu.Unlock()

	s.logger.Info("Camera playing", "device", deviceID)
	go s.awaitFrames(loopCtx, gen, ready)
	return nil
}

// ChangeDevice switches to another enumerated camera.
func (s *Scanner) ChangeDevice(ctx context.Context, deviceID string) error {
	return s.Play(ctx, deviceID)
}

// Stop ends the detection loop and releases every track of the stream.
// Track failures are reported, never returned. Results of operations
// started before Stop are discarded.
func (s *Scanner) Stop() {
	s.mu.Lock()
	s.generation++
	if s.cancelLoop != nil {
		s.cancelLoop()
		s.cancelLoop = nil
	}
	stream := s.stream
	s.stream = nil
	if stream != nil {
		s.opts.Surface.Bind(nil)
	}
	s.state = StateStopped
	s.mu.Unlock()

	s.release(stream, true)
}

func (s *Scanner) release(stream Stream, report bool) {
	if stream == nil {
		return
	}
	for _, track := range stream.Tracks() {
		if err := track.Stop(); err != nil {
			if report {
				s.report(&DeviceError{Op: "stop", Err: err})
			} else {
				s.logger.Warn("Failed to stop stale track", "error", err)
			}
		}
	}
}

// own makes stream the active stream unless the session moved on, in which
// case the stream is released.
func (s *Scanner) own(gen uint64, stream Stream) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.release(stream, false)
		return false
	}
	prev := s.stream
	s.stream = stream
	s.mu.Unlock()

	s.release(prev, true)
	return true
}

func (s *Scanner) awaitFrames(ctx context.Context, gen uint64, ready <-chan struct{}) {
	select {
	case <-ready:
	case <-ctx.Done():
		return
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.state = StateDetecting
	s.mu.Unlock()

	if s.opts.Mode == ModeDebug && s.opts.Overlay != nil {
		w, h := s.opts.Surface.Size()
		s.publish(Overlay{Width: w, Height: h})
	}

	s.loop(ctx, gen)
}

func (s *Scanner) loop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.busy.CompareAndSwap(false, true) {
				continue
			}
			go func() {
				defer s.busy.Store(false)
				s.detect(ctx, gen)
			}()
		}
	}
}

// Tick runs one detection pass now unless one is already in flight, in which
// case it returns false.
func (s *Scanner) Tick(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	defer s.busy.Store(false)

	s.detect(ctx, s.Generation())
	return true
}

func (s *Scanner) detect(ctx context.Context, gen uint64) {
	if s.opts.Detector == nil {
		return
	}
	frame, ok := s.opts.Surface.Frame()
	if !ok {
		return
	}

	codes, err := s.opts.Detector.Detect(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug("Detection failed", "error", err)
		}
		return
	}
	if !s.current(gen) {
		s.logger.Debug("Dropping stale detection", "results", len(codes))
		return
	}

	s.route(codes)
}

func (s *Scanner) route(codes []Barcode) {
	if s.opts.Mode == ModeDebug {
		w, h := s.opts.Surface.Size()
		s.publish(NewOverlay(w, h, codes))
		return
	}

	now := s.opts.Now()
	for _, code := range codes {
		if code.RawValue == "" || !s.accept(code.RawValue, now) {
			continue
		}
		s.logger.Info("Barcode detected", "value", code.RawValue, "format", code.Format)
		s.deliver(code.RawValue)
		if s.opts.OnComplete != nil {
			s.opts.OnComplete(code.RawValue)
		}
		return
	}
}

// accept applies the cooldown: the value last accepted is ignored until the
// window after its acceptance has passed.
func (s *Scanner) accept(value string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == s.lastValue && now.Sub(s.lastAt) < s.opts.Cooldown {
		return false
	}
	s.lastValue = value
	s.lastAt = now
	return true
}

func (s *Scanner) publish(o Overlay) {
	s.mu.Lock()
	s.lastOverlay = o
	s.mu.Unlock()
	if s.opts.Overlay != nil {
		s.opts.Overlay.ShowOverlay(o)
	}
}

// Select writes the value of a drawn region to the sink. The loop keeps
// running so the value can be corrected by selecting again.
func (s *Scanner) Select(region Region) error {
	if region.Value == "" {
		return errors.New("region has no value")
	}
	s.logger.Info("Barcode selected", "value", region.Value)
	s.deliver(region.Value)
	return nil
}

func (s *Scanner) deliver(value string) {
	if s.opts.Sink != nil {
		s.opts.Sink.SetValue(value)
	}
}

func (s *Scanner) report(err error) {
	s.logger.Warn("Scanner error", "error", err)
	if s.opts.Reporter != nil {
		s.opts.Reporter.Report(err)
	}
}

func (s *Scanner) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

func (s *Scanner) setStateIf(gen uint64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.state = state
	}
}

// Generation increases on every Stop, including the one Play performs.
func (s *Scanner) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// State returns the lifecycle position. A detecting scanner reports
// StateCooldown during the window following an accepted value.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDetecting && s.lastValue != "" && s.opts.Now().Sub(s.lastAt) < s.opts.Cooldown {
		return StateCooldown
	}
	return s.state
}

// Devices returns the cameras found by Start.
func (s *Scanner) Devices() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Device(nil), s.devices...)
}

// DeviceID returns the camera currently playing.
func (s *Scanner) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// Streaming reports whether a stream is owned.
func (s *Scanner) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Overlay returns the last overlay drawn in debug mode.
func (s *Scanner) Overlay() Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOverlay
}

// Mode returns the operating mode.
func (s *Scanner) Mode() Mode {
	return s.opts.Mode
}
