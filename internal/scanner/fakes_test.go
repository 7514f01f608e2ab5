package scanner

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeDetector struct {
	mu      sync.Mutex
	formats []string
	codes   []Barcode
	// gate, when set, blocks Detect until it is closed.
	gate    chan struct{}
	entered chan struct{}
	calls   int
}

func (d *fakeDetector) SupportedFormats(ctx context.Context) ([]string, error) {
	if d.formats == nil {
		return nil, errors.New("no detector")
	}
	return d.formats, nil
}

func (d *fakeDetector) Detect(ctx context.Context, frame image.Image) ([]Barcode, error) {
	d.mu.Lock()
	d.calls++
	gate, entered, codes := d.gate, d.entered, d.codes
	d.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return codes, nil
}

func (d *fakeDetector) setCodes(values ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes = nil
	for i, v := range values {
		x := float64(10 * i)
		d.codes = append(d.codes, Barcode{
			RawValue:     v,
			Format:       "ean_13",
			CornerPoints: [4]Point{{x, 1}, {x + 5, 1}, {x + 5, 4}, {x, 4}},
		})
	}
}

type fakeTrack struct {
	mu      sync.Mutex
	stopped bool
	err     error
	owner   *fakeDevices
}

func (t *fakeTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		t.owner.closed()
	}
	return t.err
}

func (t *fakeTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeStream struct {
	deviceID string
	track    *fakeTrack
}

func (s *fakeStream) Tracks() []Track { return []Track{s.track} }

type fakeDevices struct {
	mu         sync.Mutex
	infos      []DeviceInfo
	captureErr map[string]error
	trackErr   error
	enumGate   chan struct{}
	streams    []*fakeStream
	open       int
	maxOpen    int
}

func (f *fakeDevices) GetUserMedia(ctx context.Context, c Constraints) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.captureErr[c.DeviceID]; err != nil {
		return nil, err
	}
	s := &fakeStream{deviceID: c.DeviceID, track: &fakeTrack{err: f.trackErr, owner: f}}
	f.streams = append(f.streams, s)
	f.open++
	if f.open > f.maxOpen {
		f.maxOpen = f.open
	}
	return s, nil
}

func (f *fakeDevices) EnumerateDevices(ctx context.Context) ([]DeviceInfo, error) {
	if f.enumGate != nil {
		<-f.enumGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DeviceInfo(nil), f.infos...), nil
}

func (f *fakeDevices) closed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open--
}

func (f *fakeDevices) openStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeDevices) stream(i int) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

type fakeSurface struct {
	mu    sync.Mutex
	bound Stream
	ready chan struct{}
	hold  bool
}

func (s *fakeSurface) Bind(stream Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound = stream
	s.ready = make(chan struct{})
	if stream != nil && !s.hold {
		close(s.ready)
	}
}

func (s *fakeSurface) Frame() (image.Image, bool) {
	return image.NewGray(image.Rect(0, 0, 4, 4)), true
}

func (s *fakeSurface) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready == nil {
		s.ready = make(chan struct{})
	}
	return s.ready
}

func (s *fakeSurface) Size() (int, int) { return 640, 480 }

func (s *fakeSurface) boundStream() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

type recorder struct {
	mu     sync.Mutex
	values []string
	errs   []error
	ch     chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) SetValue(v string) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	select {
	case r.ch <- v:
	default:
	}
}

func (r *recorder) Report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) Values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
