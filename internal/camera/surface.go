package camera

import (
	"image"
	"sync"

	"github.com/lehigh-university-libraries/catscan/internal/scanner"
)

// FrameSource is a stream that exposes decoded frames.
type FrameSource interface {
	Latest() (image.Image, bool)
	Ready() <-chan struct{}
}

// Surface implements scanner.Surface over any FrameSource stream.
type Surface struct {
	mu     sync.Mutex
	source FrameSource
	idle   chan struct{}
}

// NewSurface creates an unbound surface.
func NewSurface() *Surface {
	return &Surface{idle: make(chan struct{})}
}

// Bind attaches stream. Streams that do not expose frames leave the surface
// without frames.
func (s *Surface) Bind(stream scanner.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, _ := stream.(FrameSource)
	s.source = src
}

func (s *Surface) Frame() (image.Image, bool) {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()
	if src == nil {
		return nil, false
	}
	return src.Latest()
}

func (s *Surface) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return s.idle
	}
	return s.source.Ready()
}

// Size returns the dimensions of the current frame.
func (s *Surface) Size() (int, int) {
	img, ok := s.Frame()
	if !ok {
		return 0, 0
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}
