package camera

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/lehigh-university-libraries/catscan/internal/scanner"
)

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// Stream watches one camera directory and decodes each new frame file.
type Stream struct {
	DeviceID string

	dir     string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu     sync.RWMutex
	frame  image.Image
	loaded string

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	track     *Track
}

func openStream(id, dir string, logger *slog.Logger) (*Stream, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch camera %s: %w", id, err)
	}

	s := &Stream{
		DeviceID: id,
		dir:      dir,
		logger:   logger,
		watcher:  watcher,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.track = &Track{stream: s}

	if path := newestFrame(dir); path != "" {
		s.load(path)
	}

	go s.watch()
	return s, nil
}

func (s *Stream) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isFrame(event.Name) {
				continue
			}
			s.load(event.Name)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Camera watch error", "device", s.DeviceID, "error", err)
		}
	}
}

// load decodes path into the current frame. A file still being written
// fails to decode and keeps the previous frame.
func (s *Stream) load(path string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Debug("Failed to open frame", "path", path, "error", err)
		return
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		s.logger.Debug("Failed to decode frame", "path", path, "error", err)
		return
	}

	s.mu.Lock()
	s.frame = img
	s.loaded = path
	s.mu.Unlock()

	s.logger.Debug("Frame loaded", "device", s.DeviceID, "path", path, "format", format)
	s.readyOnce.Do(func() { close(s.ready) })
}

// Tracks implements scanner.Stream.
func (s *Stream) Tracks() []scanner.Track {
	return []scanner.Track{s.track}
}

// Latest returns the current frame.
func (s *Stream) Latest() (image.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.frame != nil
}

// LoadedPath returns the file the current frame came from.
func (s *Stream) LoadedPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Ready is closed once a first frame was decoded.
func (s *Stream) Ready() <-chan struct{} {
	return s.ready
}

// Track ends the watch of a stream when stopped.
type Track struct {
	stream *Stream
	once   sync.Once
}

// Stop closes the watcher. Stopping twice is a no-op.
func (t *Track) Stop() error {
	var err error
	t.once.Do(func() {
		close(t.stream.done)
		err = t.stream.watcher.Close()
	})
	return err
}

func isFrame(path string) bool {
	return frameExtensions[strings.ToLower(filepath.Ext(path))]
}

func newestFrame(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var newest string
	var newestAt time.Time
	for _, entry := range entries {
		if entry.IsDir() || !isFrame(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest = filepath.Join(dir, entry.Name())
			newestAt = info.ModTime()
		}
	}
	return newest
}
