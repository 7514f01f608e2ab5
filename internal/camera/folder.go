// Package camera provides cameras backed by directories of still frames,
// for scanning without a capture device.
package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/lehigh-university-libraries/catscan/internal/scanner"
)

// LabelFile optionally holds the human readable name of a camera directory.
const LabelFile = "label.txt"

// ErrUnknownDevice is returned when a capture names no existing camera.
var ErrUnknownDevice = errors.New("unknown camera")

// Folder implements scanner.MediaDevices. Every subdirectory of the root is
// a camera; the newest image in it is the current frame.
type Folder struct {
	root   string
	logger *slog.Logger
}

// NewFolder creates cameras rooted at root.
func NewFolder(root string, logger *slog.Logger) *Folder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Folder{root: root, logger: logger}
}

// EnumerateDevices lists the camera directories in name order.
func (f *Folder) EnumerateDevices(ctx context.Context) ([]scanner.DeviceInfo, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}

	var devices []scanner.DeviceInfo
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		devices = append(devices, scanner.DeviceInfo{
			DeviceID: entry.Name(),
			Label:    f.label(entry.Name()),
			Kind:     scanner.KindVideoInput,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].DeviceID < devices[j].DeviceID })
	return devices, nil
}

func (f *Folder) label(id string) string {
	data, err := os.ReadFile(filepath.Join(f.root, id, LabelFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// GetUserMedia opens the camera named by c.DeviceID, or the first camera
// when no device is given.
func (f *Folder) GetUserMedia(ctx context.Context, c scanner.Constraints) (scanner.Stream, error) {
	if !c.Video {
		return nil, errors.New("only video capture is supported")
	}

	id := c.DeviceID
	if id == "" {
		devices, err := f.EnumerateDevices(ctx)
		if err != nil {
			return nil, err
		}
		if len(devices) == 0 {
			return nil, scanner.ErrNoCamera
		}
		id = devices[0].DeviceID
	}

	dir := filepath.Join(f.root, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	return openStream(id, dir, f.logger)
}

var fold = cases.Fold()

// FindDevice returns the id of the camera whose id or label matches name,
// ignoring case.
func (f *Folder) FindDevice(ctx context.Context, name string) (string, error) {
	devices, err := f.EnumerateDevices(ctx)
	if err != nil {
		return "", err
	}
	want := fold.String(strings.TrimSpace(name))
	for _, d := range scanner.BuildDeviceList(devices) {
		if fold.String(d.ID) == want || fold.String(d.Label) == want {
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownDevice, name)
}
