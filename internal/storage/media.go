package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Upload describes a file stored in the media library.
type Upload struct {
	ID   string
	Path string
	Size int
}

// MediaLibrary stores uploaded cover images on disk, named by content hash
// so uploading the same image twice yields the same id.
type MediaLibrary struct {
	dir string
}

// NewMediaLibrary creates a library rooted at dir.
func NewMediaLibrary(dir string) *MediaLibrary {
	return &MediaLibrary{dir: dir}
}

// Dir returns the directory uploads are written to.
func (m *MediaLibrary) Dir() string {
	return m.dir
}

// Save writes data under its md5 hash with the given extension.
func (m *MediaLibrary) Save(data []byte, ext string) (*Upload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("refusing to store empty upload")
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	sum := md5.Sum(data)
	id := hex.EncodeToString(sum[:])
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	path := filepath.Join(m.dir, id+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	slog.Info("Upload saved", "id", id, "path", path, "size", len(data))
	return &Upload{ID: id, Path: path, Size: len(data)}, nil
}
