package form

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/catscan/internal/models"
)

// File is a Memory form loaded from and saved back to a YAML document.
type File struct {
	*Memory
	path string
}

// LoadFile reads a form from path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form file: %w", err)
	}

	var values models.FormValues
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse form file %s: %w", path, err)
	}

	return &File{Memory: FromValues(&values), path: path}, nil
}

// NewFile binds m to path without reading it. Save creates the file.
func NewFile(path string, m *Memory) *File {
	return &File{Memory: m, path: path}
}

// Path returns the file the form is saved to.
func (f *File) Path() string {
	return f.path
}

// Save writes the current values back to the file.
func (f *File) Save() error {
	data, err := yaml.Marshal(f.Values())
	if err != nil {
		return fmt.Errorf("failed to marshal form: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	return nil
}
