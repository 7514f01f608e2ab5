// Package export writes lookup results as YAML reports or parquet tables.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/catscan/internal/models"
)

const (
	StatusFound  = "found"
	StatusFailed = "failed"
)

// Row is one looked up barcode, flattened for tabular output.
type Row struct {
	Barcode      string   `yaml:"barcode" parquet:"barcode"`
	Category     string   `yaml:"category" parquet:"category"`
	Status       string   `yaml:"status" parquet:"status"`
	Error        string   `yaml:"error,omitempty" parquet:"error,optional"`
	Title        string   `yaml:"title,omitempty" parquet:"title,optional"`
	Author       string   `yaml:"author,omitempty" parquet:"author,optional"`
	Artist       string   `yaml:"artist,omitempty" parquet:"artist,optional"`
	Director     string   `yaml:"director,omitempty" parquet:"director,optional"`
	Editor       string   `yaml:"editor,omitempty" parquet:"editor,optional"`
	ISBN         string   `yaml:"isbn,omitempty" parquet:"isbn,optional"`
	IDNumber     string   `yaml:"id_number,omitempty" parquet:"id_number,optional"`
	ISNI         string   `yaml:"isni,omitempty" parquet:"isni,optional"`
	SeriesTitle  string   `yaml:"series_title,omitempty" parquet:"series_title,optional"`
	VolumeNumber string   `yaml:"volume_number,omitempty" parquet:"volume_number,optional"`
	Year         string   `yaml:"year,omitempty" parquet:"year,optional"`
	Height       string   `yaml:"height,omitempty" parquet:"height,optional"`
	Cover        string   `yaml:"cover,omitempty" parquet:"cover,optional"`
	Excerpt      string   `yaml:"excerpt,omitempty" parquet:"excerpt,optional"`
	Tracks       []string `yaml:"tracks,omitempty" parquet:"tracks,list"`
	LookedUpAt   string   `yaml:"looked_up_at" parquet:"looked_up_at"`
}

// NewRow flattens the outcome of one lookup. message is the user facing
// text of a failed lookup and is ignored when md is set.
func NewRow(barcode string, category models.Category, md *models.Metadata, message string, at time.Time) Row {
	row := Row{
		Barcode:    barcode,
		Category:   string(category),
		LookedUpAt: at.UTC().Format(time.RFC3339),
	}
	if md == nil {
		row.Status = StatusFailed
		row.Error = message
		return row
	}

	row.Status = StatusFound
	row.Title = md.Title
	row.Author = md.Author
	row.Artist = md.Artist
	row.Director = md.Director
	row.Editor = md.Editor
	row.ISBN = md.ISBN
	row.IDNumber = md.IDNumber
	row.ISNI = md.ISNI
	row.SeriesTitle = md.SeriesTitle
	row.VolumeNumber = md.VolumeNumber
	row.Year = md.Year
	row.Height = md.Dimensions.Height
	row.Cover = md.Cover
	row.Excerpt = md.Excerpt
	row.Tracks = md.Tracks
	return row
}

// Report is the YAML document written for a batch.
type Report struct {
	GeneratedAt string `yaml:"generated_at"`
	Source      string `yaml:"source,omitempty"`
	Total       int    `yaml:"total"`
	Found       int    `yaml:"found"`
	Failed      int    `yaml:"failed"`
	Results     []Row  `yaml:"results"`
}

// NewReport summarizes rows.
func NewReport(source string, rows []Row, at time.Time) *Report {
	r := &Report{
		GeneratedAt: at.UTC().Format(time.RFC3339),
		Source:      source,
		Total:       len(rows),
		Results:     rows,
	}
	for _, row := range rows {
		if row.Status == StatusFound {
			r.Found++
		} else {
			r.Failed++
		}
	}
	return r
}

// WriteYAML encodes a report of rows to w.
func WriteYAML(w io.Writer, report *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return enc.Close()
}

// WriteParquet writes rows as a parquet table to w.
func WriteParquet(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet loads every row of a parquet file written by WriteParquet.
func ReadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := make([]Row, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows[:n], nil
}

// WriteFile picks the format from the extension of path: .parquet, .yaml or
// .yml.
func WriteFile(path, source string, rows []Row) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".parquet" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported output format: %s (supported: .parquet, .yaml)", ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if ext == ".parquet" {
		err = WriteParquet(f, rows)
	} else {
		err = WriteYAML(f, NewReport(source, rows, time.Now()))
	}
	if err != nil {
		return err
	}

	slog.Info("Results saved", "path", path, "rows", len(rows))
	return f.Close()
}
