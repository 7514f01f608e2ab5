// Package batch looks up lists of barcodes.
package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Item is one barcode to look up. Category overrides the batch category
// when set.
type Item struct {
	Barcode  string `json:"barcode" parquet:"barcode"`
	Category string `json:"category,omitempty" parquet:"category,optional"`
}

// Load reads barcodes from a text file (one per line, "#" comments), a
// JSONL file of items or a parquet file with a "barcode" column.
func Load(path string) ([]Item, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".parquet":
		return loadParquet(path)
	case ".jsonl", ".json":
		return loadJSONL(path)
	case ".txt", ".csv", "":
		return loadText(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .txt, .jsonl, .parquet)", ext)
	}
}

func loadText(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open barcode file: %w", err)
	}
	defer file.Close()

	var items []Item
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// first column of a CSV line
		barcode, _, _ := strings.Cut(line, ",")
		items = append(items, Item{Barcode: strings.TrimSpace(barcode)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading barcode file: %w", err)
	}

	slog.Debug("Loaded barcodes", "path", path, "count", len(items))
	return items, nil
}

func loadJSONL(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open barcode file: %w", err)
	}
	defer file.Close()

	var items []Item
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var item Item
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		if item.Barcode == "" {
			return nil, fmt.Errorf("missing barcode at line %d", lineNum)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading barcode file: %w", err)
	}

	slog.Debug("Loaded barcodes", "path", path, "count", len(items))
	return items, nil
}

func loadParquet(path string) ([]Item, error) {
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

	slog.Debug("Parquet file opened", "path", path, "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Item](pf)
	defer reader.Close()

	var items []Item
	rows := make([]Item, 128)
	for {
		n, err := reader.Read(rows)
		for _, item := range rows[:n] {
			if item.Barcode != "" {
				items = append(items, item)
			}
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Loaded barcodes", "path", path, "count", len(items))
	return items, nil
}
