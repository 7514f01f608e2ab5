package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/catscan/internal/cataloging"
	"github.com/lehigh-university-libraries/catscan/internal/export"
	"github.com/lehigh-university-libraries/catscan/internal/models"
)

// Lookuper returns the metadata of a barcode.
type Lookuper interface {
	Lookup(ctx context.Context, barcode string, category models.Category) (*models.Metadata, error)
}

// Runner looks barcodes up with bounded concurrency. The catalog client
// rate limits on its own, so concurrency only overlaps slow responses.
type Runner struct {
	Service     Lookuper
	Concurrency int
	Now         func() time.Time
}

// Run looks every item up and returns one row per item, in input order.
// A failed lookup yields a failed row, never an error. Run stops early
// and returns the context error when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, items []Item, category models.Category) ([]export.Row, error) {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	slog.Info("Processing barcodes", "count", len(items), "concurrency", concurrency)

	rows := make([]export.Row, len(items))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i, item := range items {
		wg.Add(1)
		go func(idx int, item Item) {
			defer wg.Done()
			select {
			case semaphore <- struct{}{}: // Acquire
			case <-ctx.Done():
				return
			}
			defer func() { <-semaphore }() // Release

			cat := category
			if item.Category != "" {
				parsed, err := models.ParseCategory(item.Category)
				if err != nil {
					rows[idx] = export.NewRow(item.Barcode, models.Category(item.Category), nil, err.Error(), now())
					return
				}
				cat = parsed
			}

			slog.Debug("Looking up barcode", "barcode", item.Barcode, "progress", fmt.Sprintf("%d/%d", idx+1, len(items)))

			md, err := r.Service.Lookup(ctx, item.Barcode, cat)
			if err != nil {
				slog.Warn("Lookup failed", "barcode", item.Barcode, "error", err)
				rows[idx] = export.NewRow(item.Barcode, cat, nil, cataloging.UserMessage(err), now())
				return
			}
			rows[idx] = export.NewRow(item.Barcode, cat, md, "", now())
		}(i, item)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
