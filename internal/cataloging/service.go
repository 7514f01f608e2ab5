// Package cataloging ties catalog lookup, extraction and form filling
// together. A Service holds no per-scan state and is shared by every caller.
package cataloging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/catscan/internal/catalog"
	"github.com/lehigh-university-libraries/catscan/internal/extract"
	"github.com/lehigh-university-libraries/catscan/internal/filler"
	"github.com/lehigh-university-libraries/catscan/internal/form"
	"github.com/lehigh-university-libraries/catscan/internal/images"
	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/record"
	"github.com/lehigh-university-libraries/catscan/internal/scanner"
)

// Lookuper fetches the catalog record of a barcode.
type Lookuper interface {
	Lookup(ctx context.Context, barcode string, category models.Category) (*record.Record, error)
}

// Filler writes metadata into a form.
type Filler interface {
	Fill(ctx context.Context, category models.Category, md *models.Metadata, sink form.Sink) ([]string, error)
}

type Service struct {
	catalog Lookuper
	filler  Filler
	logger  *slog.Logger
}

func NewService(catalog Lookuper, filler Filler) *Service {
	return &Service{
		catalog: catalog,
		filler:  filler,
		logger:  slog.Default(),
	}
}

// WithLogger returns a copy of the service logging to logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	c := *s
	c.logger = logger
	return &c
}

// Lookup fetches and extracts the metadata of barcode for category.
func (s *Service) Lookup(ctx context.Context, barcode string, category models.Category) (*models.Metadata, error) {
	if category.Kind() == models.KindUnknown {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnknownCategory, category)
	}

	rec, err := s.catalog.Lookup(ctx, barcode, category)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", barcode, err)
	}

	md, err := extract.Extract(category, rec)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Metadata extracted",
		"barcode", barcode,
		"category", category,
		"title", md.Title,
		"fields", len(md.Fields()))
	return md, nil
}

// Fill looks barcode up and writes the result into sink. The metadata is
// returned even when the form could not be filled.
func (s *Service) Fill(ctx context.Context, barcode string, category models.Category, sink form.Sink) (*models.Metadata, []string, error) {
	md, err := s.Lookup(ctx, barcode, category)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.filler.Fill(ctx, category, md, sink)
	if err != nil {
		return md, nil, fmt.Errorf("failed to fill form: %w", err)
	}
	return md, messages, nil
}

// UserMessage turns an error from any stage into the text shown to the
// person scanning.
func UserMessage(err error) string {
	var deviceErr *scanner.DeviceError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, scanner.ErrCapabilityUnavailable):
		return "Barcode detection is not available on this device"
	case errors.Is(err, scanner.ErrNoCamera):
		return "No camera found"
	case errors.As(err, &deviceErr):
		return "Camera error: " + deviceErr.Err.Error()
	case errors.Is(err, catalog.ErrNotFound):
		return "No record found for this barcode"
	case errors.Is(err, catalog.ErrEmptyPayload):
		return "The catalog returned an empty response"
	case errors.Is(err, catalog.ErrPayloadTooLarge):
		return "The catalog response is too large"
	case errors.Is(err, catalog.ErrTransport):
		return "Error fetching data: the catalog could not be reached"
	case errors.Is(err, extract.ErrUnknownCategory), errors.Is(err, filler.ErrUnknownCategory):
		return "Unsupported category"
	case errors.Is(err, images.ErrCoverNotFound):
		return images.NotFoundMessage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request cancelled"
	default:
		return "Error fetching data: " + err.Error()
	}
}
