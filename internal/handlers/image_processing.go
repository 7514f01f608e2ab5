package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/lehigh-university-libraries/catscan/internal/scanner"
)

type FrameResult struct {
	Filename string
	Format   string
	Width    int
	Height   int
	Codes    []scanner.Barcode
}

func (h *Handler) processFrame(ctx context.Context, fileData []byte, filename string) (*FrameResult, error) {
	img, format, err := image.Decode(bytes.NewReader(fileData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	codes, err := h.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to detect barcodes: %w", err)
	}

	bounds := img.Bounds()
	slog.Debug("Frame processed", "filename", filename, "format", format, "codes", len(codes))

	return &FrameResult{
		Filename: filename,
		Format:   format,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Codes:    codes,
	}, nil
}
