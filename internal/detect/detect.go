// Package detect decodes 1D product barcodes with gozxing.
package detect

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"github.com/lehigh-university-libraries/catscan/internal/scanner"
)

// Format names follow the lowercase BarcodeDetector naming.
const (
	FormatEAN13   = "ean_13"
	FormatEAN8    = "ean_8"
	FormatUPCA    = "upc_a"
	FormatUPCE    = "upc_e"
	FormatCode128 = "code_128"
	FormatCode39  = "code_39"
)

var readerFactories = map[string]func() gozxing.Reader{
	FormatEAN13:   oned.NewEAN13Reader,
	FormatEAN8:    oned.NewEAN8Reader,
	FormatUPCA:    oned.NewUPCAReader,
	FormatUPCE:    oned.NewUPCEReader,
	FormatCode128: oned.NewCode128Reader,
	FormatCode39:  oned.NewCode39Reader,
}

// DefaultFormats are the symbologies printed on books, CDs and DVDs.
var DefaultFormats = []string{FormatEAN13, FormatEAN8, FormatUPCA, FormatCode128}

// Detector implements scanner.Detector over still frames.
type Detector struct {
	formats   []string
	tryHarder bool
}

// New creates a detector for formats, DefaultFormats when none are given.
func New(formats ...string) (*Detector, error) {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	seen := make(map[string]bool)
	var selected []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if _, ok := readerFactories[f]; !ok {
			return nil, fmt.Errorf("unsupported barcode format %q", f)
		}
		if !seen[f] {
			seen[f] = true
			selected = append(selected, f)
		}
	}
	return &Detector{formats: selected, tryHarder: true}, nil
}

// SupportedFormats lists the enabled symbologies.
func (d *Detector) SupportedFormats(ctx context.Context) ([]string, error) {
	return append([]string(nil), d.formats...), nil
}

// Detect returns one barcode per distinct value found in frame. A frame
// without a barcode is not an error.
func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]scanner.Barcode, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to binarize frame: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{}
	if d.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	bounds := frame.Bounds()
	seen := make(map[string]bool)
	var codes []scanner.Barcode
	for _, format := range d.formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := readerFactories[format]().Decode(bmp, hints)
		if err != nil || result == nil {
			continue
		}
		text := result.GetText()
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true

		codes = append(codes, scanner.Barcode{
			RawValue:     text,
			Format:       formatName(result.GetBarcodeFormat(), format),
			CornerPoints: Corners(result.GetResultPoints(), bounds),
		})
	}

	sort.SliceStable(codes, func(i, j int) bool {
		return codes[i].CornerPoints[0].X < codes[j].CornerPoints[0].X
	})
	return codes, nil
}

func formatName(f gozxing.BarcodeFormat, fallback string) string {
	name := strings.ToLower(f.String())
	if _, ok := readerFactories[name]; ok {
		return name
	}
	return fallback
}

// Corners turns the result points of a 1D decode into a clockwise
// quadrilateral starting top-left. 1D readers report points along the scan
// line only, so the box is given a height of a tenth of the frame.
func Corners(points []gozxing.ResultPoint, bounds image.Rectangle) [4]scanner.Point {
	if len(points) == 0 {
		return [4]scanner.Point{}
	}

	minX, maxX := points[0].GetX(), points[0].GetX()
	minY, maxY := points[0].GetY(), points[0].GetY()
	for _, p := range points[1:] {
		minX = min(minX, p.GetX())
		maxX = max(maxX, p.GetX())
		minY = min(minY, p.GetY())
		maxY = max(maxY, p.GetY())
	}

	half := float64(bounds.Dy()) / 20
	top := max(minY-half, float64(bounds.Min.Y))
	bottom := min(maxY+half, float64(bounds.Max.Y))

	return [4]scanner.Point{
		{X: minX, Y: top},
		{X: maxX, Y: top},
		{X: maxX, Y: bottom},
		{X: minX, Y: bottom},
	}
}
