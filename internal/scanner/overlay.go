package scanner

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// Region is one detected barcode drawn on the overlay.
type Region struct {
	Points [4]Point `json:"points"`
	Value  string   `json:"value"`
	Format string   `json:"format,omitempty"`
}

// LabelPosition is where the value is written: the first corner.
func (r Region) LabelPosition() Point {
	return r.Points[0]
}

// PointsAttr renders the corners as an SVG points list, in detection order.
func (r Region) PointsAttr() string {
	parts := make([]string, 0, len(r.Points))
	for _, p := range r.Points {
		parts = append(parts, formatCoord(p.X)+","+formatCoord(p.Y))
	}
	return strings.Join(parts, " ")
}

// Overlay is the drawing laid over the video surface in debug mode.
type Overlay struct {
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Regions []Region `json:"regions"`
}

// NewOverlay builds the overlay of one detection pass.
func NewOverlay(width, height int, codes []Barcode) Overlay {
	o := Overlay{Width: width, Height: height, Regions: make([]Region, 0, len(codes))}
	for _, c := range codes {
		o.Regions = append(o.Regions, Region{Points: c.CornerPoints, Value: c.RawValue, Format: c.Format})
	}
	return o
}

// ViewBox matches the overlay coordinates to the video size.
func (o Overlay) ViewBox() string {
	return fmt.Sprintf("0 0 %d %d", o.Width, o.Height)
}

// SVG renders the overlay as a standalone SVG document.
func (o Overlay) SVG() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="js-polygon" viewBox="%s">`, o.ViewBox())
	for _, r := range o.Regions {
		label := r.LabelPosition()
		fmt.Fprintf(&b, `<polygon class="barcode-polygon" points="%s"/>`, r.PointsAttr())
		fmt.Fprintf(&b, `<text x="%s" y="%s" fill="red" font-size="20">%s</text>`,
			formatCoord(label.X), formatCoord(label.Y), html.EscapeString(r.Value))
	}
	b.WriteString("</svg>")
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
