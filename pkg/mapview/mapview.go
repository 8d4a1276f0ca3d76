// Package mapview describes and renders the map shown once a location fix is
// ready: a fixed-span region centered on the fix with a single marker.
package mapview

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/matzehuels/stickersmash/pkg/geo"
)

// Region span around the fix, in degrees.
const (
	LatitudeDelta  = 0.0922
	LongitudeDelta = 0.0421
)

// MarkerTitle labels the user's position.
const MarkerTitle = "You are here"

// Region is the visible map area.
type Region struct {
	Center         geo.Coordinate `json:"center"`
	LatitudeDelta  float64        `json:"latitude_delta"`
	LongitudeDelta float64        `json:"longitude_delta"`
}

// Marker is a titled pin.
type Marker struct {
	Coordinate  geo.Coordinate `json:"coordinate"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
}

// View is everything needed to draw the map.
type View struct {
	Region  Region   `json:"region"`
	Markers []Marker `json:"markers"`
}

// RegionFor centers the standard span on fix.
func RegionFor(fix geo.Fix) Region {
	return Region{
		Center:         fix.Coordinate(),
		LatitudeDelta:  LatitudeDelta,
		LongitudeDelta: LongitudeDelta,
	}
}

// ForFix returns the view for fix: its region and one marker at the fix.
func ForFix(fix geo.Fix) View {
	return View{
		Region: RegionFor(fix),
		Markers: []Marker{{
			Coordinate:  fix.Coordinate(),
			Title:       MarkerTitle,
			Description: fix.Coordinate().String(),
		}},
	}
}

// Bounds returns the south-west and north-east corners.
func (r Region) Bounds() (sw, ne geo.Coordinate) {
	sw = geo.Coordinate{Latitude: r.Center.Latitude - r.LatitudeDelta/2, Longitude: r.Center.Longitude - r.LongitudeDelta/2}
	ne = geo.Coordinate{Latitude: r.Center.Latitude + r.LatitudeDelta/2, Longitude: r.Center.Longitude + r.LongitudeDelta/2}
	return sw, ne
}

// Zoom is the web-map zoom level whose tile span best matches the region.
func (r Region) Zoom() int {
	if r.LongitudeDelta <= 0 {
		return 0
	}
	z := int(math.Round(math.Log2(360 / r.LongitudeDelta)))
	return max(0, min(z, 19))
}

// URL links to the region on openstreetmap.org with the marker dropped at
// the center.
func (r Region) URL() string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=%d/%.6f/%.6f",
		r.Center.Latitude, r.Center.Longitude, r.Zoom(), r.Center.Latitude, r.Center.Longitude)
}

// =============================================================================
// Rendering
// =============================================================================

var (
	landColor   = color.NRGBA{R: 0xEE, G: 0xF0, B: 0xE8, A: 0xFF}
	gridColor   = color.NRGBA{R: 0xC8, G: 0xCC, B: 0xC0, A: 0xFF}
	markerColor = color.NRGBA{R: 0xE5, G: 0x39, B: 0x35, A: 0xFF}
	textColor   = color.NRGBA{R: 0x25, G: 0x29, B: 0x2E, A: 0xFF}
)

// gridLines is the number of graticule divisions per axis.
const gridLines = 8

// Render draws v as a schematic w×h map: a graticule, the markers and their
// titles, and the center coordinate along the bottom edge.
func Render(v View, w, h int) *gg.Context {
	dc := gg.NewContext(w, h)
	dc.SetColor(landColor)
	dc.Clear()

	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for i := 1; i < gridLines; i++ {
		x := float64(w) * float64(i) / gridLines
		y := float64(h) * float64(i) / gridLines
		dc.DrawLine(x, 0, x, float64(h))
		dc.DrawLine(0, y, float64(w), y)
	}
	dc.Stroke()

	for _, m := range v.Markers {
		x, y, ok := project(v.Region, m.Coordinate, w, h)
		if !ok {
			continue
		}
		dc.SetColor(color.White)
		dc.DrawCircle(x, y, 9)
		dc.Fill()
		dc.SetColor(markerColor)
		dc.DrawCircle(x, y, 7)
		dc.Fill()

		if m.Title != "" {
			dc.SetColor(textColor)
			dc.DrawStringAnchored(m.Title, x, y-14, 0.5, 0)
		}
	}

	dc.SetColor(textColor)
	dc.DrawStringAnchored(v.Region.Center.String(), float64(w)/2, float64(h)-6, 0.5, 0)
	return dc
}

// WritePNG renders v and writes it to out as PNG.
func WritePNG(out io.Writer, v View, w, h int) error {
	return Render(v, w, h).EncodePNG(out)
}

// project maps c into pixel space. ok is false outside the region.
func project(r Region, c geo.Coordinate, w, h int) (x, y float64, ok bool) {
	if r.LatitudeDelta <= 0 || r.LongitudeDelta <= 0 {
		return 0, 0, false
	}
	sw, ne := r.Bounds()
	if c.Latitude < sw.Latitude || c.Latitude > ne.Latitude ||
		c.Longitude < sw.Longitude || c.Longitude > ne.Longitude {
		return 0, 0, false
	}
	x = (c.Longitude - sw.Longitude) / r.LongitudeDelta * float64(w)
	y = (ne.Latitude - c.Latitude) / r.LatitudeDelta * float64(h)
	return x, y, true
}
