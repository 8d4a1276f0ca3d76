// Package compose holds the composition surface: a base photo plus at most
// one sticker, rendered off-screen on demand.
//
// The surface is the single owner of the composition. Its base image and
// overlay are replaced wholesale, never edited in place, and [Surface.Target]
// hands out an immutable snapshot so a capture always reflects exactly what
// was on the surface when the capture was requested.
package compose

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"github.com/matzehuels/stickersmash/pkg/errors"
)

// Default surface geometry, in logical pixels.
const (
	DefaultWidth       = 320
	DefaultHeight      = 440
	DefaultStickerSize = 40

	// stickerTop is the sticker's default distance from the top edge on a
	// DefaultHeight surface; it scales with the surface height.
	stickerTop = 90
)

// DefaultSize is the default surface size.
var DefaultSize = image.Pt(DefaultWidth, DefaultHeight)

// StickerPlacement is the active sticker.
type StickerPlacement struct {
	Source ImageRef
	// Size is the sticker's bounding box edge in surface pixels.
	Size int
	// Offset is the translation applied by the external sticker view,
	// relative to the default anchor (horizontally centered, near the top).
	Offset image.Point
}

// NewPlacement returns a placement of src at the default size and anchor.
func NewPlacement(src ImageRef) StickerPlacement {
	return StickerPlacement{Source: src, Size: DefaultStickerSize}
}

func (p StickerPlacement) validate() error {
	if !p.Source.Valid() {
		return errors.New(errors.ErrCodeInvalidImage, "sticker image is empty")
	}
	if p.Size <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "sticker size must be positive, got %d", p.Size)
	}
	return nil
}

// Target is a capturable handle: a frozen view of the composition.
type Target interface {
	// Size is the surface size the composition was laid out at.
	Size() image.Point
	// Rasterize draws the composition scaled to w×h pixels.
	Rasterize(w, h int) (*image.NRGBA, error)
}

// Surface is an addressable composition region.
type Surface struct {
	mu      sync.RWMutex
	size    image.Point
	base    ImageRef
	overlay *StickerPlacement
	mounted bool
}

// NewSurface creates an unmounted surface of the given size showing base.
func NewSurface(size image.Point, base ImageRef) (*Surface, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "surface size must be positive, got %v", size)
	}
	if !base.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidImage, "surface base image is empty")
	}
	return &Surface{size: size, base: base}, nil
}

// Mount makes the surface capturable.
func (s *Surface) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = true
}

// Unmount makes the surface non-capturable again.
func (s *Surface) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = false
}

// Mounted reports whether the surface is mounted.
func (s *Surface) Mounted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

// Size returns the surface size.
func (s *Surface) Size() image.Point {
	return s.size
}

// SetBaseImage replaces the base image. The overlay is kept.
func (s *Surface) SetBaseImage(ref ImageRef) error {
	if !ref.Valid() {
		return errors.New(errors.ErrCodeInvalidImage, "base image is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = ref
	return nil
}

// SetOverlay replaces the sticker. Nil clears it.
func (s *Surface) SetOverlay(p *StickerPlacement) error {
	if p != nil {
		if err := p.validate(); err != nil {
			return err
		}
		cp := *p
		p = &cp
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay = p
	return nil
}

// Base returns the current base image.
func (s *Surface) Base() ImageRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// Overlay returns a copy of the current sticker, or nil.
func (s *Surface) Overlay() *StickerPlacement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.overlay == nil {
		return nil
	}
	cp := *s.overlay
	return &cp
}

// Target returns a snapshot of the current composition, or nil while the
// surface is not mounted.
func (s *Surface) Target() Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.mounted {
		return nil
	}
	snap := &snapshot{size: s.size, base: s.base}
	if s.overlay != nil {
		cp := *s.overlay
		snap.overlay = &cp
	}
	return snap
}

// snapshot is the immutable Target handed out by Surface.
type snapshot struct {
	size    image.Point
	base    ImageRef
	overlay *StickerPlacement
}

func (s *snapshot) Size() image.Point { return s.size }

func (s *snapshot) Rasterize(w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "raster size must be positive, got %dx%d", w, h)
	}
	if !s.base.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidImage, "composition has no base image")
	}

	canvas := imaging.Fill(s.base.Image(), s.size.X, s.size.Y, imaging.Center, imaging.Lanczos)
	if s.overlay != nil {
		sticker := fitSquare(s.overlay.Source.Image(), s.overlay.Size)
		canvas = imaging.Overlay(canvas, sticker, s.anchor(sticker.Bounds().Size()).Add(s.overlay.Offset), 1.0)
	}

	if w == s.size.X && h == s.size.Y {
		return canvas, nil
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
	return out, nil
}

// anchor is the sticker's default top-left corner.
func (s *snapshot) anchor(sticker image.Point) image.Point {
	return image.Pt((s.size.X-sticker.X)/2, stickerTop*s.size.Y/DefaultHeight)
}

// fitSquare scales img so its longer side equals edge.
func fitSquare(img image.Image, edge int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, edge, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, edge, imaging.Lanczos)
}
