package compose

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/stickersmash/pkg/errors"
)

// ImageRef is a handle to a decoded image and the URI it came from.
// The zero value is invalid.
type ImageRef struct {
	URI string
	img image.Image
}

// Load decodes the image at path, honoring EXIF orientation.
func Load(path string) (ImageRef, error) {
	if err := errors.ValidateImagePath(path); err != nil {
		return ImageRef{}, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return ImageRef{}, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode %s", path)
	}
	return FromImage(path, img), nil
}

// FromImage wraps an already decoded image.
func FromImage(uri string, img image.Image) ImageRef {
	return ImageRef{URI: uri, img: img}
}

// Valid reports whether the handle references a non-empty image.
func (r ImageRef) Valid() bool {
	return r.img != nil && !r.img.Bounds().Empty()
}

// Image returns the decoded image.
func (r ImageRef) Image() image.Image {
	return r.img
}

// Placeholder returns the built-in background shown before a photo is picked.
func Placeholder(size image.Point) ImageRef {
	top := color.NRGBA{R: 0x46, G: 0x30, B: 0xEB, A: 0xFF}
	bottom := color.NRGBA{R: 0x25, G: 0x29, B: 0x2E, A: 0xFF}

	img := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		t := float64(y) / float64(max(size.Y-1, 1))
		c := color.NRGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 0xFF,
		}
		for x := 0; x < size.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return FromImage("placeholder:background", img)
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
