package errors

import (
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateImagePath validates a local image path handed in by a picker or a flag.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
//   - Extension must be a raster format the decoder understands
func ValidateImagePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "image path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "image path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "image path contains invalid characters")
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !imageExtensions[ext] {
		return New(ErrCodeInvalidImage, "unsupported image type %q (want jpeg, png, gif, bmp or tiff)", ext)
	}
	return nil
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// ValidateFilename validates a download filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidInput, "filename cannot be empty")
	}
	if strings.ContainsAny(filename, "/\\\x00") {
		return New(ErrCodeInvalidInput, "filename cannot contain path separators")
	}
	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidInput, "filename cannot be a hidden file")
	}
	return nil
}

// ValidateCoordinates checks that a latitude/longitude pair is on the globe.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return New(ErrCodeInvalidInput, "coordinates must be numbers")
	}
	if lat < -90 || lat > 90 {
		return New(ErrCodeInvalidInput, "latitude %.6f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return New(ErrCodeInvalidInput, "longitude %.6f out of range [-180, 180]", lon)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
