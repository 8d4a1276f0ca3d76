package export

import (
	"context"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/errors"
)

// NativeCapture output parameters.
const (
	NativeHeight  = 440
	NativeQuality = 100
)

// Library is the device media library.
type Library interface {
	// SaveToLibrary persists the image at path. The file at path may be
	// removed as soon as SaveToLibrary returns.
	SaveToLibrary(ctx context.Context, path string) error
}

// LibraryFunc adapts a function to Library.
type LibraryFunc func(ctx context.Context, path string) error

// SaveToLibrary calls f.
func (f LibraryFunc) SaveToLibrary(ctx context.Context, path string) error {
	return f(ctx, path)
}

// NativeCapture rasterizes at NativeHeight pixels tall, writes a
// maximum-quality JPEG to a temporary file and saves it to a Library.
type NativeCapture struct {
	lib  Library
	opts options
}

// NewNativeCapture creates the native strategy.
func NewNativeCapture(lib Library, opts ...Option) *NativeCapture {
	return &NativeCapture{lib: lib, opts: buildOptions(opts)}
}

// Name implements Strategy.
func (n *NativeCapture) Name() string { return StrategyNative }

// Capture implements Strategy. The temporary file is removed on every path.
func (n *NativeCapture) Capture(ctx context.Context, target compose.Target) (*Artifact, error) {
	size := target.Size()
	w, h := scaledWidth(size.X, size.Y, NativeHeight), NativeHeight
	img, err := target.Rasterize(w, h)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "rasterize %dx%d", w, h)
	}

	id := uuid.NewString()
	name := id + ".jpg"
	dir := n.opts.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "create temp file")
	}
	defer os.Remove(path)

	err = imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(NativeQuality))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "encode jpeg")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "stat temp file")
	}

	n.opts.logger.Debug("saving to media library", "path", path, "bytes", info.Size())
	if err := n.lib.SaveToLibrary(ctx, path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "save to media library")
	}

	return &Artifact{
		ID:        id,
		Strategy:  n.Name(),
		Filename:  name,
		MIMEType:  MIMEJPEG,
		Width:     w,
		Height:    h,
		Size:      int(info.Size()),
		CreatedAt: n.opts.now(),
	}, nil
}

var _ Strategy = (*NativeCapture)(nil)
