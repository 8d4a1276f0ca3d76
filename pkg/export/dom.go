package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/errors"
)

// DOMCapture output parameters.
const (
	DOMWidth    = 320
	DOMHeight   = 440
	DOMQuality  = 95
	DOMFilename = "sticker-smash.jpeg"
)

const jpegDataURIPrefix = "data:" + MIMEJPEG + ";base64,"

// Downloader delivers a data URI to the user as a named file.
type Downloader interface {
	Download(ctx context.Context, filename, dataURI string) error
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(ctx context.Context, filename, dataURI string) error

// Download calls f.
func (f DownloaderFunc) Download(ctx context.Context, filename, dataURI string) error {
	return f(ctx, filename, dataURI)
}

// DOMCapture rasterizes at exactly DOMWidth×DOMHeight, encodes a JPEG data
// URI and triggers a download named DOMFilename.
type DOMCapture struct {
	dl   Downloader
	opts options
}

// NewDOMCapture creates the browser strategy.
func NewDOMCapture(dl Downloader, opts ...Option) *DOMCapture {
	return &DOMCapture{dl: dl, opts: buildOptions(opts)}
}

// Name implements Strategy.
func (d *DOMCapture) Name() string { return StrategyDOM }

// Capture implements Strategy.
func (d *DOMCapture) Capture(ctx context.Context, target compose.Target) (*Artifact, error) {
	img, err := target.Rasterize(DOMWidth, DOMHeight)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "rasterize %dx%d", DOMWidth, DOMHeight)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(DOMQuality)); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "encode jpeg")
	}
	uri := EncodeDataURI(buf.Bytes())

	if err := d.dl.Download(ctx, DOMFilename, uri); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExport, err, "download %s", DOMFilename)
	}
	d.opts.logger.Debug("triggered download", "file", DOMFilename, "bytes", buf.Len())

	return &Artifact{
		ID:        uuid.NewString(),
		Strategy:  d.Name(),
		Filename:  DOMFilename,
		MIMEType:  MIMEJPEG,
		Width:     DOMWidth,
		Height:    DOMHeight,
		Size:      buf.Len(),
		DataURI:   uri,
		CreatedAt: d.opts.now(),
	}, nil
}

// EncodeDataURI wraps JPEG bytes in a base64 data URI.
func EncodeDataURI(jpeg []byte) string {
	return jpegDataURIPrefix + base64.StdEncoding.EncodeToString(jpeg)
}

// DecodeDataURI extracts the JPEG bytes from a data URI produced by
// EncodeDataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	payload, ok := strings.CutPrefix(uri, jpegDataURIPrefix)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "not a base64 %s data URI", MIMEJPEG)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode data URI")
	}
	return data, nil
}

var _ Strategy = (*DOMCapture)(nil)
