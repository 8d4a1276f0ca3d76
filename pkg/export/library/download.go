package library

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
)

// FileDownloader saves data-URI downloads into a directory, the way a
// browser saves to its downloads folder. Existing files are never
// overwritten; "name (1).ext", "name (2).ext" and so on are used instead.
type FileDownloader struct {
	dir    string
	logger *log.Logger

	// Saved receives the path of each completed download, if set.
	Saved func(path string)
}

// NewFileDownloader creates a downloader writing into dir.
func NewFileDownloader(dir string, logger *log.Logger) (*FileDownloader, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "download directory cannot be empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create downloads %s", dir)
	}
	return &FileDownloader{dir: dir, logger: logger}, nil
}

// Download decodes dataURI and writes it as filename.
func (d *FileDownloader) Download(ctx context.Context, filename, dataURI string) error {
	if err := errors.ValidateFilename(filename); err != nil {
		return err
	}
	data, err := export.DecodeDataURI(dataURI)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := d.claim(filename)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, bytes.NewReader(data)); err != nil {
		os.Remove(path)
		return err
	}
	d.logger.Debug("downloaded", "path", path, "bytes", len(data))
	if d.Saved != nil {
		d.Saved(path)
	}
	return nil
}

// claim reserves a free path for filename by creating it exclusively.
func (d *FileDownloader) claim(filename string) (string, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for i := 0; i < 1000; i++ {
		name := filename
		if i > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(d.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		f.Close()
		return path, nil
	}
	return "", fmt.Errorf("no free name for %s in %s", filename, d.dir)
}

var _ export.Downloader = (*FileDownloader)(nil)
