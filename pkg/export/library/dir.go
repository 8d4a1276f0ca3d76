package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
)

// Dir is an album directory. Saved images keep their file name.
type Dir struct {
	root   string
	logger *log.Logger
}

// NewDir creates the album at root, creating the directory if needed.
func NewDir(root string, logger *log.Logger) (*Dir, error) {
	if root == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "album directory cannot be empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create album %s", root)
	}
	return &Dir{root: root, logger: logger}, nil
}

// Root returns the album directory.
func (d *Dir) Root() string { return d.root }

// SaveToLibrary copies the file at path into the album.
// The copy is written to a temporary file and renamed into place.
func (d *Dir) SaveToLibrary(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	dst := filepath.Join(d.root, filepath.Base(path))
	if err := writeAtomic(dst, src); err != nil {
		return err
	}
	d.logger.Debug("saved to album", "path", dst)
	return nil
}

// List returns the album's file names, sorted.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeAtomic(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".save-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", dst, err)
	}
	return nil
}

var _ export.Library = (*Dir)(nil)
