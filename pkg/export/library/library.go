// Package library provides media-library backends for native exports and a
// file downloader for the web runtime.
//
// Backends:
//
//   - [Dir]: an album directory on the local filesystem (the default)
//   - [Redis]: image bytes stored under a key, ids appended to an album list
//   - [Mongo]: images uploaded to a GridFS bucket
//
// [Open] builds the backend named in configuration.
package library

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
)

// Backend names accepted by Open.
const (
	BackendDir   = "dir"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// ValidBackends is the set of supported backends.
var ValidBackends = map[string]bool{
	BackendDir:   true,
	BackendRedis: true,
	BackendMongo: true,
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Dir is the album directory for BackendDir.
	Dir string
	// URL is the connection URL for BackendRedis and BackendMongo.
	URL string
	// Database is the MongoDB database name.
	Database string
	// Name is the Redis key prefix or the GridFS bucket name.
	Name string
}

// Open connects the configured backend. The returned closer releases any
// connection and is never nil.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (export.Library, io.Closer, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch cfg.Backend {
	case BackendDir, "":
		lib, err := NewDir(cfg.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return lib, nopCloser{}, nil
	case BackendRedis:
		lib, err := DialRedis(ctx, cfg.URL, cfg.Name, logger)
		if err != nil {
			return nil, nil, err
		}
		return lib, lib, nil
	case BackendMongo:
		lib, err := DialMongo(ctx, cfg.URL, cfg.Database, cfg.Name, logger)
		if err != nil {
			return nil, nil, err
		}
		return lib, lib, nil
	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig,
			"invalid library backend: %q (must be one of: dir, redis, mongo)", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
