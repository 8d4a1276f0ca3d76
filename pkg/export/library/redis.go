package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
)

// DefaultRedisPrefix is the key prefix used when none is configured.
const DefaultRedisPrefix = "stickersmash"

// Redis stores each image under "<prefix>:asset:<name>" and pushes the name
// onto the "<prefix>:album" list, both in one MULTI/EXEC transaction.
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger *log.Logger
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, prefix string, logger *log.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

// DialRedis connects to the server at url (redis://...) and pings it.
func DialRedis(ctx context.Context, url, prefix string, logger *log.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "connect to redis")
	}
	return NewRedis(client, prefix, logger), nil
}

// AssetKey returns the key an image named name is stored under.
func (r *Redis) AssetKey(name string) string {
	return fmt.Sprintf("%s:asset:%s", r.prefix, name)
}

// AlbumKey returns the key of the album list.
func (r *Redis) AlbumKey() string {
	return r.prefix + ":album"
}

// SaveToLibrary reads the file at path and stores it.
func (r *Redis) SaveToLibrary(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.AssetKey(name),
			"content_type", export.MIMEJPEG,
			"saved_at", time.Now().UTC().Format(time.RFC3339),
			"data", data)
		pipe.LPush(ctx, r.AlbumKey(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", name, err)
	}
	r.logger.Debug("saved to redis", "key", r.AssetKey(name), "bytes", len(data))
	return nil
}

// List returns album entries, most recent first.
func (r *Redis) List(ctx context.Context) ([]string, error) {
	return r.client.LRange(ctx, r.AlbumKey(), 0, -1).Result()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ export.Library = (*Redis)(nil)
