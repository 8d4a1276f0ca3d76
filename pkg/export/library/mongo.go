package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
)

// Mongo defaults.
const (
	DefaultMongoDatabase = "stickersmash"
	DefaultMongoBucket   = "album"
)

// Mongo uploads images to a GridFS bucket.
type Mongo struct {
	client *mongo.Client
	bucket *gridfs.Bucket
	logger *log.Logger
}

// NewMongo uses the named bucket in db. client may be nil when the caller
// owns the connection.
func NewMongo(client *mongo.Client, db *mongo.Database, bucket string, logger *log.Logger) (*Mongo, error) {
	if bucket == "" {
		bucket = DefaultMongoBucket
	}
	if logger == nil {
		logger = log.Default()
	}
	b, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucket))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open gridfs bucket %s", bucket)
	}
	return &Mongo{client: client, bucket: b, logger: logger}, nil
}

// DialMongo connects to uri (mongodb://...) and opens the bucket.
func DialMongo(ctx context.Context, uri, database, bucket string, logger *log.Logger) (*Mongo, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "ping mongo")
	}
	m, err := NewMongo(client, client.Database(database), bucket, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// SaveToLibrary streams the file at path into the bucket.
func (m *Mongo) SaveToLibrary(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := m.bucket.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}

	name := filepath.Base(path)
	meta := bson.D{
		{Key: "contentType", Value: export.MIMEJPEG},
		{Key: "savedAt", Value: time.Now().UTC()},
	}
	id, err := m.bucket.UploadFromStream(name, f, options.GridFSUpload().SetMetadata(meta))
	if err != nil {
		return fmt.Errorf("gridfs upload %s: %w", name, err)
	}
	m.logger.Debug("saved to gridfs", "file", name, "id", id.Hex())
	return nil
}

// Close disconnects the client if this library opened it.
func (m *Mongo) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(context.Background())
}

var _ export.Library = (*Mongo)(nil)
