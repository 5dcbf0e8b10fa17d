// Package filestore defines the interface for object storage targets that
// exported result streams are written to.
//
// Callers depend only on this package, never on a specific provider package.
//
// Usage:
//
//	cfg, err := filestore.ConfigFromEnv(os.LookupEnv)
//	if err != nil { ... }
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	bucket, key, err := filestore.ParseObjectURL("s3://exports/orders.csv")
//	info, err := store.PutObject(ctx, bucket, key, r, filestore.PutOptions{Size: -1})
package filestore

import (
	"context"
	"io"
)

// Store is the interface all object storage providers implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// PutObject streams r into key inside bucket until r returns io.EOF.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (*ObjectInfo, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)
}
