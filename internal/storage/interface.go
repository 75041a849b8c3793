package storage

import (
	"context"
	"time"
)

// ObjectInfo describes one stored object returned by List.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage is the bucket holding archived campaign documents. Objects are
// small JSON bodies, so they move as byte slices.
type ObjectStorage interface {
	// EnsureBucket creates the bucket when the backend allows it.
	EnsureBucket(ctx context.Context) error

	PutObject(ctx context.Context, key string, data []byte, contentType string) error

	// GetObject returns the object body. A missing key yields an error
	// matching domain.ErrNotFound.
	GetObject(ctx context.Context, key string) ([]byte, error)

	// List returns up to limit objects under prefix in key order.
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)

	// ObjectURL returns the path-style URL of key.
	ObjectURL(key string) string
}
