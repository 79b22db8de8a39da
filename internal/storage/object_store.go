package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	// DownloadObject writes the object to filename, creating parent
	// directories as needed.
	DownloadObject(ctx context.Context, bucket, key, filename string) error

	// Location renders a human readable address of the object for logs.
	Location(bucket, key string) string
}
