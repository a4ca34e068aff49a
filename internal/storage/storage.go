package storage

import (
	"context"
	"time"
)

// Object is one listed remote object.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// ObjectStore is the S3-compatible surface used to mirror input snapshots
// and publish result files.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]Object, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}
