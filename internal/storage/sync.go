package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DownloadPrefix mirrors every object under prefix into dir, keeping the
// path below the prefix. Local copies with the object's size and
// modification time are left alone. It returns the local paths of all
// mirrored objects.
func DownloadPrefix(ctx context.Context, store ObjectStore, prefix, dir string) ([]string, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var (
		paths   []string
		fetched int
	)
	for _, obj := range objects {
		rel := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
		if rel == "" {
			continue
		}
		dest := filepath.Join(dir, filepath.FromSlash(rel))
		paths = append(paths, dest)
		if upToDate(dest, obj) {
			continue
		}

		if err := store.DownloadObject(ctx, obj.Key, dest); err != nil {
			return nil, err
		}
		if !obj.ModTime.IsZero() {
			if err := os.Chtimes(dest, obj.ModTime, obj.ModTime); err != nil {
				return nil, fmt.Errorf("failed to stamp %s: %w", dest, err)
			}
		}
		fetched++
	}

	log.Info().
		Str("prefix", prefix).
		Int("objects", len(paths)).
		Int("downloaded", fetched).
		Msg("storage: inputs mirrored")
	return paths, nil
}

func upToDate(localPath string, obj Object) bool {
	if obj.ModTime.IsZero() {
		return false
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return false
	}
	return info.Size() == obj.Size && info.ModTime().Equal(obj.ModTime)
}

// Uploader publishes local result files under a key prefix.
type Uploader struct {
	store  ObjectStore
	prefix string
}

// NewUploader returns an Uploader writing below prefix.
func NewUploader(store ObjectStore, prefix string) *Uploader {
	return &Uploader{store: store, prefix: prefix}
}

// Upload reads localPath and stores it as <prefix>/<base name>.
func (u *Uploader) Upload(ctx context.Context, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	key := path.Join(u.prefix, filepath.Base(localPath))
	return u.store.UploadObject(ctx, key, data)
}
