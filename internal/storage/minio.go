package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// Config encapsulates the connection info for an S3-compatible bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// Prefix is prepended to every key, e.g. "restock/".
	Prefix string
}

// Validate reports the first missing setting.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("storage endpoint must be provided")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("storage credentials must be provided")
	}
	if c.Bucket == "" {
		return fmt.Errorf("storage bucket must be provided")
	}
	return nil
}

// endpointHost strips any scheme from the endpoint; minio-go wants host[:port].
// An explicit scheme overrides UseSSL.
func (c Config) endpointHost() (string, bool) {
	endpoint := strings.TrimSuffix(strings.TrimSpace(c.Endpoint), "/")
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	}
	return strings.TrimPrefix(endpoint, "//"), c.UseSSL
}

// Key joins the configured prefix and name into an object key.
func (c Config) Key(name string) string {
	if c.Prefix == "" {
		return name
	}
	return path.Join(c.Prefix, name)
}

// Client implements ObjectStore on top of minio-go.
type Client struct {
	mc     *minio.Client
	bucket string
	cfg    Config
}

// NewClient builds a Client for any S3-compatible service.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	host, secure := cfg.endpointHost()

	mc, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Client{mc: mc, bucket: cfg.Bucket, cfg: cfg}, nil
}

// Config returns the settings the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// ListObjects returns every object under prefix.
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		objects = append(objects, Object{Key: obj.Key, Size: obj.Size, ModTime: obj.LastModified})
	}
	return objects, nil
}

// DownloadObject stores the object at destPath, creating parent directories.
func (c *Client) DownloadObject(ctx context.Context, key string, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create download dir: %w", err)
	}
	if err := c.mc.FGetObject(ctx, c.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	return nil
}

// UploadObject writes data under key.
func (c *Client) UploadObject(ctx context.Context, key string, data []byte) error {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Debug().Str("key", key).Int64("size", info.Size).Msg("storage: object uploaded")
	return nil
}

var _ ObjectStore = (*Client)(nil)
