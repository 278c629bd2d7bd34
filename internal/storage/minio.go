// Package storage archives the original bytes of uploaded documents in an
// S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bowerhall/studybuddy/internal/logger"
)

const DefaultBucket = "studybuddy-uploads"

// Client wraps a MinIO client bound to the uploads bucket.
type Client struct {
	mc     *minio.Client
	bucket string
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func NewClient(cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}

	return &Client{mc: mc, bucket: bucket}, nil
}

// Init creates the bucket if it doesn't exist.
func (c *Client) Init(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}

	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", c.bucket, err)
		}
		logger.Info("bucket created", "bucket", c.bucket)
	}

	return nil
}

type FileInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// ObjectKey names an upload as <session>/<uuid>-<file name>.
func ObjectKey(sessionID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == "_" || name == "" {
		name = "upload.pdf"
	}

	return sessionPrefix(sessionID) + uuid.NewString() + "-" + name
}

func sessionPrefix(sessionID string) string {
	return strings.ReplaceAll(sessionID, "/", "_") + "/"
}

// ArchiveUpload stores data for sessionID and returns its object key.
func (c *Client) ArchiveUpload(ctx context.Context, sessionID, fileName string, data []byte) (string, error) {
	key := ObjectKey(sessionID, fileName)

	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", c.bucket, key, err)
	}

	logger.Debug("upload archived", "bucket", c.bucket, "key", key, "size", len(data))
	return key, nil
}

func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c.bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", c.bucket, key, err)
	}

	return data, nil
}

// List returns the uploads archived for sessionID.
func (c *Client) List(ctx context.Context, sessionID string) ([]FileInfo, error) {
	var files []FileInfo

	opts := minio.ListObjectsOptions{Prefix: sessionPrefix(sessionID), Recursive: true}
	for obj := range c.mc.ListObjects(ctx, c.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", c.bucket, obj.Err)
		}
		files = append(files, FileInfo{Key: obj.Key, Size: obj.Size, ModTime: obj.LastModified})
	}

	return files, nil
}

// DeleteSession removes every upload archived for sessionID.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	files, err := c.List(ctx, sessionID)
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := c.mc.RemoveObject(ctx, c.bucket, f.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("delete %s/%s: %w", c.bucket, f.Key, err)
		}
	}
	return nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Healthy checks if MinIO is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.mc.BucketExists(ctx, c.bucket)
	return err == nil
}
