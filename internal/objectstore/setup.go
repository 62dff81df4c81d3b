package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cisearch/ingest/internal/fault"
)

// MinioClient wraps the MinIO SDK with the pipeline's object operations.
// All operations are byte-exact: what was put is what is got.
type MinioClient struct {
	client *minio.Client
	cfg    Config
}

// NewClient creates a MinIO-backed object store client and verifies that
// the configured bucket exists.
//
// Example:
//
//	store, err := objectstore.NewClient(objectstore.NewConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
func NewClient(cfg Config) (*MinioClient, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := mc.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("objectstore: bucket check failed: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrBucketMissing, cfg.BucketName)
	}

	return &MinioClient{client: mc, cfg: cfg}, nil
}

// Get retrieves an object and returns its contents.
func (c *MinioClient) Get(ctx context.Context, locator string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, c.cfg.BucketName, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.translate(locator, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, c.translate(locator, err)
	}
	return data, nil
}

// Put uploads an object from the reader. size may be -1 when unknown,
// in which case the SDK streams with multipart under the hood.
func (c *MinioClient) Put(ctx context.Context, locator string, reader io.Reader, size int64, contentType string) error {
	_, err := c.client.PutObject(ctx, c.cfg.BucketName, locator, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return c.translate(locator, err)
	}
	return nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (c *MinioClient) Delete(ctx context.Context, locator string) error {
	if err := c.client.RemoveObject(ctx, c.cfg.BucketName, locator, minio.RemoveObjectOptions{}); err != nil {
		return c.translate(locator, err)
	}
	return nil
}

// Download fetches an object into a temp file and returns the local path.
// The caller owns the file and removes it when done.
func (c *MinioClient) Download(ctx context.Context, locator string) (string, error) {
	dir := c.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	f, err := os.CreateTemp(dir, "ingest-*"+filepath.Ext(locator))
	if err != nil {
		return "", fault.New(fault.Transient, "downloading", err)
	}
	path := f.Name()
	f.Close()

	if err := c.client.FGetObject(ctx, c.cfg.BucketName, locator, path, minio.GetObjectOptions{}); err != nil {
		os.Remove(path)
		return "", c.translate(locator, err)
	}
	return path, nil
}

// Stat returns the object's size in bytes.
func (c *MinioClient) Stat(ctx context.Context, locator string) (int64, error) {
	info, err := c.client.StatObject(ctx, c.cfg.BucketName, locator, minio.StatObjectOptions{})
	if err != nil {
		return 0, c.translate(locator, err)
	}
	return info.Size, nil
}

// translate converts MinIO SDK errors into the pipeline's fault taxonomy.
// Missing objects are terminal for the work item that references them;
// everything else from the store is assumed transient.
func (c *MinioClient) translate(locator string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return fault.New(fault.Invalid, "downloading", errors.Join(ErrObjectNotFound, err)).WithLocator(locator)
	}
	return fault.New(fault.Transient, "downloading", err).WithLocator(locator)
}
