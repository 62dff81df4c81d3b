package objectstore

import (
	"context"
	"io"
)

// Client provides byte-exact get/put/delete on blob storage, plus a
// download-to-file helper for the conversion pipeline, which works on
// local paths.
//
// This interface is implemented by the concrete *MinioClient type.
type Client interface {
	// Get retrieves an object and returns its contents.
	Get(ctx context.Context, locator string) ([]byte, error)

	// Put uploads an object from the reader. size may be -1 when unknown.
	Put(ctx context.Context, locator string, reader io.Reader, size int64, contentType string) error

	// Delete removes an object.
	Delete(ctx context.Context, locator string) error

	// Download fetches an object into a temp file and returns the local
	// path. The caller owns the file and removes it when done.
	Download(ctx context.Context, locator string) (string, error)

	// Stat returns the object's size in bytes, or ErrObjectNotFound.
	Stat(ctx context.Context, locator string) (int64, error)
}
