package objectstore

import "errors"

var (
	// ErrObjectNotFound is returned when the locator resolves to nothing.
	ErrObjectNotFound = errors.New("objectstore: object not found")

	// ErrBucketMissing is returned at construction when the configured
	// bucket does not exist.
	ErrBucketMissing = errors.New("objectstore: bucket does not exist")
)
