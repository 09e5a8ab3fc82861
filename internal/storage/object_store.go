package storage

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported storage scheme")
	ErrInvalidURI        = errors.New("invalid object uri")
	ErrObjectNotFound    = errors.New("object not found")
)

// ObjectStore moves files between the local disk and a bucket addressed with
// scheme://bucket/key URIs.
type ObjectStore interface {
	// Download fetches the object at uri into destDir and returns the local path.
	Download(ctx context.Context, uri, destDir string) (string, error)

	// Upload stores the local file under key in the store's bucket and returns its URI.
	Upload(ctx context.Context, localPath, key string) (string, error)
}
