// Package storage persists finished artifacts and mints time-limited retrieval URLs.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the durable artifact store
type ObjectStore interface {
	// Upload stores the contents of r under name and returns the stored object's identifier.
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	// SignedURL returns a URL granting read access to objectID until ttl elapses.
	SignedURL(ctx context.Context, objectID string, ttl time.Duration) (string, error)
	Close() error
}
