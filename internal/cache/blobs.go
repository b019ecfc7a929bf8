package cache

import "context"

// BlobStore keeps encoded cover images by blob id.
type BlobStore interface {
	Upload(ctx context.Context, id string, data []byte) error
	// Download returns the blob or ErrNotFound.
	Download(ctx context.Context, id string) ([]byte, error)
	// Delete removes the blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}
