package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archive-viewer/internal/logging"
	"archive-viewer/internal/metrics"
)

// Covers combines a RowStore and a BlobStore into a cover cache.
type Covers struct {
	rows  RowStore
	blobs BlobStore
}

// NewCovers takes ownership of rows and blobs; Close closes both.
func NewCovers(rows RowStore, blobs BlobStore) *Covers {
	return &Covers{rows: rows, blobs: blobs}
}

// Rows returns the row store.
func (c *Covers) Rows() RowStore {
	return c.rows
}

// Lookup returns the cover of name if one was made from the item as of
// modTime. A missing row, an outdated row or a missing blob is reported as
// ErrNotFound.
func (c *Covers) Lookup(ctx context.Context, name string, modTime time.Time) ([]byte, *CoverRow, error) {
	row, err := c.rows.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		metrics.CoverCacheMisses.WithLabelValues("absent").Inc()
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	if !row.ModTime.Equal(modTime) {
		metrics.CoverCacheMisses.WithLabelValues("stale").Inc()
		logging.Debug("Cover of %s is stale (cached %v, item %v)", name, row.ModTime, modTime)
		return nil, row, ErrNotFound
	}

	data, err := c.blobs.Download(ctx, row.BlobID)
	if errors.Is(err, ErrNotFound) {
		metrics.CoverCacheMisses.WithLabelValues("blob_missing").Inc()
		return nil, row, ErrNotFound
	}
	if err != nil {
		return nil, row, err
	}

	metrics.CoverCacheHits.Inc()
	return data, row, nil
}

// Store saves data as the cover of row.Name. The blob is written before the
// row so a row never points at a missing blob it just described.
func (c *Covers) Store(ctx context.Context, row CoverRow, data []byte) (*CoverRow, error) {
	if row.Name == "" {
		return nil, errors.New("cover row has no name")
	}
	row.BlobID = BlobID(row.Name)
	row.UpdatedAt = time.Now()

	if err := c.blobs.Upload(ctx, row.BlobID, data); err != nil {
		return nil, fmt.Errorf("store cover blob for %s: %w", row.Name, err)
	}
	if err := c.rows.Put(ctx, &row); err != nil {
		return nil, fmt.Errorf("store cover row for %s: %w", row.Name, err)
	}
	return &row, nil
}

// Invalidate drops the cover of name.
func (c *Covers) Invalidate(ctx context.Context, name string) error {
	if err := c.rows.Delete(ctx, name); err != nil {
		return err
	}
	return c.blobs.Delete(ctx, BlobID(name))
}

// Close closes both stores.
func (c *Covers) Close() error {
	return errors.Join(c.rows.Close(), c.blobs.Close())
}
