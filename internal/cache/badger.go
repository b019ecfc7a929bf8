package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archive-viewer/internal/logging"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const coverKeyPrefix = "cover:"

// BadgerBlobs is a BlobStore on a local Badger database.
type BadgerBlobs struct {
	db *badger.DB
}

// BadgerConfig configures OpenBadger.
type BadgerConfig struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// BlockCacheMB defaults to 32.
	BlockCacheMB int64
}

// OpenBadger opens or creates the blob database.
func OpenBadger(ctx context.Context, cfg BadgerConfig) (*BadgerBlobs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	blockCacheMB := cfg.BlockCacheMB
	if blockCacheMB == 0 {
		blockCacheMB = 32
	}
	opts = opts.
		WithLoggingLevel(badger.WARNING).
		// Thumbnails are already compressed images.
		WithCompression(options.None).
		WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.Dir, err)
	}
	logging.Info("Cover blob store opened (badger, in-memory=%v)", cfg.InMemory)
	return &BadgerBlobs{db: db}, nil
}

func coverKey(id string) []byte {
	return []byte(coverKeyPrefix + id)
}

// Upload implements BlobStore.
func (b *BadgerBlobs) Upload(ctx context.Context, id string, data []byte) (err error) {
	defer func(start time.Time) { observe("badger", "upload", start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(coverKey(id), data)
	})
}

// Download implements BlobStore.
func (b *BadgerBlobs) Download(ctx context.Context, id string) (data []byte, err error) {
	defer func(start time.Time) {
		if errors.Is(err, ErrNotFound) {
			observe("badger", "download", start, nil)
			return
		}
		observe("badger", "download", start, err)
	}(time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(coverKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete implements BlobStore.
func (b *BadgerBlobs) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("badger", "delete", start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(coverKey(id))
	})
}

// Close closes the database.
func (b *BadgerBlobs) Close() error {
	return b.db.Close()
}
