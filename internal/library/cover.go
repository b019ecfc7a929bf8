package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"archive-viewer/internal/cache"
	"archive-viewer/internal/filesystem"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/media"
	"archive-viewer/internal/metrics"
	"archive-viewer/internal/provider"
	"archive-viewer/internal/workers"
)

// Cover is an encoded cover thumbnail.
type Cover struct {
	Data        []byte
	ContentType string
	// Cached is set when the cover came from the cache.
	Cached bool
}

// ErrNoImages is returned for items without a single image.
var ErrNoImages = errors.New("item has no images")

func (l *Library) lockCover(name string) func() {
	v, _ := l.coverMu.LoadOrStore(name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Cover returns the cover thumbnail of item name, generating and caching it
// when the cache has none for the item's current modification time.
func (l *Library) Cover(ctx context.Context, name string) (*Cover, error) {
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, &provider.Error{Code: provider.CodeOpen, Op: "cover", Entry: name, Err: err}
	}

	unlock := l.lockCover(name)
	defer unlock()

	if l.covers != nil {
		data, row, err := l.covers.Lookup(ctx, name, info.ModTime())
		switch {
		case err == nil:
			return &Cover{Data: data, ContentType: row.ContentType, Cached: true}, nil
		case !errors.Is(err, cache.ErrNotFound):
			logging.Warn("Cover cache lookup for %s failed: %v", name, err)
		}
	}

	data, err := l.render(ctx, name)
	if err != nil {
		return nil, err
	}
	contentType := l.thumbs.Options().Format.ContentType()

	if l.covers != nil {
		row := cache.CoverRow{Name: name, ModTime: info.ModTime(), ContentType: contentType}
		if _, err := l.covers.Store(ctx, row, data); err != nil {
			logging.Warn("Failed to cache cover of %s: %v", name, err)
		}
	}
	return &Cover{Data: data, ContentType: contentType}, nil
}

// render opens the item and thumbnails its cover page: the cover candidate
// of the first folder, in folder order, that holds any image.
func (l *Library) render(ctx context.Context, name string) ([]byte, error) {
	p, err := l.Open(ctx, name, "")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logging.Warn("Failed to close provider for %s: %v", name, err)
		}
	}()

	entry, err := coverEntry(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return l.thumbs.FromEntry(ctx, p, entry, media.TypeCover)
}

func coverEntry(ctx context.Context, p provider.Provider) (string, error) {
	folders, err := p.FolderEntries(ctx)
	if err != nil {
		return "", err
	}
	for _, folder := range folders {
		children, err := p.ChildEntries(ctx, folder)
		if err != nil {
			return "", err
		}
		if cover, ok := p.Filter().FindCoverPage(children); ok {
			return cover, nil
		}
	}
	return "", ErrNoImages
}

// WarmCovers makes sure every item has an up-to-date cached cover. Items
// whose cover fails are logged and skipped. It returns ctx.Err() when
// canceled.
func (l *Library) WarmCovers(ctx context.Context) error {
	items, err := l.Items(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	err = workers.Each(ctx, workers.ForIO(4), len(items), func(ctx context.Context, i int) {
		if l.gate != nil {
			if err := l.gate.Wait(ctx); err != nil {
				return
			}
		}
		_, err := l.Cover(ctx, items[i].Name)
		metrics.LibraryCoverWarmsTotal.WithLabelValues(metrics.Status(err)).Inc()
		if err != nil && ctx.Err() == nil {
			logging.Debug("Cover warm-up for %s failed: %v", items[i].Name, err)
		}
	})
	if err != nil {
		return err
	}

	if l.covers != nil {
		if rec, ok := l.covers.Rows().(interface {
			SetLastWarm(context.Context, time.Time) error
		}); ok {
			if err := rec.SetLastWarm(ctx, time.Now()); err != nil {
				logging.Warn("Failed to record cover warm-up: %v", err)
			}
		}
	}
	logging.Info("Warmed %d library covers in %v", len(items), time.Since(start))
	return nil
}
