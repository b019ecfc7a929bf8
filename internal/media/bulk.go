package media

import (
	"context"
	"errors"
	"time"

	"archive-viewer/internal/logging"
	"archive-viewer/internal/metrics"
	"archive-viewer/internal/provider"
	"archive-viewer/internal/workers"
)

// Thumbnail is one result of LoadThumbnails.
type Thumbnail struct {
	Entry string `json:"entry"`
	Data  []byte `json:"data"`
	// Placeholder is set when Data is the placeholder image; Err then holds
	// the read or decode failure.
	Placeholder bool  `json:"placeholder"`
	Err         error `json:"-"`
}

// Gate delays bulk work, e.g. while memory is tight. Wait returns an error
// only when ctx ends first.
type Gate interface {
	Wait(ctx context.Context) error
}

// LoadOptions configures LoadThumbnails.
type LoadOptions struct {
	// Workers bounds concurrent entries. Zero sizes the pool for mixed work.
	Workers int
	// OnResult, if set, is called as each thumbnail completes, from the
	// worker goroutines.
	OnResult func(Thumbnail)
	// Gate, if set, is waited on before each entry.
	Gate Gate
}

// LoadThumbnails renders thumbnails for entries, in entry order. A failed
// entry yields the placeholder instead of an error. Cancellation is checked
// before each entry; once ctx is done no new entry starts and the call
// returns an error matching provider.ErrCanceled.
func LoadThumbnails(ctx context.Context, p provider.Provider, entries []string, t *Thumbnailer, opts LoadOptions) ([]Thumbnail, error) {
	n := opts.Workers
	if n <= 0 {
		n = workers.ForMixed(8)
	}

	start := time.Now()
	results := make([]Thumbnail, len(entries))
	err := workers.Each(ctx, n, len(entries), func(ctx context.Context, i int) {
		if ctx.Err() != nil {
			return
		}
		if opts.Gate != nil {
			if err := opts.Gate.Wait(ctx); err != nil {
				return
			}
		}
		th := Thumbnail{Entry: entries[i]}
		data, err := t.FromEntry(ctx, p, entries[i], TypeEntry)
		switch {
		case err == nil:
			th.Data = data
		case ctx.Err() != nil || errors.Is(err, provider.ErrCanceled):
			return
		default:
			logging.Debug("Placeholder for %s: %v", entries[i], err)
			th.Data = t.Placeholder()
			th.Placeholder = true
			th.Err = err
		}
		results[i] = th
		if opts.OnResult != nil {
			opts.OnResult(th)
		}
	})
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		metrics.ThumbnailBatchesTotal.WithLabelValues("canceled").Inc()
		logging.Debug("Thumbnail batch canceled after %v", time.Since(start))
		return nil, &provider.Error{Code: provider.CodeCanceled, Op: "thumbnails", Err: err}
	}

	metrics.ThumbnailBatchesTotal.WithLabelValues("complete").Inc()
	logging.Debug("Loaded %d thumbnails in %v", len(entries), time.Since(start))
	return results, nil
}
