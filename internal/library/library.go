package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"archive-viewer/internal/cache"
	"archive-viewer/internal/filesystem"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/media"
	"archive-viewer/internal/metrics"
	"archive-viewer/internal/paths"
	"archive-viewer/internal/provider"
)

// ErrInvalidName is returned for item names that are not a direct child of
// the library directory.
var ErrInvalidName = errors.New("invalid library item name")

// Item is one top-level library entry.
type Item struct {
	Name    string    `json:"name"`
	Kind    string    `json:"kind"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Library serves items from one directory.
type Library struct {
	root   string
	covers *cache.Covers
	thumbs *media.Thumbnailer
	opts   provider.Options
	gate   media.Gate

	// coverMu serializes cover generation per item name.
	coverMu sync.Map

	mu     sync.RWMutex
	counts map[string]int
}

// New creates a Library over root. covers may be nil, in which case every
// cover is generated on request.
func New(root string, covers *cache.Covers, thumbs *media.Thumbnailer, opts provider.Options) *Library {
	return &Library{
		root:   root,
		covers: covers,
		thumbs: thumbs,
		opts:   opts,
		counts: make(map[string]int),
	}
}

// SetGate makes WarmCovers wait on g before each item.
func (l *Library) SetGate(g media.Gate) {
	l.gate = g
}

// Root returns the library directory.
func (l *Library) Root() string {
	return l.root
}

// Items lists the library in natural name order.
func (l *Library) Items(ctx context.Context) ([]Item, error) {
	start := time.Now()
	defer func() {
		metrics.LibraryScanDuration.Observe(time.Since(start).Seconds())
	}()

	entries, err := filesystem.ReadDirWithRetry(l.root, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("read library %s: %w", l.root, err)
	}

	items := make([]Item, 0, len(entries))
	counts := make(map[string]int)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, ok := l.toItem(e)
		if !ok {
			continue
		}
		items = append(items, item)
		counts[item.Kind]++
	}

	slices.SortFunc(items, func(a, b Item) int {
		return paths.Compare(a.Name, b.Name)
	})

	l.mu.Lock()
	l.counts = counts
	l.mu.Unlock()

	logging.Debug("Library scan found %d items in %v", len(items), time.Since(start))
	return items, nil
}

func (l *Library) toItem(e os.DirEntry) (Item, bool) {
	name := e.Name()
	if strings.HasPrefix(name, ".") {
		return Item{}, false
	}

	info, err := e.Info()
	if err != nil {
		logging.Debug("Skipping library entry %s: %v", name, err)
		return Item{}, false
	}

	item := Item{Name: name, ModTime: info.ModTime()}
	switch {
	case info.IsDir():
		item.Kind = provider.KindFileSystem.String()
	case info.Mode().IsRegular():
		kind, ok := provider.SupportedExtensions[strings.ToLower(filepath.Ext(name))]
		if !ok {
			return Item{}, false
		}
		item.Kind = kind.String()
		item.Size = info.Size()
	default:
		return Item{}, false
	}
	return item, true
}

// Path resolves an item name to its path on disk.
func (l *Library) Path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(l.root, name), nil
}

// Open opens the provider for item name.
func (l *Library) Open(ctx context.Context, name, password string) (provider.Provider, error) {
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	opts := l.opts
	opts.Password = password
	return provider.Open(ctx, path, opts)
}

// Counts returns the item count per kind from the last scan.
func (l *Library) Counts() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}
