package provider

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"archive-viewer/internal/filter"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/metrics"
	"archive-viewer/internal/paths"
)

// Kind tags the provider variant.
type Kind int

const (
	KindArchive Kind = iota
	KindSevenZip
	KindPdf
	KindFileSystem
)

// String returns the label used in logs, metrics and the HTTP API.
func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindSevenZip:
		return "7z"
	case KindPdf:
		return "pdf"
	case KindFileSystem:
		return "filesystem"
	default:
		return "unknown"
	}
}

// Provider is a navigable image collection.
type Provider interface {
	Kind() Kind
	// Separator joins path components of entries.
	Separator() string
	Filter() filter.FileFilter

	// FolderEntries lists every folder, Root first, the rest in natural order.
	FolderEntries(ctx context.Context) ([]string, error)
	// ChildEntries lists the images directly inside folder in natural order.
	// An unknown folder yields an empty list and ErrEntryNotFound.
	ChildEntries(ctx context.Context, folder string) ([]string, error)
	// AllFileEntries concatenates ChildEntries over FolderEntries.
	AllFileEntries(ctx context.Context) ([]string, error)

	// OpenEntry streams one entry and suggests a file name for it.
	OpenEntry(ctx context.Context, entry string) (io.ReadCloser, string, error)
	// OpenEntryAt is OpenEntry with random access.
	OpenEntryAt(ctx context.Context, entry string) (io.ReadSeekCloser, string, error)

	// ParentEntry returns the folder containing entry.
	ParentEntry(entry string) string

	// Close releases the backing store. Later calls return nil; every other
	// method then fails with ErrDisposed.
	Close() error
}

// discovery holds the variant-specific enumeration functions.
type discovery struct {
	// folders lists folders in any order; Root is added if missing.
	folders func(ctx context.Context) ([]string, error)
	// children lists the images directly inside folder in any order.
	children func(ctx context.Context, folder string) ([]string, error)
	// all optionally lists the images of every folder in one pass, keyed by
	// folder. Used by AllFileEntries instead of per-folder children calls.
	all func(ctx context.Context) (map[string][]string, error)
	// anyFolder accepts folder arguments not in the folder list.
	anyFolder bool
}

// base implements the memoized listing half of Provider.
type base struct {
	kind   Kind
	sep    string
	filter filter.FileFilter
	hooks  discovery

	mu        sync.Mutex
	folders   []string
	folderSet map[string]struct{}
	children  map[string][]string
	all       []string

	closed atomic.Bool
}

func (b *base) init(kind Kind, sep string, f filter.FileFilter, hooks discovery) {
	b.kind = kind
	b.sep = sep
	b.filter = f
	b.hooks = hooks
	b.children = make(map[string][]string)
	metrics.ProvidersActive.WithLabelValues(kind.String()).Inc()
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Separator() string { return b.sep }

func (b *base) Filter() filter.FileFilter { return b.filter }

func (b *base) ParentEntry(entry string) string {
	return paths.Parent(entry, b.sep)
}

// check fails fast on a closed provider or a finished context.
func (b *base) check(ctx context.Context, op string) error {
	if b.closed.Load() {
		return &Error{Code: CodeDisposed, Op: op}
	}
	if err := ctx.Err(); err != nil {
		return wrap(CodeCanceled, op, "", err)
	}
	return nil
}

// markClosed reports whether this call performed the close.
func (b *base) markClosed() bool {
	if !b.closed.CompareAndSwap(false, true) {
		return false
	}
	metrics.ProvidersActive.WithLabelValues(b.kind.String()).Dec()
	return true
}

func (b *base) FolderEntries(ctx context.Context) ([]string, error) {
	if err := b.check(ctx, "folders"); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	folders, err := b.loadFolders(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(folders), nil
}

func (b *base) loadFolders(ctx context.Context) ([]string, error) {
	if b.folders != nil {
		metrics.ProviderDiscoveryCacheHits.WithLabelValues(b.kind.String(), "folders").Inc()
		return b.folders, nil
	}

	start := time.Now()
	found, err := b.hooks.folders(ctx)
	b.observeDiscovery("folders", start, err)
	if err != nil {
		return nil, wrap(CodeDiscovery, "folders", "", err)
	}

	set := make(map[string]struct{}, len(found)+1)
	folders := make([]string, 0, len(found)+1)
	for _, f := range append([]string{paths.Root}, found...) {
		if _, dup := set[f]; dup {
			continue
		}
		set[f] = struct{}{}
		folders = append(folders, f)
	}
	paths.SortFolders(folders)

	b.folders = folders
	b.folderSet = set
	logging.Debug("Discovered %d folders (%s provider)", len(folders), b.kind)
	return folders, nil
}

func (b *base) ChildEntries(ctx context.Context, folder string) ([]string, error) {
	if err := b.check(ctx, "children"); err != nil {
		return []string{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	children, err := b.loadChildren(ctx, folder)
	if err != nil {
		return []string{}, err
	}
	return slices.Clone(children), nil
}

func (b *base) loadChildren(ctx context.Context, folder string) ([]string, error) {
	if folder == "" {
		folder = paths.Root
	}
	if children, ok := b.children[folder]; ok {
		metrics.ProviderDiscoveryCacheHits.WithLabelValues(b.kind.String(), "children").Inc()
		return children, nil
	}

	if !b.hooks.anyFolder {
		if _, err := b.loadFolders(ctx); err != nil {
			return nil, err
		}
		if _, ok := b.folderSet[folder]; !ok {
			return nil, &Error{Code: CodeEntryNotFound, Op: "children", Entry: folder}
		}
	}

	start := time.Now()
	children, err := b.hooks.children(ctx, folder)
	b.observeDiscovery("children", start, err)
	if err != nil {
		return nil, wrap(CodeDiscovery, "children", folder, err)
	}
	if children == nil {
		children = []string{}
	}
	paths.Sort(children)

	b.children[folder] = children
	return children, nil
}

func (b *base) AllFileEntries(ctx context.Context) ([]string, error) {
	if err := b.check(ctx, "all"); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.all != nil {
		metrics.ProviderDiscoveryCacheHits.WithLabelValues(b.kind.String(), "all").Inc()
		return slices.Clone(b.all), nil
	}

	folders, err := b.loadFolders(ctx)
	if err != nil {
		return nil, err
	}

	if b.hooks.all != nil {
		if err := b.seedChildren(ctx, folders); err != nil {
			return nil, err
		}
	}

	all := make([]string, 0, len(folders))
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return nil, wrap(CodeCanceled, "all", folder, err)
		}
		children, err := b.loadChildren(ctx, folder)
		if err != nil {
			return nil, err
		}
		all = append(all, children...)
	}

	b.all = all
	logging.Debug("Discovered %d files in %d folders (%s provider)", len(all), len(folders), b.kind)
	return slices.Clone(all), nil
}

// seedChildren fills the per-folder cache from the single-pass hook.
func (b *base) seedChildren(ctx context.Context, folders []string) error {
	start := time.Now()
	groups, err := b.hooks.all(ctx)
	b.observeDiscovery("all", start, err)
	if err != nil {
		return wrap(CodeDiscovery, "all", "", err)
	}

	for _, folder := range folders {
		if _, ok := b.children[folder]; ok {
			continue
		}
		children := groups[folder]
		if children == nil {
			children = []string{}
		}
		paths.Sort(children)
		b.children[folder] = children
	}
	return nil
}

func (b *base) observeDiscovery(op string, start time.Time, err error) {
	kind := b.kind.String()
	metrics.ProviderDiscoveryTotal.WithLabelValues(kind, op, metrics.Status(err)).Inc()
	metrics.ProviderDiscoveryDuration.WithLabelValues(kind, op).Observe(time.Since(start).Seconds())
	if err != nil {
		logging.Warn("%s provider %s discovery failed: %v", kind, op, err)
	}
}

func (b *base) observeRead(start time.Time, n int64, err error) {
	kind := b.kind.String()
	metrics.ProviderReadsTotal.WithLabelValues(kind, metrics.Status(err)).Inc()
	metrics.ProviderReadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.ProviderReadBytes.WithLabelValues(kind).Add(float64(n))
	}
}

// memEntry serves an entry that was fully extracted into memory.
type memEntry struct {
	*bytes.Reader
}

func newMemEntry(data []byte) memEntry {
	return memEntry{bytes.NewReader(data)}
}

func (memEntry) Close() error { return nil }
