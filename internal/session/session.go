package session

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"slices"
	"sync"

	"archive-viewer/internal/logging"
	"archive-viewer/internal/metrics"
	"archive-viewer/internal/paths"
	"archive-viewer/internal/provider"
)

var (
	// ErrNoProvider is returned by navigation calls before a provider is set.
	ErrNoProvider = errors.New("session: no provider")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session: closed")
)

// ChangeKind says what an Event reports.
type ChangeKind int

const (
	// ProviderChanged is sent after a successful SetProvider.
	ProviderChanged ChangeKind = iota
	// EntryChanged is sent when the current entry moves.
	EntryChanged
)

// Event describes a state change.
type Event struct {
	Kind     ChangeKind
	Provider provider.Provider
	Entry    string
	Folder   string
}

// State is a point-in-time copy of the session for reporting.
type State struct {
	Source        string `json:"source"`
	Kind          string `json:"kind"`
	CurrentEntry  string `json:"currentEntry"`
	CurrentFolder string `json:"currentFolder"`
	Files         int    `json:"files"`
	Folders       int    `json:"folders"`
}

// Option configures a Session.
type Option func(*Session)

// WithRandom replaces the source of random indexes used by Advance. intn
// must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Session) {
		s.intn = intn
	}
}

// Session holds the active provider, the current entry and folder, and the
// flattened listings of the provider.
type Session struct {
	mu            sync.RWMutex
	provider      provider.Provider
	source        string
	currentEntry  string
	currentFolder string
	files         []string
	folders       []string
	closed        bool

	intn func(n int) int

	listenersMu sync.Mutex
	listeners   []func(Event)
}

// New creates an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		currentFolder: paths.Root,
		intn:          rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to be called after every state change.
func (s *Session) OnChange(fn func(Event)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) notify(ev Event) {
	s.listenersMu.Lock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Open opens path with provider.Open and makes it the active provider. The
// new provider is closed if the swap fails.
func (s *Session) Open(ctx context.Context, path string, opts provider.Options) error {
	p, err := provider.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	return s.Adopt(ctx, p, path)
}

// Adopt is SetProvider for a provider the session takes ownership of: p is
// closed if the swap fails. source names p in Snapshot.
func (s *Session) Adopt(ctx context.Context, p provider.Provider, source string) error {
	if err := s.setProvider(ctx, p, source); err != nil {
		if p != nil {
			if closeErr := p.Close(); closeErr != nil {
				logging.Warn("Failed to close rejected provider for %s: %v", source, closeErr)
			}
		}
		return err
	}
	return nil
}

// SetProvider lists every file and folder of p and, if that succeeds, makes
// p the active provider and closes the previous one. The current entry
// resets to the first file. On failure the session is unchanged and p is
// left open for the caller to close.
func (s *Session) SetProvider(ctx context.Context, p provider.Provider) error {
	return s.setProvider(ctx, p, "")
}

func (s *Session) setProvider(ctx context.Context, p provider.Provider, source string) error {
	if p == nil {
		return errors.New("session: nil provider")
	}

	files, folders, err := list(ctx, p)
	if err != nil {
		metrics.SessionSwapsTotal.WithLabelValues("error").Inc()
		logging.Warn("Provider swap rejected: %v", err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old := s.provider
	s.provider = p
	s.source = source
	s.files = files
	s.folders = folders
	s.currentEntry = ""
	s.currentFolder = paths.Root
	if len(files) > 0 {
		s.currentEntry = files[0]
		s.currentFolder = p.ParentEntry(files[0])
	}
	entry, folder := s.currentEntry, s.currentFolder
	s.mu.Unlock()

	if old != nil && old != p {
		if err := old.Close(); err != nil {
			logging.Warn("Failed to close previous provider: %v", err)
		}
	}

	metrics.SessionSwapsTotal.WithLabelValues("success").Inc()
	metrics.SessionFiles.Set(float64(len(files)))
	metrics.SessionFolders.Set(float64(len(folders)))
	logging.Info("Session switched to %s provider: %d files in %d folders", p.Kind(), len(files), len(folders))

	s.notify(Event{Kind: ProviderChanged, Provider: p, Entry: entry, Folder: folder})
	return nil
}

func list(ctx context.Context, p provider.Provider) ([]string, []string, error) {
	files, err := p.AllFileEntries(ctx)
	if err != nil {
		return nil, nil, err
	}
	folders, err := p.FolderEntries(ctx)
	if err != nil {
		return nil, nil, err
	}
	return files, folders, nil
}

// SetCurrentEntry moves to entry, which must be one of FileEntries. Setting
// the entry that is already current does nothing.
func (s *Session) SetCurrentEntry(entry string) error {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if entry == s.currentEntry {
		s.mu.Unlock()
		return nil
	}
	if !slices.Contains(s.files, entry) {
		s.mu.Unlock()
		return &provider.Error{Code: provider.CodeEntryNotFound, Op: "select", Entry: entry}
	}
	ev := s.setCurrentLocked(entry)
	s.mu.Unlock()

	s.notify(ev)
	return nil
}

func (s *Session) setCurrentLocked(entry string) Event {
	s.currentEntry = entry
	s.currentFolder = s.provider.ParentEntry(entry)
	return Event{Kind: EntryChanged, Provider: s.provider, Entry: entry, Folder: s.currentFolder}
}

func (s *Session) usableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.provider == nil {
		return ErrNoProvider
	}
	return nil
}

// Advance moves the current entry by step positions through either every
// file of the provider or, with folderOnly, the files of the current folder.
// Movement wraps around in both directions. With random, the target is drawn
// uniformly instead and step is ignored. An empty list leaves the current
// entry unchanged. Advance returns the resulting current entry.
//
// When the current entry is not in the list (a folder without images was
// selected, for example), a non-negative step lands on the first entry and a
// negative step on the last.
func (s *Session) Advance(ctx context.Context, folderOnly, random bool, step int) (string, error) {
	s.mu.RLock()
	if err := s.usableLocked(); err != nil {
		s.mu.RUnlock()
		return "", err
	}
	p, current, folder, files := s.provider, s.currentEntry, s.currentFolder, s.files
	s.mu.RUnlock()

	eligible := files
	if folderOnly {
		var err error
		eligible, err = p.ChildEntries(ctx, folder)
		if err != nil {
			return current, err
		}
	}

	if len(eligible) == 0 {
		metrics.SessionAdvancesTotal.WithLabelValues("noop").Inc()
		return current, nil
	}

	var next int
	if random {
		next = s.intn(len(eligible))
		metrics.SessionAdvancesTotal.WithLabelValues("random").Inc()
	} else {
		next = ringIndex(slices.Index(eligible, current), step, len(eligible))
		metrics.SessionAdvancesTotal.WithLabelValues("sequential").Inc()
	}
	target := eligible[next]

	s.mu.Lock()
	if s.provider != p || s.closed {
		// Swapped while we were listing; the new provider's position stands.
		current = s.currentEntry
		s.mu.Unlock()
		return current, nil
	}
	if target == s.currentEntry {
		s.mu.Unlock()
		return target, nil
	}
	ev := s.setCurrentLocked(target)
	s.mu.Unlock()

	s.notify(ev)
	return target, nil
}

// ringIndex returns the index reached from index by step in a ring of n entries.
// index is -1 when the current entry is not in the ring.
func ringIndex(index, step, n int) int {
	if index < 0 {
		if step < 0 {
			return n - 1
		}
		return 0
	}
	return ((index+step)%n + n) % n
}

// FindFolderThumbnailCandidate picks the cover image of folder.
func (s *Session) FindFolderThumbnailCandidate(ctx context.Context, folder string) (string, bool, error) {
	p, err := s.Provider()
	if err != nil {
		return "", false, err
	}
	children, err := p.ChildEntries(ctx, folder)
	if err != nil {
		return "", false, err
	}
	cover, ok := p.Filter().FindCoverPage(children)
	return cover, ok, nil
}

// OpenCurrent streams the current entry.
func (s *Session) OpenCurrent(ctx context.Context) (io.ReadCloser, string, error) {
	s.mu.RLock()
	if err := s.usableLocked(); err != nil {
		s.mu.RUnlock()
		return nil, "", err
	}
	p, entry := s.provider, s.currentEntry
	s.mu.RUnlock()

	if entry == "" {
		return nil, "", &provider.Error{Code: provider.CodeEntryNotFound, Op: "read"}
	}
	return p.OpenEntry(ctx, entry)
}

// Provider returns the active provider.
func (s *Session) Provider() (provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.usableLocked(); err != nil {
		return nil, err
	}
	return s.provider, nil
}

// CurrentEntry returns the current entry, or "" when there is none.
func (s *Session) CurrentEntry() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentEntry
}

// CurrentFolder returns the folder of the current entry.
func (s *Session) CurrentFolder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentFolder
}

// FileEntries returns every image of the active provider in navigation order.
func (s *Session) FileEntries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.files)
}

// FolderEntries returns every folder of the active provider, Root first.
func (s *Session) FolderEntries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.folders)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Source:        s.source,
		CurrentEntry:  s.currentEntry,
		CurrentFolder: s.currentFolder,
		Files:         len(s.files),
		Folders:       len(s.folders),
	}
	if s.provider != nil {
		st.Kind = s.provider.Kind().String()
	}
	return st
}

// Close closes the active provider. Later calls do nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	p := s.provider
	s.provider = nil
	s.files = nil
	s.folders = nil
	s.currentEntry = ""
	s.currentFolder = paths.Root
	s.mu.Unlock()

	if p != nil {
		return p.Close()
	}
	return nil
}
