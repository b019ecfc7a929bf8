package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"archive-viewer/internal/filter"
	"archive-viewer/internal/paths"
	"archive-viewer/internal/provider"
)

// stubProvider serves a fixed folder layout with "/" separators.
type stubProvider struct {
	folders  []string
	children map[string][]string
	listErr  error
	closes   atomic.Int32
}

func newStub(layout map[string][]string) *stubProvider {
	p := &stubProvider{children: layout}
	for folder := range layout {
		p.folders = append(p.folders, folder)
	}
	paths.SortFolders(p.folders)
	return p
}

func (p *stubProvider) Kind() provider.Kind       { return provider.KindArchive }
func (p *stubProvider) Separator() string         { return paths.Slash }
func (p *stubProvider) Filter() filter.FileFilter { return filter.Physical{} }

func (p *stubProvider) FolderEntries(context.Context) ([]string, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return slices.Clone(p.folders), nil
}

func (p *stubProvider) ChildEntries(_ context.Context, folder string) ([]string, error) {
	children, ok := p.children[folder]
	if !ok {
		return []string{}, provider.ErrEntryNotFound
	}
	return slices.Clone(children), nil
}

func (p *stubProvider) AllFileEntries(ctx context.Context) ([]string, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	var all []string
	for _, folder := range p.folders {
		all = append(all, p.children[folder]...)
	}
	return all, nil
}

func (p *stubProvider) OpenEntry(_ context.Context, entry string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("data:" + entry)), filter.BaseName(entry), nil
}

func (p *stubProvider) OpenEntryAt(context.Context, string) (io.ReadSeekCloser, string, error) {
	return nil, "", errors.New("not supported")
}

func (p *stubProvider) ParentEntry(entry string) string {
	return paths.Parent(entry, paths.Slash)
}

func (p *stubProvider) Close() error {
	p.closes.Add(1)
	return nil
}

func comicLayout() map[string][]string {
	return map[string][]string{
		paths.Root: {"cover.jpg"},
		"ch1":      {"ch1/p1.jpg", "ch1/p2.jpg", "ch1/p3.jpg"},
		"empty":    {},
	}
}

func mustSet(t *testing.T, s *Session, p provider.Provider) {
	t.Helper()
	if err := s.SetProvider(context.Background(), p); err != nil {
		t.Fatalf("SetProvider() error = %v", err)
	}
}

func TestSetProviderResetsPosition(t *testing.T) {
	s := New()
	defer s.Close()

	mustSet(t, s, newStub(comicLayout()))

	if got := s.CurrentEntry(); got != "cover.jpg" {
		t.Errorf("CurrentEntry() = %q, want cover.jpg", got)
	}
	if got := s.CurrentFolder(); got != paths.Root {
		t.Errorf("CurrentFolder() = %q, want Root", got)
	}
	wantFiles := []string{"cover.jpg", "ch1/p1.jpg", "ch1/p2.jpg", "ch1/p3.jpg"}
	if got := s.FileEntries(); !slices.Equal(got, wantFiles) {
		t.Errorf("FileEntries() = %v, want %v", got, wantFiles)
	}
	if got := s.FolderEntries(); len(got) == 0 || got[0] != paths.Root {
		t.Errorf("FolderEntries() = %v, want Root first", got)
	}

	st := s.Snapshot()
	if st.Kind != "archive" || st.Files != 4 || st.Folders != 3 {
		t.Errorf("Snapshot() = %+v", st)
	}
}

func TestSetProviderEmpty(t *testing.T) {
	s := New()
	defer s.Close()

	mustSet(t, s, newStub(map[string][]string{paths.Root: {}}))

	if got := s.CurrentEntry(); got != "" {
		t.Errorf("CurrentEntry() = %q, want empty", got)
	}
	if got := s.CurrentFolder(); got != paths.Root {
		t.Errorf("CurrentFolder() = %q, want Root", got)
	}
	if _, _, err := s.OpenCurrent(context.Background()); !errors.Is(err, provider.ErrEntryNotFound) {
		t.Errorf("OpenCurrent() error = %v, want ErrEntryNotFound", err)
	}
}

func TestSetProviderFailureKeepsState(t *testing.T) {
	s := New()
	defer s.Close()

	first := newStub(comicLayout())
	mustSet(t, s, first)
	if err := s.SetCurrentEntry("ch1/p2.jpg"); err != nil {
		t.Fatalf("SetCurrentEntry() error = %v", err)
	}

	broken := newStub(comicLayout())
	broken.listErr = &provider.Error{Code: provider.CodeDiscovery, Op: "folders", Err: errors.New("corrupt")}
	err := s.SetProvider(context.Background(), broken)
	if !errors.Is(err, provider.ErrDiscovery) {
		t.Fatalf("SetProvider() error = %v, want ErrDiscovery", err)
	}

	p, err := s.Provider()
	if err != nil || p != first {
		t.Errorf("Provider() = %v, %v; want the first provider", p, err)
	}
	if got := s.CurrentEntry(); got != "ch1/p2.jpg" {
		t.Errorf("CurrentEntry() = %q, want ch1/p2.jpg", got)
	}
	if got := first.closes.Load(); got != 0 {
		t.Errorf("first provider closed %d times, want 0", got)
	}
	if got := broken.closes.Load(); got != 0 {
		t.Errorf("rejected provider closed %d times, want 0 (caller owns it)", got)
	}
}

func TestSetProviderCanceled(t *testing.T) {
	s := New()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := provider.NewFileSystem(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileSystem() error = %v", err)
	}
	defer p.Close()

	if err := s.SetProvider(ctx, p); !errors.Is(err, provider.ErrCanceled) {
		t.Fatalf("SetProvider() error = %v, want ErrCanceled", err)
	}
	if _, err := s.Provider(); !errors.Is(err, ErrNoProvider) {
		t.Errorf("Provider() error = %v, want ErrNoProvider", err)
	}
}

func TestSetProviderClosesPrevious(t *testing.T) {
	s := New()
	defer s.Close()

	first := newStub(comicLayout())
	second := newStub(map[string][]string{paths.Root: {"x.png"}})
	mustSet(t, s, first)
	mustSet(t, s, second)

	if got := first.closes.Load(); got != 1 {
		t.Errorf("first provider closed %d times, want 1", got)
	}
	if got := s.CurrentEntry(); got != "x.png" {
		t.Errorf("CurrentEntry() = %q, want x.png", got)
	}

	// Setting the same provider again must not close it.
	mustSet(t, s, second)
	if got := second.closes.Load(); got != 0 {
		t.Errorf("second provider closed %d times, want 0", got)
	}
}

func TestAdopt(t *testing.T) {
	s := New()
	defer s.Close()

	broken := newStub(comicLayout())
	broken.listErr = &provider.Error{Code: provider.CodeDiscovery, Op: "folders", Err: errors.New("corrupt")}
	if err := s.Adopt(context.Background(), broken, "broken.cbz"); !errors.Is(err, provider.ErrDiscovery) {
		t.Fatalf("Adopt() error = %v, want ErrDiscovery", err)
	}
	if got := broken.closes.Load(); got != 1 {
		t.Errorf("rejected provider closed %d times, want 1", got)
	}

	good := newStub(comicLayout())
	if err := s.Adopt(context.Background(), good, "comic.cbz"); err != nil {
		t.Fatalf("Adopt() error = %v", err)
	}
	if got := s.Snapshot().Source; got != "comic.cbz" {
		t.Errorf("Snapshot().Source = %q, want comic.cbz", got)
	}
}

func TestSetCurrentEntry(t *testing.T) {
	s := New()
	defer s.Close()
	mustSet(t, s, newStub(comicLayout()))

	var events []Event
	s.OnChange(func(ev Event) { events = append(events, ev) })

	if err := s.SetCurrentEntry("ch1/p3.jpg"); err != nil {
		t.Fatalf("SetCurrentEntry() error = %v", err)
	}
	if got := s.CurrentFolder(); got != "ch1" {
		t.Errorf("CurrentFolder() = %q, want ch1", got)
	}
	if len(events) != 1 || events[0].Kind != EntryChanged || events[0].Entry != "ch1/p3.jpg" {
		t.Errorf("events = %+v", events)
	}

	// Unchanged entry is a no-op.
	if err := s.SetCurrentEntry("ch1/p3.jpg"); err != nil {
		t.Fatalf("SetCurrentEntry() repeat error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("repeat SetCurrentEntry() sent %d events, want 1", len(events))
	}

	err := s.SetCurrentEntry("missing.jpg")
	if !errors.Is(err, provider.ErrEntryNotFound) {
		t.Errorf("SetCurrentEntry(missing) error = %v, want ErrEntryNotFound", err)
	}
	if got := s.CurrentEntry(); got != "ch1/p3.jpg" {
		t.Errorf("CurrentEntry() after failure = %q", got)
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name       string
		start      string
		folderOnly bool
		step       int
		want       string
	}{
		{"forward", "cover.jpg", false, 1, "ch1/p1.jpg"},
		{"wrap forward", "ch1/p3.jpg", false, 1, "cover.jpg"},
		{"wrap backward", "cover.jpg", false, -1, "ch1/p3.jpg"},
		{"large step", "cover.jpg", false, 9, "ch1/p1.jpg"},
		{"large negative step", "cover.jpg", false, -9, "ch1/p3.jpg"},
		{"zero step", "ch1/p2.jpg", false, 0, "ch1/p2.jpg"},
		{"folder wrap forward", "ch1/p3.jpg", true, 1, "ch1/p1.jpg"},
		{"folder wrap backward", "ch1/p1.jpg", true, -1, "ch1/p3.jpg"},
		{"single entry folder", "cover.jpg", true, 1, "cover.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			defer s.Close()
			mustSet(t, s, newStub(comicLayout()))
			if err := s.SetCurrentEntry(tt.start); err != nil {
				t.Fatalf("SetCurrentEntry() error = %v", err)
			}

			got, err := s.Advance(context.Background(), tt.folderOnly, false, tt.step)
			if err != nil {
				t.Fatalf("Advance() error = %v", err)
			}
			if got != tt.want || s.CurrentEntry() != tt.want {
				t.Errorf("Advance() = %q (current %q), want %q", got, s.CurrentEntry(), tt.want)
			}
		})
	}
}

func TestRingIndex(t *testing.T) {
	tests := []struct {
		index, step, n, want int
	}{
		{2, 1, 3, 0},
		{0, -1, 3, 2},
		{1, 0, 3, 1},
		{0, -7, 3, 2},
		{-1, 1, 3, 0},
		{-1, 0, 3, 0},
		{-1, -1, 3, 2},
	}
	for _, tt := range tests {
		if got := ringIndex(tt.index, tt.step, tt.n); got != tt.want {
			t.Errorf("ringIndex(%d, %d, %d) = %d, want %d", tt.index, tt.step, tt.n, got, tt.want)
		}
	}
}

func TestAdvanceRandom(t *testing.T) {
	var asked []int
	s := New(WithRandom(func(n int) int {
		asked = append(asked, n)
		return n - 1
	}))
	defer s.Close()
	mustSet(t, s, newStub(comicLayout()))

	got, err := s.Advance(context.Background(), false, true, 1)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if got != "ch1/p3.jpg" {
		t.Errorf("Advance(random) = %q, want ch1/p3.jpg", got)
	}
	if !slices.Equal(asked, []int{4}) {
		t.Errorf("random source asked for %v, want [4]", asked)
	}
}

func TestAdvanceRandomStaysInRange(t *testing.T) {
	s := New()
	defer s.Close()
	mustSet(t, s, newStub(comicLayout()))
	if err := s.SetCurrentEntry("ch1/p1.jpg"); err != nil {
		t.Fatal(err)
	}

	chapter := comicLayout()["ch1"]
	for range 50 {
		got, err := s.Advance(context.Background(), true, true, 0)
		if err != nil {
			t.Fatalf("Advance() error = %v", err)
		}
		if !slices.Contains(chapter, got) {
			t.Fatalf("Advance(random, folder) = %q, outside %v", got, chapter)
		}
	}
}

func TestAdvanceEmptyFolderIsNoop(t *testing.T) {
	s := New()
	defer s.Close()
	mustSet(t, s, newStub(map[string][]string{paths.Root: {}, "empty": {}}))

	got, err := s.Advance(context.Background(), true, false, 1)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if got != "" || s.CurrentEntry() != "" {
		t.Errorf("Advance() on empty = %q, want unchanged empty entry", got)
	}

	got, err = s.Advance(context.Background(), false, true, 1)
	if err != nil || got != "" {
		t.Errorf("Advance(random) on empty = %q, %v", got, err)
	}
}

func TestAdvanceWithoutProvider(t *testing.T) {
	s := New()
	defer s.Close()

	if _, err := s.Advance(context.Background(), false, false, 1); !errors.Is(err, ErrNoProvider) {
		t.Errorf("Advance() error = %v, want ErrNoProvider", err)
	}
	if err := s.SetCurrentEntry("a.png"); !errors.Is(err, ErrNoProvider) {
		t.Errorf("SetCurrentEntry() error = %v, want ErrNoProvider", err)
	}
}

func TestFindFolderThumbnailCandidate(t *testing.T) {
	s := New()
	defer s.Close()
	mustSet(t, s, newStub(map[string][]string{
		paths.Root: {"a.jpg"},
		"vol1":     {"vol1/001.jpg", "vol1/Cover.jpg"},
		"vol2":     {},
	}))
	ctx := context.Background()

	tests := []struct {
		folder string
		want   string
		ok     bool
	}{
		{paths.Root, "a.jpg", true},
		{"vol1", "vol1/Cover.jpg", true},
		{"vol2", "", false},
	}
	for _, tt := range tests {
		got, ok, err := s.FindFolderThumbnailCandidate(ctx, tt.folder)
		if err != nil {
			t.Fatalf("FindFolderThumbnailCandidate(%q) error = %v", tt.folder, err)
		}
		if got != tt.want || ok != tt.ok {
			t.Errorf("FindFolderThumbnailCandidate(%q) = %q, %v; want %q, %v", tt.folder, got, ok, tt.want, tt.ok)
		}
	}

	if _, _, err := s.FindFolderThumbnailCandidate(ctx, "nope"); !errors.Is(err, provider.ErrEntryNotFound) {
		t.Errorf("unknown folder error = %v, want ErrEntryNotFound", err)
	}
}

func TestOpenCurrent(t *testing.T) {
	s := New()
	defer s.Close()
	mustSet(t, s, newStub(comicLayout()))

	rc, name, err := s.OpenCurrent(context.Background())
	if err != nil {
		t.Fatalf("OpenCurrent() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "data:cover.jpg" || name != "cover.jpg" {
		t.Errorf("OpenCurrent() = %q, %q", data, name)
	}
}

func TestOpenDirectory(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"b.png", "a.png", filepath.Join("ch", "1.png")} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := New()
	defer s.Close()

	var got []Event
	s.OnChange(func(ev Event) { got = append(got, ev) })

	if err := s.Open(context.Background(), root, provider.Options{}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.CurrentEntry() != "a.png" {
		t.Errorf("CurrentEntry() = %q, want a.png", s.CurrentEntry())
	}
	if len(got) != 1 || got[0].Kind != ProviderChanged {
		t.Errorf("events = %+v, want one ProviderChanged", got)
	}
	st := s.Snapshot()
	if st.Source != root || st.Kind != "filesystem" || st.Files != 3 {
		t.Errorf("Snapshot() = %+v", st)
	}
}

func TestOpenMissingPath(t *testing.T) {
	s := New()
	defer s.Close()

	err := s.Open(context.Background(), filepath.Join(t.TempDir(), "missing.cbz"), provider.Options{})
	if err == nil {
		t.Fatal("Open() of missing file succeeded")
	}
	if _, err := s.Provider(); !errors.Is(err, ErrNoProvider) {
		t.Errorf("Provider() error = %v, want ErrNoProvider", err)
	}
}

func TestClose(t *testing.T) {
	s := New()
	p := newStub(comicLayout())
	mustSet(t, s, p)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if got := p.closes.Load(); got != 1 {
		t.Errorf("provider closed %d times, want 1", got)
	}
	if _, err := s.Advance(context.Background(), false, false, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Advance() after Close error = %v, want ErrClosed", err)
	}
	other := newStub(comicLayout())
	if err := s.SetProvider(context.Background(), other); !errors.Is(err, ErrClosed) {
		t.Errorf("SetProvider() after Close error = %v, want ErrClosed", err)
	}
}

func TestConcurrentNavigation(t *testing.T) {
	s := New()
	defer s.Close()
	mustSet(t, s, newStub(comicLayout()))
	files := s.FileEntries()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if _, err := s.Advance(context.Background(), false, i%2 == 0, 1); err != nil {
					t.Errorf("Advance() error = %v", err)
					return
				}
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()

	if !slices.Contains(files, s.CurrentEntry()) {
		t.Errorf("CurrentEntry() = %q, not a file entry", s.CurrentEntry())
	}
}
