package media

import (
	"context"
	"errors"
	"sync"
	"testing"

	"archive-viewer/internal/provider"

	"github.com/disintegration/imaging"
)

func TestLoadThumbnails(t *testing.T) {
	dir := writeLibrary(t, map[string][]byte{
		"01.png": encodeTestImage(t, 80, 40, imaging.PNG),
		"02.png": []byte("not really a png"),
		"10.jpg": encodeTestImage(t, 40, 80, imaging.JPEG),
	})
	p, err := provider.NewFileSystem(dir, nil)
	if err != nil {
		t.Fatalf("NewFileSystem() error = %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	entries, err := p.ChildEntries(ctx, ".")
	if err != nil {
		t.Fatalf("ChildEntries() error = %v", err)
	}

	th := NewThumbnailer(nil, ThumbnailOptions{Size: 20, Format: FormatPNG})
	var (
		mu       sync.Mutex
		streamed int
	)
	results, err := LoadThumbnails(ctx, p, entries, th, LoadOptions{
		Workers: 2,
		OnResult: func(Thumbnail) {
			mu.Lock()
			streamed++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("LoadThumbnails() error = %v", err)
	}

	if len(results) != 3 || streamed != 3 {
		t.Fatalf("got %d results, %d streamed; want 3 and 3", len(results), streamed)
	}
	for i, want := range []struct {
		entry       string
		placeholder bool
	}{
		{"01.png", false},
		{"02.png", true},
		{"10.jpg", false},
	} {
		got := results[i]
		if got.Entry != want.entry || got.Placeholder != want.placeholder {
			t.Errorf("results[%d] = {%s placeholder=%v}, want {%s placeholder=%v}",
				i, got.Entry, got.Placeholder, want.entry, want.placeholder)
		}
		if len(got.Data) == 0 {
			t.Errorf("results[%d] has no data", i)
		}
		if want.placeholder && got.Err == nil {
			t.Errorf("results[%d] placeholder without error", i)
		}
	}
}

func TestLoadThumbnailsCanceled(t *testing.T) {
	dir := writeLibrary(t, map[string][]byte{
		"a.png": encodeTestImage(t, 10, 10, imaging.PNG),
		"b.png": encodeTestImage(t, 10, 10, imaging.PNG),
	})
	p, err := provider.NewFileSystem(dir, nil)
	if err != nil {
		t.Fatalf("NewFileSystem() error = %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	th := NewThumbnailer(nil, DefaultThumbnailOptions())
	results, err := LoadThumbnails(ctx, p, []string{"a.png", "b.png"}, th, LoadOptions{Workers: 1})
	if !errors.Is(err, provider.ErrCanceled) {
		t.Fatalf("LoadThumbnails() error = %v, want ErrCanceled", err)
	}
	if results != nil {
		t.Errorf("LoadThumbnails() results = %v, want nil", results)
	}
}

func TestLoadThumbnailsEmpty(t *testing.T) {
	p, err := provider.NewFileSystem(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileSystem() error = %v", err)
	}
	defer p.Close()

	results, err := LoadThumbnails(context.Background(), p, nil, NewThumbnailer(nil, DefaultThumbnailOptions()), LoadOptions{})
	if err != nil || len(results) != 0 {
		t.Errorf("LoadThumbnails(empty) = %v, %v", results, err)
	}
}

type countingGate struct {
	mu    sync.Mutex
	waits int
}

func (g *countingGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	g.waits++
	g.mu.Unlock()
	return ctx.Err()
}

func TestLoadThumbnailsGate(t *testing.T) {
	dir := writeLibrary(t, map[string][]byte{
		"a.png": encodeTestImage(t, 10, 10, imaging.PNG),
		"b.png": encodeTestImage(t, 10, 10, imaging.PNG),
	})
	p, err := provider.NewFileSystem(dir, nil)
	if err != nil {
		t.Fatalf("NewFileSystem() error = %v", err)
	}
	defer p.Close()

	gate := &countingGate{}
	th := NewThumbnailer(nil, DefaultThumbnailOptions())
	if _, err := LoadThumbnails(context.Background(), p, []string{"a.png", "b.png"}, th, LoadOptions{Gate: gate}); err != nil {
		t.Fatalf("LoadThumbnails() error = %v", err)
	}
	if gate.waits != 2 {
		t.Errorf("gate waited %d times, want 2", gate.waits)
	}
}
