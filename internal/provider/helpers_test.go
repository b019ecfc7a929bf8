package provider

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"archive-viewer/internal/archive"
	"archive-viewer/internal/pdf"

	"github.com/disintegration/imaging"
	"github.com/yeka/zip"
)

// fakeArchive is an in-memory archive.Reader that detects overlapping entry
// reads.
type fakeArchive struct {
	format  archive.Format
	entries []archive.Entry
	content map[string]string
	openErr map[string]error

	active  atomic.Int32
	overlap atomic.Bool
	closes  atomic.Int32
}

// newFakeArchive builds entries from names; a trailing "/" marks a directory.
// Each file's content is "data:" + name.
func newFakeArchive(format archive.Format, names ...string) *fakeArchive {
	fa := &fakeArchive{
		format:  format,
		content: make(map[string]string),
		openErr: make(map[string]error),
	}
	for _, name := range names {
		if strings.HasSuffix(name, "/") {
			fa.entries = append(fa.entries, archive.Entry{Name: name, IsDir: true})
			continue
		}
		fa.entries = append(fa.entries, archive.Entry{Name: name})
		fa.content[name] = "data:" + name
	}
	return fa
}

func (f *fakeArchive) Format() archive.Format   { return f.format }
func (f *fakeArchive) Entries() []archive.Entry { return f.entries }

func (f *fakeArchive) Open(name string) (io.ReadCloser, error) {
	if err := f.openErr[name]; err != nil {
		return nil, err
	}
	data, ok := f.content[name]
	if !ok {
		return nil, archive.ErrEntryNotFound
	}
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	return &trackedReader{Reader: strings.NewReader(data), parent: f}, nil
}

func (f *fakeArchive) Close() error {
	f.closes.Add(1)
	return nil
}

type trackedReader struct {
	io.Reader
	parent *fakeArchive
}

func (r *trackedReader) Read(p []byte) (int, error) {
	// Widen the window for overlapping extractions.
	time.Sleep(100 * time.Microsecond)
	return r.Reader.Read(p)
}

func (r *trackedReader) Close() error {
	r.parent.active.Add(-1)
	return nil
}

// fakeDocument renders every page as a small solid image.
type fakeDocument struct {
	pages     int
	renderErr error
	closes    atomic.Int32
	mu        sync.Mutex
	rendered  []int
}

func (d *fakeDocument) PageCount() int { return d.pages }

// RenderPNG returns a 4x3 PNG for any valid page.
func (d *fakeDocument) RenderPNG(ctx context.Context, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.renderErr != nil {
		return nil, d.renderErr
	}
	if index < 0 || index >= d.pages {
		return nil, pdf.ErrPageRange
	}
	d.mu.Lock()
	d.rendered = append(d.rendered, index)
	d.mu.Unlock()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3)), imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *fakeDocument) Close() error {
	d.closes.Add(1)
	return nil
}

type zipFile struct {
	name    string
	content string
}

// writeZip writes a zip archive to dir/name and returns its path. A
// non-empty password encrypts every file with AES-256.
func writeZip(t *testing.T, dir, name, password string, files ...zipFile) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		var (
			w   io.Writer
			err error
		)
		if password != "" {
			w, err = zw.Encrypt(f.name, password, zip.AES256Encryption)
		} else {
			w, err = zw.Create(f.name)
		}
		if err != nil {
			t.Fatalf("create %s: %v", f.name, err)
		}
		if _, err := io.WriteString(w, f.content); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	return string(data)
}

func assertEntries(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %q, want %q", label, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d] = %q, want %q", label, i, got[i], want[i])
		}
	}
}

func assertCode(t *testing.T, err error, target *Error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("error = %v, want %v", err, target.Code)
	}
}
