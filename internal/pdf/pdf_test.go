package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOptionsDPI(t *testing.T) {
	tests := []struct {
		dpi  int
		want int
	}{
		{0, DefaultDPI},
		{-5, DefaultDPI},
		{72, 72},
	}
	for _, tt := range tests {
		if got := (Options{DPI: tt.dpi}).dpi(); got != tt.want {
			t.Errorf("Options{DPI: %d}.dpi() = %d, want %d", tt.dpi, got, tt.want)
		}
	}
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.pdf"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("OpenFile(missing) error = %v, want not-exist", err)
	}
}

func TestOpenBytesRejectsNonPDF(t *testing.T) {
	if _, err := OpenBytes([]byte("PK\x03\x04"), "fake.pdf", Options{}); err == nil {
		t.Error("OpenBytes should reject data without a %PDF- header")
	}
}

func TestRenderPNGBounds(t *testing.T) {
	// Bounds and close checks happen before libvips is touched.
	doc := &vipsDocument{data: []byte("%PDF-1.4"), pages: 3, dpi: DefaultDPI, name: "test.pdf"}

	for _, index := range []int{-1, 3, 10} {
		if _, err := doc.RenderPNG(context.Background(), index); !errors.Is(err, ErrPageRange) {
			t.Errorf("RenderPNG(%d) error = %v, want ErrPageRange", index, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := doc.RenderPNG(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("RenderPNG with canceled context error = %v, want context.Canceled", err)
	}

	if err := doc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := doc.RenderPNG(context.Background(), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("RenderPNG after Close error = %v, want ErrClosed", err)
	}
	if doc.PageCount() != 3 {
		t.Errorf("PageCount() = %d, want 3", doc.PageCount())
	}
}
