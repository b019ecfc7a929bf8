package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"archive-viewer/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

type vipsDocument struct {
	mu    sync.RWMutex
	data  []byte
	pages int
	dpi   int
	name  string
}

// OpenFile reads the document at path into memory and counts its pages.
// libvips must have been started (media.InitVips) before calling.
func OpenFile(path string, opts Options) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return OpenBytes(data, path, opts)
}

// OpenBytes loads a document from an in-memory buffer. name is only used
// for logging.
func OpenBytes(data []byte, name string, opts Options) (Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("%s: not a pdf document", name)
	}

	params := vips.NewImportParams()
	params.Page.Set(0)
	params.Density.Set(opts.dpi())

	ref, err := vips.LoadImageFromBuffer(data, params)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load pdf: %w", err)
	}
	pages := ref.Pages()
	ref.Close()

	if pages < 1 {
		pages = 1
	}
	logging.Debug("Loaded pdf %s: %d pages at %d dpi", name, pages, opts.dpi())

	return &vipsDocument{
		data:  data,
		pages: pages,
		dpi:   opts.dpi(),
		name:  name,
	}, nil
}

func (d *vipsDocument) PageCount() int {
	return d.pages
}

func (d *vipsDocument) RenderPNG(ctx context.Context, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= d.pages {
		return nil, fmt.Errorf("page %d of %d: %w", index, d.pages, ErrPageRange)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.data == nil {
		return nil, ErrClosed
	}

	params := vips.NewImportParams()
	params.Page.Set(index)
	params.Density.Set(d.dpi)

	ref, err := vips.LoadImageFromBuffer(d.data, params)
	if err != nil {
		return nil, fmt.Errorf("vips failed to render page %d: %w", index, err)
	}
	defer ref.Close()

	data, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	logging.Debug("Rendered %s page %d: %dx%d", d.name, index, ref.Width(), ref.Height())
	return data, nil
}

func (d *vipsDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = nil
	return nil
}
