package provider

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"archive-viewer/internal/filter"
	"archive-viewer/internal/paths"
	"archive-viewer/internal/pdf"
)

// PdfProvider exposes the pages of a document as a single folder of images
// named by zero-based page index.
type PdfProvider struct {
	base
	doc   pdf.Document
	pages int
}

// NewPdf wraps an opened document. The provider owns doc.
func NewPdf(doc pdf.Document) *PdfProvider {
	p := &PdfProvider{
		doc:   doc,
		pages: doc.PageCount(),
	}
	p.init(KindPdf, paths.Slash, filter.Pdf{}, discovery{
		folders:   func(context.Context) ([]string, error) { return []string{paths.Root}, nil },
		children:  p.pageEntries,
		anyFolder: true,
	})
	return p
}

func (p *PdfProvider) pageEntries(context.Context, string) ([]string, error) {
	entries := make([]string, p.pages)
	for i := range entries {
		entries[i] = strconv.Itoa(i)
	}
	return entries, nil
}

// ParentEntry always returns Root.
func (p *PdfProvider) ParentEntry(string) string {
	return paths.Root
}

func (p *PdfProvider) OpenEntry(ctx context.Context, entry string) (io.ReadCloser, string, error) {
	data, err := p.render(ctx, entry)
	if err != nil {
		return nil, "", err
	}
	return newMemEntry(data), entry + ".png", nil
}

func (p *PdfProvider) OpenEntryAt(ctx context.Context, entry string) (io.ReadSeekCloser, string, error) {
	data, err := p.render(ctx, entry)
	if err != nil {
		return nil, "", err
	}
	return newMemEntry(data), entry + ".png", nil
}

// render rasterizes a page as PNG.
func (p *PdfProvider) render(ctx context.Context, entry string) ([]byte, error) {
	if err := p.check(ctx, "read"); err != nil {
		return nil, err
	}

	index, err := strconv.Atoi(entry)
	if err != nil || index < 0 || index >= p.pages || strconv.Itoa(index) != entry {
		return nil, &Error{Code: CodeEntryNotFound, Op: "read", Entry: entry}
	}

	start := time.Now()
	data, err := p.doc.RenderPNG(ctx, index)
	p.observeRead(start, int64(len(data)), err)
	if err != nil {
		switch {
		case errors.Is(err, pdf.ErrPageRange):
			return nil, &Error{Code: CodeEntryNotFound, Op: "read", Entry: entry, Err: err}
		case errors.Is(err, pdf.ErrClosed):
			return nil, &Error{Code: CodeDisposed, Op: "read", Entry: entry, Err: err}
		}
		return nil, wrap(CodeRead, "read", entry, err)
	}
	return data, nil
}

func (p *PdfProvider) Close() error {
	if !p.markClosed() {
		return nil
	}
	return p.doc.Close()
}
