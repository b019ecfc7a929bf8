package pdf

import (
	"context"
	"errors"
)

// DefaultDPI is the render density used when none is configured.
const DefaultDPI = 150

var (
	// ErrPageRange is returned for a page index outside [0, PageCount).
	ErrPageRange = errors.New("pdf: page index out of range")
	// ErrClosed is returned when rendering from a closed document.
	ErrClosed = errors.New("pdf: document closed")
)

// Document is a loaded paginated document.
type Document interface {
	PageCount() int
	// RenderPNG rasterizes the zero-based page index and returns it PNG
	// encoded.
	RenderPNG(ctx context.Context, index int) ([]byte, error)
	Close() error
}

// Options configures rendering.
type Options struct {
	// DPI is the rasterization density. Zero means DefaultDPI.
	DPI int
}

func (o Options) dpi() int {
	if o.DPI <= 0 {
		return DefaultDPI
	}
	return o.DPI
}
