package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"archive-viewer/internal/logging"
	"archive-viewer/internal/metrics"
	"archive-viewer/internal/provider"

	"github.com/disintegration/imaging"
)

// Thumbnail types as they appear in metrics.
const (
	TypeEntry = "entry"
	TypeCover = "cover"
)

// ThumbnailOptions configures a Thumbnailer.
type ThumbnailOptions struct {
	// Size is the edge of the bounding box thumbnails are fitted into.
	Size    int
	Quality int
	Format  Format
}

// DefaultThumbnailOptions returns 200px JPEG thumbnails at quality 80.
func DefaultThumbnailOptions() ThumbnailOptions {
	return ThumbnailOptions{Size: 200, Quality: 80, Format: FormatJPEG}
}

// Thumbnailer renders thumbnails of provider entries.
type Thumbnailer struct {
	codec Codec
	opts  ThumbnailOptions

	placeholderOnce sync.Once
	placeholder     []byte
}

// NewThumbnailer creates a Thumbnailer. A nil codec selects ImagingCodec.
func NewThumbnailer(codec Codec, opts ThumbnailOptions) *Thumbnailer {
	if codec == nil {
		codec = NewImagingCodec()
	}
	if opts.Size <= 0 {
		opts.Size = DefaultThumbnailOptions().Size
	}
	return &Thumbnailer{codec: codec, opts: opts}
}

// Options returns the configured options.
func (t *Thumbnailer) Options() ThumbnailOptions {
	return t.opts
}

// Generate reads an encoded image from r and returns its thumbnail. kind is
// TypeEntry or TypeCover and only labels metrics.
func (t *Thumbnailer) Generate(ctx context.Context, kind string, r io.Reader) ([]byte, error) {
	start := time.Now()
	data, err := t.generate(ctx, r)

	metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, metrics.Status(err)).Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return data, err
}

func (t *Thumbnailer) generate(ctx context.Context, r io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	if IsVipsAvailable() {
		out, err := vipsThumbnail(src, t.opts.Size, t.opts.Format, t.opts.Quality)
		if err == nil {
			return out, nil
		}
		logging.Debug("vips thumbnail failed, falling back to imaging: %v", err)
	}

	img, _, err := t.codec.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	thumb := imaging.Fit(img, t.opts.Size, t.opts.Size, imaging.Lanczos)
	return t.codec.Encode(thumb, t.opts.Format, t.opts.Quality)
}

// FromEntry opens entry in p and returns its thumbnail.
func (t *Thumbnailer) FromEntry(ctx context.Context, p provider.Provider, entry string, kind string) ([]byte, error) {
	rc, _, err := p.OpenEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logging.Warn("Failed to close entry %s: %v", entry, err)
		}
	}()

	data, err := t.Generate(ctx, kind, rc)
	if err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w", entry, err)
	}
	return data, nil
}

// Placeholder returns the image shown in place of an unreadable entry. The
// bytes are shared and must not be modified.
func (t *Thumbnailer) Placeholder() []byte {
	t.placeholderOnce.Do(func() {
		data, err := t.codec.Encode(placeholderImage(t.opts.Size), t.opts.Format, t.opts.Quality)
		if err != nil {
			logging.Error("Failed to encode placeholder: %v", err)
			return
		}
		t.placeholder = data
	})
	metrics.ThumbnailPlaceholdersTotal.Inc()
	return t.placeholder
}

// placeholderImage draws a grey square with a darker diagonal cross.
func placeholderImage(size int) image.Image {
	bg := color.NRGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0xff}
	fg := color.NRGBA{R: 0x90, G: 0x90, B: 0x90, A: 0xff}

	img := imaging.New(size, size, bg)
	for i := range size {
		for w := -1; w <= 1; w++ {
			if x := i + w; x >= 0 && x < size {
				img.SetNRGBA(x, i, fg)
				img.SetNRGBA(size-1-x, i, fg)
			}
		}
	}
	return img
}
