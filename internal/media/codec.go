package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"archive-viewer/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxImageDimension is the largest width or height kept after decoding.
	// Larger images are downscaled.
	MaxImageDimension = 4096

	// MaxImagePixels caps width*height after decoding (~80MB as RGBA).
	MaxImagePixels = 20_000_000
)

// ErrUnsupportedImage is returned when no registered decoder accepts the data.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Format is an output encoding.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
)

func (f Format) String() string {
	if f == FormatPNG {
		return "png"
	}
	return "jpeg"
}

// ContentType returns the MIME type of the encoding.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// ParseFormat accepts "jpeg", "jpg" or "png" in any case.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return FormatJPEG, fmt.Errorf("unknown image format %q", name)
	}
}

// Dimensions holds image width and height.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Codec decodes entry bytes and encodes rendered images.
type Codec interface {
	// Decode returns the image and its dimensions as stored, before any
	// downscaling the codec applies.
	Decode(r io.Reader) (image.Image, Dimensions, error)
	// Encode writes img as f. quality applies to lossy formats (1-100).
	Encode(img image.Image, f Format, quality int) ([]byte, error)
}

// ImagingCodec is the default Codec.
type ImagingCodec struct {
	MaxDimension int
	MaxPixels    int
}

// NewImagingCodec returns a codec with the package size limits.
func NewImagingCodec() *ImagingCodec {
	return &ImagingCodec{
		MaxDimension: MaxImageDimension,
		MaxPixels:    MaxImagePixels,
	}
}

// Decode reads the whole image, applies EXIF orientation and downscales it
// when it exceeds the codec limits.
func (c *ImagingCodec) Decode(r io.Reader) (image.Image, Dimensions, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Dimensions{}, fmt.Errorf("read image: %w", err)
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		metrics.ThumbnailImageDecodeByFormat.WithLabelValues("unknown").Inc()
		return nil, Dimensions{}, fmt.Errorf("%w (%s): %v", ErrUnsupportedImage, Sniff(data), err)
	}
	metrics.ThumbnailImageDecodeByFormat.WithLabelValues(format).Inc()
	dims := Dimensions{Width: config.Width, Height: config.Height}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, dims, fmt.Errorf("decode %s: %w", format, err)
	}

	b := img.Bounds()
	if w, h, ok := constrain(b.Dx(), b.Dy(), c.MaxDimension, c.MaxPixels); ok {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	return img, dims, nil
}

// Encode implements Codec.
func (c *ImagingCodec) Encode(img image.Image, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(quality)))
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

func clampQuality(q int) int {
	switch {
	case q <= 0:
		return 85
	case q > 100:
		return 100
	default:
		return q
	}
}

// constrain returns the size width x height should be reduced to, and false
// when it is already within limits. A non-positive limit is ignored.
func constrain(width, height, maxDimension, maxPixels int) (int, int, bool) {
	if width <= 0 || height <= 0 {
		return width, height, false
	}

	tw, th := width, height
	if maxDimension > 0 && (tw > maxDimension || th > maxDimension) {
		if tw > th {
			th = th * maxDimension / tw
			tw = maxDimension
		} else {
			tw = tw * maxDimension / th
			th = maxDimension
		}
	}

	if maxPixels > 0 && tw*th > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(tw*th))
		tw = int(float64(tw) * scale)
		th = int(float64(th) * scale)
	}

	tw, th = max(tw, 1), max(th, 1)
	return tw, th, tw != width || th != height
}

// Sniff names the image format from its magic bytes, or "unknown".
func Sniff(header []byte) string {
	h := header
	switch {
	case len(h) >= 3 && h[0] == 0xFF && h[1] == 0xD8 && h[2] == 0xFF:
		return "jpeg"
	case len(h) >= 8 && bytes.HasPrefix(h, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case len(h) >= 4 && bytes.HasPrefix(h, []byte("GIF8")):
		return "gif"
	case len(h) >= 12 && bytes.HasPrefix(h, []byte("RIFF")) && string(h[8:12]) == "WEBP":
		return "webp"
	case len(h) >= 2 && h[0] == 'B' && h[1] == 'M':
		return "bmp"
	case len(h) >= 4 && (bytes.HasPrefix(h, []byte("II*\x00")) || bytes.HasPrefix(h, []byte("MM\x00*"))):
		return "tiff"
	case len(h) >= 12 && string(h[4:8]) == "ftyp":
		switch string(h[8:12]) {
		case "avif", "avis":
			return "avif"
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return "heif"
		}
	case len(h) >= 2 && h[0] == 0xFF && h[1] == 0x0A:
		return "jxl"
	case len(h) >= 5 && bytes.HasPrefix(h, []byte("%PDF-")):
		return "pdf"
	}
	return "unknown"
}
