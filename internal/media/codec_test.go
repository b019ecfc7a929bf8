package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func encodeTestImage(t *testing.T, w, h int, f imaging.Format) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestImagingCodecDecode(t *testing.T) {
	tests := []struct {
		name   string
		format imaging.Format
		w, h   int
	}{
		{"png", imaging.PNG, 40, 30},
		{"jpeg", imaging.JPEG, 64, 48},
		{"gif", imaging.GIF, 10, 20},
		{"bmp", imaging.BMP, 12, 12},
		{"tiff", imaging.TIFF, 8, 16},
	}

	c := NewImagingCodec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, dims, err := c.Decode(bytes.NewReader(encodeTestImage(t, tt.w, tt.h, tt.format)))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if dims.Width != tt.w || dims.Height != tt.h {
				t.Errorf("Decode() dims = %+v, want %dx%d", dims, tt.w, tt.h)
			}
			if b := img.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
				t.Errorf("image bounds = %v, want %dx%d", b, tt.w, tt.h)
			}
		})
	}
}

func TestImagingCodecDecodeConstrains(t *testing.T) {
	c := &ImagingCodec{MaxDimension: 50, MaxPixels: 0}

	img, dims, err := c.Decode(bytes.NewReader(encodeTestImage(t, 200, 100, imaging.PNG)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if dims != (Dimensions{Width: 200, Height: 100}) {
		t.Errorf("Decode() dims = %+v, want original 200x100", dims)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("image bounds = %v, want 50x25", b)
	}
}

func TestImagingCodecDecodeInvalid(t *testing.T) {
	_, _, err := NewImagingCodec().Decode(strings.NewReader("%PDF-1.7 not an image"))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("Decode() error = %v, want ErrUnsupportedImage", err)
	}
	if !strings.Contains(err.Error(), "pdf") {
		t.Errorf("error %q does not name the sniffed format", err)
	}
}

func TestImagingCodecEncode(t *testing.T) {
	c := NewImagingCodec()
	src := image.NewNRGBA(image.Rect(0, 0, 16, 9))

	for _, f := range []Format{FormatJPEG, FormatPNG} {
		data, err := c.Encode(src, f, 70)
		if err != nil {
			t.Fatalf("Encode(%s) error = %v", f, err)
		}
		if got := Sniff(data); got != f.String() {
			t.Errorf("Encode(%s) produced %s", f, got)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("DecodeConfig(%s) error = %v", f, err)
		}
		if cfg.Width != 16 || cfg.Height != 9 {
			t.Errorf("Encode(%s) size = %dx%d, want 16x9", f, cfg.Width, cfg.Height)
		}
	}
}

func TestConstrain(t *testing.T) {
	tests := []struct {
		name            string
		w, h, dim, pix  int
		wantW, wantH    int
		wantConstrained bool
	}{
		{"within limits", 100, 50, 200, 0, 100, 50, false},
		{"wide", 4000, 1000, 1000, 0, 1000, 250, true},
		{"tall", 1000, 4000, 1000, 0, 250, 1000, true},
		{"pixel cap", 1000, 1000, 0, 250_000, 500, 500, true},
		{"both", 8000, 8000, 4000, 4_000_000, 2000, 2000, true},
		{"no limits", 9000, 9000, 0, 0, 9000, 9000, false},
		{"degenerate", 0, 10, 5, 5, 0, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := constrain(tt.w, tt.h, tt.dim, tt.pix)
			if w != tt.wantW || h != tt.wantH || ok != tt.wantConstrained {
				t.Errorf("constrain(%d, %d, %d, %d) = %d, %d, %v; want %d, %d, %v",
					tt.w, tt.h, tt.dim, tt.pix, w, h, ok, tt.wantW, tt.wantH, tt.wantConstrained)
			}
		})
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"\xff\xd8\xff\xe0", "jpeg"},
		{"\x89PNG\r\n\x1a\n", "png"},
		{"GIF89a", "gif"},
		{"RIFF\x00\x00\x00\x00WEBP", "webp"},
		{"BM\x00\x00", "bmp"},
		{"II*\x00", "tiff"},
		{"MM\x00*", "tiff"},
		{"\x00\x00\x00\x1cftypavif", "avif"},
		{"\x00\x00\x00\x1cftypheic", "heif"},
		{"\x00\x00\x00\x1cftypisom", "unknown"},
		{"\xff\x0a", "jxl"},
		{"%PDF-1.4", "pdf"},
		{"", "unknown"},
		{"hello", "unknown"},
	}

	for _, tt := range tests {
		if got := Sniff([]byte(tt.header)); got != tt.want {
			t.Errorf("Sniff(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jpeg", FormatJPEG, false},
		{"JPG", FormatJPEG, false},
		{"png", FormatPNG, false},
		{"webp", FormatJPEG, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
	if FormatPNG.ContentType() != "image/png" || FormatJPEG.ContentType() != "image/jpeg" {
		t.Error("unexpected content types")
	}
}
