package middleware

import (
	"compress/gzip"
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// Level is the gzip compression level (gzip.BestSpeed to gzip.BestCompression)
	Level int
	// CompressibleTypes lists the content types to compress. Page images and
	// thumbnails are already compressed and are left alone.
	CompressibleTypes []string
}

// DefaultCompressionConfig returns the defaults for JSON API responses
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"application/json",
			"text/plain",
			"image/svg+xml",
		},
	}
}

// Compression returns a middleware that gzips responses of the configured
// content types once they reach MinSize.
func Compression(config CompressionConfig) (func(http.Handler) http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(config.MinSize),
		gzhttp.CompressionLevel(config.Level),
		gzhttp.ContentTypes(config.CompressibleTypes),
	)
	if err != nil {
		return nil, fmt.Errorf("compression middleware: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}
