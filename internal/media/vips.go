package media

import (
	"errors"
	"fmt"
	"sync"

	"archive-viewer/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

// ErrVipsUnavailable is returned by vips helpers before InitVips.
var ErrVipsUnavailable = errors.New("libvips not available")

var (
	vipsMu      sync.Mutex
	vipsStarted bool
)

// vipsLogging maps the application log level onto a libvips verbosity and
// a handler forwarding libvips messages to the application log. libvips
// levels follow GLib: lower values are more severe.
func vipsLogging(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	verbosity := vips.LogLevelWarning
	switch level {
	case logging.LevelDebug:
		verbosity = vips.LogLevelInfo
	case logging.LevelWarn:
		verbosity = vips.LogLevelCritical
	case logging.LevelError:
		verbosity = vips.LogLevelError
	}

	return verbosity, func(domain string, lvl vips.LogLevel, msg string) {
		switch {
		case lvl > verbosity:
			return
		case lvl <= vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case lvl == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
}

// InitVips starts libvips. It is safe to call more than once. PDF rendering
// and the vips thumbnail path require it.
func InitVips() error {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		return nil
	}

	level, handler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsStarted = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		vips.Shutdown()
		vipsStarted = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether InitVips has run.
func IsVipsAvailable() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsStarted
}

// vipsThumbnail shrinks an encoded image into a size x size box. libvips
// shrinks JPEGs during decode, which keeps large scans cheap.
func vipsThumbnail(data []byte, size int, f Format, quality int) ([]byte, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}

	ref, err := vips.LoadImageFromBuffer(data, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("vips rotate failed: %w", err)
	}
	if err := ref.Thumbnail(size, size, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}

	var out []byte
	if f == FormatPNG {
		out, _, err = ref.ExportPng(vips.NewPngExportParams())
	} else {
		params := vips.NewJpegExportParams()
		params.Quality = clampQuality(quality)
		params.StripMetadata = true
		out, _, err = ref.ExportJpeg(params)
	}
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	return out, nil
}
