package provider

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"archive-viewer/internal/archive"
	"archive-viewer/internal/filesystem"
	"archive-viewer/internal/filter"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/metrics"
	"archive-viewer/internal/pdf"
)

// SupportedExtensions lists the container file extensions Open accepts,
// mapped to the kind they usually hold. Archive kinds are confirmed by
// magic bytes when opened.
var SupportedExtensions = map[string]Kind{
	".zip": KindArchive,
	".cbz": KindArchive,
	".rar": KindArchive,
	".cbr": KindArchive,
	".7z":  KindSevenZip,
	".cb7": KindSevenZip,
	".pdf": KindPdf,
}

// IsSupportedFile reports whether name has a container extension.
func IsSupportedFile(name string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Options configures Open.
type Options struct {
	// Password decrypts encrypted archives.
	Password string
	// Filter overrides the default filter of archive and directory providers.
	Filter filter.FileFilter
	// PDF configures page rendering.
	PDF pdf.Options
	// OpenPDF loads documents. Defaults to pdf.OpenFile.
	OpenPDF func(path string, opts pdf.Options) (pdf.Document, error)
}

// Open picks the provider variant for path: a directory becomes a
// FileSystemProvider, a .pdf file a PdfProvider, and anything else is
// opened as an archive, with 7z detected from its magic bytes.
func Open(ctx context.Context, path string, opts Options) (Provider, error) {
	p, kind, err := open(ctx, path, opts)

	status := metrics.Status(err)
	if errors.Is(err, ErrEncryptedNoPassword) {
		status = "encrypted"
	}
	metrics.ProviderOpensTotal.WithLabelValues(kind, status).Inc()

	if err != nil {
		logging.Debug("Failed to open %s: %v", path, err)
		return nil, err
	}
	logging.Info("Opened %s provider for %s", kind, filepath.Base(path))
	return p, nil
}

func open(ctx context.Context, path string, opts Options) (Provider, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "unknown", wrap(CodeCanceled, "open", path, err)
	}

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, "unknown", wrap(CodeOpen, "open", path, err)
	}

	if info.IsDir() {
		p, err := NewFileSystem(path, opts.Filter)
		if err != nil {
			return nil, KindFileSystem.String(), err
		}
		return p, KindFileSystem.String(), nil
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		openPDF := opts.OpenPDF
		if openPDF == nil {
			openPDF = pdf.OpenFile
		}
		doc, err := openPDF(path, opts.PDF)
		if err != nil {
			return nil, KindPdf.String(), wrap(CodeOpen, "open", path, err)
		}
		return NewPdf(doc), KindPdf.String(), nil
	}

	rd, err := archive.OpenFile(path, opts.Password)
	switch {
	case errors.Is(err, archive.ErrEncrypted):
		return nil, KindArchive.String(), &Error{Code: CodeEncryptedNoPassword, Op: "open", Entry: path, Err: err}
	case err != nil:
		return nil, KindArchive.String(), wrap(CodeOpen, "open", path, err)
	}

	if rd.Format() == archive.FormatSevenZip {
		return NewSevenZip(rd, opts.Filter), KindSevenZip.String(), nil
	}
	return NewArchive(rd, opts.Filter), KindArchive.String(), nil
}
