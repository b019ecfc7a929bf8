package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"archive-viewer/internal/logging"
)

var (
	// ErrEncrypted indicates the archive needs a password and none was given.
	ErrEncrypted = errors.New("archive: encrypted, password required")
	// ErrUnsupportedFormat indicates the data is not a zip, rar or 7z archive.
	ErrUnsupportedFormat = errors.New("archive: unsupported format")
	// ErrEntryNotFound indicates the named entry is not in the archive.
	ErrEntryNotFound = errors.New("archive: entry not found")
	// ErrWrongPassword indicates an encrypted entry could not be decrypted
	// with the password given at open.
	ErrWrongPassword = errors.New("archive: wrong password")
)

// Format identifies a container type.
type Format int

const (
	// FormatUnknown is returned for unrecognized data.
	FormatUnknown Format = iota
	// FormatZip is a PKZIP archive (zip, cbz).
	FormatZip
	// FormatRar is a RAR 1.5-5.0 archive (rar, cbr).
	FormatRar
	// FormatSevenZip is a 7z archive (7z, cb7).
	FormatSevenZip
)

// String returns the conventional extension-like name of the format.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatRar:
		return "rar"
	case FormatSevenZip:
		return "7z"
	default:
		return "unknown"
	}
}

// Entry is one item of an archive's flat listing.
type Entry struct {
	Name      string
	IsDir     bool
	Encrypted bool
	Size      int64
}

// Reader gives access to an opened archive.
type Reader interface {
	// Format reports the container type.
	Format() Format
	// Entries returns the listing in archive order.
	Entries() []Entry
	// Open streams the named entry. The returned reader must be closed
	// before the next call to Open.
	Open(name string) (io.ReadCloser, error)
	// Close releases the underlying source.
	Close() error
}

var magics = []struct {
	format Format
	magic  []byte
}{
	{FormatZip, []byte("PK\x03\x04")},
	{FormatZip, []byte("PK\x05\x06")}, // empty archive
	{FormatRar, []byte("Rar!\x1a\x07")},
	{FormatSevenZip, []byte("7z\xbc\xaf\x27\x1c")},
}

// Detect reads the leading bytes of r and returns the archive format.
func Detect(r io.ReaderAt) (Format, error) {
	header := make([]byte, 8)
	n, err := r.ReadAt(header, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("read archive header: %w", err)
	}
	header = header[:n]

	for _, m := range magics {
		if bytes.HasPrefix(header, m.magic) {
			return m.format, nil
		}
	}
	return FormatUnknown, ErrUnsupportedFormat
}

// Open detects the format of r and opens it. closer, if not nil, is closed
// together with the returned Reader and on any open failure.
func Open(r io.ReaderAt, size int64, password string, closer io.Closer) (Reader, error) {
	rd, err := open(r, size, password, closer)
	if err != nil {
		if closer != nil {
			if closeErr := closer.Close(); closeErr != nil {
				logging.Warn("failed to close archive source after open failure: %v", closeErr)
			}
		}
		return nil, err
	}
	return rd, nil
}

func open(r io.ReaderAt, size int64, password string, closer io.Closer) (Reader, error) {
	format, err := Detect(r)
	if err != nil {
		return nil, err
	}

	var rd Reader
	switch format {
	case FormatZip:
		rd, err = newZipReader(r, size, password, closer)
	case FormatRar:
		rd, err = newRarReader(r, size, password, closer)
	case FormatSevenZip:
		rd, err = newSevenZipReader(r, size, password, closer)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		if password == "" && IsPasswordError(err) {
			return nil, ErrEncrypted
		}
		return nil, err
	}

	if password == "" {
		encrypted, err := probeEncrypted(rd)
		if err != nil {
			return nil, err
		}
		if encrypted {
			return nil, ErrEncrypted
		}
	}

	logging.Debug("Opened %s archive (%d entries)", format, len(rd.Entries()))
	return rd, nil
}

// OpenFile opens the archive stored at path.
func OpenFile(path, password string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		if closeErr := f.Close(); closeErr != nil {
			logging.Warn("failed to close %s: %v", path, closeErr)
		}
		return nil, err
	}
	return Open(f, info.Size(), password, f)
}

// probeEncrypted checks the first non-directory entry. Formats whose listing
// carries an encryption flag answer from the flag; the others are probed by
// reading the first byte of the entry.
func probeEncrypted(rd Reader) (bool, error) {
	for _, e := range rd.Entries() {
		if e.IsDir {
			continue
		}
		if e.Encrypted {
			return true, nil
		}
		if rd.Format() == FormatZip {
			return false, nil
		}

		rc, err := rd.Open(e.Name)
		if err != nil {
			if IsPasswordError(err) {
				return true, nil
			}
			return false, err
		}
		defer rc.Close()

		var one [1]byte
		if _, err := rc.Read(one[:]); err != nil && !errors.Is(err, io.EOF) {
			if IsPasswordError(err) {
				return true, nil
			}
			// A damaged first entry is a read problem, not an open problem.
			logging.Debug("Encryption probe read of %s failed: %v", e.Name, err)
		}
		return false, nil
	}
	return false, nil
}

// IsPasswordError reports whether err looks like a missing or wrong password.
// The rar and 7z decoders do not export their password errors as values,
// so their messages are matched.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEncrypted) || errors.Is(err, ErrWrongPassword) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypted")
}

// nopReadCloser adapts decoders that have nothing to release per entry.
type nopReadCloser struct {
	io.Reader
}

func (nopReadCloser) Close() error { return nil }
