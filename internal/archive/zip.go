package archive

import (
	"fmt"
	"io"

	"github.com/yeka/zip"
)

// zipReader reads PKZIP archives, including ZipCrypto and AES entries.
type zipReader struct {
	zr      *zip.Reader
	closer  io.Closer
	entries []Entry
	files   map[string]*zip.File
}

func newZipReader(r io.ReaderAt, size int64, password string, closer io.Closer) (*zipReader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("unable to create zip reader: %w", err)
	}

	z := &zipReader{
		zr:      zr,
		closer:  closer,
		entries: make([]Entry, 0, len(zr.File)),
		files:   make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		encrypted := f.IsEncrypted()
		if encrypted && password != "" {
			f.SetPassword(password)
		}
		z.entries = append(z.entries, Entry{
			Name:      f.Name,
			IsDir:     f.FileInfo().IsDir(),
			Encrypted: encrypted,
			Size:      int64(f.UncompressedSize64),
		})
		z.files[f.Name] = f
	}
	return z, nil
}

func (z *zipReader) Format() Format { return FormatZip }

func (z *zipReader) Entries() []Entry { return z.entries }

func (z *zipReader) Open(name string) (io.ReadCloser, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		if f.IsEncrypted() {
			return nil, fmt.Errorf("%s: %w: %w", name, ErrWrongPassword, err)
		}
		return nil, err
	}
	if f.IsEncrypted() {
		return &encryptedEntry{ReadCloser: rc, name: name}, nil
	}
	return rc, nil
}

// encryptedEntry tags read failures of an encrypted entry with
// ErrWrongPassword. A bad password that slips past the verifier only shows
// up as an authentication or checksum failure at the end of the entry.
type encryptedEntry struct {
	io.ReadCloser
	name string
}

func (e *encryptedEntry) Read(p []byte) (int, error) {
	n, err := e.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%s: %w: %w", e.name, ErrWrongPassword, err)
	}
	return n, err
}

func (z *zipReader) Close() error {
	if z.closer != nil {
		return z.closer.Close()
	}
	return nil
}
