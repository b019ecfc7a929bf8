package archive

import (
	"fmt"
	"io"

	"github.com/bodgit/sevenzip"
)

// sevenZipReader reads 7z archives. 7z listings never carry directory
// entries for non-empty folders and always use forward slashes.
type sevenZipReader struct {
	sz      *sevenzip.Reader
	closer  io.Closer
	entries []Entry
	files   map[string]*sevenzip.File
}

func newSevenZipReader(r io.ReaderAt, size int64, password string, closer io.Closer) (*sevenZipReader, error) {
	var (
		sz  *sevenzip.Reader
		err error
	)
	if password != "" {
		sz, err = sevenzip.NewReaderWithPassword(r, size, password)
	} else {
		sz, err = sevenzip.NewReader(r, size)
	}
	if err != nil {
		return nil, fmt.Errorf("open 7z archive: %w", err)
	}

	s := &sevenZipReader{
		sz:      sz,
		closer:  closer,
		entries: make([]Entry, 0, len(sz.File)),
		files:   make(map[string]*sevenzip.File, len(sz.File)),
	}
	for _, f := range sz.File {
		s.entries = append(s.entries, Entry{
			Name:  f.Name,
			IsDir: f.FileInfo().IsDir(),
			Size:  int64(f.UncompressedSize), //nolint:gosec // archive sizes fit in int64
		})
		s.files[f.Name] = f
	}
	return s, nil
}

func (s *sevenZipReader) Format() Format { return FormatSevenZip }

func (s *sevenZipReader) Entries() []Entry { return s.entries }

func (s *sevenZipReader) Open(name string) (io.ReadCloser, error) {
	f, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open file in 7z: %w", err)
	}
	return rc, nil
}

func (s *sevenZipReader) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
