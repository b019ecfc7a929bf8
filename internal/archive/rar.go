package archive

import (
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode"
)

// rarReader reads RAR archives. The decoder is forward-only, so every Open
// restarts from the beginning of the source and skips to the entry.
type rarReader struct {
	src      io.ReaderAt
	size     int64
	password string
	closer   io.Closer
	entries  []Entry
}

func newRarReader(r io.ReaderAt, size int64, password string, closer io.Closer) (*rarReader, error) {
	rr := &rarReader{
		src:      r,
		size:     size,
		password: password,
		closer:   closer,
	}

	dec, err := rr.decoder()
	if err != nil {
		return nil, err
	}
	for {
		header, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading rar archive: %w", err)
		}
		rr.entries = append(rr.entries, Entry{
			Name:  header.Name,
			IsDir: header.IsDir,
			Size:  header.UnPackedSize,
		})
	}
	return rr, nil
}

func (r *rarReader) decoder() (*rardecode.Reader, error) {
	dec, err := rardecode.NewReader(io.NewSectionReader(r.src, 0, r.size), r.password)
	if err != nil {
		return nil, fmt.Errorf("invalid or corrupt rar file: %w", err)
	}
	return dec, nil
}

func (r *rarReader) Format() Format { return FormatRar }

func (r *rarReader) Entries() []Entry { return r.entries }

func (r *rarReader) Open(name string) (io.ReadCloser, error) {
	dec, err := r.decoder()
	if err != nil {
		return nil, err
	}
	for {
		header, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("error reading rar archive: %w", err)
		}
		if header.Name == name && !header.IsDir {
			return nopReadCloser{dec}, nil
		}
	}
}

func (r *rarReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
