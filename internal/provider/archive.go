package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"archive-viewer/internal/archive"
	"archive-viewer/internal/filter"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/paths"
)

// ArchiveProvider serves zip, rar and 7z archives. The 7z variant differs
// only in how folders and files are discovered.
type ArchiveProvider struct {
	base

	// mu guards reader, including Close.
	mu     sync.Mutex
	reader archive.Reader

	dirs  []string
	files []string
	// names maps file entries to the name stored in the archive.
	names map[string]string
}

// NewArchive wraps a zip or rar reader. A nil filter means filter.Physical.
// The separator is a backslash if any entry name contains one.
func NewArchive(rd archive.Reader, f filter.FileFilter) *ArchiveProvider {
	if f == nil {
		f = filter.Physical{}
	}

	entries := rd.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	sep := paths.DetectSeparator(names)

	p := &ArchiveProvider{
		reader: rd,
		names:  make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		if e.IsDir {
			if key := paths.Normalize(e.Name, sep); key != paths.Root {
				p.dirs = append(p.dirs, key)
			}
			continue
		}
		p.addFile(paths.Clean(e.Name, sep), e.Name)
	}

	p.init(KindArchive, sep, f, discovery{
		folders:  p.archiveFolders,
		children: p.childEntries,
	})
	return p
}

// NewSevenZip wraps a 7z reader. Entries use a forward slash separator and
// directory entries are ignored.
func NewSevenZip(rd archive.Reader, f filter.FileFilter) *ArchiveProvider {
	if f == nil {
		f = filter.Physical{}
	}

	entries := rd.Entries()
	p := &ArchiveProvider{
		reader: rd,
		names:  make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		p.addFile(paths.Clean(e.Name, paths.Slash), e.Name)
	}

	p.init(KindSevenZip, paths.Slash, f, discovery{
		folders:  p.sevenZipFolders,
		children: p.childEntries,
	})
	return p
}

// addFile records a cleaned file key and the stored name it extracts from.
// When two stored names clean to the same key the first one wins.
func (p *ArchiveProvider) addFile(key, name string) {
	if key == "" {
		return
	}
	if _, dup := p.names[key]; dup {
		logging.Debug("Archive entry %q duplicates %q, skipping", name, p.names[key])
		return
	}
	p.files = append(p.files, key)
	p.names[key] = name
}

// archiveFolders returns Root, the explicit directories and every folder
// implied by a file path.
func (p *ArchiveProvider) archiveFolders(ctx context.Context) ([]string, error) {
	set := map[string]struct{}{paths.Root: {}}
	for _, dir := range p.dirs {
		set[dir] = struct{}{}
		for _, a := range paths.Ancestors(dir, p.sep) {
			set[a] = struct{}{}
		}
	}
	if err := p.addFileFolders(ctx, set); err != nil {
		return nil, err
	}
	return keys(set), nil
}

// sevenZipFolders returns Root and every proper prefix of every file.
func (p *ArchiveProvider) sevenZipFolders(ctx context.Context) ([]string, error) {
	set := map[string]struct{}{paths.Root: {}}
	if err := p.addFileFolders(ctx, set); err != nil {
		return nil, err
	}
	return keys(set), nil
}

func (p *ArchiveProvider) addFileFolders(ctx context.Context, set map[string]struct{}) error {
	for i, file := range p.files {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for _, a := range paths.Ancestors(file, p.sep) {
			set[a] = struct{}{}
		}
	}
	return nil
}

func (p *ArchiveProvider) childEntries(ctx context.Context, folder string) ([]string, error) {
	var children []string
	for i, file := range p.files {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if paths.IsDirectChild(file, folder, p.sep) && p.filter.IsImage(file) {
			children = append(children, file)
		}
	}
	return children, nil
}

func (p *ArchiveProvider) OpenEntry(ctx context.Context, entry string) (io.ReadCloser, string, error) {
	data, err := p.extract(ctx, entry)
	if err != nil {
		return nil, "", err
	}
	return newMemEntry(data), filter.BaseName(entry), nil
}

func (p *ArchiveProvider) OpenEntryAt(ctx context.Context, entry string) (io.ReadSeekCloser, string, error) {
	data, err := p.extract(ctx, entry)
	if err != nil {
		return nil, "", err
	}
	return newMemEntry(data), filter.BaseName(entry), nil
}

// extract decompresses one entry into memory while holding the archive lock.
func (p *ArchiveProvider) extract(ctx context.Context, entry string) ([]byte, error) {
	if err := p.check(ctx, "read"); err != nil {
		return nil, err
	}
	name, ok := p.names[entry]
	if !ok {
		return nil, &Error{Code: CodeEntryNotFound, Op: "read", Entry: entry}
	}

	start := time.Now()
	data, err := p.extractLocked(name)
	p.observeRead(start, int64(len(data)), err)
	if err != nil {
		if errors.Is(err, archive.ErrEntryNotFound) {
			return nil, &Error{Code: CodeEntryNotFound, Op: "read", Entry: entry, Err: err}
		}
		logging.Debug("Failed to extract %s: %v", entry, err)
		return nil, wrap(CodeRead, "read", entry, err)
	}
	return data, nil
}

func (p *ArchiveProvider) extractLocked(name string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reader == nil {
		return nil, &Error{Code: CodeDisposed, Op: "read", Entry: name}
	}

	rc, err := p.reader.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	return data, nil
}

func (p *ArchiveProvider) Close() error {
	if !p.markClosed() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.reader.Close()
	p.reader = nil
	if err != nil {
		return fmt.Errorf("close %s archive: %w", p.kind, err)
	}
	return nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
