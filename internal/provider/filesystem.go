package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"archive-viewer/internal/filesystem"
	"archive-viewer/internal/filter"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/paths"
)

// FileSystemProvider serves a directory tree. Entries are paths relative to
// the root joined with the OS separator.
type FileSystemProvider struct {
	base
	root  string
	dir   *os.File
	retry filesystem.RetryConfig
}

// NewFileSystem opens root, which must be a directory. A nil filter means
// filter.Physical.
func NewFileSystem(root string, f filter.FileFilter) (*FileSystemProvider, error) {
	if f == nil {
		f = filter.Physical{}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, wrap(CodeOpen, "open", root, err)
	}

	retry := filesystem.DefaultRetryConfig()
	info, err := filesystem.StatWithRetry(abs, retry)
	if err != nil {
		return nil, wrap(CodeOpen, "open", root, err)
	}
	if !info.IsDir() {
		return nil, wrap(CodeOpen, "open", root, fmt.Errorf("%s is not a directory", abs))
	}

	dir, err := filesystem.OpenWithRetry(abs, retry)
	if err != nil {
		return nil, wrap(CodeOpen, "open", root, err)
	}

	p := &FileSystemProvider{
		root:  abs,
		dir:   dir,
		retry: retry,
	}
	p.init(KindFileSystem, string(filepath.Separator), f, discovery{
		folders:  p.walkFolders,
		children: p.readFolder,
		all:      p.walkFiles,
	})
	return p, nil
}

// Root returns the absolute directory being served.
func (p *FileSystemProvider) Root() string {
	return p.root
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// walk visits every non-hidden path under the root. Unreadable
// subdirectories are logged and skipped.
func (p *FileSystemProvider) walk(ctx context.Context, visit func(rel string, d fs.DirEntry)) error {
	return filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == p.root {
				return err
			}
			logging.Warn("Skipping unreadable path %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == p.root {
			visit(paths.Root, d)
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		visit(rel, d)
		return nil
	})
}

func (p *FileSystemProvider) walkFolders(ctx context.Context) ([]string, error) {
	var folders []string
	err := p.walk(ctx, func(rel string, d fs.DirEntry) {
		if d.IsDir() {
			folders = append(folders, rel)
		}
	})
	return folders, err
}

func (p *FileSystemProvider) walkFiles(ctx context.Context) (map[string][]string, error) {
	groups := make(map[string][]string)
	err := p.walk(ctx, func(rel string, d fs.DirEntry) {
		if d.IsDir() || !p.filter.IsImage(rel) {
			return
		}
		parent := paths.Parent(rel, p.sep)
		groups[parent] = append(groups[parent], rel)
	})
	return groups, err
}

func (p *FileSystemProvider) readFolder(_ context.Context, folder string) ([]string, error) {
	dir, ok := p.resolve(folder)
	if !ok {
		return nil, &Error{Code: CodeEntryNotFound, Op: "children", Entry: folder}
	}

	entries, err := filesystem.ReadDirWithRetry(dir, p.retry)
	if err != nil {
		return nil, err
	}

	var children []string
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		entry := paths.Join(folder, e.Name(), p.sep)
		if p.filter.IsImage(entry) {
			children = append(children, entry)
		}
	}
	return children, nil
}

// resolve maps an entry to an absolute path, refusing entries that would
// escape the root or pass through a hidden file or directory.
func (p *FileSystemProvider) resolve(entry string) (string, bool) {
	if entry == paths.Root || entry == "" {
		return p.root, true
	}
	if !filepath.IsLocal(entry) {
		return "", false
	}
	for _, part := range strings.Split(filepath.Clean(entry), string(filepath.Separator)) {
		if isHidden(part) {
			return "", false
		}
	}
	return filepath.Join(p.root, entry), true
}

func (p *FileSystemProvider) OpenEntry(ctx context.Context, entry string) (io.ReadCloser, string, error) {
	f, err := p.open(ctx, entry)
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Base(entry), nil
}

func (p *FileSystemProvider) OpenEntryAt(ctx context.Context, entry string) (io.ReadSeekCloser, string, error) {
	f, err := p.open(ctx, entry)
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Base(entry), nil
}

func (p *FileSystemProvider) open(ctx context.Context, entry string) (*os.File, error) {
	if err := p.check(ctx, "read"); err != nil {
		return nil, err
	}

	path, ok := p.resolve(entry)
	if !ok || path == p.root {
		return nil, &Error{Code: CodeEntryNotFound, Op: "read", Entry: entry}
	}

	start := time.Now()
	info, err := filesystem.StatWithRetry(path, p.retry)
	if err != nil {
		p.observeRead(start, 0, err)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Code: CodeEntryNotFound, Op: "read", Entry: entry, Err: err}
		}
		return nil, wrap(CodeRead, "read", entry, err)
	}
	if info.IsDir() {
		return nil, &Error{Code: CodeEntryNotFound, Op: "read", Entry: entry}
	}

	f, err := filesystem.OpenWithRetry(path, p.retry)
	p.observeRead(start, info.Size(), err)
	if err != nil {
		return nil, wrap(CodeRead, "read", entry, err)
	}
	return f, nil
}

func (p *FileSystemProvider) Close() error {
	if !p.markClosed() {
		return nil
	}
	return p.dir.Close()
}
