package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"archive-viewer/internal/filter"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/media"
	"archive-viewer/internal/paths"
	"archive-viewer/internal/pdf"
	"archive-viewer/internal/provider"
	"archive-viewer/internal/workers"

	"golang.org/x/term"
)

const defaultTimeout = 5 * time.Minute

type options struct {
	password string
	verify   bool
	dpi      int
}

func main() {
	var opts options
	flag.StringVar(&opts.password, "password", "", "archive password (prompted for when needed)")
	flag.BoolVar(&opts.verify, "verify", false, "read every entry and report failures")
	flag.IntVar(&opts.dpi, "dpi", pdf.DefaultDPI, "PDF rasterization density")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, defaultTimeout)
	defer cancelTimeout()

	if err := run(ctx, os.Stdout, flag.Arg(0), opts, promptPassword); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", provider.UserMessage(err))
		logging.Debug("inspect: %v", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Archive Viewer Inspector")
	fmt.Println("")
	fmt.Println("Usage: inspect [flags] <archive|pdf|directory>")
	fmt.Println("")
	fmt.Println("Prints the folder tree of a source with image counts and cover pages.")
	fmt.Println("")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

// promptPassword reads a password from the terminal without echo.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", errors.New("password required and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

// openSource opens path, asking prompt for a password once if the source
// turns out to be encrypted.
func openSource(ctx context.Context, path string, opts options, prompt func() (string, error)) (provider.Provider, error) {
	popts := provider.Options{
		Password: opts.password,
		PDF:      pdf.Options{DPI: opts.dpi},
	}
	if filter.Ext(path) == ".pdf" {
		if err := media.InitVips(); err != nil {
			return nil, err
		}
	}

	p, err := provider.Open(ctx, path, popts)
	if errors.Is(err, provider.ErrEncryptedNoPassword) && opts.password == "" && prompt != nil {
		if popts.Password, err = prompt(); err != nil {
			return nil, err
		}
		p, err = provider.Open(ctx, path, popts)
	}
	return p, err
}

func run(ctx context.Context, out io.Writer, path string, opts options, prompt func() (string, error)) error {
	p, err := openSource(ctx, path, opts, prompt)
	if err != nil {
		return err
	}
	defer p.Close()

	folders, err := p.FolderEntries(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s)\n", path, p.Kind())
	total := 0
	for _, folder := range folders {
		children, err := p.ChildEntries(ctx, folder)
		if err != nil {
			return err
		}
		total += len(children)

		depth := 0
		name := "."
		if folder != paths.Root {
			depth = len(paths.Ancestors(folder, p.Separator())) + 1
			name = filter.BaseName(folder)
		}
		line := fmt.Sprintf("%s%s  %d images", strings.Repeat("  ", depth), name, len(children))
		if cover, ok := p.Filter().FindCoverPage(children); ok {
			line += "  cover: " + filter.BaseName(cover)
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%d folders, %d images\n", len(folders), total)

	if !opts.verify {
		return nil
	}
	return verify(ctx, out, p)
}

// verify reads every entry. An encrypted zip opened with a wrong password
// only fails here.
func verify(ctx context.Context, out io.Writer, p provider.Provider) error {
	entries, err := p.AllFileEntries(ctx)
	if err != nil {
		return err
	}

	var failed atomic.Int32
	errs := make([]error, len(entries))
	err = workers.Each(ctx, workers.ForIO(4), len(entries), func(ctx context.Context, i int) {
		rc, _, err := p.OpenEntry(ctx, entries[i])
		if err == nil {
			_, err = io.Copy(io.Discard, rc)
			rc.Close()
		}
		if err != nil {
			errs[i] = err
			failed.Add(1)
		}
	})
	if err != nil {
		return err
	}

	for i, err := range errs {
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %s\n", entries[i], provider.UserMessage(err))
		}
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d entries unreadable: %w", n, len(entries), errors.Join(errs...))
	}
	fmt.Fprintf(out, "all %d entries readable\n", len(entries))
	return nil
}
