/*
Package provider normalizes archives, PDF documents and directory trees into
one virtual folder/entry model.

Every backing store is exposed through the [Provider] interface. Entries are
path-like keys joined with the provider's separator; [paths.Root] names the
top-level folder and always sorts first.

# Variants

  - [ArchiveProvider] (KindArchive): zip and rar. Folders are synthesized from
    file paths because archives rarely list every directory.
  - [ArchiveProvider] (KindSevenZip): 7z. Directory entries are ignored and
    folders come only from file path prefixes.
  - [PdfProvider]: one folder holding pages "0", "1", ... rendered to PNG.
  - [FileSystemProvider]: a directory tree on disk, dot-files skipped.

# Discovery

Folder and file listings are computed on first use and cached for the life
of the provider. Discovery is single-flight: concurrent first callers wait for
one computation. Failed discoveries are not cached.

# Errors

All failures are returned as *Error values carrying a [Code]. Match them with
errors.Is against the sentinels:

	p, err := provider.Open(ctx, path, provider.Options{})
	switch {
	case errors.Is(err, provider.ErrEncryptedNoPassword):
	    // ask for a password and call Open again with Options.Password
	case err != nil:
	    fmt.Println(provider.UserMessage(err))
	}

# Concurrency

All methods are safe for concurrent use. Archive-backed providers serialize
entry extraction and Close behind one mutex since the underlying readers keep
a single cursor.
*/
package provider
