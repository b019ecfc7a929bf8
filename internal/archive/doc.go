/*
Package archive exposes zip, rar and 7z containers through one flat Reader:
an ordered list of entries (name, directory flag, encryption flag, size) and
an Open call that streams a single entry.

The format is detected from the leading magic bytes, not the file extension:

	r, err := archive.OpenFile("/library/book.cbz", "")
	if errors.Is(err, archive.ErrEncrypted) {
	    // prompt for a password and call OpenFile again
	}
	defer r.Close()

	for _, e := range r.Entries() {
	    fmt.Println(e.Name, e.IsDir)
	}

# Encryption

Open probes the first non-directory entry when no password is given. If that
entry is encrypted, Open fails with ErrEncrypted so the caller can ask for
credentials. A wrong password is not detected at open time for any format:
headers stay readable and the failure surfaces on the first entry read.

# Concurrency

Readers are not safe for concurrent use. rar archives are solid streams and
re-scan from the start on every Open; callers must serialize access and fully
consume or close one entry before opening the next.
*/
package archive
