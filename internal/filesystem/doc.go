/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Libraries are commonly mounted over NFS. Stat, open and readdir calls against such
mounts can fail transiently with ESTALE when the server side changes; these helpers
retry with exponential backoff and pass every other error through untouched.

# Usage

	info, err := filesystem.StatWithRetry("/library/book.cbz", filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())

# Retry Behavior

  - MaxRetries: 3 attempts after the first failure
  - InitialBackoff: 50ms, doubled per attempt
  - MaxBackoff: 500ms

Only ESTALE is retried. ENOENT, EACCES and the like return immediately.

# Metrics

The package records nothing by itself. Install an [Observer] at startup (the
metrics package provides one) to export retry counts and operation durations
labeled by the volume resolved through [VolumeResolver].
*/
package filesystem
