// Package logging provides a small leveled logger for the archive viewer.
//
// Levels, from most to least verbose:
//   - DEBUG: provider discovery, per-entry reads, cache decisions
//   - INFO: startup, provider swaps, library scans
//   - WARN: recoverable failures (placeholder thumbnails, retries)
//   - ERROR: failures that abort an operation
//   - FATAL: errors that terminate the process
//
// The initial level comes from DEBUG or LOG_LEVEL. The loaded configuration
// may override it later through SetLevel.
package logging
