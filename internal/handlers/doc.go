// Package handlers provides the HTTP API of the archive viewer.
//
// It includes handlers for:
//   - Listing the library and its cached cover thumbnails
//   - Opening a library item, with a password for encrypted archives
//   - Browsing folders and entries of the open item and streaming images
//   - Single and per-folder thumbnails with placeholders for unreadable pages
//   - Session navigation (current entry, advance, random)
//   - Health checks and version information
//
// Errors are JSON [ErrorResponse] bodies. An encrypted archive opened
// without a password answers 401 with code "password_required".
package handlers
