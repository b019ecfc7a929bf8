// Package main provides the entry point for the Archive Viewer server.
//
// Archive Viewer serves a directory of comic archives (zip/cbz, rar/cbr,
// 7z/cb7), PDF documents and image folders over HTTP. A single viewing
// session holds one open source; clients browse its folders, stream pages,
// request thumbnails and step through pages in order or at random.
//
// # Application Lifecycle
//
//  1. Configuration Loading: defaults, optional config file (-config) and
//     VIEWER_* environment variables; validated, directories prepared
//  2. Memory Configuration: GOMEMLIMIT from VIEWER_MEMORY_LIMIT unless set
//  3. Imaging: libvips startup for PDF rendering and fast thumbnails
//  4. Cover Cache: SQLite rows plus a Badger or S3 blob store
//  5. Background Services:
//     - Memory monitor pausing bulk thumbnail work under pressure
//     - Metrics collector updating library and session gauges
//     - Periodic library cover warm-up
//  6. HTTP Server Setup: routes, metrics, compression and logging middleware
//  7. Graceful Shutdown on SIGINT/SIGTERM
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080): the /api routes, health and version
//  2. Metrics Server (default port 9090, optional): /metrics and /health
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests (30s timeout)
//  2. Shut down the metrics server
//  3. Wait for a running cover warm-up to observe cancellation
//  4. Stop the metrics collector and memory monitor
//  5. Close the session's open source
//  6. Close the cover cache
//  7. Shut down libvips
//
// # Build Requirements
//
// CGO is required for SQLite and libvips:
//
//	go build -o archive-viewer ./cmd/archive-viewer
package main
