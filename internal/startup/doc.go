// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads defaults, an optional YAML/TOML file and environment
// variables with the VIEWER_ prefix, in increasing precedence. Nested keys
// join with underscores:
//
//   - VIEWER_LIBRARY_DIR: Directory of archives, PDFs and folders (default: /library)
//   - VIEWER_CACHE_DIR: Cover database and blob directory (default: /cache)
//   - VIEWER_PORT: HTTP server port (default: 8080)
//   - VIEWER_METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - VIEWER_METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - VIEWER_LOG_LEVEL: debug, info, warn, error (default: info)
//   - VIEWER_LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - VIEWER_COVER_WARM_INTERVAL: Library cover warm-up period, 0 disables (default: 6h)
//   - VIEWER_THUMBNAIL_SIZE, _QUALITY, _FORMAT: Thumbnail box, JPEG quality, jpeg|png
//   - VIEWER_PDF_DPI: PDF rasterization density (default: 150)
//   - VIEWER_MEMORY_LIMIT, VIEWER_MEMORY_RATIO: Container limit in bytes and heap share
//   - VIEWER_BLOB_BACKEND: badger or s3 (default: badger)
//   - VIEWER_BLOB_S3_BUCKET, _PREFIX, _REGION, _ENDPOINT, _ACCESS_KEY_ID, _SECRET_ACCESS_KEY
//
// Values are validated with struct tags; see [Validate].
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: GOMEMLIMIT configuration
//   - [LogImagingInit]: libvips availability and thumbnail settings
//   - [LogCacheInit]: Cover cache backend and timing
//   - [LogCoverWarmInit]: Periodic cover warm-up schedule
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
