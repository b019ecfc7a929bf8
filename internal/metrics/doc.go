// Package metrics provides Prometheus instrumentation for the archive-viewer application.
//
// All metrics are registered on the default registry through promauto and are
// prefixed with "archive_viewer_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Provider Metrics
//
// Track the media providers (archive, 7z, pdf, filesystem):
//   - ProviderOpensTotal: Counter of opens by kind and status (success/error/encrypted)
//   - ProvidersActive: Gauge of open providers by kind
//   - ProviderDiscoveryTotal / ProviderDiscoveryDuration: folder and file discovery runs
//   - ProviderDiscoveryCacheHits: discovery calls answered from the memoized listing
//   - ProviderReadsTotal / ProviderReadDuration / ProviderReadBytes: entry reads
//
// ## Session Metrics
//
//   - SessionSwapsTotal: Counter of provider swaps by status
//   - SessionAdvancesTotal: Counter of navigation steps by mode
//   - SessionFiles / SessionFolders: size of the active listing
//
// ## Thumbnail and Cover Cache Metrics
//
//   - ThumbnailGenerationsTotal / ThumbnailGenerationDuration: by type (entry/cover)
//   - ThumbnailPlaceholdersTotal: placeholders served for unreadable entries
//   - ThumbnailBatchesTotal: bulk loads by outcome (complete/canceled)
//   - CacheOperationsTotal / CacheOperationDuration: row and blob store calls
//   - CoverCacheHits / CoverCacheMisses: library cover lookups
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer returned by NewFilesystemObserver:
//   - FilesystemOperationDuration / FilesystemOperationErrors
//   - FilesystemRetryAttempts / FilesystemRetrySuccess / FilesystemRetryFailures
//   - FilesystemStaleErrors / FilesystemRetryDuration
//
// # Usage
//
//	mux.Handle("/metrics", promhttp.Handler())
//
//	metrics.ProviderReadsTotal.WithLabelValues("archive", "success").Inc()
//
// # Collector
//
// [Collector] polls a [StatsProvider] on an interval and updates the library
// and session gauges:
//
//	collector := metrics.NewCollector(statsProvider, 1*time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Entry read error rate by provider kind:
//
//	sum(rate(archive_viewer_provider_reads_total{status="error"}[5m])) by (kind)
//
// Cover cache hit rate:
//
//	rate(archive_viewer_cover_cache_hits_total[5m]) /
//	(rate(archive_viewer_cover_cache_hits_total[5m]) + sum(rate(archive_viewer_cover_cache_misses_total[5m])))
package metrics
