package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_viewer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Provider metrics
var (
	ProviderOpensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_provider_opens_total",
			Help: "Total number of media provider opens by kind and status",
		},
		[]string{"kind", "status"},
	)

	ProvidersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "archive_viewer_providers_active",
			Help: "Number of media providers currently open",
		},
		[]string{"kind"},
	)

	ProviderDiscoveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_provider_discovery_total",
			Help: "Total number of folder/file discovery runs",
		},
		[]string{"kind", "operation", "status"}, // operation: "folders", "children", "all"
	)

	ProviderDiscoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_provider_discovery_duration_seconds",
			Help:    "Folder/file discovery duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind", "operation"},
	)

	ProviderDiscoveryCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_provider_discovery_cache_hits_total",
			Help: "Total number of discovery calls answered from the memoized listing",
		},
		[]string{"kind", "operation"},
	)

	ProviderReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_provider_reads_total",
			Help: "Total number of entry reads by kind and status",
		},
		[]string{"kind", "status"},
	)

	ProviderReadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_provider_read_duration_seconds",
			Help:    "Entry extraction/render duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	ProviderReadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_provider_read_bytes_total",
			Help: "Total bytes extracted or rendered from entries",
		},
		[]string{"kind"},
	)
)

// Session metrics
var (
	SessionSwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_session_swaps_total",
			Help: "Total number of provider swaps by status",
		},
		[]string{"status"},
	)

	SessionAdvancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_session_advances_total",
			Help: "Total number of navigation advances by mode",
		},
		[]string{"mode"}, // "sequential", "random", "noop"
	)

	SessionFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_viewer_session_files",
			Help: "Number of image entries in the active session",
		},
	)

	SessionFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_viewer_session_folders",
			Help: "Number of folders in the active session",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"type", "status"}, // type: "entry", "cover"
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	ThumbnailPlaceholdersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_viewer_thumbnail_placeholders_total",
			Help: "Total number of placeholder images served for unreadable entries",
		},
	)

	ThumbnailBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_thumbnail_batches_total",
			Help: "Total number of bulk thumbnail loads by outcome",
		},
		[]string{"status"}, // "complete", "canceled"
	)

	ThumbnailImageDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_thumbnail_decode_by_format_total",
			Help: "Total number of decoded images by source format",
		},
		[]string{"format"},
	)
)

// Cover cache metrics
var (
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_cache_operations_total",
			Help: "Total number of cover cache operations",
		},
		[]string{"store", "operation", "status"}, // store: "rows", "badger", "s3"
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_cache_operation_duration_seconds",
			Help:    "Cover cache operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"store", "operation"},
	)

	CoverCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_viewer_cover_cache_hits_total",
			Help: "Total number of library cover cache hits",
		},
	)

	CoverCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_cover_cache_misses_total",
			Help: "Total number of library cover cache misses by reason",
		},
		[]string{"reason"}, // "absent", "stale", "blob_missing"
	)
)

// Library metrics
var (
	LibraryItemsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "archive_viewer_library_items",
			Help: "Number of top-level library items by kind",
		},
		[]string{"kind"},
	)

	LibraryScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_library_scan_duration_seconds",
			Help:    "Library directory scan duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	LibraryCoverWarmsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_library_cover_warms_total",
			Help: "Total number of background cover warm-ups by status",
		},
		[]string{"status"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_filesystem_retry_attempts_total",
			Help: "Total number of NFS stale handle retry attempts",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_filesystem_retry_failures_total",
			Help: "Total number of operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors encountered",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_filesystem_retry_duration_seconds",
			Help:    "Total duration of retried filesystem operations in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_viewer_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_viewer_memory_paused",
			Help: "1 while bulk image work is paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_viewer_memory_gc_pauses_total",
			Help: "Total number of times bulk work was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "archive_viewer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// Status returns the "success"/"error" label value for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
