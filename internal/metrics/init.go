package metrics

// Provider kinds as they appear in metric labels.
var providerKinds = []string{"archive", "7z", "pdf", "filesystem"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Provider lifecycle, discovery and reads ---
	for _, kind := range append(providerKinds, "unknown") {
		ProviderOpensTotal.WithLabelValues(kind, "success")
		ProviderOpensTotal.WithLabelValues(kind, "error")
		ProviderOpensTotal.WithLabelValues(kind, "encrypted")
	}

	for _, kind := range providerKinds {
		ProvidersActive.WithLabelValues(kind)
		for _, op := range []string{"folders", "children", "all"} {
			ProviderDiscoveryTotal.WithLabelValues(kind, op, "success")
			ProviderDiscoveryTotal.WithLabelValues(kind, op, "error")
			ProviderDiscoveryDuration.WithLabelValues(kind, op)
			ProviderDiscoveryCacheHits.WithLabelValues(kind, op)
		}
		ProviderReadsTotal.WithLabelValues(kind, "success")
		ProviderReadsTotal.WithLabelValues(kind, "error")
		ProviderReadDuration.WithLabelValues(kind)
		ProviderReadBytes.WithLabelValues(kind)
		LibraryItemsTotal.WithLabelValues(kind)
	}

	// --- Session ---
	SessionSwapsTotal.WithLabelValues("success")
	SessionSwapsTotal.WithLabelValues("error")
	for _, mode := range []string{"sequential", "random", "noop"} {
		SessionAdvancesTotal.WithLabelValues(mode)
	}

	// --- Thumbnails ---
	for _, t := range []string{"entry", "cover"} {
		ThumbnailGenerationsTotal.WithLabelValues(t, "success")
		ThumbnailGenerationsTotal.WithLabelValues(t, "error")
		ThumbnailGenerationDuration.WithLabelValues(t)
	}
	ThumbnailBatchesTotal.WithLabelValues("complete")
	ThumbnailBatchesTotal.WithLabelValues("canceled")
	for _, format := range []string{"jpeg", "png", "gif", "webp", "bmp", "tiff", "unknown"} {
		ThumbnailImageDecodeByFormat.WithLabelValues(format)
	}

	// --- Cover cache ---
	for _, store := range []string{"rows", "badger", "s3"} {
		for _, op := range []string{"get", "put", "upload", "download", "delete"} {
			CacheOperationsTotal.WithLabelValues(store, op, "success")
			CacheOperationsTotal.WithLabelValues(store, op, "error")
			CacheOperationDuration.WithLabelValues(store, op)
		}
	}
	for _, reason := range []string{"absent", "stale", "blob_missing"} {
		CoverCacheMisses.WithLabelValues(reason)
	}
	LibraryCoverWarmsTotal.WithLabelValues("success")
	LibraryCoverWarmsTotal.WithLabelValues("error")

	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"library", "cache", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"read", "stat", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
