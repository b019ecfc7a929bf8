package metrics

import "archive-viewer/internal/filesystem"

type filesystemObserver struct{}

// NewFilesystemObserver returns a filesystem.Observer that records into the
// Filesystem* collectors.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) Operation(volume, op string, seconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, op).Observe(seconds)
	FilesystemRetryDuration.WithLabelValues(op, volume).Observe(seconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, op).Inc()
	}
}

func (filesystemObserver) Retry(volume, op string, ev filesystem.RetryEvent) {
	switch ev {
	case filesystem.RetryStale:
		FilesystemStaleErrors.WithLabelValues(op, volume).Inc()
	case filesystem.RetryAttempt:
		FilesystemRetryAttempts.WithLabelValues(op, volume).Inc()
	case filesystem.RetrySuccess:
		FilesystemRetrySuccess.WithLabelValues(op, volume).Inc()
	case filesystem.RetryFailure:
		FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
	}
}
