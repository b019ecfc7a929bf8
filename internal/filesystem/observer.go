package filesystem

// RetryEvent is one step of the ESTALE retry loop.
type RetryEvent int

const (
	// RetryStale means the operation returned a stale file handle.
	RetryStale RetryEvent = iota
	// RetryAttempt means another try was scheduled after a backoff.
	RetryAttempt
	// RetrySuccess means the operation succeeded after at least one retry.
	RetrySuccess
	// RetryFailure means the retry budget was spent.
	RetryFailure
)

func (e RetryEvent) String() string {
	switch e {
	case RetryStale:
		return "stale"
	case RetryAttempt:
		return "attempt"
	case RetrySuccess:
		return "success"
	case RetryFailure:
		return "failure"
	}
	return "unknown"
}

// Observer receives filesystem metrics. The metrics package implements it and
// imports this package, so the dependency runs through this interface.
//
// volume is "library", "cache" or "unknown" (see [VolumeResolver]) and op is
// "stat", "open" or "readdir".
type Observer interface {
	// Operation records a finished operation, retries included.
	Operation(volume, op string, seconds float64, err error)
	Retry(volume, op string, ev RetryEvent)
}

type nopObserver struct{}

func (nopObserver) Operation(string, string, float64, error) {}
func (nopObserver) Retry(string, string, RetryEvent)         {}

var observer Observer = nopObserver{}

// SetObserver installs o for every later operation. nil disables recording.
func SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	observer = o
}
