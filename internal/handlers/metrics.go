package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"archive-viewer/internal/logging"
)

// MetricsHandler serves the default registry. A collector that fails during
// a scrape is logged and the remaining metrics are still served.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:          scrapeLog{},
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}))
}

// scrapeLog routes promhttp errors into the application log.
type scrapeLog struct{}

func (scrapeLog) Println(v ...any) {
	logging.Warn("Metrics scrape: %s", fmt.Sprint(v...))
}
