package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"archive-viewer/internal/session"
	"archive-viewer/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	Session session.State  `json:"session"`
	Library map[string]int `json:"library"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// libraryError reports why the library directory cannot be listed.
func (h *Handlers) libraryError() string {
	info, err := os.Stat(h.library.Root())
	switch {
	case err != nil:
		return err.Error()
	case !info.IsDir():
		return "library path is not a directory"
	}
	return ""
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Session:      h.session.Snapshot(),
		Library:      h.library.Counts(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if msg := h.libraryError(); msg != "" {
		response.Status = statusDegraded
		response.Ready = false
		response.Error = msg
	}

	status := http.StatusOK
	if !response.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the library directory is readable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.libraryError() == "" {
		writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
