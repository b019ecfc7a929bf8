package handlers

import (
	"net/http"
	"slices"

	"archive-viewer/internal/provider"
	"archive-viewer/internal/startup"
)

// VersionResponse is the build information plus the supported file types.
type VersionResponse struct {
	startup.BuildInfo
	Extensions []string `json:"extensions"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	exts := make([]string, 0, len(provider.SupportedExtensions))
	for ext := range provider.SupportedExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, VersionResponse{BuildInfo: startup.GetBuildInfo(), Extensions: exts})
}
