package handlers

import (
	"errors"
	"net/http"

	"archive-viewer/internal/library"
)

// LibraryResponse lists the library items.
type LibraryResponse struct {
	Items []library.Item `json:"items"`
	Total int            `json:"total"`
}

// ListLibrary returns the top-level archives, PDFs and folders of the library.
func (h *Handlers) ListLibrary(w http.ResponseWriter, r *http.Request) {
	items, err := h.library.Items(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []library.Item{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, LibraryResponse{Items: items, Total: len(items)})
}

// GetLibraryCover returns the cover thumbnail of ?item=. Items without any
// image get the placeholder.
func (h *Handlers) GetLibraryCover(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("item")

	cover, err := h.library.Cover(r.Context(), name)
	switch {
	case err == nil:
		if cover.Cached {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		writeImage(w, cover.Data, cover.ContentType, false)
	case errors.Is(err, library.ErrNoImages):
		writeImage(w, h.thumbs.Placeholder(), h.thumbs.Options().Format.ContentType(), true)
	default:
		writeError(w, r, err)
	}
}
