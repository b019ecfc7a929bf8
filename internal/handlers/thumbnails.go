package handlers

import (
	"errors"
	"net/http"
	"sync/atomic"

	"archive-viewer/internal/logging"
	"archive-viewer/internal/media"
	"archive-viewer/internal/paths"
	"archive-viewer/internal/provider"
)

// GetThumbnail returns the thumbnail of entry ?path=. An entry that cannot be
// read or decoded gets the placeholder, marked with X-Placeholder.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	p, err := h.session.Provider()
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.serveThumbnail(w, r, p, r.URL.Query().Get("path"), media.TypeEntry)
}

// GetFolderCover returns the thumbnail of the cover page of ?folder=, root
// by default. A folder without images gets the placeholder.
func (h *Handlers) GetFolderCover(w http.ResponseWriter, r *http.Request) {
	p, err := h.session.Provider()
	if err != nil {
		writeError(w, r, err)
		return
	}

	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = paths.Root
	}
	entry, ok, err := h.session.FindFolderThumbnailCandidate(r.Context(), folder)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeImage(w, h.thumbs.Placeholder(), h.contentType(), true)
		return
	}
	h.serveThumbnail(w, r, p, entry, media.TypeCover)
}

func (h *Handlers) serveThumbnail(w http.ResponseWriter, r *http.Request, p provider.Provider, entry, kind string) {
	data, err := h.thumbs.FromEntry(r.Context(), p, entry, kind)
	switch {
	case err == nil:
		writeImage(w, data, h.contentType(), false)
	case errors.Is(err, provider.ErrEntryNotFound),
		errors.Is(err, provider.ErrDisposed),
		errors.Is(err, provider.ErrCanceled):
		writeError(w, r, err)
	default:
		logging.Debug("Thumbnail placeholder for %s: %v", entry, err)
		writeImage(w, h.thumbs.Placeholder(), h.contentType(), true)
	}
}

func (h *Handlers) contentType() string {
	return h.thumbs.Options().Format.ContentType()
}

// ThumbnailsResponse carries the thumbnails of one folder in entry order.
// Data is base64 encoded.
type ThumbnailsResponse struct {
	Folder       string            `json:"folder"`
	ContentType  string            `json:"contentType"`
	Thumbnails   []media.Thumbnail `json:"thumbnails"`
	Placeholders int               `json:"placeholders"`
}

// GetThumbnails renders the thumbnails of every image in ?folder= in one
// batch. The batch stops when the client goes away.
func (h *Handlers) GetThumbnails(w http.ResponseWriter, r *http.Request) {
	p, err := h.session.Provider()
	if err != nil {
		writeError(w, r, err)
		return
	}

	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = paths.Root
	}
	entries, err := p.ChildEntries(r.Context(), folder)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var placeholders atomic.Int32
	thumbs, err := media.LoadThumbnails(r.Context(), p, entries, h.thumbs, media.LoadOptions{
		Gate: h.gate,
		OnResult: func(t media.Thumbnail) {
			if t.Placeholder {
				placeholders.Add(1)
			}
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if thumbs == nil {
		thumbs = []media.Thumbnail{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ThumbnailsResponse{
		Folder:       folder,
		ContentType:  h.contentType(),
		Thumbnails:   thumbs,
		Placeholders: int(placeholders.Load()),
	})
}
