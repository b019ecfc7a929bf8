package handlers

import (
	"net/http"
	"time"

	"archive-viewer/internal/archive"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/paths"
	"archive-viewer/internal/provider"
)

// OpenRequest selects a library item and, for encrypted archives, its password.
type OpenRequest struct {
	Item     string `json:"item"`
	Password string `json:"password,omitempty"`
}

// OpenSession opens a library item and makes it the viewed source. An
// encrypted archive opened without a password answers 401 with code
// "password_required"; the client retries with the password.
func (h *Handlers) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !readJSON(w, r, &req) {
		return
	}

	p, err := h.library.Open(r.Context(), req.Item, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.session.Adopt(r.Context(), p, req.Item); err != nil {
		writeError(w, r, err)
		return
	}

	logging.Info("Opened %s (%s)", req.Item, p.Kind())
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.session.Snapshot())
}

// GetSession returns the session state.
func (h *Handlers) GetSession(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.session.Snapshot())
}

// FoldersResponse lists the folders of the open source.
type FoldersResponse struct {
	Folders []string `json:"folders"`
}

// GetFolders lists every folder of the open source, root first.
func (h *Handlers) GetFolders(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.Provider(); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, FoldersResponse{Folders: h.session.FolderEntries()})
}

// EntriesResponse lists the images of one folder.
type EntriesResponse struct {
	Folder  string   `json:"folder"`
	Entries []string `json:"entries"`
}

// GetEntries lists the images directly inside ?folder=, root by default.
func (h *Handlers) GetEntries(w http.ResponseWriter, r *http.Request) {
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
	if entries == nil {
		entries = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, EntriesResponse{Folder: folder, Entries: entries})
}

// GetEntry streams the image ?path= of the open source, or the current
// entry when path is empty. Range requests are honored. An entry that cannot
// be read is replaced by the placeholder image, except when the password was
// wrong.
func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	p, err := h.session.Provider()
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry := r.URL.Query().Get("path")
	if entry == "" {
		entry = h.session.CurrentEntry()
	}
	rs, name, err := p.OpenEntryAt(r.Context(), entry)
	if err != nil {
		if provider.CodeOf(err) == provider.CodeRead && !archive.IsPasswordError(err) {
			logging.Warn("Serving placeholder for %s: %v", entry, err)
			writeImage(w, h.thumbs.Placeholder(), h.contentType(), true)
			return
		}
		writeError(w, r, err)
		return
	}
	defer rs.Close()

	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, name, time.Time{}, rs)
}

// CurrentRequest moves the current entry.
type CurrentRequest struct {
	Entry string `json:"entry"`
}

// SetCurrent makes an entry of the open source current.
func (h *Handlers) SetCurrent(w http.ResponseWriter, r *http.Request) {
	var req CurrentRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.session.SetCurrentEntry(req.Entry); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.session.Snapshot())
}

// AdvanceRequest moves through the open source. Step defaults to 1; a
// negative step moves backwards.
type AdvanceRequest struct {
	FolderOnly bool `json:"folderOnly"`
	Random     bool `json:"random"`
	Step       int  `json:"step"`
}

// Advance steps the current entry, wrapping around at either end.
func (h *Handlers) Advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Step == 0 {
		req.Step = 1
	}
	if _, err := h.session.Advance(r.Context(), req.FolderOnly, req.Random, req.Step); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.session.Snapshot())
}
