package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"

	"archive-viewer/internal/archive"
	"archive-viewer/internal/library"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/provider"
	"archive-viewer/internal/session"
)

const maxRequestBody = 64 << 10

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

func writeJSONStatus(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
	// Code is a stable identifier clients can switch on, e.g.
	// "password_required".
	Code string `json:"code"`
}

func writeJSONError(w http.ResponseWriter, message, code string, statusCode int) {
	writeJSONStatus(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// readJSON decodes a bounded request body into v and answers 400 on failure.
// An empty body leaves v at its zero value.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps provider, session and library errors to a status code and
// a message suitable for display.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := provider.UserMessage(err)

	switch {
	case errors.Is(err, session.ErrNoProvider):
		message = "No file is open."
	case errors.Is(err, session.ErrClosed):
		message = "The server is shutting down."
	case errors.Is(err, library.ErrInvalidName):
		message = "Invalid library item."
	case errors.Is(err, library.ErrNoImages):
		message = "No images found."
	case code == "internal":
		message = "Internal server error."
	}

	if status >= http.StatusInternalServerError {
		logging.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSONError(w, message, code, status)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNoProvider):
		return http.StatusConflict, "no_source"
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable, "closed"
	case errors.Is(err, library.ErrInvalidName):
		return http.StatusBadRequest, "invalid_item"
	case errors.Is(err, library.ErrNoImages):
		return http.StatusNotFound, "no_images"
	}

	switch provider.CodeOf(err) {
	case provider.CodeEncryptedNoPassword:
		return http.StatusUnauthorized, "password_required"
	case provider.CodeEntryNotFound:
		return http.StatusNotFound, "entry_not_found"
	case provider.CodeOpen:
		switch {
		case archive.IsPasswordError(err):
			return http.StatusForbidden, "wrong_password"
		case errors.Is(err, fs.ErrNotExist):
			return http.StatusNotFound, "not_found"
		case errors.Is(err, archive.ErrUnsupportedFormat):
			return http.StatusUnsupportedMediaType, "unsupported"
		}
		return http.StatusUnprocessableEntity, "open_failed"
	case provider.CodeDisposed:
		return http.StatusConflict, "source_closed"
	case provider.CodeCanceled:
		return http.StatusRequestTimeout, "canceled"
	case provider.CodeRead:
		if archive.IsPasswordError(err) {
			return http.StatusForbidden, "wrong_password"
		}
		return http.StatusInternalServerError, "read_failed"
	case provider.CodeDiscovery:
		return http.StatusInternalServerError, "read_failed"
	}
	return http.StatusInternalServerError, "internal"
}

func writeImage(w http.ResponseWriter, data []byte, contentType string, placeholder bool) {
	w.Header().Set("Content-Type", contentType)
	if placeholder {
		w.Header().Set("X-Placeholder", "true")
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=300")
	}
	if _, err := w.Write(data); err != nil {
		logging.Debug("failed to write image response: %v", err)
	}
}
