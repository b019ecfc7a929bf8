package handlers

import (
	"time"

	"archive-viewer/internal/library"
	"archive-viewer/internal/media"
	"archive-viewer/internal/session"
)

// Handlers serves the library and the viewing session over HTTP.
type Handlers struct {
	library *library.Library
	session *session.Session
	thumbs  *media.Thumbnailer
	gate    media.Gate
	started time.Time
}

// New creates the handlers. gate may be nil.
func New(lib *library.Library, sess *session.Session, thumbs *media.Thumbnailer, gate media.Gate) *Handlers {
	return &Handlers{
		library: lib,
		session: sess,
		thumbs:  thumbs,
		gate:    gate,
		started: time.Now(),
	}
}
