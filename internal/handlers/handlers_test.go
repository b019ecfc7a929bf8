package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"archive-viewer/internal/library"
	"archive-viewer/internal/media"
	"archive-viewer/internal/provider"
	"archive-viewer/internal/session"

	"github.com/disintegration/imaging"
	"github.com/yeka/zip"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 200, A: 255}), imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeEncryptedZip(t *testing.T, path, password string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Encrypt("p1.png", password, zip.AES256Encryption)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(pngBytes(t, 10, 10)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

// newTestHandlers lays out a library with:
//
//	Loose/      a.png b.png broken.png
//	Empty/
//	locked.cbz  (password "hunter2")
func newTestHandlers(t *testing.T) (*Handlers, *session.Session) {
	t.Helper()
	root := t.TempDir()

	loose := filepath.Join(root, "Loose")
	if err := os.Mkdir(loose, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string][]byte{
		"a.png":      pngBytes(t, 40, 20),
		"b.png":      pngBytes(t, 20, 40),
		"broken.png": []byte("not an image"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(loose, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "Empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeEncryptedZip(t, filepath.Join(root, "locked.cbz"), "hunter2")

	thumbs := media.NewThumbnailer(nil, media.ThumbnailOptions{Size: 32, Quality: 80, Format: media.FormatJPEG})
	lib := library.New(root, nil, thumbs, provider.Options{})
	sess := session.New(session.WithRandom(func(int) int { return 0 }))
	t.Cleanup(func() { sess.Close() })

	return New(lib, sess, thumbs, nil), sess
}

func do(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func openLoose(t *testing.T, h *Handlers) {
	t.Helper()
	rec := do(t, h.OpenSession, "POST", "/api/session/open", `{"item":"Loose"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open Loose: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestListLibrary(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := do(t, h.ListLibrary, "GET", "/api/library", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[LibraryResponse](t, rec)

	var names []string
	for _, item := range resp.Items {
		names = append(names, item.Name)
	}
	if got := strings.Join(names, ","); got != "Empty,locked.cbz,Loose" {
		t.Errorf("items = %s, want Empty,locked.cbz,Loose", got)
	}
	if resp.Total != 3 {
		t.Errorf("Total = %d, want 3", resp.Total)
	}
}

func TestOpenSession(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"folder", `{"item":"Loose"}`, http.StatusOK, ""},
		{"encrypted without password", `{"item":"locked.cbz"}`, http.StatusUnauthorized, "password_required"},
		{"encrypted with password", `{"item":"locked.cbz","password":"hunter2"}`, http.StatusOK, ""},
		{"missing item", `{"item":"nope.cbz"}`, http.StatusNotFound, "not_found"},
		{"path traversal", `{"item":"../etc"}`, http.StatusBadRequest, "invalid_item"},
		{"empty body", ``, http.StatusBadRequest, "invalid_item"},
		{"malformed body", `{"item":`, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandlers(t)
			rec := do(t, h.OpenSession, "POST", "/api/session/open", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if resp := decode[ErrorResponse](t, rec); resp.Code != tt.wantErr {
					t.Errorf("code = %q, want %q", resp.Code, tt.wantErr)
				}
			}
		})
	}
}

func TestOpenSessionState(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := do(t, h.OpenSession, "POST", "/api/session/open", `{"item":"locked.cbz","password":"hunter2"}`)
	state := decode[session.State](t, rec)
	if state.Source != "locked.cbz" || state.Kind != "archive" {
		t.Errorf("state = %+v", state)
	}
	if state.CurrentEntry != "p1.png" || state.Files != 1 {
		t.Errorf("state = %+v, want p1.png current of 1 file", state)
	}
}

func TestWithoutSource(t *testing.T) {
	h, _ := newTestHandlers(t)

	handlers := map[string]http.HandlerFunc{
		"folders":    h.GetFolders,
		"entries":    h.GetEntries,
		"entry":      h.GetEntry,
		"thumbnail":  h.GetThumbnail,
		"thumbnails": h.GetThumbnails,
		"cover":      h.GetFolderCover,
	}
	for name, handler := range handlers {
		rec := do(t, handler, "GET", "/api/"+name, "")
		if rec.Code != http.StatusConflict {
			t.Errorf("%s: status = %d, want 409", name, rec.Code)
		}
	}
}

func TestBrowse(t *testing.T) {
	h, _ := newTestHandlers(t)
	openLoose(t, h)

	folders := decode[FoldersResponse](t, do(t, h.GetFolders, "GET", "/api/folders", ""))
	if len(folders.Folders) != 1 || folders.Folders[0] != "." {
		t.Errorf("folders = %v, want [.]", folders.Folders)
	}

	entries := decode[EntriesResponse](t, do(t, h.GetEntries, "GET", "/api/entries", ""))
	if got := strings.Join(entries.Entries, ","); got != "a.png,b.png,broken.png" {
		t.Errorf("entries = %s", got)
	}

	rec := do(t, h.GetEntries, "GET", "/api/entries?folder=missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown folder: status = %d, want 404", rec.Code)
	}
}

func TestGetEntry(t *testing.T) {
	h, _ := newTestHandlers(t)
	openLoose(t, h)

	rec := do(t, h.GetEntry, "GET", "/api/entry?path=b.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngBytes(t, 20, 40)) {
		t.Error("body differs from b.png")
	}

	// Empty path streams the current entry.
	if rec := do(t, h.GetEntry, "GET", "/api/entry", ""); rec.Code != http.StatusOK {
		t.Errorf("current entry: status = %d", rec.Code)
	}

	if rec := do(t, h.GetEntry, "GET", "/api/entry?path=zzz.png", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing entry: status = %d, want 404", rec.Code)
	}
}

func TestGetEntryWrongPassword(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := do(t, h.OpenSession, "POST", "/api/session/open", `{"item":"locked.cbz","password":"nope"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open with wrong password: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h.GetEntry, "GET", "/api/entry", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != "wrong_password" {
		t.Errorf("code = %q, want wrong_password", resp.Code)
	}
}

// failingReads serves listings from a real provider but fails every read.
type failingReads struct {
	provider.Provider
}

func (f failingReads) OpenEntryAt(_ context.Context, entry string) (io.ReadSeekCloser, string, error) {
	return nil, "", &provider.Error{Code: provider.CodeRead, Op: "read", Entry: entry, Err: errors.New("corrupt entry")}
}

func TestGetEntryReadFailurePlaceholder(t *testing.T) {
	h, sess := newTestHandlers(t)
	ctx := context.Background()

	fsp, err := provider.NewFileSystem(filepath.Join(h.library.Root(), "Loose"), nil)
	if err != nil {
		t.Fatalf("NewFileSystem() error = %v", err)
	}
	if err := sess.Adopt(ctx, failingReads{Provider: fsp}, "Loose"); err != nil {
		t.Fatalf("Adopt() error = %v", err)
	}

	rec := do(t, h.GetEntry, "GET", "/api/entry?path=a.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Placeholder") != "true" {
		t.Error("X-Placeholder header not set")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), h.thumbs.Placeholder()) {
		t.Error("body is not the placeholder image")
	}
}

func TestGetThumbnail(t *testing.T) {
	h, _ := newTestHandlers(t)
	openLoose(t, h)

	tests := []struct {
		path        string
		wantCode    int
		placeholder bool
	}{
		{"a.png", http.StatusOK, false},
		{"broken.png", http.StatusOK, true},
		{"zzz.png", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h.GetThumbnail, "GET", "/api/thumbnail?path="+tt.path, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
				t.Errorf("Content-Type = %q", ct)
			}
			if got := rec.Header().Get("X-Placeholder") == "true"; got != tt.placeholder {
				t.Errorf("placeholder = %v, want %v", got, tt.placeholder)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty body")
			}
		})
	}
}

func TestGetThumbnails(t *testing.T) {
	h, _ := newTestHandlers(t)
	openLoose(t, h)

	rec := do(t, h.GetThumbnails, "GET", "/api/thumbnails", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[ThumbnailsResponse](t, rec)
	if len(resp.Thumbnails) != 3 {
		t.Fatalf("got %d thumbnails, want 3", len(resp.Thumbnails))
	}
	if resp.Placeholders != 1 || !resp.Thumbnails[2].Placeholder {
		t.Errorf("placeholders = %d, third = %+v", resp.Placeholders, resp.Thumbnails[2].Entry)
	}
	if resp.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q", resp.ContentType)
	}
}

func TestNavigation(t *testing.T) {
	h, sess := newTestHandlers(t)
	openLoose(t, h)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
		want    string
	}{
		{"default step", h.Advance, ``, "b.png"},
		{"forward wraps", h.Advance, `{"step":2}`, "a.png"},
		{"backward wraps", h.Advance, `{"step":-1}`, "broken.png"},
		{"random", h.Advance, `{"random":true}`, "a.png"},
		{"select", h.SetCurrent, `{"entry":"b.png"}`, "b.png"},
	}
	for _, tt := range tests {
		rec := do(t, tt.handler, "POST", "/api/session", tt.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d (body %s)", tt.name, rec.Code, rec.Body.String())
		}
		if state := decode[session.State](t, rec); state.CurrentEntry != tt.want {
			t.Errorf("%s: current = %q, want %q", tt.name, state.CurrentEntry, tt.want)
		}
	}

	rec := do(t, h.SetCurrent, "POST", "/api/session/current", `{"entry":"zzz.png"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown entry: status = %d, want 404", rec.Code)
	}
	if got := sess.CurrentEntry(); got != "b.png" {
		t.Errorf("current after failed select = %q, want b.png", got)
	}
}

func TestCovers(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := do(t, h.GetLibraryCover, "GET", "/api/library/cover?item=Loose", "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("Loose cover: status %d, X-Cache %q", rec.Code, rec.Header().Get("X-Cache"))
	}

	rec = do(t, h.GetLibraryCover, "GET", "/api/library/cover?item=Empty", "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Placeholder") != "true" {
		t.Errorf("Empty cover: status %d, placeholder %q", rec.Code, rec.Header().Get("X-Placeholder"))
	}

	rec = do(t, h.GetLibraryCover, "GET", "/api/library/cover?item=gone.cbz", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing item cover: status %d, want 404", rec.Code)
	}

	openLoose(t, h)
	rec = do(t, h.GetFolderCover, "GET", "/api/folders/cover", "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Placeholder") != "" {
		t.Errorf("folder cover: status %d, placeholder %q", rec.Code, rec.Header().Get("X-Placeholder"))
	}
}

func TestHealthAndVersion(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := do(t, h.HealthCheck, "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if health := decode[HealthResponse](t, rec); health.Status != statusHealthy || !health.Ready {
		t.Errorf("health = %+v", health)
	}

	if rec := do(t, h.ReadinessCheck, "GET", "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readiness status = %d", rec.Code)
	}

	rec = do(t, h.LivenessCheck, "HEAD", "/livez", "")
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD livez: status %d, body %q", rec.Code, rec.Body.String())
	}

	version := decode[VersionResponse](t, do(t, h.GetVersion, "GET", "/version", ""))
	if version.Version == "" || len(version.Extensions) == 0 {
		t.Errorf("version = %+v", version)
	}
}

func TestMetricsHandler(t *testing.T) {
	h, _ := newTestHandlers(t)
	openLoose(t, h)

	rec := httptest.NewRecorder()
	h.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"provider_opens_total", "promhttp_metric_handler_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestHealthDegraded(t *testing.T) {
	thumbs := media.NewThumbnailer(nil, media.DefaultThumbnailOptions())
	lib := library.New(filepath.Join(t.TempDir(), "missing"), nil, thumbs, provider.Options{})
	sess := session.New()
	defer sess.Close()
	h := New(lib, sess, thumbs, nil)

	rec := do(t, h.HealthCheck, "GET", "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if health := decode[HealthResponse](t, rec); health.Status != statusDegraded || health.Error == "" {
		t.Errorf("health = %+v", health)
	}
}
