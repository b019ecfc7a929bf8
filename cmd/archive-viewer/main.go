package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"archive-viewer/internal/cache"
	"archive-viewer/internal/filesystem"
	"archive-viewer/internal/handlers"
	"archive-viewer/internal/library"
	"archive-viewer/internal/logging"
	"archive-viewer/internal/media"
	"archive-viewer/internal/memory"
	"archive-viewer/internal/metrics"
	"archive-viewer/internal/middleware"
	"archive-viewer/internal/pdf"
	"archive-viewer/internal/provider"
	"archive-viewer/internal/session"
	"archive-viewer/internal/startup"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	configPath := flag.String("config", "", "path to a YAML or TOML config file")
	flag.Parse()

	config, err := startup.LoadConfig(*configPath)
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	startup.LogMemoryConfig(memory.Configure(config.Memory.Limit, config.Memory.Ratio))

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"library": config.LibraryDir,
		"cache":   config.CacheDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Imaging
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable: %v", err)
	}
	format, err := media.ParseFormat(config.Thumbnail.Format)
	if err != nil {
		startup.LogFatal("Invalid thumbnail format: %v", err)
	}
	thumbs := media.NewThumbnailer(nil, media.ThumbnailOptions{
		Size:    config.Thumbnail.Size,
		Quality: config.Thumbnail.Quality,
		Format:  format,
	})
	startup.LogImagingInit(media.IsVipsAvailable(), config.Thumbnail.Size, format.String())

	// Cover cache
	cacheStart := time.Now()
	covers, err := openCovers(ctx, config)
	if err != nil {
		startup.LogFatal("Failed to initialize cover cache: %v", err)
	}
	startup.LogCacheInit(config.Blob.Backend, time.Since(cacheStart))

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	lib := library.New(config.LibraryDir, covers, thumbs, provider.Options{
		PDF: pdf.Options{DPI: config.PDF.DPI},
	})
	lib.SetGate(monitor)

	sess := session.New()
	sess.OnChange(func(ev session.Event) {
		if ev.Kind == session.ProviderChanged {
			logging.Debug("Session source changed, current entry %q in %q", ev.Entry, ev.Folder)
		}
	})

	collector := metrics.NewCollector(&statsAdapter{library: lib, session: sess}, time.Minute)
	collector.Start()

	startup.LogCoverWarmInit(config.CoverWarmInterval)
	warmDone := make(chan struct{})
	go func() {
		defer close(warmDone)
		warmCovers(ctx, lib, config.CoverWarmInterval)
	}()

	h := handlers.New(lib, sess, thumbs, monitor)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	compress, err := middleware.Compression(middleware.DefaultCompressionConfig())
	if err != nil {
		startup.LogFatal("Failed to configure compression: %v", err)
	}
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(compress(router))

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h)
	}

	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			startup.LogFatal("Server error: %v", err)
		}
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	<-ctx.Done()
	startup.LogShutdownInitiated("signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Waiting for cover warm-up")
	<-warmDone
	collector.Stop()
	monitor.Stop()

	startup.LogShutdownStep("Closing session")
	if err := sess.Close(); err != nil {
		logging.Warn("Failed to close session: %v", err)
	}

	startup.LogShutdownStep("Closing cover cache")
	if err := covers.Close(); err != nil {
		logging.Warn("Failed to close cover cache: %v", err)
	} else {
		startup.LogShutdownStepComplete("Cover cache closed")
	}

	media.ShutdownVips()
	startup.LogShutdownComplete()
}

// openCovers opens the SQLite row store and the configured blob backend.
func openCovers(ctx context.Context, config *startup.Config) (*cache.Covers, error) {
	rows, err := cache.OpenRows(ctx, config.DatabasePath)
	if err != nil {
		return nil, err
	}

	var blobs cache.BlobStore
	switch config.Blob.Backend {
	case "s3":
		s3cfg := config.Blob.S3
		blobs, err = cache.NewS3(ctx, cache.S3Config{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
	default:
		blobs, err = cache.OpenBadger(ctx, cache.BadgerConfig{Dir: config.BadgerDir})
	}
	if err != nil {
		rows.Close()
		return nil, err
	}
	return cache.NewCovers(rows, blobs), nil
}

// warmCovers runs library cover warm-ups until ctx ends. The first run
// starts right away.
func warmCovers(ctx context.Context, lib *library.Library, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := lib.WarmCovers(ctx); err != nil && ctx.Err() == nil {
			logging.Warn("Cover warm-up failed: %v", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func startMetricsServer(port string, h *handlers.Handlers) *http.Server {
	sm := http.NewServeMux()
	sm.Handle("/metrics", h.MetricsHandler())
	sm.HandleFunc("/health", h.HealthCheck)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           sm,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Library
	api.HandleFunc("/library", h.ListLibrary).Methods("GET")
	api.HandleFunc("/library/cover", h.GetLibraryCover).Methods("GET")

	// Session
	api.HandleFunc("/session", h.GetSession).Methods("GET")
	api.HandleFunc("/session/open", h.OpenSession).Methods("POST")
	api.HandleFunc("/session/current", h.SetCurrent).Methods("POST")
	api.HandleFunc("/session/advance", h.Advance).Methods("POST")

	// Browsing the open source
	api.HandleFunc("/folders", h.GetFolders).Methods("GET")
	api.HandleFunc("/folders/cover", h.GetFolderCover).Methods("GET")
	api.HandleFunc("/entries", h.GetEntries).Methods("GET")
	api.HandleFunc("/entry", h.GetEntry).Methods("GET", "HEAD")
	api.HandleFunc("/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/thumbnails", h.GetThumbnails).Methods("GET")

	return r
}

// statsAdapter feeds library and session sizes to the metrics collector.
type statsAdapter struct {
	library *library.Library
	session *session.Session
}

func (a *statsAdapter) GetStats() metrics.Stats {
	st := a.session.Snapshot()
	return metrics.Stats{
		LibraryItems:   a.library.Counts(),
		SessionFiles:   st.Files,
		SessionFolders: st.Folders,
	}
}
