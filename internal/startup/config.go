package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"archive-viewer/internal/logging"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "VIEWER"

// Config holds all application configuration.
type Config struct {
	LibraryDir      string `mapstructure:"library_dir" validate:"required"`
	CacheDir        string `mapstructure:"cache_dir" validate:"required"`
	Port            string `mapstructure:"port" validate:"required,numeric"`
	MetricsPort     string `mapstructure:"metrics_port" validate:"required,numeric"`
	MetricsEnabled  bool   `mapstructure:"metrics_enabled"`
	LogLevel        string `mapstructure:"log_level" validate:"required,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	LogHealthChecks bool   `mapstructure:"log_health_checks"`

	// CoverWarmInterval is the period between library cover warm-ups.
	// Zero disables periodic warming.
	CoverWarmInterval time.Duration `mapstructure:"cover_warm_interval" validate:"gte=0"`

	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`
	PDF       PDFConfig       `mapstructure:"pdf"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Blob      BlobConfig      `mapstructure:"blob"`

	// Derived paths
	DatabasePath string `mapstructure:"-"`
	BadgerDir    string `mapstructure:"-"`
}

// ThumbnailConfig sizes generated thumbnails and covers.
type ThumbnailConfig struct {
	Size    int    `mapstructure:"size" validate:"gte=16,lte=2048"`
	Quality int    `mapstructure:"quality" validate:"gte=1,lte=100"`
	Format  string `mapstructure:"format" validate:"oneof=jpeg png"`
}

// PDFConfig configures page rasterization.
type PDFConfig struct {
	DPI int `mapstructure:"dpi" validate:"gte=36,lte=600"`
}

// MemoryConfig drives GOMEMLIMIT and the thumbnail backpressure monitor.
type MemoryConfig struct {
	// Limit is the container memory limit in bytes; 0 disables both.
	Limit int64   `mapstructure:"limit" validate:"gte=0"`
	Ratio float64 `mapstructure:"ratio" validate:"gt=0,lte=1"`
}

// BlobConfig selects where cover images are stored.
type BlobConfig struct {
	Backend string   `mapstructure:"backend" validate:"oneof=badger s3"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config configures the s3 blob backend.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

var defaults = map[string]any{
	"library_dir":               "/library",
	"cache_dir":                 "/cache",
	"port":                      "8080",
	"metrics_port":              "9090",
	"metrics_enabled":           true,
	"log_level":                 "info",
	"log_health_checks":         true,
	"cover_warm_interval":       "6h",
	"thumbnail.size":            200,
	"thumbnail.quality":         80,
	"thumbnail.format":          "jpeg",
	"pdf.dpi":                   150,
	"memory.limit":              0,
	"memory.ratio":              0.85,
	"blob.backend":              "badger",
	"blob.s3.bucket":            "",
	"blob.s3.prefix":            "covers/",
	"blob.s3.region":            "us-east-1",
	"blob.s3.endpoint":          "",
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
}

// Load reads configuration from defaults, an optional config file and
// VIEWER_* environment variables, in increasing precedence. Nested keys use
// underscores, e.g. VIEWER_BLOB_S3_BUCKET. An empty configPath looks for
// config.yaml in the working directory and in /etc/archive-viewer.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/archive-viewer")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configPath == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	logging.Debug("  Using config file: %s", v.ConfigFileUsed())
	return nil
}

// LoadConfig prints the startup banner, loads the configuration, applies
// its log level and prepares the library and cache directories. The cache
// directory is required; it holds the cover database and blobs.
func LoadConfig(configPath string) (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logging.SetLevel(level)
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  LIBRARY_DIR:         %s", cfg.LibraryDir)
	logging.Info("  CACHE_DIR:           %s", cfg.CacheDir)
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  METRICS_PORT:        %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  COVER_WARM_INTERVAL: %v", cfg.CoverWarmInterval)
	logging.Info("  THUMBNAIL:           %dpx %s q%d", cfg.Thumbnail.Size, cfg.Thumbnail.Format, cfg.Thumbnail.Quality)
	logging.Info("  PDF_DPI:             %d", cfg.PDF.DPI)
	logging.Info("  BLOB_BACKEND:        %s", cfg.Blob.Backend)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := resolveDirectories(cfg); err != nil {
		return nil, err
	}

	if err := ensureDirectory(cfg.LibraryDir, "library"); err != nil {
		logging.Warn("  Library directory issue: %v", err)
	}

	if err := ensureDirectory(cfg.CacheDir, "cache"); err != nil {
		return nil, fmt.Errorf("cache directory error: %w", err)
	}
	logging.Debug("  Testing cache directory write access...")
	if err := testWriteAccess(cfg.CacheDir); err != nil {
		return nil, fmt.Errorf("cache directory is not writable (required for covers): %w", err)
	}
	logging.Info("  [OK] Cache directory is writable")

	if cfg.Blob.Backend == "badger" {
		if err := os.MkdirAll(cfg.BadgerDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create blob directory: %w", err)
		}
	}

	return cfg, nil
}

func resolveDirectories(cfg *Config) error {
	libraryDir, err := filepath.Abs(cfg.LibraryDir)
	if err != nil {
		return fmt.Errorf("failed to resolve library directory path: %w", err)
	}
	cacheDir, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Library directory (absolute): %s", libraryDir)
	logging.Info("  Cache directory (absolute):   %s", cacheDir)

	cfg.LibraryDir = libraryDir
	cfg.CacheDir = cacheDir
	cfg.DatabasePath = filepath.Join(cacheDir, "covers.db")
	cfg.BadgerDir = filepath.Join(cacheDir, "blobs")
	return nil
}
