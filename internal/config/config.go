// Package config loads application configuration: built-in defaults, an
// optional YAML file, then WSGET_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/wsget/workshop-downloader/internal/platform"
)

// Cache backend names accepted in CacheBackend.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
)

// Config is the application configuration.
type Config struct {
	DownloadDir   string `yaml:"download_dir" env:"WSGET_DOWNLOAD_DIR"`
	CacheDir      string `yaml:"cache_dir" env:"WSGET_CACHE_DIR"`
	ImageCacheDir string `yaml:"image_cache_dir" env:"WSGET_IMAGE_CACHE_DIR"`
	SessionFile   string `yaml:"session_file" env:"WSGET_SESSION_FILE"`

	// CacheBackend selects the cache persistence layer: "file" or "leveldb".
	CacheBackend string `yaml:"cache_backend" env:"WSGET_CACHE_BACKEND"`

	MaxConcurrentDownloads int    `yaml:"max_concurrent_downloads" env:"WSGET_MAX_CONCURRENT_DOWNLOADS"`
	PageSize               int    `yaml:"page_size" env:"WSGET_PAGE_SIZE"`
	APIKey                 string `yaml:"api_key" env:"WSGET_API_KEY"`
	RequireGuardCode       bool   `yaml:"require_guard_code" env:"WSGET_REQUIRE_GUARD_CODE"`
	LogLevel               string `yaml:"log_level" env:"WSGET_LOG_LEVEL"`
}

// Default returns the built-in configuration. Paths are derived from the
// user's home directory and fall back to the working directory when it is
// unavailable.
func Default() Config {
	downloadDir, err := platform.HomeDownloadsDir()
	if err != nil {
		downloadDir = "downloads"
	}
	dataDir, err := platform.DataDir()
	if err != nil {
		dataDir = ".workshop-downloader"
	}

	return Config{
		DownloadDir:            downloadDir,
		CacheDir:               filepath.Join(dataDir, "cache"),
		ImageCacheDir:          filepath.Join(dataDir, "image_cache"),
		SessionFile:            filepath.Join(dataDir, "session.json"),
		CacheBackend:           BackendFile,
		MaxConcurrentDownloads: 3,
		PageSize:               10,
		LogLevel:               "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (a
// missing file is fine when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case BackendFile, BackendLevelDB:
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.MaxConcurrentDownloads <= 0 {
		return fmt.Errorf("max_concurrent_downloads must be positive, got %d", c.MaxConcurrentDownloads)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	return nil
}
