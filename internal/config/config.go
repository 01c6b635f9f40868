package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration, loaded from the environment with an
// optional .env file.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string
	// DataDir is the root directory for JSON stores and the photo filesystem.
	DataDir string
	// DatabasePath is the SQLite database file for house listings.
	DatabasePath string
	// PhotosDir is where uploaded listing photos are stored.
	PhotosDir string
	// SessionTTL is how long issued sessions stay valid.
	SessionTTL time.Duration
	// LogFile, when set, enables rotated file logging instead of stderr.
	LogFile string
	// ExtraOrigins are additional CORS origins beyond the private-network defaults.
	ExtraOrigins []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is fine, the environment alone is a valid source
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr: envOr("HOMESTEAD_LISTEN_ADDR", ":8080"),
		DataDir:    envOr("HOMESTEAD_DATA_DIR", "./data"),
		LogFile:    os.Getenv("HOMESTEAD_LOG_FILE"),
		SessionTTL: 7 * 24 * time.Hour,
	}

	cfg.DatabasePath = envOr("HOMESTEAD_DB_PATH", filepath.Join(cfg.DataDir, "homestead.db"))
	cfg.PhotosDir = envOr("HOMESTEAD_PHOTOS_DIR", filepath.Join(cfg.DataDir, "photos"))

	if raw := os.Getenv("HOMESTEAD_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid HOMESTEAD_SESSION_TTL %q: %w", raw, err)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("HOMESTEAD_SESSION_TTL must be positive, got %q", raw)
		}
		cfg.SessionTTL = ttl
	}

	if raw := os.Getenv("HOMESTEAD_CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.ExtraOrigins = append(cfg.ExtraOrigins, origin)
			}
		}
	}

	return cfg, nil
}

// EnsureDirs creates the data directories if they do not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.PhotosDir, filepath.Dir(c.DatabasePath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
