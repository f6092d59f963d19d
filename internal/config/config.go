package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config holds application configuration.
type Config struct {
	// DeletionDelaySeconds is the grace period between a soft-delete request
	// and the permanent purge. Undelete is possible until the purge fires.
	DeletionDelaySeconds int `json:"deletion_delay_seconds"`

	// SweepIntervalSeconds controls the periodic sweep that retries purges of
	// creatures stuck in pending deletion (e.g. after a failed purge or a
	// restart mid-grace-period). 0 disables the sweep.
	SweepIntervalSeconds int `json:"sweep_interval_seconds,omitempty"`

	// HTTPBind and HTTPPort configure the API listener.
	HTTPBind string `json:"http_bind,omitempty"`
	HTTPPort int    `json:"http_port,omitempty"`

	// JWTSecret signs API access tokens. Required for serve mode.
	JWTSecret string `json:"jwt_secret,omitempty"`

	// TokenTTLMinutes is the access token lifetime.
	TokenTTLMinutes int `json:"token_ttl_minutes,omitempty"`

	// MaxUploadBytes limits the size of an uploaded save file.
	MaxUploadBytes int `json:"max_upload_bytes"`

	// DefaultVisibility is used when neither the upload request nor the
	// user's preferences specify one.
	DefaultVisibility string `json:"default_visibility,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DeletionDelaySeconds: 300,
		HTTPBind:             "127.0.0.1",
		HTTPPort:             8460,
		TokenTTLMinutes:      60,
		MaxUploadBytes:       1 << 20,
		DefaultVisibility:    "private",
	}
}

// DeletionDelay returns the grace period as a duration.
func (c *Config) DeletionDelay() time.Duration {
	return time.Duration(c.DeletionDelaySeconds) * time.Second
}

// SweepInterval returns the sweep interval as a duration. Zero means disabled.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// TokenTTL returns the access token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.porystore.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// loadFile reads a single config file, filling unset fields with defaults.
func loadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.DeletionDelaySeconds < 0 {
		return nil, errors.New("deletion_delay_seconds must not be negative")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	return cfg, nil
}

// Save writes the configuration to baseDir/config.json.
func Save(baseDir string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(baseDir, "config.json"), data, 0600)
}
