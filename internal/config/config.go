// Package config provides configuration management for slidecap.
// Process-level settings come from environment variables with sensible
// defaults; detection parameters can additionally be loaded from a YAML
// file and overridden by CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// Default values
	DefaultPort     = 8877
	DefaultLogLevel = "info"
	DefaultDataDir  = ".slidecap"

	// Environment variable names
	EnvPort     = "SLIDECAP_PORT"
	EnvLogLevel = "SLIDECAP_LOG_LEVEL"
	EnvDataDir  = "SLIDECAP_DATA_DIR"
	EnvFFmpeg   = "SLIDECAP_FFMPEG"
	EnvWorkers  = "SLIDECAP_WORKERS"

	// Database filename
	DBFilename = "slidecap.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	FFmpegPath() string
	Workers() int
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port       int
	logLevel   string
	dataDir    string
	ffmpegPath string
	workers    int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpeg)

	if w := os.Getenv(EnvWorkers); w != "" {
		workers, err := strconv.Atoi(w)
		if err != nil || workers < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvWorkers)
		}
		cfg.workers = workers
	}

	return cfg, nil
}

// Port returns the HTTP status server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// FFmpegPath returns an explicit ffmpeg binary path, or "" to use PATH
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// Workers returns the scoring worker count override (0 = use default)
func (c *EnvConfig) Workers() int {
	return c.workers
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
