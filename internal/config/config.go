package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrMissingCatalog is returned by Load when no catalog file is configured.
var ErrMissingCatalog = errors.New("missing required config: catalog.path")

type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Storage StorageConfig
	Log     LogConfig
	Session SessionConfig
	Images  ImagesConfig
	API     APIConfig
}

type ServerConfig struct {
	Port       int
	MCPEnabled bool
}

type CatalogConfig struct {
	Path string
}

type StorageConfig struct {
	DataDir string
	// Retention is how long search history is kept. Zero keeps it forever.
	Retention time.Duration
}

type LogConfig struct {
	Level string
}

type SessionConfig struct {
	TTL time.Duration
}

type ImagesConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
	TTL      time.Duration
}

type APIConfig struct {
	Token string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir:   defaultDataDir(),
			Retention: 30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
		Session: SessionConfig{
			TTL: time.Hour,
		},
		Images: ImagesConfig{
			Enabled:  true,
			Endpoint: "https://duckduckgo.com/",
			Timeout:  5 * time.Second,
			TTL:      time.Hour,
		},
	}
}

// Load reads configuration from the YAML file at
// $XDG_CONFIG_HOME/phoneadvisor/config.yaml, then applies PHONEADVISOR_*
// environment overrides. A configured catalog path is required.
func Load() (Config, error) {
	return loadFromPath(configFilePath())
}

// LoadUnvalidated is Load without the required-field checks, for
// inspecting a partial configuration.
func LoadUnvalidated() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadFromPath(path string) (Config, error) {
	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Validate reports missing or out-of-range settings.
func (c Config) Validate() error {
	if c.Catalog.Path == "" {
		return fmt.Errorf("%w. Set it via environment variable PHONEADVISOR_CATALOG_PATH or `phoneadvisor config set catalog.path <file.csv>`", ErrMissingCatalog)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (want debug, info, warn or error)", c.Log.Level)
	}
	return nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "phoneadvisor-data"
		}
	}
	return filepath.Join(dir, "phoneadvisor")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "phoneadvisor", "config.yaml")
}
