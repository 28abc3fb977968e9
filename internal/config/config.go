// Package config holds the server configuration and loads it from yaml or json files.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"loadtest-server/internal/dispatcher"
	"loadtest-server/internal/loadtest"
)

// Store backends
const (
	LocalBackend  = "local"
	RedisBackend  = "redis"
	SQLiteBackend = "sqlite"
)

type Config struct {
	Server        ServerConfig `json:"server" yaml:"server"`
	Engine        EngineConfig `json:"engine" yaml:"engine"`
	Store         StoreConfig  `json:"store" yaml:"store"`
	MaxActiveRuns int          `json:"maxActiveRuns" yaml:"maxActiveRuns"`
	Debug         bool         `json:"debug" yaml:"debug"`
}

type ServerConfig struct {
	IP   string `json:"ip" yaml:"ip"`
	Port string `json:"port" yaml:"port"`
}

type EngineConfig struct {
	MaxTotalRequests      int      `json:"maxTotalRequests" yaml:"maxTotalRequests"`
	MaxConcurrentRequests int      `json:"maxConcurrentRequests" yaml:"maxConcurrentRequests"`
	RequestTimeout        Duration `json:"requestTimeout" yaml:"requestTimeout"`
	UserAgent             string   `json:"userAgent" yaml:"userAgent"`
}

type StoreConfig struct {
	Backend    string `json:"backend" yaml:"backend"`
	RedisAddr  string `json:"redisAddr" yaml:"redisAddr"`
	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath"`
}

// Duration is a time.Duration written as "30s" in config files
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(text))
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: "8000",
		},
		Engine: EngineConfig{
			MaxTotalRequests:      loadtest.HardMaxTotalRequests,
			MaxConcurrentRequests: loadtest.HardMaxConcurrentRequests,
			RequestTimeout:        Duration(loadtest.DefaultRequestTimeout),
			UserAgent:             loadtest.DefaultUserAgent,
		},
		Store: StoreConfig{
			Backend:    LocalBackend,
			SQLitePath: "loadtest.db",
		},
		MaxActiveRuns: dispatcher.DefaultMaxActiveRuns,
	}
}

// Load reads path on top of the defaults. The format follows the file extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse YAML config")
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON config")
		}
	default:
		return nil, errors.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.Engine.MaxTotalRequests < 1 || c.Engine.MaxTotalRequests > loadtest.HardMaxTotalRequests {
		return errors.Errorf("engine.maxTotalRequests must be between 1 and %d", loadtest.HardMaxTotalRequests)
	}
	if c.Engine.MaxConcurrentRequests < 1 || c.Engine.MaxConcurrentRequests > loadtest.HardMaxConcurrentRequests {
		return errors.Errorf("engine.maxConcurrentRequests must be between 1 and %d", loadtest.HardMaxConcurrentRequests)
	}
	if c.Engine.RequestTimeout <= 0 {
		return errors.New("engine.requestTimeout must be positive")
	}
	if c.MaxActiveRuns < 1 {
		return errors.New("maxActiveRuns must be at least 1")
	}

	switch c.Store.Backend {
	case LocalBackend:
	case RedisBackend:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redisAddr is required for the redis backend")
		}
	case SQLiteBackend:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlitePath is required for the sqlite backend")
		}
	default:
		return errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.Server.IP + ":" + c.Server.Port
}
