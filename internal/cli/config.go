package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/shelfmap/shelfmap/pkg/store"
	"github.com/shelfmap/shelfmap/pkg/store/jsonfile"
	"github.com/shelfmap/shelfmap/pkg/store/mongo"
	"github.com/shelfmap/shelfmap/pkg/store/redis"
	"github.com/shelfmap/shelfmap/pkg/store/remote"
	"github.com/shelfmap/shelfmap/pkg/store/sqlite"
)

// =============================================================================
// Config
// =============================================================================

// Config is the on-disk configuration, read from TOML.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Editor EditorConfig `toml:"editor"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	// Backend is one of: jsonfile, sqlite, redis, mongo, remote.
	Backend string `toml:"backend"`

	JSONFile struct {
		Path string `toml:"path"`
	} `toml:"jsonfile"`

	SQLite struct {
		Path string `toml:"path"`
	} `toml:"sqlite"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Mongo struct {
		URI      string `toml:"uri"`
		Database string `toml:"database"`
	} `toml:"mongo"`

	Remote struct {
		URL string `toml:"url"`
	} `toml:"remote"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	UploadsDir string `toml:"uploads_dir"`
}

// EditorConfig configures the region editor.
type EditorConfig struct {
	// Magnetism is one of: none, edges, distance.
	Magnetism string  `toml:"magnetism"`
	Threshold float64 `toml:"threshold"`
}

// loadConfig reads the config file, falling back to defaults when the file
// does not exist. An explicit --config path that is missing is an error; the
// default path silently yields defaults.
func (c *CLI) loadConfig() (Config, error) {
	cfg := defaultConfig()

	path := c.configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	c.Logger.Debug("loaded config", "path", path, "backend", cfg.Store.Backend)
	return cfg, nil
}

func defaultConfig() Config {
	cfg := Config{}
	cfg.Store.Backend = "jsonfile"
	cfg.Store.JSONFile.Path = filepath.Join(dataDir(), "inventory.json")
	cfg.Store.SQLite.Path = filepath.Join(dataDir(), "shelfmap.db")
	cfg.Store.Redis.Addr = "localhost:6379"
	cfg.Store.Mongo.URI = "mongodb://localhost:27017"
	cfg.Store.Mongo.Database = appName
	cfg.Server.Addr = ":8080"
	cfg.Server.UploadsDir = filepath.Join(dataDir(), "uploads")
	cfg.Editor.Magnetism = "edges"
	cfg.Editor.Threshold = 8.0
	return cfg
}

// defaultConfigPath follows XDG (~/.config/shelfmap/config.toml).
func defaultConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.toml")
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// dataDir follows XDG (~/.local/share/shelfmap/).
func dataDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", appName)
}

// =============================================================================
// Store Factory
// =============================================================================

// openStore builds the configured backend, wrapped with operation hooks.
func (c *CLI) openStore(ctx context.Context, cfg Config) (store.Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if backend == "" {
		backend = "jsonfile"
	}
	c.Logger.Debug("opening store", "backend", backend)

	var (
		s   store.Store
		err error
	)
	switch backend {
	case "jsonfile":
		s, err = jsonfile.Open(cfg.Store.JSONFile.Path)
	case "sqlite":
		s, err = sqlite.Open(cfg.Store.SQLite.Path)
	case "redis":
		s, err = redis.Open(ctx, redis.Config{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
	case "mongo":
		s, err = mongo.Open(ctx, mongo.Config{
			URI:      cfg.Store.Mongo.URI,
			Database: cfg.Store.Mongo.Database,
		})
	case "remote":
		s, err = remote.Open(remote.Config{BaseURL: cfg.Store.Remote.URL})
	default:
		return nil, fmt.Errorf("unknown store backend %q (want jsonfile, sqlite, redis, mongo, or remote)", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return store.WithHooks(s, backend), nil
}
