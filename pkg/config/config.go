// Package config loads skylayer settings from a TOML file and the
// environment.
//
// Settings are resolved in three steps, later steps winning:
//
//  1. Built-in defaults ([Default])
//  2. The config file, by default $XDG_CONFIG_HOME/skylayer/config.toml
//  3. SKYLAYER_* environment variables
//
// # File Format
//
//	[engine]
//	cluster_threshold = 50
//	clustering = "greedy"
//	height_scale = 10
//	foreground_max = 3
//	middle_max = 6
//	default_canvas = "0 0 800 600"
//
//	[server]
//	addr = ":8080"
//	cors_origins = ["http://localhost:5173"]
//	max_upload_bytes = 10485760
//
//	[store]
//	backend = "sqlite"   # memory | sqlite | mongo
//	sqlite_path = "/var/lib/skylayer/skylayer.db"
//
//	[cache]
//	backend = "file"     # none | file | redis
//	ttl = "168h"
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/pipeline"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// AppName names the config and cache directories.
const AppName = "skylayer"

// Backend names.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Environment variables that override file settings.
const (
	EnvMongoURI     = "SKYLAYER_MONGO_URI"
	EnvRedisAddr    = "SKYLAYER_REDIS_ADDR"
	EnvSQLitePath   = "SKYLAYER_SQLITE_PATH"
	EnvAddr         = "SKYLAYER_ADDR"
	EnvStoreBackend = "SKYLAYER_STORE"
	EnvCacheBackend = "SKYLAYER_CACHE"
	EnvCORSOrigins  = "SKYLAYER_CORS_ORIGINS"
)

// Config is the complete skylayer configuration.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
}

// EngineConfig holds the separation and spacing parameters.
type EngineConfig struct {
	ClusterThreshold float64 `toml:"cluster_threshold"`
	Clustering       string  `toml:"clustering"`
	HeightScale      float64 `toml:"height_scale"`
	ForegroundMax    float64 `toml:"foreground_max"`
	MiddleMax        float64 `toml:"middle_max"`

	// DefaultCanvas is the viewBox assumed for documents without a usable
	// one, written as "minX minY width height".
	DefaultCanvas string `toml:"default_canvas"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	CORSOrigins    []string `toml:"cors_origins"`
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
}

// StoreConfig selects and configures the project store.
type StoreConfig struct {
	Backend       string `toml:"backend"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	SQLitePath    string `toml:"sqlite_path"`
}

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	TTL           time.Duration `toml:"ttl"`
}

// DefaultMaxUploadBytes caps uploaded documents at 10 MiB.
const DefaultMaxUploadBytes = 10 << 20

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			ClusterThreshold: pipeline.DefaultThreshold,
			Clustering:       pipeline.DefaultClustering,
			HeightScale:      pipeline.DefaultHeightScale,
			ForegroundMax:    pipeline.DefaultForegroundMax,
			MiddleMax:        pipeline.DefaultMiddleMax,
			DefaultCanvas:    svg.DefaultViewBox.String(),
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Store: StoreConfig{
			Backend:       StoreMemory,
			MongoDatabase: "skylayer",
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     pipeline.TTLSeparation,
		},
	}
}

// DefaultPath returns the config file location following the XDG base
// directory convention (~/.config/skylayer/config.toml).
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Dir returns the skylayer config directory.
func Dir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// CacheDir returns the skylayer cache directory (~/.cache/skylayer).
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// Load reads the config at path, applies environment overrides and
// validates the result. An empty path means [DefaultPath], which may be
// absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, fmt.Errorf("locate config: %w", err)
		}
		path = p
	}

	if err := cfg.decodeFile(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return errs.New(errs.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Decode reads TOML from r into c, on top of its current values.
func (c *Config) Decode(r io.Reader) error {
	if _, err := toml.NewDecoder(r).Decode(c); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config")
	}
	return nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.Store.MongoURI = v
	}
	if v, ok := lookup(EnvSQLitePath); ok && v != "" {
		c.Store.SQLitePath = v
	}
	if v, ok := lookup(EnvStoreBackend); ok && v != "" {
		c.Store.Backend = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cache.RedisAddr = v
	}
	if v, ok := lookup(EnvCacheBackend); ok && v != "" {
		c.Cache.Backend = v
	}
	if v, ok := lookup(EnvCORSOrigins); ok && v != "" {
		c.Server.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, o)
			}
		}
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		if _, _, err := splitAddr(v); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "%s", EnvAddr)
		}
		c.Server.Addr = v
	}
	return nil
}

func splitAddr(addr string) (string, int, error) {
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("address %q has no port", addr)
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("address %q has an invalid port", addr)
	}
	return addr[:i], port, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := c.Engine.Options(); err != nil {
		return err
	}
	if _, _, err := splitAddr(c.Server.Addr); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "server.addr")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "server.max_upload_bytes must be positive")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errs.New(errs.ErrCodeInvalidInput, "store.sqlite_path is required for the sqlite backend")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errs.New(errs.ErrCodeInvalidInput, "store.mongo_uri is required for the mongo backend")
		}
	default:
		return errs.New(errs.ErrCodeInvalidInput, "store.backend must be one of memory, sqlite, mongo; got %q", c.Store.Backend)
	}

	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errs.New(errs.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errs.New(errs.ErrCodeInvalidInput, "cache.backend must be one of none, file, redis; got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "cache.ttl must not be negative")
	}
	return nil
}

// Options converts the engine section into validated pipeline options.
func (e EngineConfig) Options() (pipeline.Options, error) {
	opts := pipeline.Options{
		Threshold:     e.ClusterThreshold,
		Clustering:    e.Clustering,
		HeightScale:   e.HeightScale,
		ForegroundMax: e.ForegroundMax,
		MiddleMax:     e.MiddleMax,
	}
	if e.DefaultCanvas != "" {
		vb, ok := svg.ParseViewBox(e.DefaultCanvas)
		if !ok || vb.Degenerate() {
			return opts, errs.New(errs.ErrCodeInvalidInput, "engine.default_canvas %q is not a usable viewBox", e.DefaultCanvas)
		}
		opts.DefaultCanvas = vb
	}
	check := opts
	if err := check.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}
