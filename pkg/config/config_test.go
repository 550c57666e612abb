package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/skylayer/pkg/cache"
	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvStoreBackend, "")
	path := writeConfig(t, `
[engine]
cluster_threshold = 30
clustering = "components"
default_canvas = "0 0 1000 500"

[server]
addr = "127.0.0.1:9000"

[store]
backend = "sqlite"
sqlite_path = "/tmp/skylayer.db"

[cache]
backend = "none"
ttl = "1h"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.ClusterThreshold != 30 || cfg.Engine.Clustering != "components" {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.MiddleMax != 6 {
		t.Errorf("unset keys should keep defaults, middle_max = %v", cfg.Engine.MiddleMax)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}

	opts, err := cfg.Engine.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.DefaultCanvas.Width != 1000 || opts.DefaultCanvas.Height != 500 {
		t.Errorf("default canvas = %+v", opts.DefaultCanvas)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[engine\n", "parse config"},
		{"unknown key", "[engine]\nthreshold = 3\n", "unknown keys: engine.threshold"},
		{"bad clustering", "[engine]\nclustering = \"kmeans\"\n", "invalid clustering"},
		{"inverted layers", "[engine]\nforeground_max = 7\nmiddle_max = 6\n", ""},
		{"bad canvas", "[engine]\ndefault_canvas = \"0 0 0 600\"\n", "default_canvas"},
		{"bad store", "[store]\nbackend = \"postgres\"\n", "store.backend"},
		{"sqlite without path", "[store]\nbackend = \"sqlite\"\n", "sqlite_path"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n", "redis_addr"},
		{"no port", "[server]\naddr = \"localhost\"\n", "server.addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("explicit missing path should fail")
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("missing default file should be fine: %v", err)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvMongoURI:     "mongodb://db:27017",
		EnvStoreBackend: "mongo",
		EnvRedisAddr:    "redis:6379",
		EnvCacheBackend: "redis",
		EnvAddr:         ":9999",
		EnvCORSOrigins:  "http://a.test, ,http://b.test",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != StoreMongo || cfg.Store.MongoURI != "mongodb://db:27017" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "http://a.test|http://b.test" {
		t.Errorf("cors origins = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := Default()
	if err := bad.ApplyEnv(func(k string) (string, bool) { return "nonsense", k == EnvAddr }); err == nil {
		t.Error("invalid address from env should fail")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "[engine]") {
		t.Errorf("encoded config lacks sections:\n%s", buf.String())
	}
	cfg := Config{}
	if err := cfg.Decode(&buf); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("decoded config invalid: %v", err)
	}
}

func TestDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	path, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg-config", AppName, "config.toml"); path != want {
		t.Errorf("DefaultPath() = %q, want %q", path, want)
	}
	dir, err := CacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg-cache", AppName); dir != want {
		t.Errorf("CacheDir() = %q, want %q", dir, want)
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	st, err := StoreConfig{Backend: StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")}.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, ok := st.(*store.SQLiteStore); !ok {
		t.Errorf("store = %T", st)
	}

	c, err := CacheConfig{Backend: CacheFile, Dir: t.TempDir()}.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("cache = %T", c)
	}

	c, err = CacheConfig{Backend: CacheNone}.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("cache = %T", c)
	}

	if _, err := (StoreConfig{Backend: "tape"}).Open(ctx); err == nil {
		t.Error("unknown store backend should fail")
	}
}

func TestOpenCacheFailures(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  CacheConfig
		code errs.Code
	}{
		{"file cache under a file", CacheConfig{Backend: CacheFile, Dir: filepath.Join(file, "cache")}, errs.ErrCodeCache},
		{"unknown backend", CacheConfig{Backend: "tape"}, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.Open(ctx); !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}
