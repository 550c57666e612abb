package config

import (
	"context"
	"fmt"

	"github.com/matzehuels/skylayer/pkg/cache"
	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/store"
)

// Open creates the configured project store.
func (s StoreConfig) Open(ctx context.Context) (store.Store, error) {
	switch s.Backend {
	case StoreMemory, "":
		return store.NewMemory(), nil
	case StoreSQLite:
		return store.NewSQLite(ctx, s.SQLitePath)
	case StoreMongo:
		return store.NewMongo(ctx, store.MongoConfig{URI: s.MongoURI, Database: s.MongoDatabase})
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.Backend)
	}
}

// Open creates the configured result cache. A file cache without a
// directory uses [CacheDir]. Backend failures carry the CACHE_ERROR code.
func (c CacheConfig) Open(ctx context.Context) (cache.Cache, error) {
	cc, err := c.open(ctx)
	if err != nil && errs.GetCode(err) == "" {
		return nil, errs.Wrap(errs.ErrCodeCache, err, "open %s cache", c.Backend)
	}
	return cc, err
}

func (c CacheConfig) open(ctx context.Context) (cache.Cache, error) {
	switch c.Backend {
	case CacheNone, "":
		return cache.NewNullCache(), nil
	case CacheFile:
		dir := c.Dir
		if dir == "" {
			d, err := CacheDir()
			if err != nil {
				return nil, fmt.Errorf("get cache dir: %w", err)
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	case CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
	default:
		return nil, errs.New(errs.ErrCodeInvalidInput, "unknown cache backend %q", c.Backend)
	}
}
