package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/adapters/cache"
	"github.com/mikey/mail-threat-filter/internal/config"
	"github.com/mikey/mail-threat-filter/internal/core"
)

// Store is a reputation store that owns background resources
type Store interface {
	core.ReputationStore
	Stop()
}

// CacheFactory creates reputation stores based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a reputation store based on the configuration
func (f *CacheFactory) CreateStore() (Store, error) {
	cc, err := f.cfg.GetCache()
	if err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}

	if !cc.Enabled {
		f.logger.Info("Reputation cache disabled")
		return cache.NewNoopCache(), nil
	}

	switch cc.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger, cc.CleanupFrequency), nil
	case "sqlite":
		if err := ensureDir(cc.SQLitePath); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(cc.SQLitePath, f.logger, cc.CleanupFrequency)
	case "mysql":
		return cache.NewMySQLCache(cc.MySQLDSN, f.logger, cc.CleanupFrequency)
	case "redis":
		return cache.NewRedisCache(context.Background(), &redis.Options{
			Addr:     cc.RedisAddr,
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
		}, f.logger)
	case "bolt":
		if err := ensureDir(cc.BoltPath); err != nil {
			return nil, fmt.Errorf("failed to create bolt directory: %w", err)
		}
		return cache.NewBoltCache(cc.BoltPath, f.logger, cc.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cc.Type)
	}
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
