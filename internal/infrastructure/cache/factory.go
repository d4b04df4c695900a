package cache

import (
	"fmt"

	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LockerFactory creates invoice lockers based on configuration
type LockerFactory struct {
	importConfig config.ImportConfig
	redisConfig  config.RedisConfig
	logger       *zap.Logger
	dial         func(config.RedisConfig) (*redis.Client, error)
}

// LockerFactoryOption is a functional option for configuring the factory
type LockerFactoryOption func(*LockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.logger = logger
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(importCfg config.ImportConfig, redisCfg config.RedisConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		importConfig: importCfg,
		redisConfig:  redisCfg,
		logger:       zap.NewNop(),
		dial:         NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateLocker returns the locker selected by import.lock_backend. The close
// func releases the Redis client when one was opened.
func (f *LockerFactory) CreateLocker() (billing.InvoiceLocker, func() error, error) {
	switch f.importConfig.LockBackend {
	case config.LockBackendRedis:
		client, err := f.dial(f.redisConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("redis lock backend unavailable: %w", err)
		}
		f.logger.Info("using Redis invoice locker", zap.String("addr", f.redisConfig.Addr()))
		locker := NewRedisInvoiceLocker(client, f.importConfig.LockTTL, f.importConfig.LockWait,
			WithLockLogger(f.logger))
		return locker, client.Close, nil
	case config.LockBackendMemory, "":
		// in-memory locks do not coordinate across process instances
		f.logger.Info("using in-memory invoice locker")
		return NewInMemoryInvoiceLocker(f.importConfig.LockWait), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown lock backend %q", f.importConfig.LockBackend)
}
