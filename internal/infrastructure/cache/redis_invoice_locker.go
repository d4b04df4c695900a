package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultLockPrefix = "koinor:lock:"

// releaseScript deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisInvoiceLocker implements InvoiceLocker with SET NX PX leases so that
// several importer instances serialize on the same invoice numbers.
type RedisInvoiceLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
	retry     time.Duration
	logger    *zap.Logger
}

// RedisLockerOption configures a RedisInvoiceLocker
type RedisLockerOption func(*RedisInvoiceLocker)

// WithLockPrefix overrides the key namespace
func WithLockPrefix(prefix string) RedisLockerOption {
	return func(l *RedisInvoiceLocker) {
		if prefix != "" {
			l.keyPrefix = prefix
		}
	}
}

// WithRetryInterval sets the pause between acquisition attempts
func WithRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisInvoiceLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithLockLogger sets the logger used for release failures
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisInvoiceLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisInvoiceLocker creates a distributed locker on an existing client
func NewRedisInvoiceLocker(client *redis.Client, ttl, wait time.Duration, opts ...RedisLockerOption) *RedisInvoiceLocker {
	l := &RedisInvoiceLocker{
		client:    client,
		keyPrefix: defaultLockPrefix,
		ttl:       ttl,
		wait:      wait,
		retry:     50 * time.Millisecond,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ping checks the lock backend is reachable
func (l *RedisInvoiceLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Lock acquires every key in sorted order. Keys expire after the configured
// TTL even if release never runs.
func (l *RedisInvoiceLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := normalizeKeys(keys)
	token := uuid.NewString()

	deadline := time.Time{}
	if l.wait > 0 {
		deadline = time.Now().Add(l.wait)
	}

	held := make([]string, 0, len(ordered))
	for _, key := range ordered {
		if err := l.acquire(ctx, l.keyPrefix+key, token, deadline); err != nil {
			l.releaseAll(held, token)
			return nil, err
		}
		held = append(held, l.keyPrefix+key)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		l.releaseAll(held, token)
	}, nil
}

func (l *RedisInvoiceLocker) acquire(ctx context.Context, key, token string, deadline time.Time) error {
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return shared.ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisInvoiceLocker) releaseAll(held []string, token string) {
	// release must run even when the caller's context is already cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(held) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.client, []string{held[i]}, token).Err(); err != nil {
			l.logger.Warn("failed to release invoice lock",
				zap.String("key", held[i]),
				zap.Error(err),
			)
		}
	}
}

var _ billing.InvoiceLocker = (*RedisInvoiceLocker)(nil)
