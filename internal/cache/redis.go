package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/logger"

	"github.com/redis/go-redis/v9"
)

// store the live client with its key namespace. A nil store means redis
// is disabled and every helper degrades to a no-op.
type store struct {
	client *redis.Client
	prefix string
}

var current atomic.Pointer[store]

// InitRedis initializes the shared client. A disabled config leaves every
// helper as a no-op.
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		current.Store(nil)
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	current.Store(&store{
		client: redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: strings.TrimSpace(cfg.Prefix),
	})
	return nil
}

// Enabled reports whether redis is configured
func Enabled() bool {
	return current.Load() != nil
}

// Client returns the redis client, nil when disabled
func Client() *redis.Client {
	if s := current.Load(); s != nil {
		return s.client
	}
	return nil
}

// Close releases the client and disables the helpers
func Close() error {
	s := current.Swap(nil)
	if s == nil {
		return nil
	}
	return s.client.Close()
}

// Ping checks connectivity
func Ping(ctx context.Context) error {
	s := current.Load()
	if s == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// GetJSON reads a JSON value; found is false on a miss or when disabled.
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	s := current.Load()
	if s == nil {
		return false, nil
	}
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON writes a JSON value
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s := current.Load()
	if s == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), payload, ttl).Err()
}

// GetOrLoad serves key from redis or calls load and caches its result.
// Cache failures are logged and never fail the caller; load errors are
// returned as is and nothing is cached.
func GetOrLoad[T any](ctx context.Context, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var cached T
	hit, err := GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Debugw("cache_read_failed", "key", key, "error", err)
	}
	if hit {
		return cached, nil
	}
	value, err := load()
	if err != nil {
		return value, err
	}
	if err := SetJSON(ctx, key, value, ttl); err != nil {
		logger.Debugw("cache_write_failed", "key", key, "error", err)
	}
	return value, nil
}

// SetNX claims key for ttl. It reports true when the caller won the claim;
// without redis every claim is granted.
func SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s := current.Load()
	if s == nil {
		return true, nil
	}
	return s.client.SetNX(ctx, s.key(key), time.Now().Unix(), ttl).Result()
}

// Del deletes a key
func Del(ctx context.Context, key string) error {
	s := current.Load()
	if s == nil {
		return nil
	}
	return s.client.Del(ctx, s.key(key)).Err()
}

// BuildKey prefixes key with the configured namespace
func BuildKey(key string) string {
	return current.Load().key(key)
}

func (s *store) key(key string) string {
	prefix := constants.RedisPrefixDefault
	if s != nil && s.prefix != "" {
		prefix = s.prefix
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return prefix
	}
	return prefix + ":" + key
}
