package cache

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Type names a resolution cache backend
type Type string

const (
	TypeLocal   Type = "local"
	TypeRedis   Type = "redis"
	TypeTwoTier Type = "two_tier"
	TypeNone    Type = "none"
)

// Shared reports whether the backend needs Redis
func (t Type) Shared() bool {
	return t == TypeRedis || t == TypeTwoTier
}

const (
	defaultTTL       = 10 * time.Minute
	defaultKeyPrefix = "header-rules:resolved:"
)

// Config selects and sizes the resolution cache
type Config struct {
	Type Type
	// TTL bounds how long a resolved value is reused
	TTL             time.Duration
	CleanupInterval time.Duration
	KeyPrefix       string
	RedisClient     *redis.Client
	// FallbackToLocal degrades a shared type to TypeLocal when RedisClient is
	// nil instead of failing
	FallbackToLocal bool
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		Type:            TypeLocal,
		TTL:             defaultTTL,
		CleanupInterval: defaultTTL,
		KeyPrefix:       defaultKeyPrefix,
	}
}

// New creates the cache config selects and reports the type it actually
// built, which differs from config.Type after a fallback
func New(config Config) (Cache, Type, error) {
	if config.TTL <= 0 {
		config.TTL = defaultTTL
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = config.TTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	if config.Type == "" {
		config.Type = TypeLocal
	}

	if config.Type.Shared() && config.RedisClient == nil {
		if !config.FallbackToLocal {
			return nil, config.Type, fmt.Errorf("redis client required for %s cache", config.Type)
		}
		config.Type = TypeLocal
	}

	switch config.Type {
	case TypeNone:
		return Noop{}, TypeNone, nil
	case TypeLocal:
		return NewLocalCache(config.TTL, config.CleanupInterval), TypeLocal, nil
	case TypeRedis:
		return NewRedisCache(config.RedisClient, config.KeyPrefix, config.TTL), TypeRedis, nil
	case TypeTwoTier:
		return NewTwoTierCache(config.TTL, config.CleanupInterval, config.RedisClient, config.KeyPrefix), TypeTwoTier, nil
	default:
		return nil, config.Type, fmt.Errorf("unknown cache type: %s", config.Type)
	}
}
