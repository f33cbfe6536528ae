// Package cache stores resolved header template values between conversion
// passes.
//
// Entries are content keyed: the key is a hash of the template, the header it
// belongs to and a fingerprint of the variables it was resolved against, so
// a changed variable never hits a stale entry. Dropping the cache at any time
// only costs recomputation.
//
// Backends: TypeLocal (in-memory, github.com/patrickmn/go-cache), TypeRedis
// (shared across instances, github.com/go-redis/redis/v8), TypeTwoTier (local
// in front of Redis, filled on Redis hits) and TypeNone. With FallbackToLocal
// a shared type without a Redis client degrades to TypeLocal.
//
// Usage:
//
//	c, built, err := cache.New(cache.Config{Type: cache.TypeTwoTier, RedisClient: rdb, FallbackToLocal: true})
//	key := cache.Key(fingerprint, rule.ID, "request", header.Name, header.Value)
//	if v, ok := c.Get(ctx, key); ok {
//		return v
//	}
//	c.Set(ctx, key, resolved, 0)
package cache
