package pagenav

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountCache shares exact counts between engines, so that users browsing the
// same filtered collection do not each pay for a count.
type CountCache interface {
	// Get returns the cached total. ok is false on a miss.
	Get(ctx context.Context, key string) (total int64, ok bool, err error)
	Set(ctx context.Context, key string, total int64, ttl time.Duration) error
}

// CountKey identifies the count of q: its source and filters.
func CountKey(q *Query) string {
	countQuery := q.ForCount()
	sql, args := countQuery.ToSQL()

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%v", countQuery.GetSource(), sql, args)))

	return hex.EncodeToString(sum[:16])
}

// RedisCountCache stores counts as plain integers under "<prefix>:<key>".
type RedisCountCache struct {
	rc     redis.Cmdable
	prefix string
}

func NewRedisCountCache(rc redis.Cmdable, prefix string) *RedisCountCache {
	return &RedisCountCache{
		rc:     rc,
		prefix: prefix,
	}
}

func (c *RedisCountCache) key(key string) string {
	if c.prefix == "" {
		return key
	}

	return c.prefix + ":" + key
}

// Get - implements CountCache.
func (c *RedisCountCache) Get(ctx context.Context, key string) (int64, bool, error) {
	if c.rc == nil {
		return 0, false, errors.New("redis client is nil, cannot get count")
	}

	total, err := c.rc.Get(ctx, c.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("failed to get cached count: %w", err)
	}

	return total, true, nil
}

// Set - implements CountCache.
func (c *RedisCountCache) Set(ctx context.Context, key string, total int64, ttl time.Duration) error {
	if c.rc == nil {
		return errors.New("redis client is nil, cannot set count")
	}

	if err := c.rc.Set(ctx, c.key(key), total, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached count: %w", err)
	}

	return nil
}

var _ CountCache = (*RedisCountCache)(nil)
