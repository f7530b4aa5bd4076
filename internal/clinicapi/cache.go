package clinicapi

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SearchCache stores the data part of successful doctor-search responses.
// Doctor listings are the same for every user, so they are the only
// responses the portal is willing to share between sessions.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (nopCache) Set(context.Context, string, []byte)         {}

// RedisSearchCache keeps entries under "<prefix>:<sha1(path)>" for TTL.
type RedisSearchCache struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	maxSize int
}

// NewRedisSearchCache returns nil when rdb is nil so callers can pass the
// result straight to Client.WithCache.
func NewRedisSearchCache(rdb *redis.Client, prefix string, ttl time.Duration, maxSize int) SearchCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSearchCache{rdb: rdb, prefix: prefix, ttl: ttl, maxSize: maxSize}
}

func (r *RedisSearchCache) key(path string) string {
	sum := sha1.Sum([]byte(path))
	return fmt.Sprintf("%s:doctors:%x", r.prefix, sum[:])
}

func (r *RedisSearchCache) Get(ctx context.Context, key string) ([]byte, bool) {
	bs, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil || len(bs) == 0 {
		return nil, false
	}
	return bs, true
}

// Set skips entries larger than maxSize rather than truncating them.
func (r *RedisSearchCache) Set(ctx context.Context, key string, data []byte) {
	if r.maxSize > 0 && len(data) > r.maxSize {
		return
	}
	_ = r.rdb.SetEx(ctx, r.key(key), data, r.ttl).Err()
}
