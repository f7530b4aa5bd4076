package config

import "time"

// CacheConfig defines settings for the doctor-search cache.  When Enabled
// is false or no Redis client is configured, every search goes to the API.
// TTL defines the lifetime of an entry, Prefix namespaces the keys and
// MaxBodyBytes skips caching oversized listings.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Caching is off unless asked for, so listings are never stale by default.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", false),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
	}
}
