package config

import "time"

// CacheConfig defines settings for the response cache middleware used by
// public read-only endpoints (business hours).  When Enabled is false or no
// Redis client is configured, caching is disabled.  Prefix doubles as the
// namespace that writers invalidate after an update.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 5*time.Minute),
		Prefix:       envStr("CACHE_PREFIX", "dogrun:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 64*1024),
	}
}
