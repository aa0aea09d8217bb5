package config

import "time"

// CacheConfig tunes the Redis response cache applied to availability
// reads. The TTL is deliberately short: a cached seat map may lag the
// inventory by at most one TTL, and anything above a few seconds starts
// showing users seats that are already gone.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* environment variables, using
// defaults when unset.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 2*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "avcache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Second
	}
	return cfg
}
