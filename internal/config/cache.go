package config

import (
	"strings"
	"time"
)

// Cache entry sharing.
const (
	VaryRole = "role" // callers with the same role share an entry
	VaryUser = "user" // every caller has its own entry
)

// CacheConfig configures the Redis response cache. Only responses to
// Methods under one of Paths are stored. Notice listings differ per
// audience, so entries vary by role unless Vary says otherwise. Room
// availability is derived from the allocation ledger on every read and
// must never be listed in Paths.
type CacheConfig struct {
	Enabled bool
	Methods map[string]bool
	Paths   []string
	TTL     time.Duration
	Vary    string
	Prefix  string
	MaxBody int // larger responses are served but not stored
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		Methods: map[string]bool{},
		Paths:   envList("CACHE_PATHS", "/v1/notices"),
		TTL:     envDur("CACHE_TTL", 30*time.Second),
		Vary:    strings.ToLower(envStr("CACHE_VARY", VaryRole)),
		Prefix:  envStr("CACHE_PREFIX", "hostel:cache"),
		MaxBody: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	for _, m := range envList("CACHE_METHODS", "GET") {
		c.Methods[strings.ToUpper(m)] = true
	}
	if c.Vary != VaryUser {
		c.Vary = VaryRole
	}
	return c
}
