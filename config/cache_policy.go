package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// CachePolicy is the YAML-file overlay for tree cache TTLs. Operators
// tune TTLs per deployment without rebuilding; env values act as the
// baseline and the file wins where it sets a value.
//
// Durations are Go duration strings ("30m", "250ms").
type CachePolicy struct {
	PublishedTTL   string `yaml:"published_ttl"`
	PrivateTTL     string `yaml:"private_ttl"`
	BackendTimeout string `yaml:"backend_timeout"`

	HTTP struct {
		MaxAge               string `yaml:"max_age"`
		StaleWhileRevalidate string `yaml:"stale_while_revalidate"`
	} `yaml:"http"`
}

// LoadCachePolicy reads a cache policy YAML file
func LoadCachePolicy(filename string) (*CachePolicy, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache policy file: %w", err)
	}

	var policy CachePolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse cache policy file: %w", err)
	}

	return &policy, nil
}

// ApplyCachePolicy overlays a policy onto the cache config. Empty policy
// values leave the config value in place; malformed durations are
// reported rather than silently skipped.
func (c *Config) ApplyCachePolicy(policy *CachePolicy) error {
	if policy == nil {
		return nil
	}

	fields := []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"published_ttl", policy.PublishedTTL, &c.Cache.PublishedTTL},
		{"private_ttl", policy.PrivateTTL, &c.Cache.PrivateTTL},
		{"backend_timeout", policy.BackendTimeout, &c.Cache.BackendTimeout},
		{"http.max_age", policy.HTTP.MaxAge, &c.Cache.HTTPMaxAge},
		{"http.stale_while_revalidate", policy.HTTP.StaleWhileRevalidate, &c.Cache.HTTPStaleWhileRevalidate},
	}

	for _, field := range fields {
		if field.value == "" {
			continue
		}
		duration, err := time.ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field.name, err)
		}
		*field.dest = duration
	}

	return nil
}
