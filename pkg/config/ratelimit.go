package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultRateLimitRequests = 100
	defaultRateLimitWindow   = time.Minute
)

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

// String returns a string representation of the rate limit configuration.
func (c *RateLimitConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Rate Limit ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	if c.Enabled {
		b.WriteString(fmt.Sprintf("  requests: %d\n", c.Requests))
		b.WriteString(fmt.Sprintf("  window: %v\n", c.Window))
	}
	return b.String()
}

// Validate fills in 100 requests per minute for unset values.
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Requests < 0 || c.Window < 0 {
		return fmt.Errorf("ratelimit requests and window must not be negative")
	}
	if c.Requests == 0 {
		c.Requests = defaultRateLimitRequests
	}
	if c.Window == 0 {
		c.Window = defaultRateLimitWindow
	}
	return nil
}
