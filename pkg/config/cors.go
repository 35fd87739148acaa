package config

import (
	"fmt"
	"strings"
)

// CORSConfig lists the browser origins allowed to call the proxy.
// Origins is comma separated; "*" allows any origin.
type CORSConfig struct {
	Origins string `koanf:"origins"`
	MaxAge  int    `koanf:"maxage"`
}

// AllowedOrigins splits Origins, defaulting to any origin.
func (c *CORSConfig) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// String returns a string representation of the CORS configuration.
func (c *CORSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- CORS ---\n")
	b.WriteString(fmt.Sprintf("  origins: %s\n", strings.Join(c.AllowedOrigins(), ",")))
	b.WriteString(fmt.Sprintf("  maxage: %d\n", c.MaxAge))
	return b.String()
}

func (c *CORSConfig) Validate() error {
	if c.MaxAge < 0 {
		return fmt.Errorf("cors.maxage must not be negative: %d", c.MaxAge)
	}
	return nil
}
