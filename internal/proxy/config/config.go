// Package config holds the settings of the backend proxy.
package config

import (
	"strings"

	"github.com/abgdnv/smartstock/pkg/config"
	"github.com/abgdnv/smartstock/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Store      config.StoreConfig     `koanf:"store"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	CORS       config.CORSConfig      `koanf:"cors"`
	RateLimit  config.RateLimitConfig `koanf:"ratelimit"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Store.String())
	b.WriteString(c.CORS.String())
	b.WriteString(c.RateLimit.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())
	return b.String()
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.CORS.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}
