package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the store URL or access key is missing.
var ErrNotConfigured = errors.New("store connection is not configured")

const (
	defaultRestPath    = "/rest/v1"
	defaultTable       = "products"
	defaultActiveView  = "active_products"
	defaultConflictKey = "product_name"
)

// Schema capability declarations accepted in SchemaConfig.
const (
	CapabilityAuto    = "auto"
	CapabilityPresent = "present"
	CapabilityAbsent  = "absent"
)

// StoreConfig describes how to reach the hosted product store.
type StoreConfig struct {
	URL            string               `koanf:"url"`
	Key            string               `koanf:"key"`
	RestPath       string               `koanf:"restpath"`
	Table          string               `koanf:"table"`
	ActiveView     string               `koanf:"activeview"`
	ConflictKey    string               `koanf:"conflictkey"`
	Timeout        time.Duration        `koanf:"timeout"`
	Schema         SchemaConfig         `koanf:"schema"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// SchemaConfig declares which optional parts of the store schema exist.
// "auto" defers the decision to a metadata probe at startup.
type SchemaConfig struct {
	ActiveFlag string `koanf:"activeflag"`
	ActiveView string `koanf:"activeview"`
}

// String returns a string representation of the StoreConfig with the key masked.
func (c *StoreConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Store ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", orNotConfigured(c.URL)))
	b.WriteString(fmt.Sprintf("  key: %s\n", maskSecret(c.Key)))
	b.WriteString(fmt.Sprintf("  restpath: %s\n", c.RestPath))
	b.WriteString(fmt.Sprintf("  table: %s\n", c.Table))
	b.WriteString(fmt.Sprintf("  activeview: %s\n", c.ActiveView))
	b.WriteString(fmt.Sprintf("  conflictkey: %s\n", c.ConflictKey))
	b.WriteString(fmt.Sprintf("  timeout: %v\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  schema.activeflag: %s\n", c.Schema.ActiveFlag))
	b.WriteString(fmt.Sprintf("  schema.activeview: %s\n", c.Schema.ActiveView))
	b.WriteString(c.CircuitBreaker.String())
	return b.String()
}

// Validate fills defaults and reports ErrNotConfigured when the URL or key is missing.
func (c *StoreConfig) Validate() error {
	if c.URL == "" || c.Key == "" {
		return fmt.Errorf("%w: both store.url and store.key are required", ErrNotConfigured)
	}
	if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("store URL must be absolute: %s", c.URL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("store timeout must not be negative: %v", c.Timeout)
	}
	if c.RestPath == "" {
		c.RestPath = defaultRestPath
	}
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.ActiveView == "" {
		c.ActiveView = defaultActiveView
	}
	if c.ConflictKey == "" {
		c.ConflictKey = defaultConflictKey
	}
	for name, value := range map[string]*string{
		"schema.activeflag": &c.Schema.ActiveFlag,
		"schema.activeview": &c.Schema.ActiveView,
	} {
		switch strings.ToLower(*value) {
		case "":
			*value = CapabilityAuto
		case CapabilityAuto, CapabilityPresent, CapabilityAbsent:
			*value = strings.ToLower(*value)
		default:
			return fmt.Errorf("store.%s must be one of auto, present, absent: %q", name, *value)
		}
	}
	return c.CircuitBreaker.Validate()
}

func orNotConfigured(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return s
}

func maskSecret(s string) string {
	if s == "" {
		return "<not configured>"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}
