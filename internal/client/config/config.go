// Package config holds the settings of the inventory terminal client.
package config

import (
	"strings"

	"github.com/abgdnv/smartstock/pkg/config"
	"github.com/abgdnv/smartstock/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// SetupMessage is shown instead of the application when the store connection is missing.
const SetupMessage = `Smart Stock is not connected to a product store.

Set the store address and access key, either in config.yaml:

  store:
    url: https://<project>.supabase.co
    key: <anon or service key>

or through the environment:

  INVENTORY_STORE_URL=https://<project>.supabase.co
  INVENTORY_STORE_KEY=<anon or service key>

then start the application again.`

type Config struct {
	Store config.StoreConfig `koanf:"store"`
	Log   config.LogConfig   `koanf:"log"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.Store.String())
	b.WriteString(c.Log.String())
	return b.String()
}

// Validate checks the configuration. A missing store URL or key is reported
// as config.ErrNotConfigured.
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}
