package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort       = 18080
	DefaultStationKey = "legacy_id"
	DefaultTimezone   = "America/New_York"

	// one entry per possible time filter, including the unfiltered one
	DefaultCacheSize = 1441
)

// Default returns the configuration used when no file is given
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML configuration file and fills in defaults. The result
// is not validated so that command-line overrides can be applied first.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Data.StationKey == "" {
		c.Data.StationKey = DefaultStationKey
	}
	if c.Data.Timezone == "" {
		c.Data.Timezone = DefaultTimezone
	}
	if c.Cache.Size == nil {
		size := DefaultCacheSize
		c.Cache.Size = &size
	}
}

// Validate checks the configuration against its struct tags
func (c *AppConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	if _, err := c.Data.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone
func (d DataConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}
