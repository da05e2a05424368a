package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
}

// DataConfig describes where trips and stations are loaded from
type DataConfig struct {
	TripsCSV     string `yaml:"tripsCSV" validate:"required_without=SQLite"`
	StationsJSON string `yaml:"stationsJSON" validate:"required_without=SQLite"`
	SQLite       string `yaml:"sqlite"`
	StationKey   string `yaml:"stationKey" validate:"oneof=legacy_id short_name station_id"`
	Timezone     string `yaml:"timezone" validate:"required"`
	StrictKeys   bool   `yaml:"strictKeys"`
}

// CacheConfig sizes the per-time-filter result cache. An explicit size
// of 0 disables caching; leaving it out uses DefaultCacheSize.
type CacheConfig struct {
	Size *int          `yaml:"size" validate:"omitnil,gte=0"`
	TTL  time.Duration `yaml:"ttl" validate:"gte=0"`
}

// Entries returns the number of results to cache, 0 meaning no cache
func (c CacheConfig) Entries() int {
	if c.Size == nil {
		return DefaultCacheSize
	}
	return *c.Size
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server ServerConfig `yaml:"server" validate:"required"`
	Data   DataConfig   `yaml:"data" validate:"required"`
	Cache  CacheConfig  `yaml:"cache"`
	Debug  bool         `yaml:"debug"`
}
