package config

import (
	"time"
	// zone names such as America/Winnipeg must resolve without system tzdata
	_ "time/tzdata"

	"transittracker.app/internal/transit"
)

const (
	ProviderWinnipeg = "winnipeg"
	ProviderOBA      = "oba"
	ProviderGTFS     = "gtfs"

	DefaultAPIKeyFile = "txt/api.txt"
)

// Config holds all the configuration settings for our application.
type Config struct {
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	Env      string `yaml:"env" validate:"oneof=development staging production"`
	Provider string `yaml:"provider" validate:"oneof=winnipeg oba gtfs"`

	// Timeout bounds a single attempt against the provider.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	Winnipeg WinnipegConfig `yaml:"winnipeg"`
	OBA      OBAConfig      `yaml:"oba"`
	GTFS     GTFSConfig     `yaml:"gtfs"`

	// APIKey is never read from the config file; see LoadAPIKey.
	APIKey string `yaml:"-"`
}

type WinnipegConfig struct {
	BaseURL    string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyFile string `yaml:"api_key_file"`
}

type OBAConfig struct {
	BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
	APIKey   string `yaml:"api_key"`
	Timezone string `yaml:"timezone" validate:"omitempty,timezone"`
}

type GTFSConfig struct {
	// Bundle is a URL or a local path to a GTFS static zip.
	Bundle          string        `yaml:"bundle"`
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
	// CacheDir keeps downloaded bundles; empty disables the cache.
	CacheDir string `yaml:"cache_dir"`
}

// NewConfig returns a Config with defaults for every setting.
func NewConfig() *Config {
	return &Config{
		Port:     4000,
		Env:      "development",
		Provider: ProviderWinnipeg,
		Timeout:  transit.DEFAULT_TIMEOUT,
		Winnipeg: WinnipegConfig{
			BaseURL:    transit.DefaultBaseURL,
			APIKeyFile: DefaultAPIKeyFile,
		},
		OBA: OBAConfig{
			Timezone: "America/Winnipeg",
		},
		GTFS: GTFSConfig{
			CacheDir: "cache",
		},
	}
}
