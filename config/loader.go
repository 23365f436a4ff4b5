package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults applied after validation for fields the file leaves unset.
const (
	DefaultPort         = 3001
	DefaultDirectoryURL = "https://www.railjournal.in/RailRadar/"
	DefaultDetailURL    = "https://fois.indianrail.gov.in/foisweb/GG_AjaxInteraction"
	DefaultTimeoutMS    = 15000
	DefaultRateLimitRPS = 20
	DefaultTimezone     = "Asia/Kolkata"
	DefaultIntervalMS   = 60000
	DefaultChunkSize    = 25
	DefaultChunkDelayMS = 2000
	DefaultStorePath    = "./data"
	DefaultRetention    = 6 * time.Hour
)

// DefaultUserAgent identifies the client to the detail endpoint, which
// has historically rejected default HTTP client identifiers.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Load reads and validates the application configuration. When path is
// empty the usual candidates are tried; a missing file yields the
// defaults rather than an error.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig

	paths := []string{path}
	if path == "" {
		paths = []string{"config.yml", "config.yaml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		if path != "" {
			return cfg, err
		}
		// No config file: run on defaults.
		applyDefaults(&cfg)
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Upstream.DirectoryURL == "" {
		cfg.Upstream.DirectoryURL = DefaultDirectoryURL
	}
	if cfg.Upstream.DetailURL == "" {
		cfg.Upstream.DetailURL = DefaultDetailURL
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = DefaultUserAgent
	}
	if cfg.Upstream.TimeoutMS == 0 {
		cfg.Upstream.TimeoutMS = DefaultTimeoutMS
	}
	if cfg.Upstream.RateLimitRPS == 0 {
		cfg.Upstream.RateLimitRPS = DefaultRateLimitRPS
	}
	if cfg.Upstream.Timezone == "" {
		cfg.Upstream.Timezone = DefaultTimezone
	}
	if cfg.Collector.IntervalMS == 0 {
		cfg.Collector.IntervalMS = DefaultIntervalMS
	}
	if cfg.Collector.ChunkSize == 0 {
		cfg.Collector.ChunkSize = DefaultChunkSize
	}
	if cfg.Collector.ChunkDelayMS == 0 {
		cfg.Collector.ChunkDelayMS = DefaultChunkDelayMS
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.Retention == "" {
		cfg.Store.Retention = "6h"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
