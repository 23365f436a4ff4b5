package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0"`
}

// UpstreamConfig contains the FOIS/RailRadar upstream endpoints and the
// client-side politeness settings applied to them.
type UpstreamConfig struct {
	DirectoryURL string `yaml:"directoryURL" validate:"omitempty,url"`
	DetailURL    string `yaml:"detailURL" validate:"omitempty,url"`
	UserAgent    string `yaml:"userAgent"`
	TimeoutMS    int    `yaml:"timeoutMS" validate:"gte=0"`
	RateLimitRPS int    `yaml:"rateLimitRPS" validate:"gte=0"`
	Timezone     string `yaml:"timezone"`
}

// CollectorConfig contains the periodic collection schedule
type CollectorConfig struct {
	IntervalMS   int `yaml:"intervalMS" validate:"gte=0"`
	ChunkSize    int `yaml:"chunkSize" validate:"gte=0"`
	ChunkDelayMS int `yaml:"chunkDelayMS" validate:"gte=0"`
}

// StoreConfig contains the observation store location and retention window
type StoreConfig struct {
	Path      string `yaml:"path"`
	Retention string `yaml:"retention"`
}

// LoggingConfig contains log level and output format
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Collector CollectorConfig `yaml:"collector"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Timeout returns the upstream HTTP timeout as a duration.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMS) * time.Millisecond
}

// Interval returns the collection period as a duration.
func (c CollectorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// ChunkDelay returns the pause between detail-fetch chunks as a duration.
func (c CollectorConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMS) * time.Millisecond
}

// RetentionWindow parses the retention duration; values that fail to
// parse fall back to the default window.
func (s StoreConfig) RetentionWindow() time.Duration {
	d, err := time.ParseDuration(s.Retention)
	if err != nil || d <= 0 {
		return DefaultRetention
	}
	return d
}
