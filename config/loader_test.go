package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
upstream:
  directoryURL: https://example.com/directory/
  detailURL: https://example.com/detail
  timeoutMS: 5000
  rateLimitRPS: 5
collector:
  intervalMS: 120000
  chunkSize: 10
  chunkDelayMS: 500
store:
  path: /var/lib/locotrack
  retention: 6h
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Upstream.Timeout() != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.Upstream.Timeout())
	}
	if cfg.Collector.Interval() != 2*time.Minute {
		t.Errorf("interval = %v, want 2m", cfg.Collector.Interval())
	}
	if cfg.Collector.ChunkSize != 10 || cfg.Collector.ChunkDelay() != 500*time.Millisecond {
		t.Errorf("chunking = %d/%v", cfg.Collector.ChunkSize, cfg.Collector.ChunkDelay())
	}
	if cfg.Store.RetentionWindow() != 6*time.Hour {
		t.Errorf("retention = %v, want 6h", cfg.Store.RetentionWindow())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// Defaults still fill unset fields.
	if cfg.Upstream.UserAgent == "" {
		t.Error("user agent default not applied")
	}
	if cfg.Upstream.Timezone != DefaultTimezone {
		t.Errorf("timezone = %q, want default %q", cfg.Upstream.Timezone, DefaultTimezone)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Upstream.DirectoryURL != DefaultDirectoryURL || cfg.Upstream.DetailURL != DefaultDetailURL {
		t.Errorf("upstream = %+v", cfg.Upstream)
	}
	if cfg.Collector.ChunkSize != DefaultChunkSize {
		t.Errorf("chunk size = %d, want %d", cfg.Collector.ChunkSize, DefaultChunkSize)
	}
	if cfg.Store.RetentionWindow() != DefaultRetention {
		t.Errorf("retention = %v, want %v", cfg.Store.RetentionWindow(), DefaultRetention)
	}
}

func TestLoadExplicitPathMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected an error for a missing explicit path")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "server: [port: 1"},
		{"bad url", "upstream:\n  directoryURL: not-a-url\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"negative timeout", "upstream:\n  timeoutMS: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestRetentionWindowFallback(t *testing.T) {
	s := StoreConfig{Retention: "not-a-duration"}
	if got := s.RetentionWindow(); got != DefaultRetention {
		t.Errorf("retention = %v, want fallback %v", got, DefaultRetention)
	}
}
