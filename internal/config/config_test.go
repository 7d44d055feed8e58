package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("defaults target the reference index", func(t *testing.T) {
		t.Parallel()
		if len(cfg.RootURLs) != 1 || cfg.RootURLs[0] != DefaultRootURL {
			t.Errorf("unexpected roots: %v", cfg.RootURLs)
		}
	})

	t.Run("pacing and retry defaults", func(t *testing.T) {
		t.Parallel()
		if cfg.RequestInterval != time.Second {
			t.Errorf("expected 1s request interval, got %v", cfg.RequestInterval)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected 30s timeout, got %v", cfg.Timeout)
		}
		if cfg.MaxRetries != 3 {
			t.Errorf("expected 3 retries, got %d", cfg.MaxRetries)
		}
		if cfg.RetryBaseDelay != time.Second {
			t.Errorf("expected 1s retry base delay, got %v", cfg.RetryBaseDelay)
		}
	})

	t.Run("failed items are retried on a new invocation by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.RetryFailed {
			t.Error("expected RetryFailed to default to true")
		}
	})

	t.Run("defaults validate cleanly", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid defaults, got %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty roots",
			mutate:  func(c *Config) { c.RootURLs = nil },
			wantErr: ErrNoRootURL,
		},
		{
			name:    "relative root",
			mutate:  func(c *Config) { c.RootURLs = []string{"namespaces.html"} },
			wantErr: ErrInvalidRootURL,
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.RootURLs = []string{"ftp://rpgbakin.com/doc"} },
			wantErr: ErrInvalidRootURL,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: ErrInvalidRetryCount,
		},
		{
			name:    "negative retry delay",
			mutate:  func(c *Config) { c.RetryBaseDelay = -time.Second },
			wantErr: ErrInvalidRetryDelay,
		},
		{
			name:    "negative request interval",
			mutate:  func(c *Config) { c.RequestInterval = -time.Second },
			wantErr: ErrInvalidRequestInterval,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.BatchSize = 0 },
			wantErr: ErrInvalidBatchSize,
		},
		{
			name:    "negative snapshot interval",
			mutate:  func(c *Config) { c.SnapshotEvery = -1 },
			wantErr: ErrInvalidSnapshotInterval,
		},
		{
			name:    "conflicting report formats",
			mutate:  func(c *Config) { c.JSONReport = true; c.MarkdownReport = true },
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "negative max body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("zero interval is allowed for test servers", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.RequestInterval = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected zero interval to validate, got %v", err)
		}
	})

	t.Run("zero retries means a single attempt and is valid", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.MaxRetries = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected zero retries to validate, got %v", err)
		}
	})
}

func TestCheckpointDBPath(t *testing.T) {
	t.Parallel()

	t.Run("uses the configured directory", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.CheckpointDir = "/tmp/bakinscan-test"
		want := filepath.Join("/tmp/bakinscan-test", CheckpointDBFile)
		if got := cfg.CheckpointDBPath(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("falls back to the XDG data dir", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.CheckpointDir = ""
		if got := cfg.CheckpointDBPath(); !strings.Contains(got, AppName) {
			t.Errorf("expected XDG path containing %s, got %s", AppName, got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("expected %s dir to end with %s, got %s", name, AppName, dir)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads host overrides", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		content := `
defaults:
  requestInterval: 2s
sites:
  rpgbakin.com:
    userAgent: "custom-agent/1.0"
    timeout: 10s
    headers:
      Accept-Language: ja
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}

		site := cf.GetSiteConfig("rpgbakin.com")
		if site.UserAgent != "custom-agent/1.0" {
			t.Errorf("unexpected user agent: %s", site.UserAgent)
		}
		if site.RequestInterval != 2*time.Second {
			t.Errorf("expected default interval inherited, got %v", site.RequestInterval)
		}
		if site.Timeout != 10*time.Second {
			t.Errorf("unexpected timeout: %v", site.Timeout)
		}
		if site.Headers["Accept-Language"] != "ja" {
			t.Errorf("unexpected headers: %v", site.Headers)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml returns an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(":\tnot yaml"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected an error for invalid yaml")
		}
	})

	t.Run("unknown host gets defaults only", func(t *testing.T) {
		t.Parallel()
		cf := &File{Defaults: SiteConfig{RequestInterval: 3 * time.Second}}
		site := cf.GetSiteConfig("other.example.com")
		if site.RequestInterval != 3*time.Second {
			t.Errorf("expected defaults, got %v", site.RequestInterval)
		}
	})
}

func TestSiteConfigApply(t *testing.T) {
	t.Parallel()

	t.Run("overrides replace globals", func(t *testing.T) {
		t.Parallel()
		retries := 5
		site := SiteConfig{
			UserAgent:       "mirror-agent",
			RequestInterval: 500 * time.Millisecond,
			MaxRetries:      &retries,
		}
		base := NewConfig()
		merged := site.Apply(base)

		if merged.UserAgent != "mirror-agent" {
			t.Errorf("unexpected user agent: %s", merged.UserAgent)
		}
		if merged.RequestInterval != 500*time.Millisecond {
			t.Errorf("unexpected interval: %v", merged.RequestInterval)
		}
		if merged.MaxRetries != 5 {
			t.Errorf("unexpected retries: %d", merged.MaxRetries)
		}
		if base.UserAgent == "mirror-agent" {
			t.Error("expected the original config untouched")
		}
	})

	t.Run("zero values inherit globals", func(t *testing.T) {
		t.Parallel()
		merged := SiteConfig{}.Apply(NewConfig())
		if merged.RequestInterval != DefaultRequestInterval {
			t.Errorf("expected global interval, got %v", merged.RequestInterval)
		}
		if merged.MaxRetries != DefaultMaxRetries {
			t.Errorf("expected global retries, got %d", merged.MaxRetries)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Run("explicit path wins when it exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("sites: {}"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("missing explicit path returns empty", func(t *testing.T) {
		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty, got %s", got)
		}
	})
}
