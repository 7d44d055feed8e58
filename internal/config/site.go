package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds per-host overrides for a crawl root. This allows
// pacing a mirror differently from the primary site, or sending custom
// headers to a host that requires them.
type SiteConfig struct {
	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global User-Agent for this host.
	UserAgent string `yaml:"userAgent,omitempty"`

	// RequestInterval overrides the global request spacing for this host.
	// If zero, the global RequestInterval is used.
	RequestInterval time.Duration `yaml:"requestInterval,omitempty"`

	// Timeout overrides the global per-attempt timeout for this host.
	// If zero, the global Timeout is used.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRetries overrides the global retry budget for this host.
	// If negative or absent, the global MaxRetries is used.
	MaxRetries *int `yaml:"maxRetries,omitempty"`
}

// File represents the structure of the .bakinscan configuration file.
type File struct {
	// Sites maps host names to their overrides. Keys are bare hosts,
	// for example "rpgbakin.com".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains overrides applied to every host unless a
	// site-specific entry replaces them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// UnmarshalYAML decodes a site entry, accepting Go duration strings
// such as "2s" or "500ms" for the interval and timeout fields. Without
// this, yaml.v3 would only accept raw nanosecond integers.
func (sc *SiteConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Headers         map[string]string `yaml:"headers"`
		UserAgent       string            `yaml:"userAgent"`
		RequestInterval string            `yaml:"requestInterval"`
		Timeout         string            `yaml:"timeout"`
		MaxRetries      *int              `yaml:"maxRetries"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	sc.Headers = raw.Headers
	sc.UserAgent = raw.UserAgent
	sc.MaxRetries = raw.MaxRetries

	var err error
	if sc.RequestInterval, err = parseOptionalDuration("requestInterval", raw.RequestInterval); err != nil {
		return err
	}
	if sc.Timeout, err = parseOptionalDuration("timeout", raw.Timeout); err != nil {
		return err
	}
	return nil
}

// parseOptionalDuration parses a duration string, treating empty as zero.
func parseOptionalDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the host-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with host-specific configuration if present
	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
		if siteConfig.RequestInterval != 0 {
			result.RequestInterval = siteConfig.RequestInterval
		}
		if siteConfig.Timeout != 0 {
			result.Timeout = siteConfig.Timeout
		}
		if siteConfig.MaxRetries != nil {
			result.MaxRetries = siteConfig.MaxRetries
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}

// Apply folds the site overrides into a copy of the global config and
// returns it. The original config is not modified.
func (sc SiteConfig) Apply(c *Config) *Config {
	merged := *c
	if sc.UserAgent != "" {
		merged.UserAgent = sc.UserAgent
	}
	if sc.RequestInterval != 0 {
		merged.RequestInterval = sc.RequestInterval
	}
	if sc.Timeout != 0 {
		merged.Timeout = sc.Timeout
	}
	if sc.MaxRetries != nil && *sc.MaxRetries >= 0 {
		merged.MaxRetries = *sc.MaxRetries
	}
	return &merged
}
