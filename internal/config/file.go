package config

import "time"

// File represents the structure of the .urlsentry.yml configuration file.
// Every field is optional; absent fields leave the flag or default value
// in place.
type File struct {
	// SafeBrowsingAPIKey authenticates the threat-database lookup.
	SafeBrowsingAPIKey string `yaml:"safe_browsing_api_key,omitempty"`

	// AbuseIPDBAPIKey authenticates the IP reputation lookup.
	AbuseIPDBAPIKey string `yaml:"abuseipdb_api_key,omitempty"`

	// PolicyFile points at a YAML classification-policy override.
	PolicyFile string `yaml:"policy_file,omitempty"`

	// CacheDir overrides the lookup-cache directory.
	CacheDir string `yaml:"cache_dir,omitempty"`

	// CacheTTL overrides how long cached lookups stay fresh.
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`

	// Timeout overrides the per-request timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// BatchSize overrides the concurrent-scan limit.
	BatchSize int `yaml:"batch_size,omitempty"`

	// UserAgent overrides the HTTP User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`
}

// Apply merges the file values into the config. File values fill gaps
// only: anything already set by a CLI flag wins, so the precedence is
// flags over file over defaults.
func (f *File) Apply(c *Config) {
	if c.SafeBrowsingAPIKey == "" {
		c.SafeBrowsingAPIKey = f.SafeBrowsingAPIKey
	}
	if c.AbuseIPDBAPIKey == "" {
		c.AbuseIPDBAPIKey = f.AbuseIPDBAPIKey
	}
	if c.PolicyFile == "" {
		c.PolicyFile = f.PolicyFile
	}
	if f.CacheDir != "" {
		c.CacheDir = f.CacheDir
	}
	if f.CacheTTL != 0 {
		c.CacheTTL = f.CacheTTL
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.BatchSize != 0 {
		c.BatchSize = f.BatchSize
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
}
