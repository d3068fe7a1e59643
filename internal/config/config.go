package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout is the connection timeout for each outbound request.
	// 30 seconds is generous for clearnet targets; anything slower is
	// itself a signal worth timing out on.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize of 10 concurrent scans balances throughput with
	// resource usage and keeps the external lookup APIs under their
	// rate limits.
	DefaultBatchSize = 10

	// AppName is the application name used for XDG directory paths.
	AppName = "urlsentry"

	// DefaultUserAgent mimics a mainstream browser. Malicious sites
	// routinely cloak against identifiable scanner agents, so a
	// browser-like agent sees what a victim would see.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 10MB covers real landing pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultCacheTTL is how long cached WHOIS/reputation/geolocation
	// responses stay fresh. The underlying facts change slowly; a day
	// keeps repeat scans cheap without serving stale reputations.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultSandboxMaxRequests caps the subresource records captured
	// per page load.
	DefaultSandboxMaxRequests = 200
)

// Config holds all configuration options for a scan run.
// This struct is designed to be populated from CLI flags and the config
// file, then passed through the application via dependency injection
// rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ProbeConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Timeout is the connection timeout for each outbound request.
	// This applies to individual connections, not the overall scan duration.
	Timeout time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of concurrent scans when processing multiple targets.
	// Higher values increase throughput but may trip upstream rate limits.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .urlsentry.yml in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// PolicyFile is an optional YAML file overriding the built-in
	// classification policy (denylists, keywords, weights).
	PolicyFile string

	// JSONReport enables JSON report output instead of the terminal format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// terminal format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Targets is the list of URLs to scan.
	Targets []string

	// SafeBrowsingAPIKey authenticates the threat-database lookup.
	// Empty leaves the check absent; the scan never guesses safe.
	SafeBrowsingAPIKey string

	// AbuseIPDBAPIKey authenticates the IP reputation lookup.
	// Empty leaves the check absent.
	AbuseIPDBAPIKey string

	// CacheDir is the directory for the lookup-response cache database.
	// Empty disables caching. Defaults to the XDG data directory.
	CacheDir string

	// CacheTTL is how long cached lookup responses stay fresh.
	CacheTTL time.Duration

	// DisableSandbox skips the page-load capture and its classification.
	DisableSandbox bool

	// SandboxMaxRequests caps the subresource records per page load.
	SandboxMaxRequests int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	// Set to 0 to use the default (10MB).
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, TTL).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:            DefaultTimeout,
		BatchSize:          DefaultBatchSize,
		CacheDir:           XDGDataDir(),
		CacheTTL:           DefaultCacheTTL,
		SandboxMaxRequests: DefaultSandboxMaxRequests,
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for urlsentry.
// On Linux: ~/.local/share/urlsentry
// On macOS: ~/Library/Application Support/urlsentry
// On Windows: %LOCALAPPDATA%\urlsentry
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for urlsentry.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for urlsentry.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
