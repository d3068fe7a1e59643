package model

import (
	"time"

	"github.com/google/uuid"
)

// Checks collects every probe result gathered during a scan. Each field is
// optional: a nil pointer means the probe did not run or produced nothing,
// which the scorer treats as "no signal", never as negative evidence.
//
// Design decision: We use a struct of typed pointers rather than a
// map[string]any keyed by check name. Each name still maps to at most one
// result, absence is still expressible, but the compiler checks every
// access and the scorer cannot misread one check's shape as another's.
type Checks struct {
	Whois             *WhoisResult             `json:"whois,omitempty"`
	TLS               *TLSResult               `json:"tls,omitempty"`
	Geolocation       *GeolocationResult       `json:"geolocation,omitempty"`
	SafeBrowsing      *SafeBrowsingResult      `json:"safe_browsing,omitempty"`
	ReverseDNS        *ReverseDNSResult        `json:"reverse_dns,omitempty"`
	PortScan          *PortScanResult          `json:"port_scan,omitempty"`
	IPReputation      *IPReputationResult      `json:"ip_reputation,omitempty"`
	SecurityHeaders   *SecurityHeadersResult   `json:"security_headers,omitempty"`
	CookieSecurity    *CookieSecurityResult    `json:"cookie_security,omitempty"`
	SensitiveFiles    *SensitiveFilesResult    `json:"sensitive_files,omitempty"`
	VersionDisclosure *VersionDisclosureResult `json:"version_disclosure,omitempty"`
	AdminPanels       *AdminPanelsResult       `json:"admin_panels,omitempty"`
	Sandbox           *SandboxResult           `json:"sandbox,omitempty"`
}

/// Deduction is one entry of the scoring audit trail: which check deducted
// how many points and why. The final score is 100 minus all deductions,
// clamped to [0,100].
type Deduction struct {
	// Check names the check that triggered the deduction.
	Check string `json:"check"`

	// Points is the positive number of points deducted.
	Points int `json:"points"`

	// Reason is a human-readable explanation of the deduction.
	Reason string `json:"reason"`
}

// ScanResult is the top-level outcome of scanning one URL.
type ScanResult struct {
	// ID uniquely identifies this scan for logs and report correlation.
	ID string `json:"id"`

	// URL is the scanned URL as given by the user.
	URL string `json:"url"`

	// Domain is the hostname of URL; it is the origin domain used to
	// exempt self-references from cross-origin and keyword rules.
	Domain string `json:"domain"`

	// ScannedAt is when the scan started.
	ScannedAt time.Time `json:"scanned_at"`

	// Score is the composite safety score in [0,100]; higher is safer.
	// It is populated by the scoring step after all checks finish.
	Score int `json:"score"`

	// Deductions is the audit trail behind Score. Empty for a clean scan.
	Deductions []Deduction `json:"deductions,omitempty"`

	// Checks holds every probe result that was collected.
	Checks Checks `json:"checks"`

	// TimedOut is true if the scan was cancelled before all probes ran.
	TimedOut bool `json:"timed_out,omitempty"`

	// PerformedChecks lists the pipeline steps that actually executed.
	PerformedChecks []string `json:"performed_checks,omitempty"`

	// Error holds a scan-level failure, if any. Probe-level failures do
	// not set this; they simply leave their check absent.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewScanResult creates a scan result for the given URL and origin domain
// with a fresh scan ID and timestamp.
func NewScanResult(url, domain string) *ScanResult {
	return &ScanResult{
		ID:        uuid.NewString(),
		URL:       url,
		Domain:    domain,
		ScannedAt: time.Now(),
	}
}
