package model

import "time"

// CipherStrength buckets the negotiated TLS cipher suite.
type CipherStrength string

// Cipher strength buckets used by the TLS probe and the scorer.
const (
	CipherStrong   CipherStrength = "strong"
	CipherModerate CipherStrength = "moderate"
	CipherWeak     CipherStrength = "weak"
)

// WhoisResult holds the registration data extracted from a WHOIS lookup.
type WhoisResult struct {
	// Registrar is the sponsoring registrar, if disclosed.
	Registrar string `json:"registrar,omitempty"`

	// CreatedAt is the domain creation date.
	CreatedAt time.Time `json:"created_at,omitempty"`

	// ExpiresAt is the registration expiry date.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// AgeInDays is the domain age at scan time. Very young domains are a
	// strong phishing signal: most campaigns use domains under 30 days old.
	AgeInDays int `json:"age_in_days"`
}

// TLSResult holds the outcome of the TLS handshake inspection.
type TLSResult struct {
	// Present is true if a TLS listener answered on port 443.
	Present bool `json:"present"`

	// Valid is true when the certificate chain verified against the
	// system roots and matched the scanned hostname.
	Valid bool `json:"valid"`

	// Subject and Issuer identify the leaf certificate.
	Subject string `json:"subject,omitempty"`
	Issuer  string `json:"issuer,omitempty"`

	// NotAfter is the leaf certificate expiry.
	NotAfter time.Time `json:"not_after,omitempty"`

	// DaysUntilExpiry is the number of whole days until NotAfter.
	// Negative values mean the certificate has already expired.
	DaysUntilExpiry int `json:"days_until_expiry"`

	// Version is the negotiated TLS version, e.g. "1.3".
	Version string `json:"version,omitempty"`

	// CipherStrength buckets the negotiated cipher suite.
	CipherStrength CipherStrength `json:"cipher_strength,omitempty"`
}

// GeolocationResult holds IP geolocation data for the scanned host.
type GeolocationResult struct {
	IP          string `json:"ip"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	City        string `json:"city,omitempty"`
	ISP         string `json:"isp,omitempty"`
	Org         string `json:"org,omitempty"`
}

// SafeBrowsingResult holds the threat-database verdict for the URL.
// An unsafe verdict is the single fail-fast override: it forces the
// safety score to zero regardless of every other signal.
type SafeBrowsingResult struct {
	// Safe is false when the URL appears in the threat database.
	Safe bool `json:"safe"`

	// Threats lists the matched threat types (e.g. MALWARE,
	// SOCIAL_ENGINEERING). Empty when Safe is true.
	Threats []string `json:"threats,omitempty"`
}

// ReverseDNSResult holds the PTR lookup outcome for the scanned IP.
type ReverseDNSResult struct {
	// IP is the address that was looked up.
	IP string `json:"ip"`

	// Hostnames are the PTR records returned, if any.
	Hostnames []string `json:"hostnames,omitempty"`

	// Match is true when a PTR record forward-confirms to the scanned
	// domain or shares its registrable domain.
	Match bool `json:"match"`
}

// PortScanResult holds the open ports discovered by the TCP connect scan.
type PortScanResult struct {
	// OpenPorts lists every port that accepted a connection.
	OpenPorts []int `json:"open_ports"`

	// SuspiciousPorts is the subset of OpenPorts that should not be
	// exposed by a typical web host (databases, remote desktop, proxies).
	SuspiciousPorts []int `json:"suspicious_ports,omitempty"`

	// SSHBanner is the SSH version banner if port 22 was open.
	SSHBanner string `json:"ssh_banner,omitempty"`

	// SSHHostKeyFingerprint is the SHA256 fingerprint of the SSH host
	// key if port 22 was open.
	SSHHostKeyFingerprint string `json:"ssh_host_key_fingerprint,omitempty"`
}

// IPReputationResult holds abuse-database reputation data for the host IP.
type IPReputationResult struct {
	// AbuseScore is the abuse confidence score in [0,100].
	AbuseScore int `json:"abuse_score"`

	// TotalReports is the number of abuse reports filed against the IP.
	TotalReports int `json:"total_reports"`

	// ISP and CountryCode provide attribution context for the report.
	ISP         string `json:"isp,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// SecurityHeadersResult holds the graded security-header posture.
type SecurityHeadersResult struct {
	// Grade is the letter grade A-F derived from which recommended
	// headers are present.
	Grade string `json:"grade"`

	// Present lists the recommended headers that were found.
	Present []string `json:"present,omitempty"`

	// Missing lists the recommended headers that were absent.
	Missing []string `json:"missing,omitempty"`
}

// CookieSecurityResult holds the cookie attribute audit.
type CookieSecurityResult struct {
	// TotalCookies is the number of Set-Cookie headers inspected.
	TotalCookies int `json:"total_cookies"`

	// SecureCount and HTTPOnlyCount count cookies carrying each attribute.
	SecureCount   int `json:"secure_count"`
	HTTPOnlyCount int `json:"httponly_count"`

	// SecureRatio is SecureCount / TotalCookies, or 1.0 with no cookies.
	SecureRatio float64 `json:"secure_ratio"`

	// Issues lists human-readable problems found with individual cookies.
	Issues []string `json:"issues,omitempty"`
}

// ExposedFile is one sensitive file found publicly reachable.
type ExposedFile struct {
	// Path is the URL path that responded.
	Path string `json:"path"`

	// Severity grades how damaging the exposure is.
	Severity RiskLevel `json:"severity"`

	// Status is the HTTP status code that confirmed the exposure.
	Status int `json:"status"`
}

// SensitiveFilesResult holds the outcome of the sensitive-file probe.
type SensitiveFilesResult struct {
	// ExposedFiles lists every confirmed exposure.
	ExposedFiles []ExposedFile `json:"exposed_files,omitempty"`

	// CriticalCount and HighCount bucket the exposures by severity.
	// Files that are neither critical nor high count as "other".
	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
}

// VersionDisclosureResult holds software-version leakage findings.
type VersionDisclosureResult struct {
	// Disclosures lists the leaked version strings (e.g. "Server: nginx/1.18.0").
	Disclosures []string `json:"disclosures,omitempty"`

	// RiskLevel grades the leak: high when an exact vulnerable-looking
	// version is exposed, medium for product-plus-version, low otherwise.
	RiskLevel RiskLevel `json:"risk_level"`
}

// AdminEndpointKind distinguishes debug consoles from admin panels.
type AdminEndpointKind string

// Kinds of discovered administrative endpoints.
const (
	// EndpointDebug is a development/debug surface (profilers, actuators,
	// stack-trace pages). These should never be internet-reachable.
	EndpointDebug AdminEndpointKind = "debug"

	// EndpointAdmin is a login-protected administrative panel.
	EndpointAdmin AdminEndpointKind = "admin"
)

// AdminEndpoint is one discovered administrative or debug endpoint.
type AdminEndpoint struct {
	Path   string            `json:"path"`
	Kind   AdminEndpointKind `json:"kind"`
	Status int               `json:"status"`
}

// AdminPanelsResult holds the admin/debug endpoint discovery outcome.
type AdminPanelsResult struct {
	Endpoints []AdminEndpoint `json:"endpoints,omitempty"`
}

// SandboxResult packages the sandboxed page-load telemetry: the aggregated
// summary plus capture metadata the scorer needs.
type SandboxResult struct {
	// Summary is the aggregated classification of the captured requests.
	Summary SandboxSummary `json:"summary"`

	// Completed is false when the sandbox failed to finish the page load
	// (timeout, navigation error). Partial captures still classify.
	Completed bool `json:"completed"`

	// ThirdPartyDomains lists the distinct non-origin domains contacted.
	ThirdPartyDomains []string `json:"third_party_domains,omitempty"`

	// Classified holds the per-request classifications for the report.
	Classified []Classification `json:"classified,omitempty"`
}
