package model

// Category is a closed enumeration of the reasons a request can be flagged.
// Using a fixed tag set rather than free-form strings keeps the histogram
// key space bounded and lets tests enumerate every possible value.
type Category string

// All categories a classified request can carry.
const (
	// CategoryMalformed marks a record whose URL could not be parsed.
	CategoryMalformed Category = "malformed"

	// CategorySuspiciousTLD marks domains under a denylisted top-level domain.
	CategorySuspiciousTLD Category = "suspicious-tld"

	// CategoryIPBased marks requests addressed to a raw IPv4 host.
	CategoryIPBased Category = "ip-based"

	// CategoryObfuscation marks unusually long or heavily encoded URLs.
	CategoryObfuscation Category = "obfuscation"

	// CategoryPhishingKeywords marks URLs containing credential-bait words.
	CategoryPhishingKeywords Category = "phishing-keywords"

	// CategoryMalwareDownload marks paths ending in an executable extension.
	CategoryMalwareDownload Category = "malware-download"

	// CategoryMaliciousPattern marks URLs matching known attack patterns.
	CategoryMaliciousPattern Category = "malicious-pattern"

	// CategoryDataExfiltration marks oversized or base64-stuffed query strings.
	CategoryDataExfiltration Category = "data-exfiltration"

	// CategoryHomograph marks punycode (xn--) domains that can spoof brands.
	CategoryHomograph Category = "homograph"

	// CategorySubdomainAbuse marks domains with excessive subdomain nesting.
	CategorySubdomainAbuse Category = "subdomain-abuse"

	// CategoryBrandImpersonation marks domains embedding a protected brand
	// name without belonging to that brand.
	CategoryBrandImpersonation Category = "brand-impersonation"

	// CategoryTracking marks requests to known tracking providers.
	CategoryTracking Category = "tracking"

	// CategoryCryptominer marks requests to known browser-mining services.
	CategoryCryptominer Category = "cryptominer"

	// CategoryInsecureHTTP marks sensitive operations sent over plain HTTP.
	CategoryInsecureHTTP Category = "insecure-http"

	// CategoryCrossOrigin marks API calls to domains other than the origin.
	CategoryCrossOrigin Category = "cross-origin"
)

// AllCategories lists every category tag. Used by reports to render the
// histogram in a stable order and by tests for exhaustiveness checks.
var AllCategories = []Category{
	CategoryMalformed,
	CategorySuspiciousTLD,
	CategoryIPBased,
	CategoryObfuscation,
	CategoryPhishingKeywords,
	CategoryMalwareDownload,
	CategoryMaliciousPattern,
	CategoryDataExfiltration,
	CategoryHomograph,
	CategorySubdomainAbuse,
	CategoryBrandImpersonation,
	CategoryTracking,
	CategoryCryptominer,
	CategoryInsecureHTTP,
	CategoryCrossOrigin,
}

// Classification is the classifier's verdict on a single request record.
// It is derived solely from the record and the origin domain; identical
// inputs always produce an identical Classification.
type Classification struct {
	// Request is the record this classification describes.
	Request NetworkRequestRecord `json:"request"`

	// Categories is the deduplicated set of category tags that matched,
	// in rule-evaluation order.
	Categories []Category `json:"categories"`

	// Reasons holds one human-readable explanation per triggered rule,
	// in rule-evaluation order.
	Reasons []string `json:"reasons"`

	// RiskScore is the sum of the weights of all triggered rules.
	RiskScore int `json:"risk_score"`

	// RiskLevel is derived from RiskScore via RiskLevelFor.
	RiskLevel RiskLevel `json:"risk_level"`

	// Suspicious is true when RiskScore meets the suspicion threshold.
	Suspicious bool `json:"suspicious"`
}

// HasCategory reports whether the classification carries the given tag.
func (c *Classification) HasCategory(cat Category) bool {
	for _, have := range c.Categories {
		if have == cat {
			return true
		}
	}
	return false
}

// SandboxSummary condenses a set of classified requests into the totals
// the scorer and reports consume. It is derived once by the aggregator
// and never mutated afterwards.
type SandboxSummary struct {
	// TotalRequests is the number of records that were classified,
	// suspicious or not.
	TotalRequests int `json:"total_requests"`

	// SuspiciousCount is the number of requests flagged suspicious.
	SuspiciousCount int `json:"suspicious_count"`

	// CriticalCount is the number of suspicious requests at RiskCritical.
	CriticalCount int `json:"critical_count"`

	// HighCount is the number of suspicious requests at RiskHigh.
	HighCount int `json:"high_count"`

	// CategoryHistogram counts how many suspicious requests carried each
	// category tag. A single request may increment several categories.
	CategoryHistogram map[Category]int `json:"category_histogram,omitempty"`

	// OverallRisk is the worst risk level observed among suspicious
	// requests, or OverallSafe when there are none.
	OverallRisk OverallRisk `json:"overall_risk"`

	// TotalRiskScore is the summed risk score of suspicious requests only.
	TotalRiskScore int `json:"total_risk_score"`
}
