package classify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/urlsentry/urlsentry/internal/model"
	"github.com/urlsentry/urlsentry/internal/policy"
)

// URL shape thresholds. These are structural properties of the rules
// themselves rather than tunable policy, so they live here as constants.
const (
	// extremeURLLength and longURLLength bound the obfuscation length rules.
	extremeURLLength = 1000
	longURLLength    = 500

	// longQueryLength bounds the data-exfiltration query rule.
	longQueryLength = 500

	// base64RunLength is the minimum base64-shaped run flagged in a query.
	base64RunLength = 50

	// maxEncodedSequences is the most percent-encoded byte sequences a URL
	// may carry before the heavy-encoding rule fires.
	maxEncodedSequences = 10

	// maxSubdomainDepth is the most labels allowed below the registrable
	// domain before the subdomain-abuse rule fires.
	maxSubdomainDepth = 3
)

var (
	// ipv4HostPattern matches a dotted-quad IPv4 hostname.
	ipv4HostPattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

	// percentEncodedPattern matches one percent-encoded byte sequence.
	percentEncodedPattern = regexp.MustCompile(`%[0-9a-fA-F]{2}`)

	// base64RunPattern matches a base64-shaped run of at least
	// base64RunLength characters.
	base64RunPattern = regexp.MustCompile(`[A-Za-z0-9+/=]{50,}`)

	// wordSplitPattern splits a URL into candidate keyword tokens on
	// anything that is not a letter or digit.
	wordSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// match is one triggered rule: the category it assigns, the score it adds,
// and the explanation it contributes. The classifier accumulates matches
// and reduces them once at the end, so rule evaluation has no intermediate
// mutable state and rule order cannot affect the final score.
type match struct {
	category model.Category
	weight   int
	reason   string
}

// Classifier assigns risk classifications to captured network requests.
// It holds only the immutable policy, so a single Classifier is safe to
// share across any number of goroutines.
type Classifier struct {
	policy *policy.Policy
}

// NewClassifier creates a Classifier using the given policy.
func NewClassifier(p *policy.Policy) *Classifier {
	return &Classifier{policy: p}
}

// Classify inspects one request record against the origin domain and
// returns its classification. It never fails: a record whose URL cannot
// be parsed yields a fixed low-weight "malformed" classification.
//
// All rules are additive and independent; every applicable rule
// contributes its weight. Only the malformed-URL path stops early.
func (c *Classifier) Classify(record model.NetworkRequestRecord, originDomain string) model.Classification {
	w := c.policy.Weights()

	parsed, err := url.Parse(record.URL)
	if err != nil || parsed.Host == "" && parsed.Scheme == "" {
		return reduce(record, []match{{
			category: model.CategoryMalformed,
			weight:   w.Malformed,
			reason:   "Malformed URL",
		}})
	}

	domain := strings.ToLower(record.Domain)
	if domain == "" {
		domain = strings.ToLower(parsed.Hostname())
	}
	origin := strings.ToLower(originDomain)
	rawURL := record.URL
	lowerURL := strings.ToLower(rawURL)

	matches := make([]match, 0, 4)

	// Suspicious TLD.
	if tld := topLabel(domain); tld != "" && c.policy.IsSuspiciousTLD(tld) {
		matches = append(matches, match{
			category: model.CategorySuspiciousTLD,
			weight:   w.SuspiciousTLD,
			reason:   fmt.Sprintf("Domain uses suspicious TLD .%s", tld),
		})
	}

	// Direct IP host.
	if ipv4HostPattern.MatchString(domain) {
		matches = append(matches, match{
			category: model.CategoryIPBased,
			weight:   w.IPHost,
			reason:   "Request addressed to a raw IP instead of a domain",
		})
	}

	// URL length. The two buckets are disjoint: a URL is either extreme
	// or merely long, never both.
	switch {
	case len(rawURL) > extremeURLLength:
		matches = append(matches, match{
			category: model.CategoryObfuscation,
			weight:   w.ExtremeLength,
			reason:   fmt.Sprintf("Extremely long URL (%d chars)", len(rawURL)),
		})
	case len(rawURL) > longURLLength:
		matches = append(matches, match{
			category: model.CategoryObfuscation,
			weight:   w.LongLength,
			reason:   fmt.Sprintf("Unusually long URL (%d chars)", len(rawURL)),
		})
	}

	// Phishing keywords. Each distinct keyword scores once, capped, and
	// keywords that are part of the origin's own name are exempt: a login
	// page on login.example.com is not evidence against example.com.
	keywords := c.matchKeywords(lowerURL, origin)
	if len(keywords) > 0 {
		weight := len(keywords) * w.PhishingKeyword
		if weight > w.PhishingKeywordCap {
			weight = w.PhishingKeywordCap
		}
		matches = append(matches, match{
			category: model.CategoryPhishingKeywords,
			weight:   weight,
			reason:   "Phishing keywords in URL: " + strings.Join(keywords, ", "),
		})
	}

	// Malware extension: first match only.
	for _, ext := range c.policy.MalwareExtensions() {
		if strings.HasSuffix(strings.ToLower(parsed.Path), ext) || strings.Contains(lowerURL, ext+"?") {
			matches = append(matches, match{
				category: model.CategoryMalwareDownload,
				weight:   w.MalwareExtension,
				reason:   fmt.Sprintf("URL points to a %s file", ext),
			})
			break
		}
	}

	// Malicious pattern: first match only.
	for _, pattern := range c.policy.Patterns() {
		if pattern.Regexp.MatchString(rawURL) {
			matches = append(matches, match{
				category: model.CategoryMaliciousPattern,
				weight:   w.MaliciousPattern,
				reason:   pattern.Reason,
			})
			break
		}
	}

	// Heavy percent-encoding.
	if n := len(percentEncodedPattern.FindAllString(rawURL, -1)); n > maxEncodedSequences {
		matches = append(matches, match{
			category: model.CategoryObfuscation,
			weight:   w.HeavyEncoding,
			reason:   fmt.Sprintf("Heavy URL encoding (%d encoded sequences)", n),
		})
	}

	// Oversized query string.
	if len(parsed.RawQuery) > longQueryLength {
		matches = append(matches, match{
			category: model.CategoryDataExfiltration,
			weight:   w.LongQuery,
			reason:   fmt.Sprintf("Very long query string (%d chars)", len(parsed.RawQuery)),
		})
	}

	// Embedded base64 payload in the query.
	if base64RunPattern.MatchString(parsed.RawQuery) {
		matches = append(matches, match{
			category: model.CategoryDataExfiltration,
			weight:   w.EmbeddedBase64,
			reason:   fmt.Sprintf("Query contains a base64-like run of %d+ chars", base64RunLength),
		})
	}

	// Punycode label.
	if strings.Contains(domain, "xn--") {
		matches = append(matches, match{
			category: model.CategoryHomograph,
			weight:   w.Punycode,
			reason:   "Domain contains a punycode (xn--) label",
		})
	}

	// Excessive subdomain nesting.
	if depth := subdomainDepth(domain); depth > maxSubdomainDepth {
		matches = append(matches, match{
			category: model.CategorySubdomainAbuse,
			weight:   w.ExcessiveSubdomains,
			reason:   fmt.Sprintf("Domain nests %d subdomain labels", depth),
		})
	}

	// Brand impersonation.
	if legit, impersonation := c.policy.BrandMatch(domain); impersonation {
		matches = append(matches, match{
			category: model.CategoryBrandImpersonation,
			weight:   w.BrandImpersonation,
			reason:   fmt.Sprintf("Domain impersonates %s", legit),
		})
	}

	// Known tracker.
	isTracker := c.policy.IsTrackingDomain(domain)
	if isTracker {
		matches = append(matches, match{
			category: model.CategoryTracking,
			weight:   w.Tracker,
			reason:   "Request to a known tracking domain",
		})
	}

	// Known cryptominer.
	if c.policy.IsCryptominerDomain(domain) {
		matches = append(matches, match{
			category: model.CategoryCryptominer,
			weight:   w.Cryptominer,
			reason:   "Request to a known cryptominer domain",
		})
	}

	// Sensitive operation over plain HTTP.
	if parsed.Scheme == "http" && len(keywords) > 0 {
		matches = append(matches, match{
			category: model.CategoryInsecureHTTP,
			weight:   w.InsecureHTTP,
			reason:   "Sensitive operation over unencrypted HTTP",
		})
	}

	// Cross-origin API call. Trackers are excluded here because the
	// tracking rule already prices in their third-party nature.
	if record.ResourceType.IsAPICall() && domain != origin && !isTracker {
		matches = append(matches, match{
			category: model.CategoryCrossOrigin,
			weight:   w.CrossOrigin,
			reason:   fmt.Sprintf("Cross-origin API call to %s", domain),
		})
	}

	return reduce(record, matches)
}

// matchKeywords returns the distinct phishing keywords found as delimited
// words in the URL, excluding keywords that appear in the origin domain.
// The result preserves the policy's keyword order.
func (c *Classifier) matchKeywords(lowerURL, origin string) []string {
	words := wordSplitPattern.Split(lowerURL, -1)
	present := make(map[string]bool, len(words))
	for _, word := range words {
		present[word] = true
	}

	var matched []string
	for _, kw := range c.policy.PhishingKeywords() {
		if present[kw] && !strings.Contains(origin, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// reduce folds the accumulated matches into the final Classification:
// summed score, deduplicated categories, ordered reasons, and the derived
// risk level and suspicion flag.
func reduce(record model.NetworkRequestRecord, matches []match) model.Classification {
	var (
		score      int
		categories []model.Category
		reasons    []string
		seen       = make(map[model.Category]bool, len(matches))
	)

	for _, m := range matches {
		score += m.weight
		reasons = append(reasons, m.reason)
		if !seen[m.category] {
			seen[m.category] = true
			categories = append(categories, m.category)
		}
	}

	return model.Classification{
		Request:    record,
		Categories: categories,
		Reasons:    reasons,
		RiskScore:  score,
		RiskLevel:  model.RiskLevelFor(score),
		Suspicious: score >= model.MediumThreshold,
	}
}

// topLabel returns the last dot-separated label of the domain, or "" for
// empty and trailing-dot domains.
func topLabel(domain string) string {
	domain = strings.TrimSuffix(domain, ".")
	if idx := strings.LastIndexByte(domain, '.'); idx >= 0 {
		return domain[idx+1:]
	}
	return ""
}

// subdomainDepth returns the number of labels below the registrable domain
// (eTLD+1). For "a.b.c.example.co.uk" the registrable domain is
// "example.co.uk" and the depth is 3. Returns 0 when the registrable
// domain cannot be derived (raw IPs, single labels).
func subdomainDepth(domain string) int {
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" || ipv4HostPattern.MatchString(domain) {
		return 0
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return 0
	}

	total := len(strings.Split(domain, "."))
	base := len(strings.Split(registrable, "."))
	if total <= base {
		return 0
	}
	return total - base
}
