package policy

import (
	"regexp"
	"sort"
	"strings"
)

// Weights holds the score delta each classifier rule adds when it matches.
// Scores are additive across all matching rules; no rule suppresses another.
//
// Design decision: Weights live in the policy rather than as constants in
// the classifier so tests and deployments can tune a single rule without
// touching code, and so the whole policy travels as one immutable value.
type Weights struct {
	// Malformed is the fixed score of an unparseable URL.
	Malformed int `yaml:"malformed"`

	// SuspiciousTLD is added when the request TLD is denylisted.
	SuspiciousTLD int `yaml:"suspicious_tld"`

	// IPHost is added when the hostname is a raw IPv4 address.
	IPHost int `yaml:"ip_host"`

	// ExtremeLength is added for URLs longer than 1000 characters;
	// LongLength for URLs between 501 and 1000 characters.
	ExtremeLength int `yaml:"extreme_length"`
	LongLength    int `yaml:"long_length"`

	// PhishingKeyword is added per distinct matched keyword, up to
	// PhishingKeywordCap in total.
	PhishingKeyword    int `yaml:"phishing_keyword"`
	PhishingKeywordCap int `yaml:"phishing_keyword_cap"`

	// MalwareExtension is added when the path ends in a denylisted extension.
	MalwareExtension int `yaml:"malware_extension"`

	// MaliciousPattern is added on the first matching attack pattern.
	MaliciousPattern int `yaml:"malicious_pattern"`

	// HeavyEncoding is added when the URL carries more than ten
	// percent-encoded byte sequences.
	HeavyEncoding int `yaml:"heavy_encoding"`

	// LongQuery is added for query strings longer than 500 characters;
	// EmbeddedBase64 when the query contains a base64-shaped run.
	LongQuery      int `yaml:"long_query"`
	EmbeddedBase64 int `yaml:"embedded_base64"`

	// Punycode is added when the domain contains an xn-- label.
	Punycode int `yaml:"punycode"`

	// ExcessiveSubdomains is added when the domain nests more than three
	// labels below the registrable domain.
	ExcessiveSubdomains int `yaml:"excessive_subdomains"`

	// BrandImpersonation is added when a protected brand token appears in
	// a domain that does not belong to the brand.
	BrandImpersonation int `yaml:"brand_impersonation"`

	// Tracker is added for known tracking domains; Cryptominer for known
	// browser-mining domains.
	Tracker     int `yaml:"tracker"`
	Cryptominer int `yaml:"cryptominer"`

	// InsecureHTTP is added when a phishing keyword matched on a plain
	// HTTP request.
	InsecureHTTP int `yaml:"insecure_http"`

	// CrossOrigin is added for API calls to non-origin, non-tracker domains.
	CrossOrigin int `yaml:"cross_origin"`
}

// DefaultWeights returns the standard rule weights.
func DefaultWeights() Weights {
	return Weights{
		Malformed:           10,
		SuspiciousTLD:       15,
		IPHost:              30,
		ExtremeLength:       25,
		LongLength:          10,
		PhishingKeyword:     5,
		PhishingKeywordCap:  25,
		MalwareExtension:    35,
		MaliciousPattern:    30,
		HeavyEncoding:       20,
		LongQuery:           25,
		EmbeddedBase64:      20,
		Punycode:            25,
		ExcessiveSubdomains: 15,
		BrandImpersonation:  40,
		Tracker:             5,
		Cryptominer:         50,
		InsecureHTTP:        30,
		CrossOrigin:         10,
	}
}

// Pattern is one compiled malicious URL pattern with its explanation.
type Pattern struct {
	// Name is a short identifier used in logs and tests.
	Name string

	// Regexp is the compiled pattern, matched against the full URL.
	Regexp *regexp.Regexp

	// Reason is the human-readable explanation emitted when it matches.
	Reason string
}

// Policy is the full, immutable classification policy.
// Build one with New or FromFile and pass it by pointer; never modify a
// Policy after construction.
type Policy struct {
	suspiciousTLDs     map[string]bool
	phishingKeywords   []string
	malwareExtensions  []string
	trackingDomains    []string
	cryptominerDomains []string
	brands             []brandEntry
	patterns           []Pattern
	weights            Weights
}

// brandEntry pairs a protected brand token with the brand's own domain.
// Entries are kept sorted by token so classification is deterministic
// even when a domain contains several brand tokens.
type brandEntry struct {
	token string
	legit string
}

// New returns a Policy built from the compiled-in default tables.
func New() *Policy {
	return build(defaultTables(), DefaultWeights())
}

// build assembles a Policy from raw tables. Inputs are copied or
// normalized so later mutation of the arguments cannot leak in.
func build(t tables, w Weights) *Policy {
	p := &Policy{
		suspiciousTLDs:     make(map[string]bool, len(t.SuspiciousTLDs)),
		phishingKeywords:   make([]string, 0, len(t.PhishingKeywords)),
		malwareExtensions:  make([]string, 0, len(t.MalwareExtensions)),
		trackingDomains:    make([]string, 0, len(t.TrackingDomains)),
		cryptominerDomains: make([]string, 0, len(t.CryptominerDomains)),
		brands:             make([]brandEntry, 0, len(t.Brands)),
		patterns:           compilePatterns(t.Patterns),
		weights:            w,
	}

	for _, tld := range t.SuspiciousTLDs {
		p.suspiciousTLDs[strings.ToLower(strings.TrimPrefix(tld, "."))] = true
	}
	for _, kw := range t.PhishingKeywords {
		p.phishingKeywords = append(p.phishingKeywords, strings.ToLower(kw))
	}
	for _, ext := range t.MalwareExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.malwareExtensions = append(p.malwareExtensions, ext)
	}
	for _, d := range t.TrackingDomains {
		p.trackingDomains = append(p.trackingDomains, strings.ToLower(d))
	}
	for _, d := range t.CryptominerDomains {
		p.cryptominerDomains = append(p.cryptominerDomains, strings.ToLower(d))
	}
	for brand, legit := range t.Brands {
		p.brands = append(p.brands, brandEntry{
			token: strings.ToLower(brand),
			legit: strings.ToLower(legit),
		})
	}
	sort.Slice(p.brands, func(i, j int) bool { return p.brands[i].token < p.brands[j].token })

	return p
}

// compilePatterns compiles the raw pattern table, panicking on a bad
// expression. Patterns are part of the program, not user input, so a
// compile failure is a programming error caught at startup.
func compilePatterns(raw []RawPattern) []Pattern {
	patterns := make([]Pattern, 0, len(raw))
	for _, rp := range raw {
		patterns = append(patterns, Pattern{
			Name:   rp.Name,
			Regexp: regexp.MustCompile(rp.Expr),
			Reason: rp.Reason,
		})
	}
	return patterns
}

// Weights returns the rule weight table.
func (p *Policy) Weights() Weights {
	return p.weights
}

// IsSuspiciousTLD reports whether the given top-level label is denylisted.
// The label may be passed with or without a leading dot.
func (p *Policy) IsSuspiciousTLD(tld string) bool {
	return p.suspiciousTLDs[strings.ToLower(strings.TrimPrefix(tld, "."))]
}

// PhishingKeywords returns the keyword denylist. Callers must not modify
// the returned slice.
func (p *Policy) PhishingKeywords() []string {
	return p.phishingKeywords
}

// MalwareExtensions returns the executable extension denylist, each entry
// starting with a dot. Callers must not modify the returned slice.
func (p *Policy) MalwareExtensions() []string {
	return p.malwareExtensions
}

// Patterns returns the compiled malicious URL patterns.
func (p *Policy) Patterns() []Pattern {
	return p.patterns
}

// IsTrackingDomain reports whether domain equals or is a subdomain of a
// known tracking domain.
func (p *Policy) IsTrackingDomain(domain string) bool {
	return matchesDomainSuffix(domain, p.trackingDomains)
}

// IsCryptominerDomain reports whether domain equals or is a subdomain of a
// known browser-mining domain.
func (p *Policy) IsCryptominerDomain(domain string) bool {
	return matchesDomainSuffix(domain, p.cryptominerDomains)
}

// BrandMatch returns the legitimate domain of a protected brand whose token
// appears in the given domain, and whether the domain is an impersonation:
// it contains the brand token but is not the brand's own domain or a
// subdomain of it.
func (p *Policy) BrandMatch(domain string) (legit string, impersonation bool) {
	domain = strings.ToLower(domain)
	for _, entry := range p.brands {
		if !strings.Contains(domain, entry.token) {
			continue
		}
		if domain == entry.legit || strings.HasSuffix(domain, "."+entry.legit) {
			return entry.legit, false
		}
		return entry.legit, true
	}
	return "", false
}

// matchesDomainSuffix reports whether domain equals any entry or is a
// subdomain of one. Plain substring matching is deliberately avoided:
// "notdoubleclick.net.evil.com" must not match "doubleclick.net".
func matchesDomainSuffix(domain string, entries []string) bool {
	domain = strings.ToLower(domain)
	for _, entry := range entries {
		if domain == entry || strings.HasSuffix(domain, "."+entry) {
			return true
		}
	}
	return false
}
