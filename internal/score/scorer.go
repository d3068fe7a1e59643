package score

import (
	"fmt"

	"github.com/urlsentry/urlsentry/internal/model"
)

// Bracket thresholds for the deduction rules. These are structural parts
// of the rules; the deduction magnitudes live in Weights.
const (
	weekDays    = 7
	monthDays   = 30
	quarterDays = 90

	abuseScoreHighThreshold   = 75
	abuseScoreMediumThreshold = 50
	abuseScoreLowThreshold    = 25

	reportsManyThreshold = 100
	reportsSomeThreshold = 50
	reportsFewThreshold  = 10

	suspiciousManyThreshold = 5
	suspiciousSomeThreshold = 2

	thirdPartyManyThreshold = 20
	thirdPartySomeThreshold = 10

	cookieMostlyInsecureRatio = 0.5
)

// Scorer reduces a complete scan result into the final safety score.
// It holds only the immutable deduction table and is safe to share.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with the given deduction table.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score computes the safety score for the scan: 100 minus every deduction
// the present checks trigger, clamped to [0,100]. Absent checks deduct
// nothing. The returned deductions are the audit trail behind the number.
//
// Fail-fast: an unsafe SafeBrowsing verdict returns 0 immediately with a
// single deduction entry; no other check is evaluated. This is an
// override, not a large deduction — nothing can buy the score back.
func (s *Scorer) Score(result *model.ScanResult) (int, []model.Deduction) {
	checks := result.Checks

	if sb := checks.SafeBrowsing; sb != nil && !sb.Safe {
		return 0, []model.Deduction{{
			Check:  "safe_browsing",
			Points: 100,
			Reason: "URL is flagged by the threat database: " + joinOr(sb.Threats, "unspecified threat"),
		}}
	}

	var deductions []model.Deduction
	add := func(check string, points int, reason string) {
		if points > 0 {
			deductions = append(deductions, model.Deduction{Check: check, Points: points, Reason: reason})
		}
	}

	s.scoreWhois(checks.Whois, add)
	s.scoreTLS(checks.TLS, add)
	s.scoreReverseDNS(checks.ReverseDNS, add)
	s.scorePortScan(checks.PortScan, add)
	s.scoreReputation(checks.IPReputation, add)
	s.scoreSandbox(checks.Sandbox, add)
	s.scoreHeaders(checks.SecurityHeaders, add)
	s.scoreCookies(checks.CookieSecurity, add)
	s.scoreFiles(checks.SensitiveFiles, add)
	s.scoreVersion(checks.VersionDisclosure, add)
	s.scoreAdminPanels(checks.AdminPanels, add)

	total := 100
	for _, d := range deductions {
		total -= d.Points
	}
	return clamp(total), deductions
}

// Apply computes the score and writes it with its audit trail onto the
// scan result.
func (s *Scorer) Apply(result *model.ScanResult) {
	result.Score, result.Deductions = s.Score(result)
}

type addFunc func(check string, points int, reason string)

// scoreWhois prices domain age: the younger the domain, the larger the
// deduction. Exactly one bracket applies.
func (s *Scorer) scoreWhois(r *model.WhoisResult, add addFunc) {
	if r == nil {
		return
	}
	switch {
	case r.AgeInDays < weekDays:
		add("whois", s.weights.AgeUnderWeek, fmt.Sprintf("Domain is only %d days old", r.AgeInDays))
	case r.AgeInDays < monthDays:
		add("whois", s.weights.AgeUnderMonth, fmt.Sprintf("Domain is only %d days old", r.AgeInDays))
	case r.AgeInDays < quarterDays:
		add("whois", s.weights.AgeUnderQuarter, fmt.Sprintf("Domain is only %d days old", r.AgeInDays))
	}
}

// scoreTLS prices certificate posture, cipher strength, and protocol
// version. The three concerns deduct independently.
func (s *Scorer) scoreTLS(r *model.TLSResult, add addFunc) {
	if r == nil {
		return
	}

	switch {
	case !r.Present:
		add("tls", s.weights.CertAbsent, "No TLS certificate (site served over plain HTTP)")
	case !r.Valid:
		add("tls", s.weights.CertInvalid, "TLS certificate is invalid")
	case !r.NotAfter.IsZero() && r.DaysUntilExpiry < weekDays:
		add("tls", s.weights.CertExpiringSoon, fmt.Sprintf("TLS certificate expires in %d days", r.DaysUntilExpiry))
	}

	if r.Present {
		switch r.CipherStrength {
		case model.CipherWeak:
			add("tls", s.weights.CipherWeak, "Weak cipher suite negotiated")
		case model.CipherModerate:
			add("tls", s.weights.CipherModerate, "Moderate cipher suite negotiated")
		}

		if r.Version != "" && r.Version != "1.2" && r.Version != "1.3" {
			add("tls", s.weights.LegacyTLSVersion, "Legacy TLS protocol version "+r.Version)
		}
	}
}

func (s *Scorer) scoreReverseDNS(r *model.ReverseDNSResult, add addFunc) {
	if r == nil || r.Match {
		return
	}
	add("reverse_dns", s.weights.ReverseDNSMismatch, "Reverse DNS does not match the scanned domain")
}

func (s *Scorer) scorePortScan(r *model.PortScanResult, add addFunc) {
	if r == nil || len(r.SuspiciousPorts) == 0 {
		return
	}
	add("port_scan", s.weights.SuspiciousPorts, fmt.Sprintf("%d suspicious ports exposed %v", len(r.SuspiciousPorts), r.SuspiciousPorts))
}

// scoreReputation prices abuse-database data. The abuse confidence score
// and the report count are separate evidence and deduct independently.
func (s *Scorer) scoreReputation(r *model.IPReputationResult, add addFunc) {
	if r == nil {
		return
	}

	switch {
	case r.AbuseScore > abuseScoreHighThreshold:
		add("ip_reputation", s.weights.AbuseScoreHigh, fmt.Sprintf("Abuse confidence score %d/100", r.AbuseScore))
	case r.AbuseScore > abuseScoreMediumThreshold:
		add("ip_reputation", s.weights.AbuseScoreMedium, fmt.Sprintf("Abuse confidence score %d/100", r.AbuseScore))
	case r.AbuseScore > abuseScoreLowThreshold:
		add("ip_reputation", s.weights.AbuseScoreLow, fmt.Sprintf("Abuse confidence score %d/100", r.AbuseScore))
	}

	switch {
	case r.TotalReports > reportsManyThreshold:
		add("ip_reputation", s.weights.ReportsMany, fmt.Sprintf("%d abuse reports on record", r.TotalReports))
	case r.TotalReports > reportsSomeThreshold:
		add("ip_reputation", s.weights.ReportsSome, fmt.Sprintf("%d abuse reports on record", r.TotalReports))
	case r.TotalReports > reportsFewThreshold:
		add("ip_reputation", s.weights.ReportsFew, fmt.Sprintf("%d abuse reports on record", r.TotalReports))
	}
}

// scoreSandbox prices the page-load telemetry: suspicious request volume,
// third-party spread, and capture completeness deduct independently.
func (s *Scorer) scoreSandbox(r *model.SandboxResult, add addFunc) {
	if r == nil {
		return
	}

	suspicious := r.Summary.SuspiciousCount
	switch {
	case suspicious > suspiciousManyThreshold:
		add("sandbox", s.weights.SandboxManySuspicious, fmt.Sprintf("%d suspicious requests during page load", suspicious))
	case suspicious > suspiciousSomeThreshold:
		add("sandbox", s.weights.SandboxSomeSuspicious, fmt.Sprintf("%d suspicious requests during page load", suspicious))
	case suspicious > 0:
		add("sandbox", s.weights.SandboxAnySuspicious, fmt.Sprintf("%d suspicious requests during page load", suspicious))
	}

	thirdParty := len(r.ThirdPartyDomains)
	switch {
	case thirdParty > thirdPartyManyThreshold:
		add("sandbox", s.weights.ThirdPartyMany, fmt.Sprintf("Page contacts %d third-party domains", thirdParty))
	case thirdParty > thirdPartySomeThreshold:
		add("sandbox", s.weights.ThirdPartySome, fmt.Sprintf("Page contacts %d third-party domains", thirdParty))
	}

	if !r.Completed {
		add("sandbox", s.weights.SandboxIncomplete, "Sandboxed page load did not complete")
	}
}

func (s *Scorer) scoreHeaders(r *model.SecurityHeadersResult, add addFunc) {
	if r == nil {
		return
	}
	switch r.Grade {
	case "F":
		add("security_headers", s.weights.HeadersGradeF, "Security header grade F")
	case "D":
		add("security_headers", s.weights.HeadersGradeD, "Security header grade D")
	case "C":
		add("security_headers", s.weights.HeadersGradeC, "Security header grade C")
	case "B":
		add("security_headers", s.weights.HeadersGradeB, "Security header grade B")
	}
}

// scoreCookies prices cookie hygiene. Only scans that found concrete
// issues deduct; the ratio then selects the bracket.
func (s *Scorer) scoreCookies(r *model.CookieSecurityResult, add addFunc) {
	if r == nil || len(r.Issues) == 0 {
		return
	}
	switch {
	case r.SecureRatio < cookieMostlyInsecureRatio:
		add("cookie_security", s.weights.CookiesMostlyInsecure, "Most cookies lack the Secure attribute")
	case r.SecureRatio < 1.0:
		add("cookie_security", s.weights.CookiesPartlySecure, "Some cookies lack the Secure attribute")
	}
}

// scoreFiles prices sensitive-file exposure per file, graded by severity.
func (s *Scorer) scoreFiles(r *model.SensitiveFilesResult, add addFunc) {
	if r == nil || len(r.ExposedFiles) == 0 {
		return
	}

	other := len(r.ExposedFiles) - r.CriticalCount - r.HighCount
	if other < 0 {
		other = 0
	}

	points := r.CriticalCount*s.weights.FileCritical +
		r.HighCount*s.weights.FileHigh +
		other*s.weights.FileOther
	add("sensitive_files", points,
		fmt.Sprintf("%d sensitive files exposed (%d critical, %d high)", len(r.ExposedFiles), r.CriticalCount, r.HighCount))
}

func (s *Scorer) scoreVersion(r *model.VersionDisclosureResult, add addFunc) {
	if r == nil || len(r.Disclosures) == 0 {
		return
	}
	switch r.RiskLevel {
	case model.RiskHigh, model.RiskCritical:
		add("version_disclosure", s.weights.VersionHigh, "Detailed software versions disclosed")
	case model.RiskMedium:
		add("version_disclosure", s.weights.VersionMedium, "Software versions disclosed")
	default:
		add("version_disclosure", s.weights.VersionOther, "Server software disclosed")
	}
}

func (s *Scorer) scoreAdminPanels(r *model.AdminPanelsResult, add addFunc) {
	if r == nil || len(r.Endpoints) == 0 {
		return
	}

	debug, admin := 0, 0
	for _, e := range r.Endpoints {
		switch e.Kind {
		case model.EndpointDebug:
			debug++
		case model.EndpointAdmin:
			admin++
		}
	}

	points := debug*s.weights.DebugEndpoint + admin*s.weights.AdminEndpoint
	add("admin_panels", points, fmt.Sprintf("%d debug and %d admin endpoints reachable", debug, admin))
}

// clamp bounds a score to [0,100].
func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// joinOr joins non-empty items with commas, or returns the fallback.
func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	out := items[0]
	for _, item := range items[1:] {
		out += ", " + item
	}
	return out
}
