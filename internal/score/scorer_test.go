package score

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/urlsentry/urlsentry/internal/model"
)

// newTestScorer builds a scorer on the default deduction table.
func newTestScorer() *Scorer {
	return NewScorer(DefaultWeights())
}

// result is a test helper building a scan result with the given checks.
func result(checks model.Checks) *model.ScanResult {
	r := model.NewScanResult("https://example.com/", "example.com")
	r.Checks = checks
	return r
}

// TestScoreEmptyChecks tests that a scan with no checks scores 100.
func TestScoreEmptyChecks(t *testing.T) {
	t.Parallel()

	got, deductions := newTestScorer().Score(result(model.Checks{}))

	if got != 100 {
		t.Errorf("got score %d, expected 100", got)
	}
	if len(deductions) != 0 {
		t.Errorf("got %d deductions, expected none", len(deductions))
	}
}

// TestScoreFailFast tests that an unsafe SafeBrowsing verdict forces the
// score to 0 regardless of every other signal, including perfect ones.
func TestScoreFailFast(t *testing.T) {
	t.Parallel()

	checks := model.Checks{
		SafeBrowsing: &model.SafeBrowsingResult{Safe: false, Threats: []string{"MALWARE"}},
		// A pristine TLS result that would deduct nothing.
		TLS: &model.TLSResult{Present: true, Valid: true, Version: "1.3", CipherStrength: model.CipherStrong, NotAfter: time.Now().AddDate(1, 0, 0), DaysUntilExpiry: 365},
	}

	got, deductions := newTestScorer().Score(result(checks))

	if got != 0 {
		t.Errorf("got score %d, expected 0", got)
	}
	if len(deductions) != 1 || deductions[0].Check != "safe_browsing" {
		t.Errorf("expected single safe_browsing deduction, got %v", deductions)
	}
}

// TestScoreFailFastRandomized tests the fail-fast property over many
// randomized check combinations: whenever SafeBrowsing says unsafe, the
// score is 0 no matter what else is present.
func TestScoreFailFastRandomized(t *testing.T) {
	t.Parallel()

	scorer := newTestScorer()
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic test data

	for i := 0; i < 200; i++ {
		checks := model.Checks{
			SafeBrowsing: &model.SafeBrowsingResult{Safe: false},
		}

		if rng.Intn(2) == 0 {
			checks.Whois = &model.WhoisResult{AgeInDays: rng.Intn(5000)}
		}
		if rng.Intn(2) == 0 {
			checks.TLS = &model.TLSResult{Present: rng.Intn(2) == 0, Valid: rng.Intn(2) == 0}
		}
		if rng.Intn(2) == 0 {
			checks.IPReputation = &model.IPReputationResult{AbuseScore: rng.Intn(101), TotalReports: rng.Intn(500)}
		}
		if rng.Intn(2) == 0 {
			checks.Sandbox = &model.SandboxResult{
				Summary:   model.SandboxSummary{SuspiciousCount: rng.Intn(20)},
				Completed: rng.Intn(2) == 0,
			}
		}

		got, _ := scorer.Score(result(checks))
		if got != 0 {
			t.Fatalf("iteration %d: got score %d with unsafe verdict, expected 0", i, got)
		}
	}
}

// TestScoreBounds tests that the score stays in [0,100] over randomized
// inputs, including ones that would deduct far more than 100 points.
func TestScoreBounds(t *testing.T) {
	t.Parallel()

	scorer := newTestScorer()
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data

	for i := 0; i < 200; i++ {
		checks := model.Checks{
			Whois: &model.WhoisResult{AgeInDays: rng.Intn(100)},
			TLS:   &model.TLSResult{Present: rng.Intn(2) == 0, Valid: false, CipherStrength: model.CipherWeak, Version: "1.0"},
			IPReputation: &model.IPReputationResult{
				AbuseScore:   rng.Intn(101),
				TotalReports: rng.Intn(1000),
			},
			SensitiveFiles: &model.SensitiveFilesResult{
				ExposedFiles:  make([]model.ExposedFile, 10),
				CriticalCount: rng.Intn(10),
				HighCount:     rng.Intn(5),
			},
			SecurityHeaders: &model.SecurityHeadersResult{Grade: "F"},
		}

		got, _ := scorer.Score(result(checks))
		if got < 0 || got > 100 {
			t.Fatalf("iteration %d: score %d out of [0,100]", i, got)
		}
	}
}

// TestScoreYoungDomainWeakCipher tests the young-domain scenario:
// a 3-day-old domain with a weak cipher scores 100-40-20 = 40.
func TestScoreYoungDomainWeakCipher(t *testing.T) {
	t.Parallel()

	checks := model.Checks{
		Whois: &model.WhoisResult{AgeInDays: 3},
		TLS: &model.TLSResult{
			Present:         true,
			Valid:           true,
			CipherStrength:  model.CipherWeak,
			Version:         "1.2",
			NotAfter:        time.Now().AddDate(1, 0, 0),
			DaysUntilExpiry: 365,
		},
	}

	got, deductions := newTestScorer().Score(result(checks))

	if got != 40 {
		t.Errorf("got score %d, expected 40 (deductions: %v)", got, deductions)
	}
	if len(deductions) != 2 {
		t.Errorf("got %d deductions, expected 2: %v", len(deductions), deductions)
	}
}

// TestScoreSensitiveFiles tests per-file stacking: 2 critical, 1 high,
// and 1 other file deduct 2x25 + 15 + 5 = 70.
func TestScoreSensitiveFiles(t *testing.T) {
	t.Parallel()

	checks := model.Checks{
		SensitiveFiles: &model.SensitiveFilesResult{
			ExposedFiles:  make([]model.ExposedFile, 4),
			CriticalCount: 2,
			HighCount:     1,
		},
	}

	got, _ := newTestScorer().Score(result(checks))

	if got != 30 {
		t.Errorf("got score %d, expected 30", got)
	}
}

// TestScoreDomainAgeBrackets tests that exactly one age bracket applies.
func TestScoreDomainAgeBrackets(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		age      int
		expected int
	}{
		{0, 60},
		{6, 60},
		{7, 80},
		{29, 80},
		{30, 90},
		{89, 90},
		{90, 100},
		{5000, 100},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d days", tc.age), func(t *testing.T) {
			t.Parallel()

			checks := model.Checks{Whois: &model.WhoisResult{AgeInDays: tc.age}}
			got, _ := newTestScorer().Score(result(checks))
			if got != tc.expected {
				t.Errorf("age %d: got score %d, expected %d", tc.age, got, tc.expected)
			}
		})
	}
}

// TestScoreTLSPosture tests the certificate, cipher, and version rules.
func TestScoreTLSPosture(t *testing.T) {
	t.Parallel()

	farExpiry := time.Now().AddDate(1, 0, 0)

	testCases := []struct {
		name     string
		tls      model.TLSResult
		expected int
	}{
		{
			name:     "certificate absent",
			tls:      model.TLSResult{Present: false},
			expected: 80,
		},
		{
			name:     "certificate invalid",
			tls:      model.TLSResult{Present: true, Valid: false, Version: "1.2", CipherStrength: model.CipherStrong, NotAfter: farExpiry, DaysUntilExpiry: 365},
			expected: 70,
		},
		{
			name:     "certificate expiring soon",
			tls:      model.TLSResult{Present: true, Valid: true, Version: "1.3", CipherStrength: model.CipherStrong, NotAfter: time.Now().AddDate(0, 0, 3), DaysUntilExpiry: 3},
			expected: 85,
		},
		{
			name:     "weak cipher and legacy version stack",
			tls:      model.TLSResult{Present: true, Valid: true, Version: "1.0", CipherStrength: model.CipherWeak, NotAfter: farExpiry, DaysUntilExpiry: 365},
			expected: 65, // -20 cipher, -15 legacy version
		},
		{
			name:     "clean TLS deducts nothing",
			tls:      model.TLSResult{Present: true, Valid: true, Version: "1.3", CipherStrength: model.CipherStrong, NotAfter: farExpiry, DaysUntilExpiry: 365},
			expected: 100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, deductions := newTestScorer().Score(result(model.Checks{TLS: &tc.tls}))
			if got != tc.expected {
				t.Errorf("got score %d, expected %d (deductions: %v)", got, tc.expected, deductions)
			}
		})
	}
}

// TestScoreSandboxBrackets tests suspicious-count and third-party brackets.
func TestScoreSandboxBrackets(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		suspicious int
		thirdParty int
		completed  bool
		expected   int
	}{
		{"clean complete capture", 0, 0, true, 100},
		{"one suspicious request", 1, 0, true, 90},
		{"three suspicious requests", 3, 0, true, 80},
		{"six suspicious requests", 6, 0, true, 70},
		{"eleven third parties", 0, 11, true, 95},
		{"twenty-one third parties", 0, 21, true, 90},
		{"incomplete capture", 0, 0, false, 95},
		{"everything stacks", 6, 21, false, 55},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			domains := make([]string, tc.thirdParty)
			checks := model.Checks{
				Sandbox: &model.SandboxResult{
					Summary:           model.SandboxSummary{SuspiciousCount: tc.suspicious},
					ThirdPartyDomains: domains,
					Completed:         tc.completed,
				},
			}

			got, _ := newTestScorer().Score(result(checks))
			if got != tc.expected {
				t.Errorf("got score %d, expected %d", got, tc.expected)
			}
		})
	}
}

// TestScoreReputationStacksWithReports tests that the abuse score bracket
// and the report-count bracket deduct independently.
func TestScoreReputationStacksWithReports(t *testing.T) {
	t.Parallel()

	checks := model.Checks{
		IPReputation: &model.IPReputationResult{AbuseScore: 80, TotalReports: 120},
	}

	got, deductions := newTestScorer().Score(result(checks))

	// -40 for abuse score > 75, -15 for reports > 100.
	if got != 45 {
		t.Errorf("got score %d, expected 45 (deductions: %v)", got, deductions)
	}
	if len(deductions) != 2 {
		t.Errorf("got %d deductions, expected 2", len(deductions))
	}
}

// TestScoreCookieBrackets tests the issue-gated cookie deductions.
func TestScoreCookieBrackets(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		cookies  model.CookieSecurityResult
		expected int
	}{
		{
			name:     "no issues deducts nothing even with low ratio",
			cookies:  model.CookieSecurityResult{SecureRatio: 0.2},
			expected: 100,
		},
		{
			name:     "issues with mostly insecure cookies",
			cookies:  model.CookieSecurityResult{Issues: []string{"session cookie lacks Secure"}, SecureRatio: 0.4},
			expected: 90,
		},
		{
			name:     "issues with partly secure cookies",
			cookies:  model.CookieSecurityResult{Issues: []string{"tracking cookie lacks Secure"}, SecureRatio: 0.8},
			expected: 95,
		},
		{
			name:     "issues but all cookies secure",
			cookies:  model.CookieSecurityResult{Issues: []string{"cookie lacks HttpOnly"}, SecureRatio: 1.0},
			expected: 100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, _ := newTestScorer().Score(result(model.Checks{CookieSecurity: &tc.cookies}))
			if got != tc.expected {
				t.Errorf("got score %d, expected %d", got, tc.expected)
			}
		})
	}
}

// TestScoreAdminPanels tests per-endpoint deductions by kind.
func TestScoreAdminPanels(t *testing.T) {
	t.Parallel()

	checks := model.Checks{
		AdminPanels: &model.AdminPanelsResult{
			Endpoints: []model.AdminEndpoint{
				{Path: "/debug/pprof", Kind: model.EndpointDebug, Status: 200},
				{Path: "/actuator", Kind: model.EndpointDebug, Status: 200},
				{Path: "/admin", Kind: model.EndpointAdmin, Status: 401},
			},
		},
	}

	got, _ := newTestScorer().Score(result(checks))

	// -10 x2 debug, -3 x1 admin.
	if got != 77 {
		t.Errorf("got score %d, expected 77", got)
	}
}

// TestScoreClampAtZero tests that stacked deductions clamp at 0 rather
// than going negative.
func TestScoreClampAtZero(t *testing.T) {
	t.Parallel()

	checks := model.Checks{
		Whois: &model.WhoisResult{AgeInDays: 1},
		TLS:   &model.TLSResult{Present: true, Valid: false, CipherStrength: model.CipherWeak, Version: "1.0", NotAfter: time.Now(), DaysUntilExpiry: 0},
		IPReputation: &model.IPReputationResult{
			AbuseScore:   90,
			TotalReports: 500,
		},
		SensitiveFiles: &model.SensitiveFilesResult{
			ExposedFiles:  make([]model.ExposedFile, 5),
			CriticalCount: 5,
		},
	}

	got, _ := newTestScorer().Score(result(checks))

	if got != 0 {
		t.Errorf("got score %d, expected clamped 0", got)
	}
}

// TestApplyWritesScore tests that Apply stamps the score and audit trail
// onto the result.
func TestApplyWritesScore(t *testing.T) {
	t.Parallel()

	r := result(model.Checks{Whois: &model.WhoisResult{AgeInDays: 3}})
	newTestScorer().Apply(r)

	if r.Score != 60 {
		t.Errorf("got score %d, expected 60", r.Score)
	}
	if len(r.Deductions) != 1 {
		t.Errorf("got %d deductions, expected 1", len(r.Deductions))
	}
}
