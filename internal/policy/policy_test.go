package policy

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultPolicyTLDs tests TLD denylist lookups.
func TestDefaultPolicyTLDs(t *testing.T) {
	t.Parallel()

	p := New()

	testCases := []struct {
		tld      string
		expected bool
	}{
		{"tk", true},
		{".tk", true},
		{"XYZ", true},
		{"icu", true},
		{"com", false},
		{"org", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.tld, func(t *testing.T) {
			t.Parallel()
			if got := p.IsSuspiciousTLD(tc.tld); got != tc.expected {
				t.Errorf("IsSuspiciousTLD(%q) = %v, expected %v", tc.tld, got, tc.expected)
			}
		})
	}
}

// TestDomainSuffixMatching tests tracker and cryptominer domain matching.
// Matching must be label-aware: a denylisted domain embedded mid-string
// must not match.
func TestDomainSuffixMatching(t *testing.T) {
	t.Parallel()

	p := New()

	t.Run("tracking domains", func(t *testing.T) {
		t.Parallel()

		if !p.IsTrackingDomain("doubleclick.net") {
			t.Error("expected exact tracker match")
		}
		if !p.IsTrackingDomain("stats.doubleclick.net") {
			t.Error("expected subdomain tracker match")
		}
		if p.IsTrackingDomain("notdoubleclick.net") {
			t.Error("expected no match for lookalike domain")
		}
		if p.IsTrackingDomain("doubleclick.net.evil.com") {
			t.Error("expected no match when tracker is not the suffix")
		}
	})

	t.Run("cryptominer domains", func(t *testing.T) {
		t.Parallel()

		if !p.IsCryptominerDomain("coinhive.com") {
			t.Error("expected exact miner match")
		}
		if !p.IsCryptominerDomain("cdn.coinhive.com") {
			t.Error("expected subdomain miner match")
		}
		if p.IsCryptominerDomain("coinhive.com.example.org") {
			t.Error("expected no match when miner is not the suffix")
		}
	})
}

// TestBrandMatch tests brand impersonation detection.
func TestBrandMatch(t *testing.T) {
	t.Parallel()

	p := New()

	testCases := []struct {
		name          string
		domain        string
		impersonation bool
		matched       bool
	}{
		{"brand own domain", "paypal.com", false, true},
		{"brand subdomain", "www.paypal.com", false, true},
		{"lookalike domain", "paypal-secure.tk", true, true},
		{"brand embedded in other TLD", "paypal.evil.com", true, true},
		{"unrelated domain", "example.com", false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			legit, impersonation := p.BrandMatch(tc.domain)
			if (legit != "") != tc.matched {
				t.Errorf("BrandMatch(%q) matched=%v, expected %v", tc.domain, legit != "", tc.matched)
			}
			if impersonation != tc.impersonation {
				t.Errorf("BrandMatch(%q) impersonation=%v, expected %v", tc.domain, impersonation, tc.impersonation)
			}
		})
	}
}

// TestBrandMatchDeterministic tests that repeated calls agree even for
// domains containing multiple brand tokens.
func TestBrandMatchDeterministic(t *testing.T) {
	t.Parallel()

	p := New()

	first, _ := p.BrandMatch("paypal-google-login.tk")
	for range 20 {
		legit, _ := p.BrandMatch("paypal-google-login.tk")
		if legit != first {
			t.Fatalf("BrandMatch returned %q after returning %q", legit, first)
		}
	}
}

// TestDefaultPatternsCompile tests that every default pattern compiled and
// matches its intended input.
func TestDefaultPatternsCompile(t *testing.T) {
	t.Parallel()

	p := New()

	samples := map[string]string{
		"script_injection":   "http://evil.com/?q=<script>alert(1)</script>",
		"sql_injection":      "http://evil.com/item?id=1+union+select+password",
		"path_traversal":     "http://evil.com/../../etc/passwd",
		"c2_beacon":          "http://evil.com/gate?id=0123456789abcdef0123456789abcdef",
		"wordpress_internal": "http://evil.com/wp-content/uploads/shell.php",
		"data_uri":           "http://evil.com/?redirect=data:text/html;base64,xxx",
		"eval_in_url":        "http://evil.com/?cb=eval(atob('xxx'))",
	}

	for _, pattern := range p.Patterns() {
		sample, ok := samples[pattern.Name]
		if !ok {
			t.Errorf("no sample URL for pattern %q", pattern.Name)
			continue
		}
		if !pattern.Regexp.MatchString(sample) {
			t.Errorf("pattern %q did not match sample %q", pattern.Name, sample)
		}
	}
}

// TestFromFile tests loading a policy override file.
func TestFromFile(t *testing.T) {
	t.Parallel()

	t.Run("overrides one table and keeps defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "policy.yml")
		content := "cryptominer_domains:\n  - miner.test\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		p, err := FromFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !p.IsCryptominerDomain("miner.test") {
			t.Error("expected overridden miner domain to match")
		}
		if p.IsCryptominerDomain("coinhive.com") {
			t.Error("expected default miner list to be replaced")
		}
		// Untouched tables keep defaults.
		if !p.IsSuspiciousTLD("tk") {
			t.Error("expected default TLD list to survive")
		}
		if p.Weights() != DefaultWeights() {
			t.Error("expected default weights to survive")
		}
	})

	t.Run("missing file returns ErrPolicyNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := FromFile(filepath.Join(t.TempDir(), "nope.yml"))
		if err != ErrPolicyNotFound {
			t.Errorf("got %v, expected ErrPolicyNotFound", err)
		}
	})

	t.Run("invalid pattern regex is rejected", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "policy.yml")
		content := "patterns:\n  - name: bad\n    expr: '['\n    reason: broken\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := FromFile(path); err == nil {
			t.Error("expected error for invalid regex")
		}
	})
}
