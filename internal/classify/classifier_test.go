package classify

import (
	"reflect"
	"strings"
	"testing"

	"github.com/urlsentry/urlsentry/internal/model"
	"github.com/urlsentry/urlsentry/internal/policy"
)

// newTestClassifier builds a classifier on the default policy.
func newTestClassifier() *Classifier {
	return NewClassifier(policy.New())
}

// record is a test helper building a request record.
func record(url, domain string, rt model.ResourceType) model.NetworkRequestRecord {
	return model.NetworkRequestRecord{URL: url, Domain: domain, ResourceType: rt}
}

// TestClassifyMalformedURL tests the malformed-URL short circuit.
func TestClassifyMalformedURL(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	testCases := []string{
		"http://evil.com/%zz%", // invalid percent escape
		"://missing-scheme",
		"",
	}

	for _, rawURL := range testCases {
		t.Run(rawURL, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(record(rawURL, "", model.ResourceOther), "example.com")

			if !got.HasCategory(model.CategoryMalformed) {
				t.Error("expected malformed category")
			}
			if got.RiskScore != 10 {
				t.Errorf("got risk score %d, expected 10", got.RiskScore)
			}
			if got.RiskLevel != model.RiskLow {
				t.Errorf("got risk level %v, expected low", got.RiskLevel)
			}
			if got.Suspicious {
				t.Error("malformed URLs must not be flagged suspicious")
			}
			if len(got.Reasons) != 1 || got.Reasons[0] != "Malformed URL" {
				t.Errorf("got reasons %v, expected [Malformed URL]", got.Reasons)
			}
		})
	}
}

// TestClassifyRules tests each rule in isolation where possible.
func TestClassifyRules(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()
	origin := "example.com"

	testCases := []struct {
		name       string
		record     model.NetworkRequestRecord
		category   model.Category
		score      int
		level      model.RiskLevel
		suspicious bool
	}{
		{
			name:       "suspicious TLD",
			record:     record("https://cheap.tk/page", "cheap.tk", model.ResourceScript),
			category:   model.CategorySuspiciousTLD,
			score:      15,
			level:      model.RiskMedium,
			suspicious: true,
		},
		{
			name:       "direct IP host",
			record:     record("https://203.0.113.7/x", "203.0.113.7", model.ResourceScript),
			category:   model.CategoryIPBased,
			score:      30,
			level:      model.RiskHigh,
			suspicious: true,
		},
		{
			name:       "extreme URL length",
			record:     record("https://cdn.example.com/"+strings.Repeat("a", 1100), "cdn.example.com", model.ResourceScript),
			category:   model.CategoryObfuscation,
			score:      25,
			level:      model.RiskMedium,
			suspicious: true,
		},
		{
			name:       "long URL length",
			record:     record("https://cdn.example.com/"+strings.Repeat("a", 600), "cdn.example.com", model.ResourceScript),
			category:   model.CategoryObfuscation,
			score:      10,
			level:      model.RiskLow,
			suspicious: false,
		},
		{
			name:       "malware extension",
			record:     record("https://files.example.com/setup.exe", "files.example.com", model.ResourceOther),
			category:   model.CategoryMalwareDownload,
			score:      35,
			level:      model.RiskHigh,
			suspicious: true,
		},
		{
			name:       "malicious pattern path traversal",
			record:     record("https://cdn.example.com/../../etc/passwd", "cdn.example.com", model.ResourceOther),
			category:   model.CategoryMaliciousPattern,
			score:      30,
			level:      model.RiskHigh,
			suspicious: true,
		},
		{
			name:       "punycode domain",
			record:     record("https://xn--pple-43d.net/x", "xn--pple-43d.net", model.ResourceScript),
			category:   model.CategoryHomograph,
			score:      25,
			level:      model.RiskMedium,
			suspicious: true,
		},
		{
			name:       "excessive subdomains",
			record:     record("https://a.b.c.d.example.net/x", "a.b.c.d.example.net", model.ResourceScript),
			category:   model.CategorySubdomainAbuse,
			score:      15,
			level:      model.RiskMedium,
			suspicious: true,
		},
		{
			name:       "brand impersonation",
			record:     record("https://paypal.evil.net/home", "paypal.evil.net", model.ResourceScript),
			category:   model.CategoryBrandImpersonation,
			score:      40,
			level:      model.RiskHigh,
			suspicious: true,
		},
		{
			name:       "known tracker",
			record:     record("https://stats.doubleclick.net/collect", "stats.doubleclick.net", model.ResourceImage),
			category:   model.CategoryTracking,
			score:      5,
			level:      model.RiskLow,
			suspicious: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(tc.record, origin)

			if !got.HasCategory(tc.category) {
				t.Errorf("expected category %q, got %v", tc.category, got.Categories)
			}
			if got.RiskScore != tc.score {
				t.Errorf("got risk score %d, expected %d (reasons: %v)", got.RiskScore, tc.score, got.Reasons)
			}
			if got.RiskLevel != tc.level {
				t.Errorf("got risk level %v, expected %v", got.RiskLevel, tc.level)
			}
			if got.Suspicious != tc.suspicious {
				t.Errorf("got suspicious=%v, expected %v", got.Suspicious, tc.suspicious)
			}
		})
	}
}

// TestClassifyCryptominerScenario tests the coinhive scenario: a miner
// script loaded from a known mining domain must come out critical.
func TestClassifyCryptominerScenario(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	got := c.Classify(record("http://coinhive.com/miner.js", "coinhive.com", model.ResourceScript), "example.com")

	if !got.HasCategory(model.CategoryCryptominer) {
		t.Errorf("expected cryptominer category, got %v", got.Categories)
	}
	if got.RiskScore < 50 {
		t.Errorf("got risk score %d, expected >= 50", got.RiskScore)
	}
	if got.RiskLevel != model.RiskCritical {
		t.Errorf("got risk level %v, expected critical", got.RiskLevel)
	}
	if !got.Suspicious {
		t.Error("expected suspicious flag")
	}
}

// TestClassifyPhishingKeywords tests keyword scoring, capping, and the
// origin-domain exemption.
func TestClassifyPhishingKeywords(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	t.Run("distinct keywords add up", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(record("https://evil.net/login/verify", "evil.net", model.ResourceDocument), "example.com")

		if !got.HasCategory(model.CategoryPhishingKeywords) {
			t.Fatalf("expected phishing-keywords category, got %v", got.Categories)
		}
		if got.RiskScore != 10 {
			t.Errorf("got risk score %d, expected 10 (2 keywords x 5)", got.RiskScore)
		}
	})

	t.Run("keyword score is capped at 25", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(
			record("https://evil.net/login/verify/secure/account/update/confirm", "evil.net", model.ResourceDocument),
			"example.com",
		)

		// 6 keywords x 5 = 30, capped to 25.
		if got.RiskScore != 25 {
			t.Errorf("got risk score %d, expected capped 25", got.RiskScore)
		}
	})

	t.Run("keywords in origin domain are exempt", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(record("https://login.example.com/login", "login.example.com", model.ResourceDocument), "login.example.com")

		if got.HasCategory(model.CategoryPhishingKeywords) {
			t.Errorf("expected no phishing-keywords category, got reasons %v", got.Reasons)
		}
	})

	t.Run("keyword over plain HTTP adds insecure-http", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(record("http://evil.net/login", "evil.net", model.ResourceDocument), "example.com")

		if !got.HasCategory(model.CategoryInsecureHTTP) {
			t.Errorf("expected insecure-http category, got %v", got.Categories)
		}
		// 5 (keyword) + 30 (insecure HTTP).
		if got.RiskScore != 35 {
			t.Errorf("got risk score %d, expected 35", got.RiskScore)
		}
	})
}

// TestClassifyCrossOrigin tests the cross-origin API call rule.
func TestClassifyCrossOrigin(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	t.Run("cross-origin fetch is flagged", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(record("https://api.other.net/v1/data", "api.other.net", model.ResourceFetch), "example.com")

		if !got.HasCategory(model.CategoryCrossOrigin) {
			t.Errorf("expected cross-origin category, got %v", got.Categories)
		}
	})

	t.Run("same-origin fetch is never flagged", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(record("https://example.com/api/data", "example.com", model.ResourceFetch), "example.com")

		if got.HasCategory(model.CategoryCrossOrigin) {
			t.Error("request to the origin itself must not be cross-origin")
		}
	})

	t.Run("cross-origin script is not an API call", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(record("https://cdn.other.net/lib.min.css", "cdn.other.net", model.ResourceStylesheet), "example.com")

		if got.HasCategory(model.CategoryCrossOrigin) {
			t.Error("static asset loads must not trigger the cross-origin rule")
		}
	})

	t.Run("trackers are excluded from cross-origin", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(record("https://api.mixpanel.com/track", "api.mixpanel.com", model.ResourceXHR), "example.com")

		if got.HasCategory(model.CategoryCrossOrigin) {
			t.Error("tracker API calls are priced by the tracking rule only")
		}
		if !got.HasCategory(model.CategoryTracking) {
			t.Error("expected tracking category")
		}
	})
}

// TestClassifyDataExfiltration tests the query-string rules.
func TestClassifyDataExfiltration(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	t.Run("long query string", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(
			record("https://sink.net/c?payload="+strings.Repeat("ab-", 200), "sink.net", model.ResourceXHR),
			"example.com",
		)

		if !got.HasCategory(model.CategoryDataExfiltration) {
			t.Errorf("expected data-exfiltration category, got %v", got.Categories)
		}
	})

	t.Run("embedded base64 run", func(t *testing.T) {
		t.Parallel()

		got := c.Classify(
			record("https://sink.net/c?d="+strings.Repeat("QUJD", 15)+"==", "sink.net", model.ResourceXHR),
			"example.com",
		)

		if !got.HasCategory(model.CategoryDataExfiltration) {
			t.Errorf("expected data-exfiltration category, got %v", got.Categories)
		}
	})
}

// TestClassifyDeterministic tests that classification is a pure function:
// repeated runs produce deeply equal results.
func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()
	rec := record("http://paypal-login.tk/verify/update.exe?q="+strings.Repeat("QQ", 30), "paypal-login.tk", model.ResourceFetch)

	first := c.Classify(rec, "example.com")
	for range 50 {
		next := c.Classify(rec, "example.com")
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("classification is not deterministic:\nfirst: %+v\nnext:  %+v", first, next)
		}
	}
}

// TestClassifyAdditiveStacking tests that independent rules stack: a URL
// triggering several rules scores the sum of their weights.
func TestClassifyAdditiveStacking(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	// suspicious TLD (15) + brand impersonation (40) + keyword login (5)
	// + insecure HTTP (30) = 90.
	got := c.Classify(record("http://paypal-portal.tk/login", "paypal-portal.tk", model.ResourceDocument), "example.com")

	if got.RiskScore != 90 {
		t.Errorf("got risk score %d, expected 90 (reasons: %v)", got.RiskScore, got.Reasons)
	}
	if got.RiskLevel != model.RiskCritical {
		t.Errorf("got risk level %v, expected critical", got.RiskLevel)
	}
	if len(got.Reasons) != 4 {
		t.Errorf("got %d reasons, expected 4: %v", len(got.Reasons), got.Reasons)
	}
}

// TestClassifyCategoriesDeduplicated tests that a request triggering two
// rules with the same category carries the category once.
func TestClassifyCategoriesDeduplicated(t *testing.T) {
	t.Parallel()

	c := newTestClassifier()

	// Extreme length (obfuscation) + heavy encoding (obfuscation).
	longEncoded := "https://cdn.example.net/" + strings.Repeat("%41", 400)
	got := c.Classify(record(longEncoded, "cdn.example.net", model.ResourceScript), "example.com")

	count := 0
	for _, cat := range got.Categories {
		if cat == model.CategoryObfuscation {
			count++
		}
	}
	if count != 1 {
		t.Errorf("obfuscation category appears %d times, expected 1", count)
	}
	// Both rules still contribute reasons and score.
	if len(got.Reasons) < 2 {
		t.Errorf("expected both obfuscation rules in reasons, got %v", got.Reasons)
	}
}
