package policy

// tables is the raw, uncompiled form of a policy. It is what the YAML
// policy file deserializes into and what the defaults below populate.
type tables struct {
	SuspiciousTLDs     []string          `yaml:"suspicious_tlds"`
	PhishingKeywords   []string          `yaml:"phishing_keywords"`
	MalwareExtensions  []string          `yaml:"malware_extensions"`
	TrackingDomains    []string          `yaml:"tracking_domains"`
	CryptominerDomains []string          `yaml:"cryptominer_domains"`
	Brands             map[string]string `yaml:"brands"`
	Patterns           []RawPattern      `yaml:"patterns"`
}

// RawPattern is the serializable form of a malicious URL pattern.
type RawPattern struct {
	Name   string `yaml:"name"`
	Expr   string `yaml:"expr"`
	Reason string `yaml:"reason"`
}

// defaultTables returns the compiled-in denylists.
// The entries are drawn from commonly abused infrastructure: free or
// near-free TLDs favored by phishing campaigns, extensions used for
// malware delivery, and domains of browser-mining services observed in
// the wild before their takedowns.
func defaultTables() tables {
	return tables{
		SuspiciousTLDs: []string{
			"tk", "ml", "ga", "cf", "gq",
			"xyz", "icu", "top", "club", "work",
			"click", "link", "loan", "racing", "download",
			"stream", "men", "gdn", "bid", "zip",
		},
		PhishingKeywords: []string{
			"login", "signin", "verify", "verification", "secure",
			"account", "update", "confirm", "banking", "password",
			"credential", "wallet", "suspended", "unlock", "authenticate",
			"billing", "invoice", "recover", "crypto", "bonus",
		},
		// ".js" and ".com" are deliberately absent: they would flag every
		// script load and every URL containing ".com?".
		MalwareExtensions: []string{
			".exe", ".scr", ".bat", ".cmd", ".pif",
			".msi", ".jar", ".vbs", ".wsf", ".ps1",
			".apk", ".dmg", ".hta",
		},
		TrackingDomains: []string{
			"google-analytics.com",
			"googletagmanager.com",
			"doubleclick.net",
			"facebook.net",
			"connect.facebook.net",
			"hotjar.com",
			"mixpanel.com",
			"segment.io",
			"segment.com",
			"amplitude.com",
			"clarity.ms",
			"matomo.cloud",
			"quantserve.com",
			"scorecardresearch.com",
			"criteo.com",
		},
		CryptominerDomains: []string{
			"coinhive.com",
			"coin-hive.com",
			"cryptoloot.pro",
			"crypto-loot.com",
			"webminepool.com",
			"minero.cc",
			"coinimp.com",
			"jsecoin.com",
			"minemytraffic.com",
			"ppoi.org",
			"projectpoi.com",
			"cryptonoter.com",
			"deepminer.net",
		},
		Brands: map[string]string{
			"paypal":     "paypal.com",
			"google":     "google.com",
			"apple":      "apple.com",
			"microsoft":  "microsoft.com",
			"amazon":     "amazon.com",
			"netflix":    "netflix.com",
			"facebook":   "facebook.com",
			"instagram":  "instagram.com",
			"whatsapp":   "whatsapp.com",
			"binance":    "binance.com",
			"coinbase":   "coinbase.com",
			"metamask":   "metamask.io",
			"chase":      "chase.com",
			"wellsfargo": "wellsfargo.com",
			"dropbox":    "dropbox.com",
			"linkedin":   "linkedin.com",
		},
		Patterns: []RawPattern{
			{
				Name:   "script_injection",
				Expr:   `(?i)(<script|%3cscript|javascript:)`,
				Reason: "URL contains a script injection pattern",
			},
			{
				Name:   "sql_injection",
				Expr:   `(?i)(union[+%20\s]+select|'\s*or\s+1\s*=\s*1|%27%20or%201%3d1)`,
				Reason: "URL contains a SQL injection pattern",
			},
			{
				Name:   "path_traversal",
				Expr:   `(\.\./|%2e%2e%2f|\.\.\\)`,
				Reason: "URL contains a path traversal sequence",
			},
			{
				Name:   "c2_beacon",
				Expr:   `(?i)[?&][a-z]{1,3}=[0-9a-f]{32,}(&|$)`,
				Reason: "URL carries a long hex parameter typical of C2 beacons",
			},
			{
				Name:   "wordpress_internal",
				Expr:   `(?i)/wp-(admin|includes|content/uploads)/.*\.php`,
				Reason: "URL targets WordPress internal PHP paths",
			},
			{
				Name:   "data_uri",
				Expr:   `(?i)data:(text/html|application/javascript)`,
				Reason: "URL embeds an executable data URI",
			},
			{
				Name:   "eval_in_url",
				Expr:   `(?i)(eval\(|%65%76%61%6c)`,
				Reason: "URL contains an eval() call",
			},
		},
	}
}
