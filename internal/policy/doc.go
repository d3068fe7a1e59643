// Package policy holds the static classification policy: domain denylists,
// phishing keyword sets, brand protection tables, malicious URL patterns,
// and the rule weights used by the request classifier. A Policy is built
// once at startup and passed explicitly to the classifier; it is never
// mutated afterwards, so it is safe to share across goroutines.
package policy
