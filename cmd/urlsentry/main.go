// Package main provides the entry point for the urlsentry CLI.
//
// urlsentry assesses the safety of a URL before you visit it. It probes
// the target's domain registration, TLS posture, hosting reputation, and
// server hygiene, performs a sandboxed page load, and condenses everything
// into a 0-100 safety score.
//
// Usage:
//
//	urlsentry scan <url> [<url>...]
//
// See --help for all available options.
package main

// main is the entry point for urlsentry.
func main() {
	Execute()
}
