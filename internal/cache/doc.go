// Package cache provides SQLite-backed storage for third-party lookup
// responses (WHOIS, IP reputation, geolocation).
//
// The cache exists to keep repeat scans cheap and polite: external lookup
// services rate-limit aggressively, and the underlying facts change slowly.
// Entries are keyed by (kind, key) and expire by age at read time.
//
// Scan results themselves are never stored here. The scanner keeps no scan
// history; only the raw upstream responses are cached.
package cache
