// Package probe implements the external signal collectors: each probe
// gathers one kind of evidence about the scanned host (WHOIS age, TLS
// posture, open ports, reputation, exposed files) and produces the typed
// check result the scorer consumes.
//
// # Architecture
//
// Every probe is an independent struct with a constructor taking its
// transport (an http.Client or dialer) plus functional options. Probes own
// their own I/O, timeouts, and degradation: an unreachable collaborator
// yields an error the pipeline turns into an absent check, never a partial
// or guessed result.
//
// Design decision: Probes take pre-configured clients rather than building
// them because:
//  1. Timeout and proxy policy belong to the caller's config
//  2. Tests substitute httptest clients and local listeners
//  3. Connection pooling can be shared across probes
package probe
