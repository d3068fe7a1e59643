// Package score implements the top-level scan scorer: it reconciles every
// collected check result into one bounded safety score in [0,100] under a
// fixed deduction policy, with a single fail-fast override for an unsafe
// threat-database verdict.
//
// The scorer is a total, pure function over scan results: it never fails,
// treats absent checks as "no signal", and runs synchronously with no I/O.
package score
