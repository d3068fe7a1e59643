// Package classify implements the request risk classifier and the request
// set aggregator. The classifier inspects one captured network request at a
// time against the static policy and produces a Classification; the
// aggregator folds a finished request set into a SandboxSummary.
//
// Everything in this package is pure: no I/O, no clocks, no shared mutable
// state. Identical inputs always produce identical outputs, which makes the
// per-request classification embarrassingly parallel.
package classify
