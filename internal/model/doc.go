// Package model defines the data types shared across the urlsentry scanner:
// captured network requests, per-request classifications, check results
// produced by the probes, and the final scan result with its safety score.
// These types are intentionally free of behavior and infrastructure concerns
// so they can be shared across packages and serialized for reports.
package model
