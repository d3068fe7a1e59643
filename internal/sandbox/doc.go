// Package sandbox captures the network behavior of a page load without a
// browser: it fetches the target document, parses its HTML for every
// subresource reference (scripts, stylesheets, images, frames, and API
// endpoints mentioned in inline scripts), and finalizes the set into
// immutable NetworkRequestRecord values for classification.
//
// Design decision: We reconstruct the request set statically from the HTML
// rather than driving a headless browser because:
//  1. No browser runtime dependency; the scanner stays a single binary
//  2. Static extraction is deterministic and cheap enough to run per scan
//  3. The classifier needs URLs and resource types, not execution traces
//
// The collector owns capture completeness: a fetch or parse failure yields
// a partial capture with Completed=false rather than an error, so a scan
// can still score whatever was observed.
package sandbox
