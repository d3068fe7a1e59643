// Package pipeline provides a framework for executing scan steps in sequence.
//
// The pipeline pattern is used to process target URLs through multiple
// stages: registration and DNS lookups, TLS inspection, reputation checks,
// web posture probes, the sandboxed page-load capture, and finally scoring.
// Each stage is implemented as a Step that receives the accumulating scan
// result and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running scans
// 4. It keeps the scoring step last, after every check has had its chance
//
// Individual probe failures never abort the pipeline: a probe that cannot
// produce data leaves its check absent, and the scorer treats absence as
// "no signal". Only context cancellation stops a scan early.
//
// The pipeline supports both individual scans and batch processing with
// concurrency control using errgroup.
package pipeline
