package report

import (
	"io"

	"github.com/urlsentry/urlsentry/internal/model"
)

// Writer defines the interface for report output.
// Implementations write scan results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs one scan result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.ScanResult) (int, error)

	// WriteBatch outputs multiple scan results as one report.
	// This is used for multi-target scans where per-target output
	// would interleave badly.
	WriteBatch(results []*model.ScanResult) (int, error)
}

// Score thresholds for the human-readable verdict labels. The score
// itself is the interface; the labels only summarize it for readers.
const (
	verdictSafeThreshold       = 80
	verdictLikelySafeThreshold = 60
	verdictSuspiciousThreshold = 40
	verdictRiskyThreshold      = 20
)

// Verdict maps a safety score to its human-readable label.
func Verdict(score int) string {
	switch {
	case score >= verdictSafeThreshold:
		return "safe"
	case score >= verdictLikelySafeThreshold:
		return "likely safe"
	case score >= verdictSuspiciousThreshold:
		return "suspicious"
	case score >= verdictRiskyThreshold:
		return "risky"
	default:
		return "dangerous"
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.ScanResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the results to all configured Writers.
func (m *MultiWriter) WriteBatch(results []*model.ScanResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(results)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText summarizes the scan completion state for report headers.
func statusText(result *model.ScanResult) string {
	switch {
	case result.TimedOut:
		return "timed out (partial results)"
	case result.ErrorMessage != "":
		return "error - " + result.ErrorMessage
	default:
		return "complete"
	}
}
