package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/urlsentry/urlsentry/internal/model"
)

// TerminalWriter outputs human-readable text reports for terminal display.
// The safety score and deductions are color-coded; everything else is
// plain text so the output still reads well when piped to a file.
//
// Design decision: We use fatih/color rather than raw ANSI sequences
// because it degrades automatically when the output is not a terminal
// (NO_COLOR, pipes), so the same writer serves both interactive use and
// shell scripting.
type TerminalWriter struct {
	baseWriter

	// verbose enables the per-check detail section.
	verbose bool
}

// TerminalWriterOption configures a TerminalWriter.
type TerminalWriterOption func(*TerminalWriter)

// WithVerbose enables verbose output with per-check details.
func WithVerbose(verbose bool) TerminalWriterOption {
	return func(w *TerminalWriter) {
		w.verbose = verbose
	}
}

// NewTerminalWriter creates a TerminalWriter that outputs to the given writer.
func NewTerminalWriter(output io.Writer, opts ...TerminalWriterOption) *TerminalWriter {
	w := &TerminalWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one scan result in human-readable format.
func (w *TerminalWriter) Write(result *model.ScanResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeScore(&sb, result)
	w.writeDeductions(&sb, result)
	if w.verbose {
		w.writeChecks(&sb, result)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs a ranking line per result, then each full report.
func (w *TerminalWriter) WriteBatch(results []*model.ScanResult) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("SCANNED %d TARGETS\n", len(results)))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	for _, result := range results {
		sb.WriteString(fmt.Sprintf("  %s  %-11s  %s\n",
			scoreColor(result.Score).Sprintf("%3d", result.Score),
			Verdict(result.Score),
			result.URL,
		))
	}
	sb.WriteString("\n")

	total, err := w.output.Write([]byte(sb.String()))
	if err != nil {
		return total, err
	}

	for _, result := range results {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// writeHeader writes the report header with scan information.
func (w *TerminalWriter) writeHeader(sb *strings.Builder, result *model.ScanResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        URL SAFETY REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("URL:       %s\n", result.URL))
	sb.WriteString(fmt.Sprintf("Domain:    %s\n", result.Domain))
	sb.WriteString(fmt.Sprintf("Scan Date: %s\n", result.ScannedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", statusText(result)))
	sb.WriteString("\n")
}

// writeScore writes the color-coded safety score.
func (w *TerminalWriter) writeScore(sb *strings.Builder, result *model.ScanResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SAFETY SCORE\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  %s / 100  (%s)\n",
		scoreColor(result.Score).Sprintf("%d", result.Score),
		Verdict(result.Score),
	))
	sb.WriteString("\n")
}

// writeDeductions writes the scoring audit trail.
func (w *TerminalWriter) writeDeductions(sb *strings.Builder, result *model.ScanResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DEDUCTIONS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(result.Deductions) == 0 {
		sb.WriteString("  No points deducted.\n\n")
		return
	}

	for _, d := range result.Deductions {
		sb.WriteString(fmt.Sprintf("  %s %-18s %s\n",
			deductionColor(d.Points).Sprintf("[-%2d]", d.Points),
			d.Check,
			d.Reason,
		))
	}
	sb.WriteString("\n")
}

// writeChecks writes one summary line per collected check.
func (w *TerminalWriter) writeChecks(sb *strings.Builder, result *model.ScanResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CHECK RESULTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	rows := checkSummaries(result.Checks)
	if len(rows) == 0 {
		sb.WriteString("  No checks produced data.\n")
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  [+] %-20s %s\n", row[0], row[1]))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *TerminalWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by urlsentry\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// scoreColor picks the display color for a safety score.
func scoreColor(score int) *color.Color {
	switch {
	case score >= verdictSafeThreshold:
		return color.New(color.FgGreen, color.Bold)
	case score >= verdictSuspiciousThreshold:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// deductionColor picks the display color for a deduction by size.
func deductionColor(points int) *color.Color {
	switch {
	case points >= 30:
		return color.New(color.FgRed)
	case points >= 15:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}
