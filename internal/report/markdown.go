package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/urlsentry/urlsentry/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one scan result in Markdown format.
func (w *MarkdownWriter) Write(result *model.ScanResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeScore(md, result)
	w.writeDeductions(md, result)
	w.writeChecks(md, result)
	w.writeSandbox(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs multiple scan results as one Markdown document:
// a ranking table first, then a detail section per target.
func (w *MarkdownWriter) WriteBatch(results []*model.ScanResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("URL Safety Report")
	md.PlainText("")

	rows := make([][]string, len(results))
	for i, result := range results {
		rows[i] = []string{
			"`" + result.URL + "`",
			strconv.Itoa(result.Score),
			Verdict(result.Score),
			statusText(result),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Score", "Verdict", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, result := range results {
		md.H2(result.URL)
		md.PlainText("")
		md.PlainTextf("Safety score: **%d/100** (%s)", result.Score, Verdict(result.Score))
		md.PlainText("")
		w.writeDeductions(md, result)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.ScanResult) {
	md.H1("URL Safety Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + result.URL + "`"},
			{"Origin Domain", "`" + result.Domain + "`"},
			{"Scan Date", result.ScannedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", statusText(result)},
		},
	})
	md.PlainText("")
}

// writeScore writes the safety score with a verdict alert and, when there
// are deductions, a pie chart of where the points went.
func (w *MarkdownWriter) writeScore(md *markdown.Markdown, result *model.ScanResult) {
	md.H2("Safety Score")
	md.PlainText("")
	md.PlainTextf("**%d / 100** (%s)", result.Score, Verdict(result.Score))
	md.PlainText("")

	switch {
	case result.Score >= verdictSafeThreshold:
		md.Tip("No significant risk signals detected.")
	case result.Score >= verdictLikelySafeThreshold:
		md.Note("Minor risk signals detected. The URL is likely safe.")
	case result.Score >= verdictSuspiciousThreshold:
		md.Importantf("Several risk signals detected. Treat this URL with caution.")
	case result.Score >= verdictRiskyThreshold:
		md.Warningf("Strong risk signals detected. Avoid entering credentials or downloading files.")
	default:
		md.Cautionf("This URL is dangerous. Do not visit it.")
	}
	md.PlainText("")

	if len(result.Deductions) > 0 {
		w.writePieChart(md, result.Deductions)
	}
}

// writePieChart writes a mermaid pie chart of deducted points per check.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, deductions []model.Deduction) {
	// Fold duplicate checks; a check can deduct more than once.
	points := make(map[string]int)
	var order []string
	for _, d := range deductions {
		if _, seen := points[d.Check]; !seen {
			order = append(order, d.Check)
		}
		points[d.Check] += d.Points
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Deducted Points by Check"),
		piechart.WithShowData(true),
	)
	for _, check := range order {
		chart.LabelAndIntValue(check, uint64(points[check])) //nolint:gosec // Points are small positive ints
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeDeductions writes the scoring audit trail.
func (w *MarkdownWriter) writeDeductions(md *markdown.Markdown, result *model.ScanResult) {
	md.H2("Deductions")
	md.PlainText("")

	if len(result.Deductions) == 0 {
		md.PlainText("No points were deducted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Deductions))
	for i, d := range result.Deductions {
		rows[i] = []string{d.Check, "-" + strconv.Itoa(d.Points), d.Reason}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Check", "Points", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeChecks writes a one-line summary per collected check.
func (w *MarkdownWriter) writeChecks(md *markdown.Markdown, result *model.ScanResult) {
	md.H2("Check Results")
	md.PlainText("")

	rows := checkSummaries(result.Checks)
	if len(rows) == 0 {
		md.PlainText("No checks produced data.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Check", "Result"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSandbox writes the page-load analysis section when a capture ran.
func (w *MarkdownWriter) writeSandbox(md *markdown.Markdown, result *model.ScanResult) {
	sb := result.Checks.Sandbox
	if sb == nil {
		return
	}

	md.H2("Page Load Analysis")
	md.PlainText("")
	md.PlainTextf("The page issued %d requests, %d of them suspicious (overall: %s).",
		sb.Summary.TotalRequests, sb.Summary.SuspiciousCount, sb.Summary.OverallRisk.String())
	md.PlainText("")

	if suspicious := suspiciousClassifications(sb.Classified); len(suspicious) > 0 {
		rows := make([][]string, len(suspicious))
		for i, c := range suspicious {
			rows[i] = []string{
				"`" + truncateString(c.Request.URL, 60) + "`",
				c.RiskLevel.String(),
				categoryList(c.Categories),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Request", "Risk", "Categories"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(sb.ThirdPartyDomains) > 0 {
		md.PlainTextf("Third-party domains contacted (%d):", len(sb.ThirdPartyDomains))
		md.PlainText("")
		md.BulletList(sb.ThirdPartyDomains...)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by urlsentry*")
}

// checkSummaries builds one human-readable row per collected check.
func checkSummaries(c model.Checks) [][]string {
	var rows [][]string
	add := func(name, summary string) {
		rows = append(rows, []string{name, summary})
	}

	if r := c.Whois; r != nil {
		summary := fmt.Sprintf("domain age %d days", r.AgeInDays)
		if r.Registrar != "" {
			summary += ", registrar " + r.Registrar
		}
		add("whois", summary)
	}
	if r := c.TLS; r != nil {
		switch {
		case !r.Present:
			add("tls", "no TLS listener")
		case !r.Valid:
			add("tls", "invalid certificate")
		default:
			add("tls", fmt.Sprintf("TLS %s, valid, expires in %d days, %s cipher",
				r.Version, r.DaysUntilExpiry, r.CipherStrength))
		}
	}
	if r := c.SafeBrowsing; r != nil {
		if r.Safe {
			add("safe_browsing", "not in the threat database")
		} else {
			add("safe_browsing", "FLAGGED: "+strings.Join(r.Threats, ", "))
		}
	}
	if r := c.ReverseDNS; r != nil {
		if r.Match {
			add("reverse_dns", "PTR record matches the domain")
		} else {
			add("reverse_dns", "PTR record does not match the domain")
		}
	}
	if r := c.Geolocation; r != nil {
		add("geolocation", fmt.Sprintf("%s (%s, %s)", r.IP, r.Country, r.ISP))
	}
	if r := c.IPReputation; r != nil {
		add("ip_reputation", fmt.Sprintf("abuse score %d/100, %d reports", r.AbuseScore, r.TotalReports))
	}
	if r := c.PortScan; r != nil {
		summary := fmt.Sprintf("%d open ports", len(r.OpenPorts))
		if len(r.SuspiciousPorts) > 0 {
			summary += fmt.Sprintf(", %d suspicious %v", len(r.SuspiciousPorts), r.SuspiciousPorts)
		}
		add("port_scan", summary)
	}
	if r := c.SecurityHeaders; r != nil {
		add("security_headers", fmt.Sprintf("grade %s (%d of %d recommended headers present)",
			r.Grade, len(r.Present), len(r.Present)+len(r.Missing)))
	}
	if r := c.CookieSecurity; r != nil {
		add("cookie_security", fmt.Sprintf("%d cookies, %d issues", r.TotalCookies, len(r.Issues)))
	}
	if r := c.SensitiveFiles; r != nil {
		if len(r.ExposedFiles) == 0 {
			add("sensitive_files", "no sensitive files exposed")
		} else {
			add("sensitive_files", fmt.Sprintf("%d exposed (%d critical, %d high)",
				len(r.ExposedFiles), r.CriticalCount, r.HighCount))
		}
	}
	if r := c.VersionDisclosure; r != nil {
		add("version_disclosure", fmt.Sprintf("%d disclosures, %s risk", len(r.Disclosures), r.RiskLevel))
	}
	if r := c.AdminPanels; r != nil {
		add("admin_panels", fmt.Sprintf("%d reachable endpoints", len(r.Endpoints)))
	}
	if r := c.Sandbox; r != nil {
		add("sandbox", fmt.Sprintf("%d requests, %d suspicious", r.Summary.TotalRequests, r.Summary.SuspiciousCount))
	}

	return rows
}

// suspiciousClassifications filters the classified set down to the
// suspicious entries, preserving order.
func suspiciousClassifications(classified []model.Classification) []model.Classification {
	var out []model.Classification
	for _, c := range classified {
		if c.Suspicious {
			out = append(out, c)
		}
	}
	return out
}

// categoryList joins category tags for table cells.
func categoryList(categories []model.Category) string {
	if len(categories) == 0 {
		return "-"
	}
	parts := make([]string, len(categories))
	for i, cat := range categories {
		parts[i] = string(cat)
	}
	return strings.Join(parts, ", ")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
