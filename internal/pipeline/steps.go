package pipeline

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/urlsentry/urlsentry/internal/cache"
	"github.com/urlsentry/urlsentry/internal/classify"
	"github.com/urlsentry/urlsentry/internal/config"
	"github.com/urlsentry/urlsentry/internal/model"
	"github.com/urlsentry/urlsentry/internal/policy"
	"github.com/urlsentry/urlsentry/internal/probe"
	"github.com/urlsentry/urlsentry/internal/sandbox"
	"github.com/urlsentry/urlsentry/internal/score"
)

// stepBase holds the fields every step shares. Probes are injected fully
// configured, so the only per-step knob left is the logger.
type stepBase struct {
	logger *slog.Logger
}

// StepOption configures the shared fields of any step in this package.
type StepOption func(*stepBase)

// WithStepLogger sets a custom logger for a step.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(b *stepBase) {
		b.logger = logger
	}
}

func newStepBase(opts ...StepOption) stepBase {
	b := stepBase{logger: slog.Default()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// skip handles a probe error uniformly: cancellation propagates, everything
// else leaves the check absent. Absent checks are "no signal" to the
// scorer, so an unreachable probe never changes the score on its own.
func (b stepBase) skip(ctx context.Context, check string, err error, attrs ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if probe.IsAbsent(err) {
		b.logger.Debug("check skipped, no data available", append([]any{"check", check, "reason", err}, attrs...)...)
	} else {
		b.logger.Debug("check failed, leaving it absent", append([]any{"check", check, "error", err}, attrs...)...)
	}
	return nil
}

// hostIP returns the IP address for the scanned domain, reusing the
// address an earlier step already resolved where possible.
func hostIP(ctx context.Context, result *model.ScanResult) (string, error) {
	if ip := net.ParseIP(result.Domain); ip != nil {
		return result.Domain, nil
	}
	if r := result.Checks.ReverseDNS; r != nil && r.IP != "" {
		return r.IP, nil
	}
	if g := result.Checks.Geolocation; g != nil && g.IP != "" {
		return g.IP, nil
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, result.Domain)
	if err != nil {
		return "", err
	}
	return addrs[0], nil
}

// WhoisStep looks up the domain registration data.
// Domain age is the single strongest phishing signal this scanner has, so
// this step runs first.
type WhoisStep struct {
	stepBase
	probe *probe.WhoisProbe
}

// NewWhoisStep creates a WHOIS lookup step around a configured probe.
func NewWhoisStep(p *probe.WhoisProbe, opts ...StepOption) *WhoisStep {
	return &WhoisStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *WhoisStep) Name() string { return "whois" }

// Do executes the WHOIS lookup step.
func (s *WhoisStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Lookup(ctx, result.Domain)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "domain", result.Domain)
	}
	result.Checks.Whois = r
	return nil
}

// TLSStep inspects the TLS listener on the scanned host.
type TLSStep struct {
	stepBase
	probe *probe.TLSProbe
}

// NewTLSStep creates a TLS inspection step around a configured probe.
func NewTLSStep(p *probe.TLSProbe, opts ...StepOption) *TLSStep {
	return &TLSStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *TLSStep) Name() string { return "tls" }

// Do executes the TLS inspection step. An absent listener is itself a
// finding (Present=false), not a skipped check.
func (s *TLSStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Inspect(ctx, result.Domain)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "host", result.Domain)
	}
	result.Checks.TLS = r
	return nil
}

// ReverseDNSStep checks whether the host's PTR records point back at the
// scanned domain. It also resolves the host IP that later lookup steps
// reuse.
type ReverseDNSStep struct {
	stepBase
	probe *probe.ReverseDNSProbe
}

// NewReverseDNSStep creates a reverse DNS step around a configured probe.
func NewReverseDNSStep(p *probe.ReverseDNSProbe, opts ...StepOption) *ReverseDNSStep {
	return &ReverseDNSStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *ReverseDNSStep) Name() string { return "reverse_dns" }

// Do executes the reverse DNS step.
func (s *ReverseDNSStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Lookup(ctx, result.Domain)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "domain", result.Domain)
	}
	result.Checks.ReverseDNS = r
	return nil
}

// GeolocationStep looks up where the host IP is located and who operates it.
type GeolocationStep struct {
	stepBase
	probe *probe.GeolocationProbe
}

// NewGeolocationStep creates a geolocation step around a configured probe.
func NewGeolocationStep(p *probe.GeolocationProbe, opts ...StepOption) *GeolocationStep {
	return &GeolocationStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *GeolocationStep) Name() string { return "geolocation" }

// Do executes the geolocation step.
func (s *GeolocationStep) Do(ctx context.Context, result *model.ScanResult) error {
	ip, err := hostIP(ctx, result)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "domain", result.Domain)
	}

	r, err := s.probe.Lookup(ctx, ip)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "ip", ip)
	}
	result.Checks.Geolocation = r
	return nil
}

// SafeBrowsingStep checks the URL against the threat database. An unsafe
// verdict is the one signal that overrides everything else: the scoring
// step collapses the score to zero when this check comes back unsafe.
type SafeBrowsingStep struct {
	stepBase
	probe *probe.SafeBrowsingProbe
}

// NewSafeBrowsingStep creates a threat-database step around a configured probe.
func NewSafeBrowsingStep(p *probe.SafeBrowsingProbe, opts ...StepOption) *SafeBrowsingStep {
	return &SafeBrowsingStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *SafeBrowsingStep) Name() string { return "safe_browsing" }

// Do executes the threat-database check. Without an API key the check
// stays absent; the scan never assumes safe.
func (s *SafeBrowsingStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Check(ctx, result.URL)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "url", result.URL)
	}
	result.Checks.SafeBrowsing = r
	return nil
}

// ReputationStep checks the host IP against the abuse report database.
type ReputationStep struct {
	stepBase
	probe *probe.ReputationProbe
}

// NewReputationStep creates an IP reputation step around a configured probe.
func NewReputationStep(p *probe.ReputationProbe, opts ...StepOption) *ReputationStep {
	return &ReputationStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *ReputationStep) Name() string { return "ip_reputation" }

// Do executes the IP reputation step.
func (s *ReputationStep) Do(ctx context.Context, result *model.ScanResult) error {
	ip, err := hostIP(ctx, result)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "domain", result.Domain)
	}

	r, err := s.probe.Lookup(ctx, ip)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "ip", ip)
	}
	result.Checks.IPReputation = r
	return nil
}

// PortScanStep runs the TCP connect scan against the scanned host.
type PortScanStep struct {
	stepBase
	scanner *probe.PortScanner
}

// NewPortScanStep creates a port scanning step around a configured scanner.
func NewPortScanStep(scanner *probe.PortScanner, opts ...StepOption) *PortScanStep {
	return &PortScanStep{stepBase: newStepBase(opts...), scanner: scanner}
}

// Name returns the step name.
func (s *PortScanStep) Name() string { return "port_scan" }

// Do executes the port scanning step.
func (s *PortScanStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.scanner.Scan(ctx, result.Domain)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "host", result.Domain)
	}
	result.Checks.PortScan = r
	return nil
}

// HeadersStep grades the security-header posture of the landing page.
type HeadersStep struct {
	stepBase
	probe *probe.HeadersProbe
}

// NewHeadersStep creates a security-header step around a configured probe.
func NewHeadersStep(p *probe.HeadersProbe, opts ...StepOption) *HeadersStep {
	return &HeadersStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *HeadersStep) Name() string { return "security_headers" }

// Do executes the security-header step.
func (s *HeadersStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Inspect(ctx, result.URL)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "url", result.URL)
	}
	result.Checks.SecurityHeaders = r
	return nil
}

// CookiesStep audits the Secure/HttpOnly attributes on served cookies.
type CookiesStep struct {
	stepBase
	probe *probe.CookiesProbe
}

// NewCookiesStep creates a cookie audit step around a configured probe.
func NewCookiesStep(p *probe.CookiesProbe, opts ...StepOption) *CookiesStep {
	return &CookiesStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *CookiesStep) Name() string { return "cookie_security" }

// Do executes the cookie audit step.
func (s *CookiesStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Inspect(ctx, result.URL)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "url", result.URL)
	}
	result.Checks.CookieSecurity = r
	return nil
}

// FilesStep sweeps for publicly reachable sensitive files.
type FilesStep struct {
	stepBase
	probe *probe.FilesProbe
}

// NewFilesStep creates a sensitive-file sweep step around a configured probe.
func NewFilesStep(p *probe.FilesProbe, opts ...StepOption) *FilesStep {
	return &FilesStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *FilesStep) Name() string { return "sensitive_files" }

// Do executes the sensitive-file sweep step.
func (s *FilesStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Sweep(ctx, result.URL)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "url", result.URL)
	}
	result.Checks.SensitiveFiles = r
	return nil
}

// VersionStep inspects response headers for leaked software versions.
type VersionStep struct {
	stepBase
	probe *probe.VersionProbe
}

// NewVersionStep creates a version-disclosure step around a configured probe.
func NewVersionStep(p *probe.VersionProbe, opts ...StepOption) *VersionStep {
	return &VersionStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *VersionStep) Name() string { return "version_disclosure" }

// Do executes the version-disclosure step.
func (s *VersionStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Inspect(ctx, result.URL)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "url", result.URL)
	}
	result.Checks.VersionDisclosure = r
	return nil
}

// AdminPanelsStep sweeps for reachable admin panels and debug consoles.
type AdminPanelsStep struct {
	stepBase
	probe *probe.AdminPanelsProbe
}

// NewAdminPanelsStep creates an admin-panel sweep step around a configured probe.
func NewAdminPanelsStep(p *probe.AdminPanelsProbe, opts ...StepOption) *AdminPanelsStep {
	return &AdminPanelsStep{stepBase: newStepBase(opts...), probe: p}
}

// Name returns the step name.
func (s *AdminPanelsStep) Name() string { return "admin_panels" }

// Do executes the admin-panel sweep step.
func (s *AdminPanelsStep) Do(ctx context.Context, result *model.ScanResult) error {
	r, err := s.probe.Sweep(ctx, result.URL)
	if err != nil {
		return s.skip(ctx, s.Name(), err, "url", result.URL)
	}
	result.Checks.AdminPanels = r
	return nil
}

// SandboxStep loads the page in the request sandbox, classifies every
// captured request, and stores the aggregated verdict.
//
// Design decision: Capture and classification live in one step because
// the raw request records are intermediate data. Keeping them inside the
// step means the scan result only carries classified, report-ready
// output.
type SandboxStep struct {
	stepBase
	collector  *sandbox.Collector
	aggregator *classify.Aggregator
}

// NewSandboxStep creates a sandbox step around a configured collector and
// aggregator.
func NewSandboxStep(collector *sandbox.Collector, aggregator *classify.Aggregator, opts ...StepOption) *SandboxStep {
	return &SandboxStep{
		stepBase:   newStepBase(opts...),
		collector:  collector,
		aggregator: aggregator,
	}
}

// Name returns the step name.
func (s *SandboxStep) Name() string { return "sandbox" }

// Do executes the sandbox step. Partial captures still classify: a page
// that breaks the capture mid-load is exactly the kind of page this check
// exists for, and the incomplete capture itself costs points at scoring.
func (s *SandboxStep) Do(ctx context.Context, result *model.ScanResult) error {
	capture, err := s.collector.Collect(ctx, result.URL)
	if err != nil {
		// Collect only errors on unusable targets; that is a scan-level
		// problem, not a probe hiccup.
		return err
	}

	agg := s.aggregator.Aggregate(capture.Records, result.Domain)

	result.Checks.Sandbox = &model.SandboxResult{
		Summary:           agg.Summary,
		Completed:         capture.Completed,
		ThirdPartyDomains: capture.ThirdPartyDomains,
		Classified:        agg.Classified,
	}

	s.logger.Info("sandbox capture classified",
		"requests", agg.Summary.TotalRequests,
		"suspicious", agg.Summary.SuspiciousCount,
		"completed", capture.Completed,
	)
	return nil
}

// ScoreStep reduces the collected checks into the final safety score.
// It must be the last step; anything that runs after it will not be priced.
type ScoreStep struct {
	stepBase
	scorer *score.Scorer
}

// NewScoreStep creates a scoring step around a configured scorer.
func NewScoreStep(scorer *score.Scorer, opts ...StepOption) *ScoreStep {
	return &ScoreStep{stepBase: newStepBase(opts...), scorer: scorer}
}

// Name returns the step name.
func (s *ScoreStep) Name() string { return "score" }

// Do executes the scoring step.
func (s *ScoreStep) Do(_ context.Context, result *model.ScanResult) error {
	s.scorer.Apply(result)

	s.logger.Info("scan scored",
		"url", result.URL,
		"score", result.Score,
		"deductions", len(result.Deductions),
	)
	return nil
}

// DefaultPipeline creates a pipeline with all default steps configured
// from the scan config. This is the standard pipeline for a full scan.
//
// Design decision: We provide a default pipeline because:
// 1. Most users want all checks
// 2. Reduces boilerplate in the CLI
// 3. Ensures the scoring step always runs last
//
// lookupCache may be nil, which disables caching on the lookup probes.
// Returns an error only when the configured policy file cannot be loaded.
func DefaultPipeline(client *http.Client, cfg *config.Config, lookupCache *cache.LookupCache, pipelineOpts ...Option) (*Pipeline, error) {
	p := New(pipelineOpts...)

	pol := policy.New()
	if cfg.PolicyFile != "" {
		var err error
		pol, err = policy.FromFile(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
	}

	p.AddSteps(
		NewWhoisStep(probe.NewWhoisProbe(
			probe.WithWhoisTimeout(cfg.Timeout),
			probe.WithWhoisCache(lookupCache),
		)),
		NewTLSStep(probe.NewTLSProbe(
			probe.WithTLSTimeout(cfg.Timeout),
		)),
		NewReverseDNSStep(probe.NewReverseDNSProbe()),
		NewGeolocationStep(probe.NewGeolocationProbe(client,
			probe.WithGeolocationCache(lookupCache),
		)),
		NewSafeBrowsingStep(probe.NewSafeBrowsingProbe(client, cfg.SafeBrowsingAPIKey)),
		NewReputationStep(probe.NewReputationProbe(client, cfg.AbuseIPDBAPIKey,
			probe.WithReputationCache(lookupCache),
		)),
		NewPortScanStep(probe.NewPortScanner()),
		NewHeadersStep(probe.NewHeadersProbe(client)),
		NewCookiesStep(probe.NewCookiesProbe(client)),
		NewFilesStep(probe.NewFilesProbe(client)),
		NewVersionStep(probe.NewVersionProbe(client)),
		NewAdminPanelsStep(probe.NewAdminPanelsProbe(client)),
	)

	if !cfg.DisableSandbox {
		collectorOpts := []sandbox.CollectorOption{
			sandbox.WithUserAgent(cfg.UserAgent),
		}
		if cfg.MaxBodySize > 0 {
			collectorOpts = append(collectorOpts, sandbox.WithMaxBodySize(cfg.MaxBodySize))
		}
		if cfg.SandboxMaxRequests > 0 {
			collectorOpts = append(collectorOpts, sandbox.WithMaxRequests(cfg.SandboxMaxRequests))
		}

		p.AddStep(NewSandboxStep(
			sandbox.NewCollector(client, collectorOpts...),
			classify.NewAggregator(classify.NewClassifier(pol)),
		))
	}

	// Scoring always runs last so every collected check is priced.
	p.AddStep(NewScoreStep(score.NewScorer(score.DefaultWeights())))

	return p, nil
}
