package sandbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/urlsentry/urlsentry/internal/model"
)

// Capture is the finalized outcome of one sandboxed page load.
type Capture struct {
	// Records holds every observed request, the document first.
	Records []model.NetworkRequestRecord

	// Completed is false when the document fetch or the HTML parse
	// failed. Partial captures are still handed to the classifier.
	Completed bool

	// ThirdPartyDomains lists the distinct registrable domains contacted
	// outside the origin, sorted for stable output.
	ThirdPartyDomains []string
}

// Collector performs the sandboxed page load: one document fetch, a static
// extraction of every subresource the page would request, and a bounded
// HEAD sweep to observe response statuses.
type Collector struct {
	// client is the HTTP client used for the document fetch and the
	// subresource sweep.
	client *http.Client

	// userAgent is the User-Agent header to present.
	userAgent string

	// maxBodySize limits how much of the document body is read.
	maxBodySize int64

	// maxRequests caps how many subresource records one capture produces.
	// This prevents runaway captures on asset-heavy pages.
	maxRequests int

	// probeConcurrency bounds the parallel HEAD sweep.
	probeConcurrency int

	// probeStatuses disables the HEAD sweep when false; records then
	// carry status 0, meaning "response never observed".
	probeStatuses bool
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) CollectorOption {
	return func(c *Collector) {
		c.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum document body size to read.
func WithMaxBodySize(size int64) CollectorOption {
	return func(c *Collector) {
		c.maxBodySize = size
	}
}

// WithMaxRequests caps the number of subresource records per capture.
func WithMaxRequests(limit int) CollectorOption {
	return func(c *Collector) {
		c.maxRequests = limit
	}
}

// WithProbeConcurrency bounds the parallel status sweep.
func WithProbeConcurrency(workers int) CollectorOption {
	return func(c *Collector) {
		if workers > 0 {
			c.probeConcurrency = workers
		}
	}
}

// WithoutStatusProbing disables the HEAD sweep over extracted
// subresources. Captures finish faster and records carry status 0.
func WithoutStatusProbing() CollectorOption {
	return func(c *Collector) {
		c.probeStatuses = false
	}
}

// NewCollector creates a Collector using the given HTTP client.
//
// Design decision: We require an external client because:
//  1. Timeout and transport policy belong to the caller's config
//  2. Consistent with the probe constructors
//  3. Allows httptest clients in tests
func NewCollector(client *http.Client, opts ...CollectorOption) *Collector {
	c := &Collector{
		client:           client,
		userAgent:        "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
		maxBodySize:      10 * 1024 * 1024, // 10MB
		maxRequests:      200,
		probeConcurrency: 8,
		probeStatuses:    true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Collect loads the target page and returns the finalized request set.
// Fetch and parse failures degrade to a partial capture rather than an
// error; only an unusable target URL fails.
func (c *Collector) Collect(ctx context.Context, targetURL string) (*Capture, error) {
	target, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", target.Scheme)
	}

	capture := &Capture{
		Records: make([]model.NetworkRequestRecord, 0, 1),
	}

	docRecord := model.NetworkRequestRecord{
		URL:          target.String(),
		Domain:       strings.ToLower(target.Hostname()),
		ResourceType: model.ResourceDocument,
	}

	body, status, err := c.fetchDocument(ctx, target.String())
	docRecord.Status = status
	capture.Records = append(capture.Records, docRecord)
	if err != nil {
		capture.ThirdPartyDomains = thirdPartyDomains(capture.Records, target.Hostname())
		return capture, nil
	}

	refs, parseErr := c.extractRefs(target.String(), body)
	if len(refs) > c.maxRequests {
		refs = refs[:c.maxRequests]
	}

	records := make([]model.NetworkRequestRecord, len(refs))
	for i, ref := range refs {
		u, err := url.Parse(ref.url)
		if err != nil {
			continue
		}
		records[i] = model.NetworkRequestRecord{
			URL:          ref.url,
			Domain:       strings.ToLower(u.Hostname()),
			ResourceType: ref.resourceType,
		}
	}

	if c.probeStatuses {
		c.sweepStatuses(ctx, records)
	}

	capture.Records = append(capture.Records, records...)
	capture.Completed = parseErr == nil && ctx.Err() == nil
	capture.ThirdPartyDomains = thirdPartyDomains(capture.Records, target.Hostname())

	return capture, nil
}

// fetchDocument fetches the target page and returns its body and status.
func (c *Collector) fetchDocument(ctx context.Context, pageURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", 0, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return "", resp.StatusCode, err
	}

	return string(body), resp.StatusCode, nil
}

// extractRefs parses the document body for subresource references.
func (c *Collector) extractRefs(pageURL, body string) ([]resourceRef, error) {
	parser, err := newPageParser(pageURL)
	if err != nil {
		return nil, err
	}
	return parser.parse(strings.NewReader(body))
}

// sweepStatuses issues bounded parallel HEAD requests to observe each
// subresource's response status. Failures leave the status at 0.
func (c *Collector) sweepStatuses(ctx context.Context, records []model.NetworkRequestRecord) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.probeConcurrency)

	for i := range records {
		g.Go(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, records[i].URL, nil)
			if err != nil {
				return nil //nolint:nilerr // a bad URL is a finding, not a sweep failure
			}
			req.Header.Set("User-Agent", c.userAgent)

			resp, err := c.client.Do(req)
			if err != nil {
				return nil //nolint:nilerr // unreachable subresources keep status 0
			}
			resp.Body.Close()
			records[i].Status = resp.StatusCode
			return nil
		})
	}

	// Workers only return nil; Wait is for completion, not errors.
	_ = g.Wait()
}

// thirdPartyDomains returns the distinct registrable domains in the
// records that differ from the origin's registrable domain, sorted.
func thirdPartyDomains(records []model.NetworkRequestRecord, originHost string) []string {
	origin := registrableDomain(originHost)

	seen := make(map[string]bool)
	for _, r := range records {
		domain := registrableDomain(r.Domain)
		if domain == "" || domain == origin {
			continue
		}
		seen[domain] = true
	}

	if len(seen) == 0 {
		return nil
	}

	domains := make([]string, 0, len(seen))
	for domain := range seen {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains
}

// registrableDomain reduces a hostname to its eTLD+1, falling back to the
// hostname itself for IPs and unlisted suffixes.
func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}
