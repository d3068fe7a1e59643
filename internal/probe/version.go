package probe

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/urlsentry/urlsentry/internal/model"
)

// versionHeaders are the response headers that commonly leak software
// versions, in report order.
var versionHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
	"X-Generator",
}

// patchVersionPattern matches a full x.y.z version, precise enough to
// look up known vulnerabilities against.
var patchVersionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// minorVersionPattern matches a product with at least a x.y version.
var minorVersionPattern = regexp.MustCompile(`\d+\.\d+`)

// VersionProbe detects software version disclosure in response headers.
type VersionProbe struct {
	// client performs the request.
	client *http.Client

	// userAgent is the User-Agent header to present.
	userAgent string

	// timeout is the per-request timeout.
	timeout time.Duration
}

// VersionOption configures a VersionProbe.
type VersionOption func(*VersionProbe)

// WithVersionTimeout sets the per-request timeout.
func WithVersionTimeout(timeout time.Duration) VersionOption {
	return func(p *VersionProbe) {
		p.timeout = timeout
	}
}

// NewVersionProbe creates a version-disclosure probe on the given client.
func NewVersionProbe(client *http.Client, opts ...VersionOption) *VersionProbe {
	p := &VersionProbe{
		client:    client,
		userAgent: defaultUserAgent,
		timeout:   15 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Inspect fetches the URL and collects every version-leaking header.
// The finding is graded by precision: an exact patch version is worth
// more to an attacker than a bare product name.
func (p *VersionProbe) Inspect(ctx context.Context, targetURL string) (*model.VersionDisclosureResult, error) {
	resp, err := fetchHead(ctx, p.client, targetURL, p.userAgent, p.timeout)
	if err != nil {
		return nil, fmt.Errorf("version inspection failed: %w", err)
	}
	defer resp.Body.Close()

	result := &model.VersionDisclosureResult{
		RiskLevel: model.RiskLow,
	}

	for _, header := range versionHeaders {
		value := resp.Header.Get(header)
		if value == "" {
			continue
		}
		result.Disclosures = append(result.Disclosures, header+": "+value)

		switch {
		case patchVersionPattern.MatchString(value):
			result.RiskLevel = model.RiskHigh
		case minorVersionPattern.MatchString(value) && result.RiskLevel < model.RiskMedium:
			result.RiskLevel = model.RiskMedium
		}
	}

	return result, nil
}
