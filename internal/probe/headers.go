package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urlsentry/urlsentry/internal/model"
)

// recommendedHeaders are the response headers a well-configured site
// should send, in report order.
var recommendedHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
	"Permissions-Policy",
}

// HeadersProbe grades the target's security-header posture A-F.
type HeadersProbe struct {
	// client performs the request.
	client *http.Client

	// userAgent is the User-Agent header to present.
	userAgent string

	// timeout is the per-request timeout.
	timeout time.Duration
}

// HeadersOption configures a HeadersProbe.
type HeadersOption func(*HeadersProbe)

// WithHeadersTimeout sets the per-request timeout.
func WithHeadersTimeout(timeout time.Duration) HeadersOption {
	return func(p *HeadersProbe) {
		p.timeout = timeout
	}
}

// NewHeadersProbe creates a security-header probe on the given client.
func NewHeadersProbe(client *http.Client, opts ...HeadersOption) *HeadersProbe {
	p := &HeadersProbe{
		client:    client,
		userAgent: defaultUserAgent,
		timeout:   15 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Inspect fetches the URL and grades which recommended headers are set.
func (p *HeadersProbe) Inspect(ctx context.Context, targetURL string) (*model.SecurityHeadersResult, error) {
	resp, err := fetchHead(ctx, p.client, targetURL, p.userAgent, p.timeout)
	if err != nil {
		return nil, fmt.Errorf("header inspection failed: %w", err)
	}
	defer resp.Body.Close()

	result := &model.SecurityHeadersResult{
		Present: make([]string, 0, len(recommendedHeaders)),
		Missing: make([]string, 0),
	}

	for _, header := range recommendedHeaders {
		if resp.Header.Get(header) != "" {
			result.Present = append(result.Present, header)
		} else {
			result.Missing = append(result.Missing, header)
		}
	}

	result.Grade = headerGrade(len(result.Missing))
	return result, nil
}

// headerGrade maps the number of missing recommended headers to a grade.
func headerGrade(missing int) string {
	switch missing {
	case 0:
		return "A"
	case 1:
		return "B"
	case 2:
		return "C"
	case 3:
		return "D"
	default:
		return "F"
	}
}

// defaultUserAgent mimics a mainstream browser. Sites commonly vary
// their headers and cookies for unknown agents.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

// fetchHead issues a GET with the shared header set and a bounded
// timeout, returning the response with an unread body.
func fetchHead(ctx context.Context, client *http.Client, targetURL, userAgent string, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := doGet(ctx, client, targetURL, userAgent)
	if err != nil {
		cancel()
		return nil, err
	}
	// The cancel has to outlive the caller's body read; tie it to Close.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func doGet(ctx context.Context, client *http.Client, targetURL, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	return client.Do(req)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
