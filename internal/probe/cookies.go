package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urlsentry/urlsentry/internal/model"
)

// CookiesProbe audits the Set-Cookie headers of the target's landing
// page for the Secure and HttpOnly attributes.
type CookiesProbe struct {
	// client performs the request.
	client *http.Client

	// userAgent is the User-Agent header to present.
	userAgent string

	// timeout is the per-request timeout.
	timeout time.Duration
}

// CookiesOption configures a CookiesProbe.
type CookiesOption func(*CookiesProbe)

// WithCookiesTimeout sets the per-request timeout.
func WithCookiesTimeout(timeout time.Duration) CookiesOption {
	return func(p *CookiesProbe) {
		p.timeout = timeout
	}
}

// NewCookiesProbe creates a cookie audit probe on the given client.
func NewCookiesProbe(client *http.Client, opts ...CookiesOption) *CookiesProbe {
	p := &CookiesProbe{
		client:    client,
		userAgent: defaultUserAgent,
		timeout:   15 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Inspect fetches the URL and audits every cookie the response sets.
// A response setting no cookies reports a clean result with ratio 1.0.
func (p *CookiesProbe) Inspect(ctx context.Context, targetURL string) (*model.CookieSecurityResult, error) {
	resp, err := fetchHead(ctx, p.client, targetURL, p.userAgent, p.timeout)
	if err != nil {
		return nil, fmt.Errorf("cookie inspection failed: %w", err)
	}
	defer resp.Body.Close()

	result := &model.CookieSecurityResult{
		SecureRatio: 1.0,
	}

	cookies := resp.Cookies()
	result.TotalCookies = len(cookies)
	if len(cookies) == 0 {
		return result, nil
	}

	for _, cookie := range cookies {
		if cookie.Secure {
			result.SecureCount++
		} else {
			result.Issues = append(result.Issues,
				fmt.Sprintf("cookie %q lacks the Secure attribute", cookie.Name))
		}
		if cookie.HttpOnly {
			result.HTTPOnlyCount++
		} else {
			result.Issues = append(result.Issues,
				fmt.Sprintf("cookie %q lacks the HttpOnly attribute", cookie.Name))
		}
	}

	result.SecureRatio = float64(result.SecureCount) / float64(result.TotalCookies)
	return result, nil
}
