package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/urlsentry/urlsentry/internal/cache"
	"github.com/urlsentry/urlsentry/internal/model"
)

// GeolocationProbe resolves the host's IP location through a JSON
// geolocation API (ip-api.com wire format).
type GeolocationProbe struct {
	// client performs the requests.
	client *http.Client

	// baseURL is the API endpoint; the IP is appended as a path segment.
	baseURL string

	// timeout is the per-request timeout.
	timeout time.Duration

	// cache holds previous responses; nil disables caching.
	cache *cache.LookupCache
}

// GeolocationOption configures a GeolocationProbe.
type GeolocationOption func(*GeolocationProbe)

// WithGeolocationEndpoint overrides the API endpoint. Used by tests and
// self-hosted mirrors.
func WithGeolocationEndpoint(baseURL string) GeolocationOption {
	return func(p *GeolocationProbe) {
		p.baseURL = baseURL
	}
}

// WithGeolocationTimeout sets the per-request timeout.
func WithGeolocationTimeout(timeout time.Duration) GeolocationOption {
	return func(p *GeolocationProbe) {
		p.timeout = timeout
	}
}

// WithGeolocationCache enables response caching.
func WithGeolocationCache(c *cache.LookupCache) GeolocationOption {
	return func(p *GeolocationProbe) {
		p.cache = c
	}
}

// NewGeolocationProbe creates a geolocation probe on the given client.
func NewGeolocationProbe(client *http.Client, opts ...GeolocationOption) *GeolocationProbe {
	p := &GeolocationProbe{
		client:  client,
		baseURL: "http://ip-api.com/json",
		timeout: 15 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// geolocationResponse is the upstream wire format.
type geolocationResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	ISP         string `json:"isp"`
	Org         string `json:"org"`
	Query       string `json:"query"`
}

// Lookup resolves the location of the given IP.
func (p *GeolocationProbe) Lookup(ctx context.Context, ip string) (*model.GeolocationResult, error) {
	if p.cache != nil {
		var cached model.GeolocationResult
		if err := p.cache.Get(ctx, cache.KindGeolocation, ip, &cached); err == nil {
			return &cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+ip, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation lookup failed: status %d", resp.StatusCode)
	}

	var body geolocationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geolocation response malformed: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("geolocation lookup rejected: %s", body.Message)
	}

	result := &model.GeolocationResult{
		IP:          body.Query,
		Country:     body.Country,
		CountryCode: body.CountryCode,
		City:        body.City,
		ISP:         body.ISP,
		Org:         body.Org,
	}
	if result.IP == "" {
		result.IP = ip
	}

	if p.cache != nil {
		_ = p.cache.Put(ctx, cache.KindGeolocation, ip, result)
	}

	return result, nil
}
