package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/urlsentry/urlsentry/internal/cache"
	"github.com/urlsentry/urlsentry/internal/model"
)

// ReputationProbe queries an abuse database (AbuseIPDB v2 wire format)
// for the host IP's abuse confidence score and report volume.
type ReputationProbe struct {
	// client performs the requests.
	client *http.Client

	// endpoint is the check endpoint URL.
	endpoint string

	// apiKey authenticates the lookup.
	apiKey string

	// maxAgeDays limits how far back reports are counted.
	maxAgeDays int

	// timeout is the per-request timeout.
	timeout time.Duration

	// cache holds previous responses; nil disables caching.
	cache *cache.LookupCache
}

// ReputationOption configures a ReputationProbe.
type ReputationOption func(*ReputationProbe)

// WithReputationEndpoint overrides the API endpoint. Used by tests.
func WithReputationEndpoint(endpoint string) ReputationOption {
	return func(p *ReputationProbe) {
		p.endpoint = endpoint
	}
}

// WithReputationTimeout sets the per-request timeout.
func WithReputationTimeout(timeout time.Duration) ReputationOption {
	return func(p *ReputationProbe) {
		p.timeout = timeout
	}
}

// WithReputationMaxAge limits how far back reports are counted, in days.
func WithReputationMaxAge(days int) ReputationOption {
	return func(p *ReputationProbe) {
		p.maxAgeDays = days
	}
}

// WithReputationCache enables response caching.
func WithReputationCache(c *cache.LookupCache) ReputationOption {
	return func(p *ReputationProbe) {
		p.cache = c
	}
}

// NewReputationProbe creates an IP reputation probe on the given client.
func NewReputationProbe(client *http.Client, apiKey string, opts ...ReputationOption) *ReputationProbe {
	p := &ReputationProbe{
		client:     client,
		endpoint:   "https://api.abuseipdb.com/api/v2/check",
		apiKey:     apiKey,
		maxAgeDays: 90,
		timeout:    15 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// reputationResponse is the upstream wire format.
type reputationResponse struct {
	Data struct {
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		TotalReports         int    `json:"totalReports"`
		ISP                  string `json:"isp"`
		CountryCode          string `json:"countryCode"`
	} `json:"data"`
}

// Lookup resolves the abuse reputation of the given IP. Without an API
// key the check returns ErrNoAPIKey and stays absent.
func (p *ReputationProbe) Lookup(ctx context.Context, ip string) (*model.IPReputationResult, error) {
	if p.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	if p.cache != nil {
		var cached model.IPReputationResult
		if err := p.cache.Get(ctx, cache.KindReputation, ip, &cached); err == nil {
			return &cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("ipAddress", ip)
	query.Set("maxAgeInDays", fmt.Sprintf("%d", p.maxAgeDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reputation lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reputation lookup failed: status %d", resp.StatusCode)
	}

	var body reputationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("reputation response malformed: %w", err)
	}

	result := &model.IPReputationResult{
		AbuseScore:   body.Data.AbuseConfidenceScore,
		TotalReports: body.Data.TotalReports,
		ISP:          body.Data.ISP,
		CountryCode:  body.Data.CountryCode,
	}

	if p.cache != nil {
		_ = p.cache.Put(ctx, cache.KindReputation, ip, result)
	}

	return result, nil
}
