package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/urlsentry/urlsentry/internal/model"
)

// SafeBrowsingProbe queries a threat database in the Safe Browsing v4
// wire format. Its verdict is the scan's single fail-fast signal: a match
// forces the safety score to zero.
type SafeBrowsingProbe struct {
	// client performs the requests.
	client *http.Client

	// endpoint is the threatMatches:find URL without the key parameter.
	endpoint string

	// apiKey authenticates the lookup.
	apiKey string

	// timeout is the per-request timeout.
	timeout time.Duration
}

// SafeBrowsingOption configures a SafeBrowsingProbe.
type SafeBrowsingOption func(*SafeBrowsingProbe)

// WithSafeBrowsingEndpoint overrides the API endpoint. Used by tests.
func WithSafeBrowsingEndpoint(endpoint string) SafeBrowsingOption {
	return func(p *SafeBrowsingProbe) {
		p.endpoint = endpoint
	}
}

// WithSafeBrowsingTimeout sets the per-request timeout.
func WithSafeBrowsingTimeout(timeout time.Duration) SafeBrowsingOption {
	return func(p *SafeBrowsingProbe) {
		p.timeout = timeout
	}
}

// NewSafeBrowsingProbe creates a threat-database probe on the given client.
func NewSafeBrowsingProbe(client *http.Client, apiKey string, opts ...SafeBrowsingOption) *SafeBrowsingProbe {
	p := &SafeBrowsingProbe{
		client:   client,
		endpoint: "https://safebrowsing.googleapis.com/v4/threatMatches:find",
		apiKey:   apiKey,
		timeout:  15 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// threatMatchesRequest is the v4 threatMatches:find request body.
type threatMatchesRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string          `json:"threatTypes"`
		PlatformTypes    []string          `json:"platformTypes"`
		ThreatEntryTypes []string          `json:"threatEntryTypes"`
		ThreatEntries    []map[string]string `json:"threatEntries"`
	} `json:"threatInfo"`
}

// threatMatchesResponse is the v4 threatMatches:find response body.
type threatMatchesResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

// Check looks the URL up in the threat database. Without an API key the
// check returns ErrNoAPIKey and stays absent; it never guesses safe.
func (p *SafeBrowsingProbe) Check(ctx context.Context, targetURL string) (*model.SafeBrowsingResult, error) {
	if p.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	var reqBody threatMatchesRequest
	reqBody.Client.ClientID = "urlsentry"
	reqBody.Client.ClientVersion = "1.0"
	reqBody.ThreatInfo.ThreatTypes = []string{
		"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION",
	}
	reqBody.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	reqBody.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	reqBody.ThreatInfo.ThreatEntries = []map[string]string{{"url": targetURL}}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"?key="+p.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("threat lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("threat lookup failed: status %d", resp.StatusCode)
	}

	var body threatMatchesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("threat response malformed: %w", err)
	}

	result := &model.SafeBrowsingResult{Safe: len(body.Matches) == 0}
	for _, match := range body.Matches {
		result.Threats = append(result.Threats, match.ThreatType)
	}

	return result, nil
}
