package probe

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/urlsentry/urlsentry/internal/model"
)

// adminPath is one candidate administrative endpoint.
type adminPath struct {
	path string
	kind model.AdminEndpointKind
}

// defaultAdminPaths lists the endpoints checked for exposure. Debug
// surfaces count as discovered only when they answer 200; admin panels
// also count when they demand authentication, since their mere presence
// widens the attack surface.
var defaultAdminPaths = []adminPath{
	{"/debug/pprof/", model.EndpointDebug},
	{"/actuator", model.EndpointDebug},
	{"/actuator/env", model.EndpointDebug},
	{"/server-status", model.EndpointDebug},
	{"/elmah.axd", model.EndpointDebug},
	{"/_profiler/phpinfo", model.EndpointDebug},
	{"/admin", model.EndpointAdmin},
	{"/admin/login", model.EndpointAdmin},
	{"/administrator", model.EndpointAdmin},
	{"/wp-admin/", model.EndpointAdmin},
	{"/phpmyadmin/", model.EndpointAdmin},
	{"/manager/html", model.EndpointAdmin},
}

// AdminPanelsProbe discovers reachable administrative and debug endpoints.
type AdminPanelsProbe struct {
	// client performs the requests.
	client *http.Client

	// userAgent is the User-Agent header to present.
	userAgent string

	// timeout is the per-request timeout.
	timeout time.Duration

	// concurrency bounds the parallel requests.
	concurrency int

	// paths is the candidate table.
	paths []adminPath
}

// AdminPanelsOption configures an AdminPanelsProbe.
type AdminPanelsOption func(*AdminPanelsProbe)

// WithAdminPanelsTimeout sets the per-request timeout.
func WithAdminPanelsTimeout(timeout time.Duration) AdminPanelsOption {
	return func(p *AdminPanelsProbe) {
		p.timeout = timeout
	}
}

// WithAdminPanelsConcurrency bounds the parallel requests.
func WithAdminPanelsConcurrency(workers int) AdminPanelsOption {
	return func(p *AdminPanelsProbe) {
		if workers > 0 {
			p.concurrency = workers
		}
	}
}

// NewAdminPanelsProbe creates an endpoint-discovery probe on the given client.
func NewAdminPanelsProbe(client *http.Client, opts ...AdminPanelsOption) *AdminPanelsProbe {
	p := &AdminPanelsProbe{
		client:      client,
		userAgent:   defaultUserAgent,
		timeout:     10 * time.Second,
		concurrency: 4,
		paths:       defaultAdminPaths,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Sweep probes every candidate endpoint under the site root.
func (p *AdminPanelsProbe) Sweep(ctx context.Context, baseURL string) (*model.AdminPanelsResult, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	result := &model.AdminPanelsResult{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, candidate := range p.paths {
		g.Go(func() error {
			status := p.status(ctx, baseURL+candidate.path)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !discovered(candidate.kind, status) {
				return nil
			}

			mu.Lock()
			result.Endpoints = append(result.Endpoints, model.AdminEndpoint{
				Path:   candidate.path,
				Kind:   candidate.kind,
				Status: status,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Endpoints, func(i, j int) bool {
		return result.Endpoints[i].Path < result.Endpoints[j].Path
	})

	return result, nil
}

// discovered decides whether a status code means the endpoint exists.
func discovered(kind model.AdminEndpointKind, status int) bool {
	switch kind {
	case model.EndpointDebug:
		return status == http.StatusOK
	case model.EndpointAdmin:
		return status == http.StatusOK ||
			status == http.StatusUnauthorized ||
			status == http.StatusForbidden
	default:
		return false
	}
}

// status fetches one candidate endpoint and returns its status code, or 0
// when unreachable.
func (p *AdminPanelsProbe) status(ctx context.Context, endpointURL string) int {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := doGet(ctx, p.client, endpointURL, p.userAgent)
	if err != nil {
		return 0
	}
	resp.Body.Close()
	return resp.StatusCode
}
