package probe

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/urlsentry/urlsentry/internal/model"
)

// sensitivePath is one candidate exposure checked by the files probe.
// When marker is set, the response body must contain it; this separates
// a real exposure from a catch-all page served with status 200.
type sensitivePath struct {
	path     string
	severity model.RiskLevel
	marker   string
}

// defaultSensitivePaths lists the files whose public exposure leaks
// credentials, source, or backups.
var defaultSensitivePaths = []sensitivePath{
	{"/.env", model.RiskCritical, ""},
	{"/.git/config", model.RiskCritical, "[core]"},
	{"/config.php.bak", model.RiskCritical, ""},
	{"/wp-config.php.bak", model.RiskCritical, ""},
	{"/id_rsa", model.RiskCritical, "PRIVATE KEY"},
	{"/.aws/credentials", model.RiskCritical, "aws_access_key_id"},
	{"/backup.sql", model.RiskHigh, ""},
	{"/database.sql", model.RiskHigh, ""},
	{"/dump.sql", model.RiskHigh, ""},
	{"/backup.zip", model.RiskHigh, ""},
	{"/site.tar.gz", model.RiskHigh, ""},
	{"/.htpasswd", model.RiskHigh, ""},
	{"/phpinfo.php", model.RiskMedium, "PHP Version"},
	{"/.DS_Store", model.RiskLow, ""},
	{"/crossdomain.xml", model.RiskLow, "<cross-domain-policy"},
}

// FilesProbe checks whether known sensitive files are publicly reachable.
type FilesProbe struct {
	// client performs the requests.
	client *http.Client

	// userAgent is the User-Agent header to present.
	userAgent string

	// timeout is the per-request timeout.
	timeout time.Duration

	// concurrency bounds the parallel requests.
	concurrency int

	// paths is the candidate table.
	paths []sensitivePath
}

// FilesOption configures a FilesProbe.
type FilesOption func(*FilesProbe)

// WithFilesTimeout sets the per-request timeout.
func WithFilesTimeout(timeout time.Duration) FilesOption {
	return func(p *FilesProbe) {
		p.timeout = timeout
	}
}

// WithFilesConcurrency bounds the parallel requests.
func WithFilesConcurrency(workers int) FilesOption {
	return func(p *FilesProbe) {
		if workers > 0 {
			p.concurrency = workers
		}
	}
}

// NewFilesProbe creates a sensitive-file probe on the given client.
func NewFilesProbe(client *http.Client, opts ...FilesOption) *FilesProbe {
	p := &FilesProbe{
		client:      client,
		userAgent:   defaultUserAgent,
		timeout:     10 * time.Second,
		concurrency: 4,
		paths:       defaultSensitivePaths,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Sweep probes every candidate path under the site root. Unreachable
// paths are simply not exposures; only context cancellation fails the
// sweep.
func (p *FilesProbe) Sweep(ctx context.Context, baseURL string) (*model.SensitiveFilesResult, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	result := &model.SensitiveFilesResult{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, candidate := range p.paths {
		g.Go(func() error {
			exposed, status := p.check(ctx, baseURL+candidate.path, candidate.marker)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !exposed {
				return nil
			}

			mu.Lock()
			result.ExposedFiles = append(result.ExposedFiles, model.ExposedFile{
				Path:     candidate.path,
				Severity: candidate.severity,
				Status:   status,
			})
			switch candidate.severity {
			case model.RiskCritical:
				result.CriticalCount++
			case model.RiskHigh:
				result.HighCount++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.ExposedFiles, func(i, j int) bool {
		return result.ExposedFiles[i].Path < result.ExposedFiles[j].Path
	})

	return result, nil
}

// check fetches one candidate URL and decides whether it is a real
// exposure. Sites that answer every path with a styled error page are the
// main false-positive source: an HTML body, or a missing content marker,
// is treated as a soft 404.
func (p *FilesProbe) check(ctx context.Context, fileURL, marker string) (bool, int) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := doGet(ctx, p.client, fileURL, p.userAgent)
	if err != nil {
		return false, 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, resp.StatusCode
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(head) == 0 {
		return false, resp.StatusCode
	}
	body := string(head)

	if marker != "" {
		return strings.Contains(strings.ToLower(body), strings.ToLower(marker)), resp.StatusCode
	}

	return !looksLikeHTML(body), resp.StatusCode
}

// looksLikeHTML reports whether content starts like an HTML document.
func looksLikeHTML(content string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	return strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html")
}
