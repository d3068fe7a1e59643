package probe

import (
	"context"
	"net"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/urlsentry/urlsentry/internal/model"
)

// ReverseDNSProbe resolves the scanned domain to an IP, looks up its PTR
// records, and checks whether any of them point back at the scanned
// domain. A mismatch is weak evidence of shared or throwaway hosting.
type ReverseDNSProbe struct {
	// resolver performs the lookups; replaceable in tests.
	resolver *net.Resolver

	// timeout bounds each lookup.
	timeout time.Duration
}

// ReverseDNSOption configures a ReverseDNSProbe.
type ReverseDNSOption func(*ReverseDNSProbe)

// WithResolver substitutes the DNS resolver.
func WithResolver(r *net.Resolver) ReverseDNSOption {
	return func(p *ReverseDNSProbe) {
		p.resolver = r
	}
}

// WithReverseDNSTimeout bounds each lookup.
func WithReverseDNSTimeout(timeout time.Duration) ReverseDNSOption {
	return func(p *ReverseDNSProbe) {
		p.timeout = timeout
	}
}

// NewReverseDNSProbe creates a reverse DNS probe on the system resolver.
func NewReverseDNSProbe(opts ...ReverseDNSOption) *ReverseDNSProbe {
	p := &ReverseDNSProbe{
		resolver: net.DefaultResolver,
		timeout:  10 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Lookup resolves the domain's first address and checks its PTR records
// against the domain. An address with no PTR record returns ErrNoPTRRecord
// so the check stays absent.
func (p *ReverseDNSProbe) Lookup(ctx context.Context, domain string) (*model.ReverseDNSResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	addrs, err := p.resolver.LookupHost(ctx, domain)
	if err != nil || len(addrs) == 0 {
		return nil, ErrNoPTRRecord
	}
	ip := addrs[0]

	names, err := p.resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return nil, ErrNoPTRRecord
	}

	result := &model.ReverseDNSResult{
		IP:        ip,
		Hostnames: make([]string, 0, len(names)),
	}

	for _, name := range names {
		name = strings.ToLower(strings.TrimSuffix(name, "."))
		result.Hostnames = append(result.Hostnames, name)
		if ptrMatchesDomain(name, domain) {
			result.Match = true
		}
	}

	return result, nil
}

// ptrMatchesDomain reports whether a PTR name forward-confirms to the
// scanned domain or at least shares its registrable domain.
func ptrMatchesDomain(ptrName, domain string) bool {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if ptrName == domain {
		return true
	}

	ptrRoot, err1 := publicsuffix.EffectiveTLDPlusOne(ptrName)
	domainRoot, err2 := publicsuffix.EffectiveTLDPlusOne(domain)
	if err1 != nil || err2 != nil {
		return false
	}
	return ptrRoot == domainRoot
}
