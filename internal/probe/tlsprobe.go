package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/urlsentry/urlsentry/internal/model"
)

// TLSProbe inspects the target's TLS posture: certificate presence,
// validity, expiry window, negotiated protocol version, and cipher
// strength.
//
// Design decision: We perform our own handshake with InsecureSkipVerify
// and verify the chain manually because:
//  1. A failed verification is a finding, not a probe failure
//  2. We still want the certificate details of an invalid chain
//  3. crypto/tls aborts the handshake before exposing them otherwise
type TLSProbe struct {
	// timeout is the handshake timeout.
	timeout time.Duration

	// port is the TLS port to probe.
	port string

	// dialer establishes TCP connections.
	dialer net.Dialer
}

// TLSOption configures a TLSProbe.
type TLSOption func(*TLSProbe)

// WithTLSTimeout sets the handshake timeout.
func WithTLSTimeout(timeout time.Duration) TLSOption {
	return func(p *TLSProbe) {
		p.timeout = timeout
	}
}

// WithTLSPort overrides the probed port.
func WithTLSPort(port string) TLSOption {
	return func(p *TLSProbe) {
		p.port = port
	}
}

// NewTLSProbe creates a TLS probe targeting port 443.
func NewTLSProbe(opts ...TLSOption) *TLSProbe {
	p := &TLSProbe{
		timeout: 15 * time.Second,
		port:    "443",
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Inspect performs the handshake against the host and reports its TLS
// posture. A host that refuses the connection yields Present=false; only
// transport-level surprises (context cancellation) return an error.
func (p *TLSProbe) Inspect(ctx context.Context, host string) (*model.TLSResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rawConn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, p.port))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Nothing listening: the site has no TLS endpoint.
		return &model.TLSResult{Present: false}, nil
	}
	defer rawConn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = rawConn.SetDeadline(deadline)
	}

	conn := tls.Client(rawConn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true, //nolint:gosec // chain verified manually below
		MinVersion:         tls.VersionTLS10,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Port open but not speaking TLS.
		return &model.TLSResult{Present: false}, nil
	}

	state := conn.ConnectionState()
	result := &model.TLSResult{
		Present:        true,
		Version:        tlsVersionString(state.Version),
		CipherStrength: cipherStrength(state.Version, state.CipherSuite),
	}

	if len(state.PeerCertificates) == 0 {
		return result, nil
	}

	leaf := state.PeerCertificates[0]
	result.Subject = leaf.Subject.String()
	result.Issuer = leaf.Issuer.String()
	result.NotAfter = leaf.NotAfter
	result.DaysUntilExpiry = int(time.Until(leaf.NotAfter).Hours() / 24)
	result.Valid = verifyChain(host, state.PeerCertificates)

	return result, nil
}

// verifyChain checks the presented chain against the system roots and the
// scanned hostname.
func verifyChain(host string, certs []*x509.Certificate) bool {
	now := time.Now()
	leaf := certs[0]
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		return false
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	_, err := leaf.Verify(x509.VerifyOptions{
		DNSName:       host,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	return err == nil
}

// tlsVersionString renders a protocol version constant as "1.0".."1.3".
func tlsVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS13:
		return "1.3"
	case tls.VersionTLS12:
		return "1.2"
	case tls.VersionTLS11:
		return "1.1"
	case tls.VersionTLS10:
		return "1.0"
	default:
		return "unknown"
	}
}

// weakCipherSuites are TLS 1.2 suites using RSA key exchange, 3DES, or
// CBC-mode ciphers without forward secrecy.
var weakCipherSuites = map[uint16]bool{
	tls.TLS_RSA_WITH_RC4_128_SHA:            true,
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA:       true,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA:        true,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA:        true,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA256:     true,
	tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA:      true,
	tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA:    true,
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA: true,
}

// moderateCipherSuites have forward secrecy but CBC-mode ciphers.
var moderateCipherSuites = map[uint16]bool{
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA:      true,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA:      true,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA:    true,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA:    true,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256:   true,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256: true,
	tls.TLS_RSA_WITH_AES_128_GCM_SHA256:         true,
	tls.TLS_RSA_WITH_AES_256_GCM_SHA384:         true,
}

// cipherStrength buckets the negotiated suite. Anything on TLS 1.3 is
// strong; old protocol versions are weak regardless of suite.
func cipherStrength(version, suite uint16) model.CipherStrength {
	if version == tls.VersionTLS13 {
		return model.CipherStrong
	}
	if version < tls.VersionTLS12 {
		return model.CipherWeak
	}
	switch {
	case weakCipherSuites[suite]:
		return model.CipherWeak
	case moderateCipherSuites[suite]:
		return model.CipherModerate
	default:
		return model.CipherStrong
	}
}
