package middleware

import (
	"crypto/tls"
	"net/http"
)

// TLSConfig returns a middleware that installs config on the innermost transport.
// It must be the last middleware in the chain: it replaces next rather than wrapping it
// when next is not an *http.Transport.
func TLSConfig(config *tls.Config) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		transport, ok := next.(*http.Transport)
		if !ok {
			defaultTransport, ok := http.DefaultTransport.(*http.Transport)
			if !ok {
				return next
			}
			transport = defaultTransport
		}

		transport = transport.Clone()
		transport.TLSClientConfig = config

		return transport
	}
}

// InsecureSkipVerify returns a TLS config that skips certificate verification.
// Only meant for local Site Factory sandboxes with self-signed certificates.
func InsecureSkipVerify() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // Opt-in for sandbox environments
	}
}
