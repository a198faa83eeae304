// Package middleware provides the http.RoundTripper layers used by the Site Factory client.
package middleware

import (
	"net/http"
)

// BasicAuth returns a middleware that authenticates every request with HTTP Basic
// credentials. Site Factory expects the account username and its API key.
func BasicAuth(username, apiKey string) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &authTransport{
			next: next,
			apply: func(req *http.Request) {
				req.SetBasicAuth(username, apiKey)
			},
		}
	}
}

// Header returns a middleware that sets a static header on every request,
// such as "Accept".
func Header(name, value string) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &authTransport{
			next: next,
			apply: func(req *http.Request) {
				req.Header.Set(name, value)
			},
		}
	}
}

type authTransport struct {
	next  http.RoundTripper
	apply func(*http.Request)
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	req = cloneRequest(req)
	t.apply(req)

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

// cloneRequest creates a shallow copy of the request with a cloned header map.
func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r
}
