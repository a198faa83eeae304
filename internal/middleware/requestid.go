package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request correlation ID to the server.
const RequestIDHeader = "X-Request-Id"

// RequestID returns a middleware that tags each outgoing request with a random
// UUID unless the caller already set one. Retries of the same request reuse the ID.
func RequestID() func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &requestIDTransport{next: next}
	}
}

type requestIDTransport struct {
	next http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) == "" {
		req = cloneRequest(req)
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}
