// Package testutil provides httptest helpers that imitate a Site Factory endpoint.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Credentials used by the mock servers when auth checking is requested.
const (
	Username = "deployer"
	APIKey   = "test-api-key"
)

// Response is one canned reply of a mock server.
type Response struct {
	Body       string
	StatusCode int
}

// NewMockServer creates a test server that checks the request path and, when
// checkAuth is set, the Basic credentials, then replies with body and statusCode.
func NewMockServer(t *testing.T, expectedPath string, checkAuth bool, body string, statusCode int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, expectedPath, r.URL.Path, "Request path should match expected")

		if checkAuth {
			assertBasicAuth(t, r)
		}

		writeJSON(t, w, Response{Body: body, StatusCode: statusCode})
	}))
	t.Cleanup(server.Close)

	return server
}

// NewMockServerMulti creates a test server that dispatches on "METHOD /path".
// Unknown routes fail the test and get a 404.
func NewMockServerMulti(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return server
}

// Sequence replies with canned responses in order. It is safe for concurrent use.
type Sequence struct {
	t         *testing.T
	mu        sync.Mutex
	responses []Response
	calls     int
}

// NewSequence returns a handler that serves responses one per call.
// Calls beyond the last response fail the test.
func NewSequence(t *testing.T, responses ...Response) *Sequence {
	t.Helper()
	return &Sequence{t: t, responses: responses}
}

func (s *Sequence) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	if s.calls >= len(s.responses) {
		s.calls++
		s.mu.Unlock()
		s.t.Errorf("More requests than configured responses (got %d requests, have %d responses)",
			s.calls, len(s.responses))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	resp := s.responses[s.calls]
	s.calls++
	s.mu.Unlock()

	writeJSON(s.t, w, resp)
}

// Calls reports how many requests the sequence has served.
func (s *Sequence) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// NewMockServerSequence creates a test server backed by a Sequence.
func NewMockServerSequence(t *testing.T, responses ...Response) (*httptest.Server, *Sequence) {
	t.Helper()

	seq := NewSequence(t, responses...)
	server := httptest.NewServer(seq)
	t.Cleanup(server.Close)

	return server, seq
}

// JSON writes a canned response. Useful inside NewMockServerMulti handlers.
func JSON(t *testing.T, w http.ResponseWriter, statusCode int, body string) {
	t.Helper()
	writeJSON(t, w, Response{Body: body, StatusCode: statusCode})
}

func assertBasicAuth(t *testing.T, r *http.Request) {
	t.Helper()

	user, key, ok := r.BasicAuth()
	assert.True(t, ok, "Basic auth should be set")
	assert.Equal(t, Username, user)
	assert.Equal(t, APIKey, key)
}

func writeJSON(t *testing.T, w http.ResponseWriter, resp Response) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, err := w.Write([]byte(resp.Body))
	assert.NoError(t, err, "Failed to write response body")
}
