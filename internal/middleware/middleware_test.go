package middleware_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-acsf/internal/middleware"
	"github.com/lexfrei/go-acsf/observability"
)

func TestBasicAuth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		assert.True(t, ok, "basic auth should be present")
		assert.Equal(t, "deployer", user)
		assert.Equal(t, "secret-key", key)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.BasicAuth("deployer", "secret-key")(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("Authorization"), "original request must not be modified")
}

func TestHeader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.Header("Authorization", "Bearer abc")(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(middleware.RequestIDHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.RequestID()(http.DefaultTransport)

	req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	req.Header.Set(middleware.RequestIDHeader, "caller-id")
	resp, err = transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, seen, 2)
	_, parseErr := uuid.Parse(seen[0])
	require.NoError(t, parseErr, "generated request ID should be a UUID")
	assert.Equal(t, "caller-id", seen[1])
}

func TestTLSConfig(t *testing.T) {
	t.Parallel()

	config := &tls.Config{MinVersion: tls.VersionTLS12}

	transport := middleware.TLSConfig(config)(http.DefaultTransport)

	httpTransport, ok := transport.(*http.Transport)
	require.True(t, ok, "Transport is not *http.Transport")
	require.NotNil(t, httpTransport.TLSClientConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), httpTransport.TLSClientConfig.MinVersion)

	original, ok := http.DefaultTransport.(*http.Transport)
	require.True(t, ok)
	assert.NotSame(t, original, httpTransport, "default transport must be cloned")
}

func TestInsecureSkipVerify(t *testing.T) {
	t.Parallel()

	config := middleware.InsecureSkipVerify()
	require.NotNil(t, config)
	assert.True(t, config.InsecureSkipVerify)
}

func TestObservability(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/sites/404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	transport := middleware.Observability(nil, metrics)(http.DefaultTransport)

	for _, path := range []string{"/api/v1/sites/1234/backup", "/api/v1/sites/404"} {
		req, _ := http.NewRequest(http.MethodGet, server.URL+path, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, []string{
		"GET /api/v1/sites/:id/backup 200",
		"GET /api/v1/sites/:id 404",
	}, metrics.requests())
}

func TestObservabilityNetworkError(t *testing.T) {
	t.Parallel()

	metrics := &recordingMetrics{}
	transport := middleware.Observability(observability.NoopLogger(), metrics)(http.DefaultTransport)

	// Nothing listens on port 1
	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/api/v1/ping", http.NoBody)
	_, err := transport.RoundTrip(req)
	require.Error(t, err)

	assert.Equal(t, []string{"http_request:NetworkError"}, metrics.errors())
}

// recordingMetrics is a thread-safe MetricsRecorder that remembers what it saw.
type recordingMetrics struct {
	mu      sync.Mutex
	reqs    []string
	errs    []string
	retries []int
	limited int
}

func (m *recordingMetrics) RecordHTTPRequest(method, path string, statusCode int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, method+" "+path+" "+strconv.Itoa(statusCode))
}

func (m *recordingMetrics) RecordRetry(attempt int, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries = append(m.retries, attempt)
}

func (m *recordingMetrics) RecordRateLimit(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limited++
}

func (m *recordingMetrics) RecordError(operation, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, operation+":"+errorType)
}

func (m *recordingMetrics) RecordTaskPoll(string)         {}
func (m *recordingMetrics) RecordTaskOutcome(string, int) {}

func (m *recordingMetrics) requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reqs...)
}

func (m *recordingMetrics) errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errs...)
}

func (m *recordingMetrics) retryAttempts() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.retries...)
}

func (m *recordingMetrics) rateLimited() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limited
}
