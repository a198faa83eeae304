package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-acsf/internal/middleware"
)

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("single limiter", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		metrics := &recordingMetrics{}
		transport := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: rate.NewLimiter(2, 2),
			Metrics: metrics,
		})(http.DefaultTransport)

		for i := range 2 {
			req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
			start := time.Now()
			resp, err := transport.RoundTrip(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Less(t, time.Since(start), 100*time.Millisecond, "request %d should not wait", i+1)
		}

		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		start := time.Now()
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "third request should be delayed")
		assert.Equal(t, 1, metrics.rateLimited())
	})

	t.Run("method selector", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		read := rate.NewLimiter(rate.Inf, 1)
		write := rate.NewLimiter(1, 1)

		transport := middleware.RateLimit(middleware.RateLimitConfig{
			Selector: middleware.MethodSelector(read, write),
		})(http.DefaultTransport)

		// Burn the only write token
		req, _ := http.NewRequest(http.MethodPost, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()

		// Reads are unaffected by the exhausted write budget
		for range 5 {
			req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
			start := time.Now()
			resp, err := transport.RoundTrip(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Less(t, time.Since(start), 100*time.Millisecond)
		}
	})

	t.Run("nil limiter disables limiting", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		transport := middleware.RateLimit(middleware.RateLimitConfig{})(http.DefaultTransport)

		req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()
	})

	t.Run("context canceled while waiting", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
		transport := middleware.RateLimit(middleware.RateLimitConfig{Limiter: limiter})(http.DefaultTransport)

		req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		req, _ = http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
		_, err = transport.RoundTrip(req)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
