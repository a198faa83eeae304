// Package retry classifies HTTP responses for the retry middleware.
package retry

import (
	"net/http"
	"strconv"
	"time"
)

// ShouldRetry returns true if the HTTP status code indicates a retryable error:
//   - 429 (Too Many Requests)
//   - 5xx (Server Errors), which Site Factory also returns during maintenance windows
func ShouldRetry(statusCode int) bool {
	return statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests
}

// ShouldRetryRequest is like ShouldRetry but also considers the request method.
// Non-idempotent requests (POST, PATCH) trigger server-side tasks such as backups
// and code deploys, so they are only retried on 429, where the server guarantees
// the request was rejected before processing.
func ShouldRetryRequest(method string, statusCode int) bool {
	if !ShouldRetry(statusCode) {
		return false
	}
	if IsIdempotent(method) {
		return true
	}
	return statusCode == http.StatusTooManyRequests
}

// IsIdempotent reports whether repeating a request with this method is safe.
func IsIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// ParseRetryAfter parses the Retry-After HTTP header and returns the duration to wait.
// The header may hold a number of seconds ("120") or an HTTP-date.
// Returns 0 if the header is empty, cannot be parsed, or lies in the past.
func ParseRetryAfter(retryAfterHeader string) time.Duration {
	return parseRetryAfterAt(retryAfterHeader, time.Now())
}

func parseRetryAfterAt(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(header); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait
		}
	}

	return 0
}
