// Package ratelimit builds token-bucket limiters for API clients.
package ratelimit

import "golang.org/x/time/rate"

// NewRateLimiter creates a limiter that refills at requestsPerMinute/60 tokens
// per second with a burst of burst requests. A burst below 1 is raised to 1 so
// that the limiter never rejects every request.
func NewRateLimiter(requestsPerMinute, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
}

// PerMinute is NewRateLimiter with a burst of one second's worth of requests.
func PerMinute(requestsPerMinute int) *rate.Limiter {
	return NewRateLimiter(requestsPerMinute, requestsPerMinute/60)
}
