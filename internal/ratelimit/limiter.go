package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter manages rate limits for captcha issuing, keyed by the student's
// registration number. Every challenge allocates a browser context, so an
// unthrottled caller could exhaust the shared browser process.
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a new rate limiter.
// requestsPerHour: challenges allowed per hour per identifier (e.g. 30)
// burst: max challenges in a burst (e.g. 5)
func NewLimiter(requestsPerHour int, burst int) *Limiter {
	r := rate.Limit(float64(requestsPerHour) / 3600.0)

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// GetLimiter returns the rate limiter for a specific identifier.
func (l *Limiter) GetLimiter(identifier string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[identifier]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[identifier] = limiter
	}

	return limiter
}

// Allow checks if a request is allowed for the given identifier.
func (l *Limiter) Allow(identifier string) bool {
	limiter := l.GetLimiter(identifier)
	return limiter.Allow()
}

// Tokens returns the current number of available tokens for an identifier.
func (l *Limiter) Tokens(identifier string) float64 {
	limiter := l.GetLimiter(identifier)
	return limiter.Tokens()
}
