package security

import (
	"golang.org/x/time/rate"
)

// RateLimitOptions configures a RateLimiter.
type RateLimitOptions struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// RateLimiter is a thin wrapper over golang.org/x/time/rate shared by
// the HTTP and SSH executors: one token bucket per Executor instance,
// not per destination, matching the gateway-wide throttle the
// configuration's security.rateLimit subtree describes.
type RateLimiter struct {
	enabled bool
	limiter *rate.Limiter
}

// NewRateLimiter builds a RateLimiter. A disabled or zero-rate
// configuration always allows.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if !opts.Enabled || opts.RequestsPerSecond <= 0 {
		return &RateLimiter{enabled: false}
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		enabled: true,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
	}
}

// Allow reports whether the caller may proceed immediately, consuming
// one token if so. A disabled limiter always allows.
func (r *RateLimiter) Allow() bool {
	if !r.enabled {
		return true
	}
	return r.limiter.Allow()
}
