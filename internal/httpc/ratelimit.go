package httpc

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimiter starts at most one request per slot. Waiting honours the
// request context so a cancelled request gives up immediately.
type rateLimiter struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

// RateLimit wraps next so that at most maxRPS requests start per second.
// A nil next uses http.DefaultTransport. maxRPS <= 0 returns next unchanged.
func RateLimit(next http.RoundTripper, maxRPS int) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if maxRPS <= 0 {
		return next
	}
	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Limit(maxRPS), 1),
		next:    next,
	}
}

// RoundTrip implements http.RoundTripper.
func (r *rateLimiter) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The slot lies beyond the request deadline.
		return nil, fmt.Errorf("httpc: %v: %w", err, context.DeadlineExceeded)
	}
	return r.next.RoundTrip(req)
}
