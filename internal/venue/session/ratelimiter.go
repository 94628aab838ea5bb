package session

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimit configures a venue's outbound request budget: Requests allowed
// per Period, with Burst concurrent requests let through before the steady
// rate kicks in. Ported from cryptotrader.common.Limited, which queued
// timestamps in an asyncio.Queue and blocked the caller until the oldest
// entry aged out of the window; golang.org/x/time/rate's token bucket gives
// the same blocking-until-available behavior without hand-rolling it.
type RateLimit struct {
	Requests int
	Period   float64 // seconds
	Burst    int
}

// RateLimiter gates outbound calls to a venue so a burst of strategy
// activity can't trip the venue's own rate limiting.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter from a RateLimit config. A zero-value
// RateLimit (Requests == 0) yields an unlimited limiter, for venues or test
// doubles that don't need throttling.
func NewRateLimiter(cfg RateLimit) *RateLimiter {
	if cfg.Requests <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	r := rate.Limit(float64(cfg.Requests) / cfg.Period)
	return &RateLimiter{limiter: rate.NewLimiter(r, burst)}
}

// Wait blocks until a request is allowed, or ctx is cancelled first.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}
