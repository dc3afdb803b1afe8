package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/docstore/request"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of transport calls allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit waits for a token instead of failing.
	// Default: false
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token.
	// Default: 1 second
	MaxWait time.Duration
}

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	return &RateLimiter{
		config:      config,
		now:         time.Now,
		tokens:      float64(config.Burst),
		lastRefresh: time.Now(),
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available, MaxWait elapses, or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rl.Allow() {
		return nil
	}

	rl.mu.Lock()
	wait := time.Duration((1 - rl.tokens) / rl.config.Rate * float64(time.Second))
	rl.mu.Unlock()
	wait = min(wait, rl.config.MaxWait)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		if rl.Allow() {
			return nil
		}
		return ErrRateLimitExceeded
	}
}

// Wrap returns next limited by the rate limiter.
func (rl *RateLimiter) Wrap(next request.NextFunc) request.NextFunc {
	return func(ctx context.Context, req *request.Request) (*request.StructuredDocument, error) {
		if rl.config.WaitOnLimit {
			if err := rl.Wait(ctx); err != nil {
				if err == ErrRateLimitExceeded {
					return nil, reject(req, err)
				}
				return nil, err
			}
		} else if !rl.Allow() {
			return nil, reject(req, ErrRateLimitExceeded)
		}
		return next(ctx, req)
	}
}

func (rl *RateLimiter) refillLocked() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefresh)
	rl.lastRefresh = now

	rl.tokens = min(rl.tokens+elapsed.Seconds()*rl.config.Rate, float64(rl.config.Burst))
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// Reset refills the bucket.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.config.Burst)
	rl.lastRefresh = rl.now()
}
