package httpx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter controls admission of requests to an upstream host. A single
// Limiter may be shared across concurrent fetch sessions; Wait admits
// callers in FIFO order so no session is starved.
type Limiter interface {
	// Allow reports whether a request may proceed immediately.
	Allow() bool

	// Wait blocks until a request is allowed or the context ends.
	Wait(ctx context.Context) error

	// Stats returns limiter statistics.
	Stats() LimiterStats
}

// LimiterStats describes limiter activity for monitoring.
type LimiterStats struct {
	Rate            float64   `json:"rate"`
	Burst           int       `json:"burst"`
	AllowedRequests int64     `json:"allowed_requests"`
	BlockedRequests int64     `json:"blocked_requests"`
	CurrentTokens   float64   `json:"current_tokens"`
	LastRefill      time.Time `json:"last_refill"`
}

// TokenBucketLimiter implements Limiter with the token bucket algorithm.
// Tokens accrue at a constant rate up to the burst capacity; each admitted
// request consumes one. Waiters queue on a channel-based ticket line so
// admission order matches arrival order.
type TokenBucketLimiter struct {
	rate     float64
	burst    int
	tokens   float64
	lastTime time.Time

	// queue serializes waiters; holding the ticket means being first in line.
	queue chan struct{}

	allowedRequests int64
	blockedRequests int64

	mu sync.Mutex
}

// NewTokenBucketLimiter creates a limiter admitting rate requests per second
// with the given burst capacity. The bucket starts full.
func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:     rate,
		burst:    burst,
		tokens:   float64(burst),
		lastTime: time.Now(),
		queue:    make(chan struct{}, 1),
	}
}

// NewMinIntervalLimiter creates a limiter enforcing a minimum delay between
// consecutive requests, the enforced-delay variant used between page fetches.
func NewMinIntervalLimiter(minInterval time.Duration) *TokenBucketLimiter {
	if minInterval <= 0 {
		minInterval = time.Millisecond
	}
	return NewTokenBucketLimiter(float64(time.Second)/float64(minInterval), 1)
}

// Allow consumes a token if one is available.
func (tb *TokenBucketLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens--
		atomic.AddInt64(&tb.allowedRequests, 1)
		return true
	}
	atomic.AddInt64(&tb.blockedRequests, 1)
	return false
}

// Wait blocks until a token is available. Callers are admitted in the order
// they acquire the queue ticket, which keeps waiting fair across sessions.
func (tb *TokenBucketLimiter) Wait(ctx context.Context) error {
	// Take the ticket; everyone behind us waits here.
	select {
	case tb.queue <- struct{}{}:
	case <-ctx.Done():
		atomic.AddInt64(&tb.blockedRequests, 1)
		return ctx.Err()
	}
	defer func() { <-tb.queue }()

	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens--
			atomic.AddInt64(&tb.allowedRequests, 1)
			tb.mu.Unlock()
			return nil
		}
		deficit := 1.0 - tb.tokens
		waitTime := time.Duration(deficit / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			atomic.AddInt64(&tb.blockedRequests, 1)
			return ctx.Err()
		}
	}
}

// refill adds tokens based on elapsed time. Caller must hold tb.mu.
func (tb *TokenBucketLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastTime).Seconds()

	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastTime = now
}

// Stats returns limiter statistics.
func (tb *TokenBucketLimiter) Stats() LimiterStats {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	return LimiterStats{
		Rate:            tb.rate,
		Burst:           tb.burst,
		AllowedRequests: atomic.LoadInt64(&tb.allowedRequests),
		BlockedRequests: atomic.LoadInt64(&tb.blockedRequests),
		CurrentTokens:   tb.tokens,
		LastRefill:      tb.lastTime,
	}
}
