// Package retry provides the retrying request executor: one logical HTTP
// operation, transparently retried on transient failure classes with
// exponential backoff and jitter, under a hard attempt budget.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// DefaultRetryableStatusCodes is the canonical set of transient HTTP status
// codes: request timeout, throttling, and the 5xx family seen across
// upstream APIs, plus 509 which some providers use for bandwidth limits.
var DefaultRetryableStatusCodes = []int{408, 429, 500, 502, 503, 504, 509}

// BackoffFunc maps a zero-indexed attempt number to the delay before the
// next attempt.
type BackoffFunc func(attempt int) time.Duration

// Policy configures the executor. Policies are immutable values passed in
// explicitly; there is no ambient or global retry state.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first try.
	// Must be at least 1.
	MaxAttempts int

	// RetryableStatusCodes is the set of HTTP status codes treated as
	// transient. Any other non-2xx status fails immediately.
	RetryableStatusCodes map[int]bool

	// Backoff computes the delay after failed attempt i. Nil means
	// DefaultBackoff.
	Backoff BackoffFunc
}

// NewPolicy creates a policy with the given attempt budget over the
// canonical retryable status set and the default backoff.
func NewPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:          maxAttempts,
		RetryableStatusCodes: StatusCodeSet(DefaultRetryableStatusCodes...),
		Backoff:              DefaultBackoff,
	}
}

// DefaultPolicy returns the policy used when callers do not supply one:
// five attempts, canonical status set, default backoff.
func DefaultPolicy() Policy {
	return NewPolicy(5)
}

// StatusCodeSet builds a status-code set from a list of codes.
func StatusCodeSet(codes ...int) map[int]bool {
	set := make(map[int]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}
	return set
}

// WithBackoff returns a copy of the policy using fn for backoff delays.
func (p Policy) WithBackoff(fn BackoffFunc) Policy {
	p.Backoff = fn
	return p
}

// WithRetryableStatusCodes returns a copy of the policy retrying exactly the
// given status codes.
func (p Policy) WithRetryableStatusCodes(codes ...int) Policy {
	p.RetryableStatusCodes = StatusCodeSet(codes...)
	return p
}

// IsRetryableStatus reports whether the status code is in the policy's
// retryable set.
func (p Policy) IsRetryableStatus(status int) bool {
	return p.RetryableStatusCodes[status]
}

// backoff returns the configured backoff function, defaulting when unset.
func (p Policy) backoff() BackoffFunc {
	if p.Backoff != nil {
		return p.Backoff
	}
	return DefaultBackoff
}

// DefaultBackoff implements the standard schedule: no delay after the first
// attempt, then (2^i + 1) seconds with a uniform jitter of ±2^i/2 seconds,
// floored to whole seconds. The jitter spreads out concurrent callers that
// would otherwise retry in lockstep.
func DefaultBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// Clamp the exponent so the shift cannot overflow on absurd attempt
	// counts; at 2^20 seconds the delay is already over 12 days.
	if attempt > 20 {
		attempt = 20
	}

	base := float64(int64(1)<<uint(attempt)) + 1
	half := float64(int64(1)<<uint(attempt)) / 2
	jitter := (rand.Float64()*2 - 1) * half

	seconds := math.Floor(base + jitter)
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds) * time.Second
}

// ConstantBackoff returns a backoff function that always waits d.
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// NoBackoff retries immediately. Intended for tests.
func NoBackoff(int) time.Duration { return 0 }
