package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPolicy(t *testing.T) {
	p := NewPolicy(3)

	assert.Equal(t, 3, p.MaxAttempts)
	for _, code := range DefaultRetryableStatusCodes {
		assert.True(t, p.IsRetryableStatus(code), "status %d should be retryable", code)
	}
	assert.False(t, p.IsRetryableStatus(200))
	assert.False(t, p.IsRetryableStatus(404))
	assert.False(t, p.IsRetryableStatus(403))
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 5, p.MaxAttempts)
	assert.True(t, p.IsRetryableStatus(429))
	assert.True(t, p.IsRetryableStatus(509))
}

func TestWithRetryableStatusCodes(t *testing.T) {
	p := NewPolicy(3).WithRetryableStatusCodes(418)

	assert.True(t, p.IsRetryableStatus(418))
	assert.False(t, p.IsRetryableStatus(500), "override replaces the default set")
}

func TestDefaultBackoffFirstRetryIsImmediate(t *testing.T) {
	assert.Equal(t, time.Duration(0), DefaultBackoff(0))
	assert.Equal(t, time.Duration(0), DefaultBackoff(-1))
}

func TestDefaultBackoffBounds(t *testing.T) {
	// delay(i) = floor(2^i + 1 + jitter) with jitter in [-2^i/2, 2^i/2),
	// so whole-second bounds are [2^i/2 + 1, 2^i + 2^i/2 + 1].
	for attempt := 1; attempt <= 8; attempt++ {
		pow := int64(1) << uint(attempt)
		lo := time.Duration(pow/2+1) * time.Second
		hi := time.Duration(pow+pow/2+1) * time.Second

		for i := 0; i < 200; i++ {
			d := DefaultBackoff(attempt)
			assert.GreaterOrEqual(t, d, lo, "attempt %d", attempt)
			assert.LessOrEqual(t, d, hi, "attempt %d", attempt)
			assert.Zero(t, d%time.Second, "delay must be whole seconds")
		}
	}
}

func TestDefaultBackoffJitterVaries(t *testing.T) {
	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		seen[DefaultBackoff(6)] = true
	}
	assert.Greater(t, len(seen), 1, "jitter should produce multiple distinct delays")
}

func TestDefaultBackoffClampsExponent(t *testing.T) {
	d := DefaultBackoff(1000)
	assert.Greater(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, time.Duration((1<<20)+(1<<19)+1)*time.Second)
}

func TestConstantBackoff(t *testing.T) {
	fn := ConstantBackoff(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, fn(0))
	assert.Equal(t, 250*time.Millisecond, fn(7))
}
