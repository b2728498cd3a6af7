package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsFirstCall(t *testing.T) {
	r := NewRateLimiter(time.Hour)
	assert.True(t, r.Allow(), "expected the first call to be allowed")
}

func TestRateLimiterBlocksWithinInterval(t *testing.T) {
	r := NewRateLimiter(time.Hour)
	r.Allow()
	assert.False(t, r.Allow(), "expected a second call within the interval to be blocked")
}

func TestRateLimiterAllowsAfterIntervalElapses(t *testing.T) {
	r := NewRateLimiter(10 * time.Millisecond)
	r.Allow()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, r.Allow(), "expected a call to be allowed once the interval has elapsed")
}
