package scheduler

import (
	"sync"
	"time"
)

// tokenBucket is a classic token bucket: capacity tokens, refilled at
// rate/interval, monotonic wall-clock based.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	rate       float64 // tokens per second
	lastRefill time.Time
}

func newTokenBucket(capacity int, interval time.Duration) *tokenBucket {
	rate := 0.0
	if interval > 0 && capacity > 0 {
		rate = float64(capacity) / interval.Seconds()
	}
	return &tokenBucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		rate:       rate,
		lastRefill: time.Now(),
	}
}

// tryTake attempts to consume one token, returning true on success. A
// bucket with zero capacity always allows (rate limiting disabled).
func (b *tokenBucket) tryTake() bool {
	if b.capacity <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now
	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}
