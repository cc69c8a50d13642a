// Package ratelimiter implements per-identity token buckets.
package ratelimiter

import (
	"sync"
	"time"
)

// bucket is a token bucket for a single identity
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

// UserRateLimiter keeps one bucket per identity. Buckets idle for longer than
// expiration are dropped by a background sweep.
type UserRateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	rate       float64 // tokens per second
	capacity   float64
	expiration time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter refilling rate tokens per second up to capacity.
func New(rate float64, capacity float64, expiration time.Duration) *UserRateLimiter {
	rl := &UserRateLimiter{
		buckets:    make(map[string]*bucket),
		rate:       rate,
		capacity:   capacity,
		expiration: expiration,
		stop:       make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// PerMinute is a convenience constructor for "n requests per minute" limits.
func PerMinute(n int, expiration time.Duration) *UserRateLimiter {
	return New(float64(n)/60, float64(n), expiration)
}

func (rl *UserRateLimiter) get(identity string, now time.Time) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[identity]
	if !ok {
		b = &bucket{tokens: rl.capacity, lastRefill: now}
		rl.buckets[identity] = b
	}
	b.lastSeen = now
	return b
}

// Allow reports whether identity may proceed and consumes a token if so.
func (rl *UserRateLimiter) Allow(identity string) bool {
	now := time.Now()
	b := rl.get(identity, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * rl.rate
	if b.tokens > rl.capacity {
		b.tokens = rl.capacity
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len returns the number of tracked identities.
func (rl *UserRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *UserRateLimiter) sweep() {
	interval := rl.expiration / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

func (rl *UserRateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for identity, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.expiration {
			delete(rl.buckets, identity)
		}
	}
}

// Stop terminates the background sweep. Safe to call more than once.
func (rl *UserRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
