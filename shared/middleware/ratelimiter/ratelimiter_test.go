package ratelimiter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	t.Run("respects capacity", func(t *testing.T) {
		rl := New(0, 3, time.Minute)
		defer rl.Stop()

		assert.True(t, rl.Allow("user"))
		assert.True(t, rl.Allow("user"))
		assert.True(t, rl.Allow("user"))
		assert.False(t, rl.Allow("user"))
	})

	t.Run("identities are independent", func(t *testing.T) {
		rl := New(0, 1, time.Minute)
		defer rl.Stop()

		assert.True(t, rl.Allow("a"))
		assert.False(t, rl.Allow("a"))
		assert.True(t, rl.Allow("b"))
	})

	t.Run("refills over time", func(t *testing.T) {
		rl := New(20, 1, time.Minute)
		defer rl.Stop()

		assert.True(t, rl.Allow("user"))
		assert.False(t, rl.Allow("user"))
		time.Sleep(100 * time.Millisecond)
		assert.True(t, rl.Allow("user"))
	})

	t.Run("concurrent access", func(t *testing.T) {
		rl := New(0, 50, time.Minute)
		defer rl.Stop()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if rl.Allow("user") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, allowed)
	})
}

func TestPerMinute(t *testing.T) {
	rl := PerMinute(2, time.Minute)
	defer rl.Stop()

	assert.True(t, rl.Allow("user"))
	assert.True(t, rl.Allow("user"))
	assert.False(t, rl.Allow("user"))
}

func TestExpiration(t *testing.T) {
	rl := New(1, 1, 50*time.Millisecond)
	defer rl.Stop()

	rl.Allow("user")
	assert.Equal(t, 1, rl.Len())

	assert.Eventually(t, func() bool { return rl.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	rl := New(1, 1, time.Minute)
	rl.Stop()
	rl.Stop()
}
