package ratelimiter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedWindowLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(2, 5*time.Second)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok)

	now = now.Add(time.Second)
	ok, retryAfter := rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 4*time.Second, retryAfter)

	ok, _ = rl.Allow("10.0.0.2")
	assert.True(t, ok, "clients are counted separately")

	now = now.Add(4 * time.Second)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok, "a new window resets the counter")
}

func TestFixedWindowSweepsExpiredClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(1, time.Second)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	now = now.Add(2 * time.Second)
	rl.Allow("c")

	assert.Len(t, rl.clients, 1)
}

func TestFixedWindowSweepsOncePerWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("first")
	swept := rl.lastSweep

	for i := 0; i < 100; i++ {
		now = now.Add(time.Millisecond)
		rl.Allow(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, swept, rl.lastSweep, "new clients inside a window do not trigger a sweep")
	assert.Len(t, rl.clients, 101)

	now = now.Add(time.Minute)
	rl.Allow("late")
	assert.Equal(t, now, rl.lastSweep)
	assert.Len(t, rl.clients, 1)
}
