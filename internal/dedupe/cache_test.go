// ABOUTME: Tests for the idempotency guard used by the web frontend.
// ABOUTME: Validates TTL expiry, size limits, forgetting and concurrency safety.

package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestGuard(ttl time.Duration, size int) (*Guard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	g := New(ttl, size)
	g.now = clock.Now
	return g, clock
}

func TestGuard_ClaimOnce(t *testing.T) {
	g, _ := newTestGuard(time.Minute, 10)

	assert.True(t, g.Claim("form-1"))
	assert.False(t, g.Claim("form-1"), "second claim is a duplicate")
	assert.True(t, g.Seen("form-1"))
	assert.False(t, g.Seen("form-2"))
}

func TestGuard_Expiry(t *testing.T) {
	g, clock := newTestGuard(time.Minute, 10)

	g.Claim("form-1")
	clock.Advance(30 * time.Second)
	g.Claim("form-2")

	clock.Advance(31 * time.Second)
	assert.False(t, g.Seen("form-1"))
	assert.True(t, g.Seen("form-2"))

	assert.True(t, g.Claim("form-1"), "expired keys can be claimed again")
	assert.Equal(t, 2, g.Len(), "expired form-1 was swept before reclaiming")
}

func TestGuard_EvictsOldestAtCapacity(t *testing.T) {
	g, clock := newTestGuard(time.Hour, 3)

	for i := 0; i < 4; i++ {
		g.Claim(fmt.Sprintf("k-%d", i))
		clock.Advance(time.Second)
	}

	assert.Equal(t, 3, g.Len())
	assert.False(t, g.Seen("k-0"))
	assert.True(t, g.Seen("k-3"))
}

func TestGuard_Forget(t *testing.T) {
	g, _ := newTestGuard(time.Minute, 10)

	g.Claim("click-1")
	g.Forget("click-1")
	g.Forget("never-claimed")

	assert.True(t, g.Claim("click-1"))
}

func TestGuard_ConcurrentClaimsWinOnce(t *testing.T) {
	g := New(time.Minute, 100)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Claim("same-key") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
