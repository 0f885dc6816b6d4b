// ABOUTME: TTL guard for idempotency keys on web submissions and clicks.
// ABOUTME: A resent form (double click, browser retry) is claimed only once.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry is one claimed key.
type entry struct {
	key     string
	claimed time.Time
}

// Guard remembers claimed keys for a TTL, up to a maximum count. Keys are
// kept in claim order, so expired keys are always at the front and are swept
// on each claim; there is no background goroutine.
type Guard struct {
	mu      sync.Mutex
	keys    map[string]*list.Element
	order   *list.List // oldest claim at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a guard that remembers keys for ttl, holding at most maxSize.
func New(ttl time.Duration, maxSize int) *Guard {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Guard{
		keys:    make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Claim records key and reports true if it was not already claimed within
// the TTL. A false result means the request is a duplicate.
func (g *Guard) Claim(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweepLocked(now)

	if _, ok := g.keys[key]; ok {
		return false
	}

	if g.order.Len() >= g.maxSize {
		g.removeLocked(g.order.Front())
	}
	g.keys[key] = g.order.PushBack(&entry{key: key, claimed: now})
	return true
}

// Seen reports whether key is currently claimed.
func (g *Guard) Seen(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	el, ok := g.keys[key]
	if !ok {
		return false
	}
	return g.now().Sub(el.Value.(*entry).claimed) < g.ttl
}

// Forget drops key so it can be claimed again.
func (g *Guard) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if el, ok := g.keys[key]; ok {
		g.removeLocked(el)
	}
}

// Len returns the number of remembered keys, expired or not.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}

// sweepLocked drops expired keys from the front. Must be called with mu held.
func (g *Guard) sweepLocked(now time.Time) {
	for front := g.order.Front(); front != nil; front = g.order.Front() {
		if now.Sub(front.Value.(*entry).claimed) < g.ttl {
			return
		}
		g.removeLocked(front)
	}
}

func (g *Guard) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	g.order.Remove(el)
	delete(g.keys, el.Value.(*entry).key)
}
