package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type cooldownEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Cooldown tracks one token bucket per sender: a single token that refills
// once per cooldown window. Idle entries are dropped by Sweep and the map
// never grows past maxKeys.
type Cooldown struct {
	mu      sync.Mutex
	window  time.Duration
	idleTTL time.Duration
	maxKeys int
	entries map[string]*cooldownEntry
	now     func() time.Time
}

// NewCooldown returns a tracker. A zero window disables limiting.
func NewCooldown(window, idleTTL time.Duration, maxKeys int) *Cooldown {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if idleTTL < window {
		idleTTL = window
	}
	return &Cooldown{
		window:  window,
		idleTTL: idleTTL,
		maxKeys: maxKeys,
		entries: make(map[string]*cooldownEntry),
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (c *Cooldown) WithClock(now func() time.Time) *Cooldown {
	c.now = now
	return c
}

// Allow consumes the sender's token if one is available.
func (c *Cooldown) Allow(key string) bool {
	if c.window <= 0 {
		return true
	}
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		if len(c.entries) >= c.maxKeys {
			c.evictLocked(now)
		}
		e = &cooldownEntry{limiter: rate.NewLimiter(rate.Every(c.window), 1)}
		c.entries[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)
	c.mu.Unlock()

	return allowed
}

// Remaining returns how long until key may run again.
func (c *Cooldown) Remaining(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0
	}
	now := c.now()
	r := e.limiter.ReserveN(now, 1)
	d := r.DelayFrom(now)
	r.CancelAt(now)
	return d
}

// Sweep drops entries idle longer than the TTL and returns how many went.
func (c *Cooldown) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.lastSeen) > c.idleTTL {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked senders.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked frees room for one entry: idle entries first, then the least
// recently seen one.
func (c *Cooldown) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if now.Sub(e.lastSeen) > c.idleTTL {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = k, e.lastSeen
		}
	}
	if len(c.entries) >= c.maxKeys && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
