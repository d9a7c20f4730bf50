package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Cooldowns tracks per-key command cooldowns in memory. Keys are usually
// "<command>:<user id>".
type Cooldowns struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{until: make(map[string]time.Time), now: time.Now}
}

// Allow reports whether key is off cooldown and, if so, starts a new cooldown
// of d. When denied it returns the time left.
func (c *Cooldowns) Allow(key string, d time.Duration) (bool, time.Duration) {
	if d <= 0 {
		return true, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if until, ok := c.until[key]; ok && now.Before(until) {
		return false, until.Sub(now)
	}
	c.until[key] = now.Add(d)
	return true, 0
}

// Prune drops expired entries and returns how many were removed.
func (c *Cooldowns) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for key, until := range c.until {
		if !now.Before(until) {
			delete(c.until, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.until)
}

// RunCooldownCleaner prunes expired cooldowns every minute until ctx is done.
func RunCooldownCleaner(ctx context.Context, c *Cooldowns, log zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				log.Debug().Int("removed", n).Msg("Cleared expired cooldowns")
			}
		}
	}
}
