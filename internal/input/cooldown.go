package input

import (
	"sync"
	"time"
)

// Cooldown enforces a minimum interval between actions.
type Cooldown struct {
	mu     sync.Mutex
	period time.Duration
	last   time.Time
	now    func() time.Time
}

// NewCooldown creates a gate that is open immediately.
func NewCooldown(period time.Duration) *Cooldown {
	return &Cooldown{period: period, now: time.Now}
}

// Try claims the gate. It returns false and the time left when the previous
// claim is younger than the period.
func (c *Cooldown) Try() (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.last.IsZero() {
		if left := c.period - now.Sub(c.last); left > 0 {
			return false, left
		}
	}
	c.last = now
	return true, 0
}

// Remaining returns how long until the gate opens.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		return 0
	}
	return max(c.period-c.now().Sub(c.last), 0)
}

// SetPeriod changes the interval; the last claim is kept.
func (c *Cooldown) SetPeriod(d time.Duration) {
	c.mu.Lock()
	c.period = d
	c.mu.Unlock()
}
