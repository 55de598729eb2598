package processing

import (
	"sync"
	"time"
)

const countdownTick = 100 * time.Millisecond

// Countdown is a one-shot timer ticking at 100 ms resolution. Start with a
// zero or negative duration completes immediately without blocking, and Wait
// returns promptly even when the countdown already finished.
type Countdown struct {
	mu        sync.Mutex
	cond      *sync.Cond
	running   bool
	remaining time.Duration
}

// NewCountdown creates an idle countdown.
func NewCountdown() *Countdown {
	c := &Countdown{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Start begins counting down from d. A countdown that is already running is
// restarted with the new duration.
func (c *Countdown) Start(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d <= 0 {
		c.running = false
		c.remaining = 0
		c.cond.Broadcast()
		return
	}

	c.remaining = d
	if c.running {
		return
	}
	c.running = true
	go c.worker()
}

func (c *Countdown) worker() {
	for {
		time.Sleep(countdownTick)

		c.mu.Lock()
		c.remaining -= countdownTick
		if c.remaining <= 0 {
			c.remaining = 0
			c.running = false
			c.cond.Broadcast()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// Wait blocks until the countdown completes. Returns immediately when no
// countdown is running.
func (c *Countdown) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.running {
		c.cond.Wait()
	}
}

// Remaining reports the time left, zero when idle.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
