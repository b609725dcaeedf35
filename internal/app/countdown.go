package app

import (
	"sync"
	"time"
)

// Countdown is a cancelable per-question clock. It fires onTick once per
// second with the remaining count, from seconds-1 down to 0, then fires
// onExpire exactly once and goes inert.
//
// Callbacks run on the countdown's own goroutine, serialized under its mutex.
// Cancel blocks until any in-flight callback returns, so once Cancel returns
// no further onTick or onExpire calls are made. Cancel must not be called
// from inside a callback.
type Countdown struct {
	mu      sync.Mutex
	stopped bool
	ticker  *time.Ticker
	quit    chan struct{}
}

func StartCountdown(seconds int, onTick func(remaining int), onExpire func()) *Countdown {
	return startCountdown(seconds, time.Second, onTick, onExpire)
}

// startCountdown lets tests compress the tick interval.
func startCountdown(seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) *Countdown {
	c := &Countdown{ticker: time.NewTicker(interval), quit: make(chan struct{})}
	go c.run(seconds, onTick, onExpire)
	return c
}

func (c *Countdown) run(seconds int, onTick func(remaining int), onExpire func()) {
	remaining := seconds
	for {
		select {
		case <-c.ticker.C:
		case <-c.quit:
			return
		}

		c.mu.Lock()
		if c.stopped {
			c.mu.Unlock()
			return
		}
		remaining--
		onTick(remaining)
		if remaining <= 0 {
			c.stopped = true
			c.ticker.Stop()
			onExpire()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// Cancel stops the countdown. Safe to call at any time, from any goroutine,
// including after expiry (no-op).
func (c *Countdown) Cancel() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		c.ticker.Stop()
		close(c.quit)
	}
	c.mu.Unlock()
}
