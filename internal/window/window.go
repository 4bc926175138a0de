// Package window classifies the current instant against the daily
// challenge window and renders countdowns to its boundaries.
package window

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// The window is open during local wall-clock hours [OpenHour, CloseHour).
// Only the hour component gates membership.
const (
	OpenHour  = 5
	CloseHour = 7
)

// Status is a pure function of a single timestamp; it carries no memory
// of prior ticks.
type Status struct {
	Open bool

	// UntilClose is the time remaining to today's close boundary when
	// the window is open; zero otherwise.
	UntilClose time.Duration
	// UntilOpen is the time remaining to the next open boundary when
	// the window is closed; zero otherwise.
	UntilOpen time.Duration

	// CloseCountdown renders UntilClose as "{h}h {m}m {s}s"; empty when closed.
	CloseCountdown string
	// OpenCountdown renders UntilOpen the same way; empty when open.
	OpenCountdown string
}

// Classify computes the window status for the given instant in its own
// location. Free of hidden state so it can be tested against injected
// timestamps.
func Classify(now time.Time) Status {
	h := now.Hour()
	if h >= OpenHour && h < CloseHour {
		closeAt := time.Date(now.Year(), now.Month(), now.Day(), CloseHour, 0, 0, 0, now.Location())
		d := closeAt.Sub(now)
		return Status{Open: true, UntilClose: d, CloseCountdown: Countdown(d)}
	}
	openAt := time.Date(now.Year(), now.Month(), now.Day(), OpenHour, 0, 0, 0, now.Location())
	if h >= CloseHour {
		openAt = openAt.AddDate(0, 0, 1)
	}
	d := openAt.Sub(now)
	return Status{UntilOpen: d, OpenCountdown: Countdown(d)}
}

// Countdown formats a duration as "{h}h {m}m {s}s", truncating
// sub-second remainders toward zero.
func Countdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", s/3600, s%3600/60, s%60)
}

// Clock republishes the window status on a fixed period. Each tick
// recomputes from the wall clock, so clock adjustments are picked up on
// the next tick and no drift accumulates.
type Clock struct {
	now    func() time.Time
	period time.Duration

	mu  sync.RWMutex
	cur Status
}

// NewClock constructs a clock with a 1-second period. The now func is
// injectable for tests; nil means time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	c := &Clock{now: now, period: time.Second}
	c.cur = Classify(now())
	return c
}

// Status returns the most recently published window status.
func (c *Clock) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Now reports the clock's current time. Services use it so that window
// gating and tests share one time source.
func (c *Clock) Now() time.Time { return c.now() }

// Run ticks until the context is cancelled.
func (c *Clock) Run(ctx context.Context) {
	t := time.NewTicker(c.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := Classify(c.now())
			c.mu.Lock()
			c.cur = st
			c.mu.Unlock()
		}
	}
}
