// Package timeutil abstracts wall-clock access so periodic work can be
// driven deterministically in tests.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the subset of time operations the monitor's loops need. The
// real implementation delegates to package time; tests substitute a
// MockClock and crank it by hand.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock implements Clock on the time package.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (rt *realTicker) C() <-chan time.Time { return rt.t.C }
func (rt *realTicker) Stop()               { rt.t.Stop() }

// MockClock is a hand-cranked Clock. Time only moves when Advance is
// called, which also delivers ticks to any tickers that have come due.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*mockTicker
}

// NewMockClock returns a MockClock frozen at start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// NewTicker registers a ticker that first fires once the clock has
// advanced d past the current time.
func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := &mockTicker{
		ch:   make(chan time.Time, 1),
		next: c.now.Add(d),
		step: d,
	}
	c.tickers = append(c.tickers, mt)
	return mt
}

// Advance moves the clock forward by d and fires every due ticker.
// Sends are non-blocking, so a receiver that has fallen behind sees at
// most one buffered tick.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	due := make([]*mockTicker, len(c.tickers))
	copy(due, c.tickers)
	c.mu.Unlock()

	for _, mt := range due {
		mt.fire(now)
	}
}

type mockTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	next    time.Time
	step    time.Duration
	stopped bool
}

func (mt *mockTicker) C() <-chan time.Time { return mt.ch }

func (mt *mockTicker) Stop() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.stopped = true
}

func (mt *mockTicker) fire(now time.Time) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.stopped || now.Before(mt.next) {
		return
	}
	select {
	case mt.ch <- now:
	default:
	}
	mt.next = now.Add(mt.step)
}
