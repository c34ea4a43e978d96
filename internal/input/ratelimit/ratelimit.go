// Package ratelimit provides throttle and debounce policies for shortcut
// callbacks.
//
// Both policies only suppress calls; nothing is ever queued or delayed to
// fire later.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Default windows.
const (
	DefaultThrottle = 100 * time.Millisecond
	DefaultDebounce = 200 * time.Millisecond
)

// Policy selects how a Limiter suppresses calls.
type Policy uint8

const (
	// PolicyThrottle allows a call only if more than the window has elapsed
	// since the last allowed call.
	PolicyThrottle Policy = iota

	// PolicyDebounce allows a call only if more than the window has elapsed
	// since the last call, allowed or not.
	PolicyDebounce
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyThrottle:
		return "throttle"
	case PolicyDebounce:
		return "debounce"
	default:
		return fmt.Sprintf("Policy(%d)", p)
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the clock used by the limiter.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// Limiter decides whether a call may proceed under its policy.
// It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	policy Policy
	window time.Duration
	clock  Clock

	last time.Time
	seen bool
}

// New creates a limiter with the given policy and window.
func New(policy Policy, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		policy: policy,
		window: window,
		clock:  SystemClock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewThrottle creates a throttling limiter.
func NewThrottle(window time.Duration, opts ...Option) *Limiter {
	return New(PolicyThrottle, window, opts...)
}

// NewDebounce creates a debouncing limiter.
func NewDebounce(window time.Duration, opts ...Option) *Limiter {
	return New(PolicyDebounce, window, opts...)
}

// Policy returns the limiter policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Window returns the limiter window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Allow reports whether a call made now may proceed and records it.
func (l *Limiter) Allow() bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := !l.seen || now.Sub(l.last) > l.window

	switch l.policy {
	case PolicyDebounce:
		l.last = now
		l.seen = true
	default:
		if allowed {
			l.last = now
			l.seen = true
		}
	}

	return allowed
}

// Do calls fn if Allow permits it and reports whether fn ran.
func (l *Limiter) Do(fn func()) bool {
	if !l.Allow() {
		return false
	}
	fn()
	return true
}

// Reset forgets the last recorded call.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = false
	l.last = time.Time{}
}
