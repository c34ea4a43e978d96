package keymap

import (
	"github.com/google/uuid"

	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/input/ratelimit"
)

// CallbackFunc is invoked when a trigger fires.
type CallbackFunc func(e *key.Event, data any)

// Callback wraps a CallbackFunc with an identity and an optional rate limiter.
// Callbacks are compared by pointer.
type Callback struct {
	fn      CallbackFunc
	limiter *ratelimit.Limiter
}

// CallbackOption configures a Callback.
type CallbackOption func(*Callback)

// WithLimiter applies a throttle or debounce limiter to the callback.
func WithLimiter(l *ratelimit.Limiter) CallbackOption {
	return func(c *Callback) {
		c.limiter = l
	}
}

// NewCallback creates a callback. A nil fn yields a callback that fails
// registration with ErrMissingCallback.
func NewCallback(fn CallbackFunc, opts ...CallbackOption) *Callback {
	c := &Callback{fn: fn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Valid reports whether the callback can be invoked.
func (c *Callback) Valid() bool {
	return c != nil && c.fn != nil
}

// Limiter returns the callback's limiter, or nil.
func (c *Callback) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Allow consults the limiter and reports whether a call made now may fire.
func (c *Callback) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// Call runs the callback without consulting the limiter.
func (c *Callback) Call(e *key.Event, data any) {
	c.fn(e, data)
}

// Invoke runs the callback if the limiter allows it and reports whether it ran.
func (c *Callback) Invoke(e *key.Event, data any) bool {
	if !c.Allow() {
		return false
	}
	c.Call(e, data)
	return true
}

// Trigger is a registered binding of a shortcut to a callback.
// Triggers are immutable once created.
type Trigger struct {
	// ID uniquely identifies the registration.
	ID string

	// Shortcut is the original specification, e.g. "c", "CTRL+ret", "g i".
	Shortcut string

	// Kind is the classified shape of Shortcut.
	Kind key.ShortcutKind

	// Modifier is the required modifier for combo triggers.
	Modifier key.Modifier

	// Callback is invoked when the trigger fires.
	Callback *Callback

	// Selector scopes the trigger to matching targets.
	// Empty means the default selector, which excludes text inputs.
	Selector string

	// Data is forwarded to the callback.
	Data any
}

func newTrigger(spec string, kind key.ShortcutKind, cb *Callback, selector string, data any) *Trigger {
	return &Trigger{
		ID:       uuid.NewString(),
		Shortcut: spec,
		Kind:     kind,
		Callback: cb,
		Selector: selector,
		Data:     data,
	}
}

// SequenceEnd pairs an end-key label with its trigger.
type SequenceEnd struct {
	Label   string
	Trigger *Trigger
}

// starter holds the sequence-end triggers for one start key.
// order preserves first registration order of end labels.
type starter struct {
	ends  map[string]*Trigger
	order []string
}

func newStarter() *starter {
	return &starter{ends: make(map[string]*Trigger)}
}

func (s *starter) set(label string, t *Trigger) {
	if _, ok := s.ends[label]; !ok {
		s.order = append(s.order, label)
	}
	s.ends[label] = t
}

func (s *starter) delete(label string) {
	if _, ok := s.ends[label]; !ok {
		return
	}
	delete(s.ends, label)
	for i, l := range s.order {
		if l == label {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *starter) list() []SequenceEnd {
	out := make([]SequenceEnd, 0, len(s.order))
	for _, label := range s.order {
		out = append(out, SequenceEnd{Label: label, Trigger: s.ends[label]})
	}
	return out
}
