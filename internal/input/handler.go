package input

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/input/keymap"
	"github.com/dshills/keystrike/internal/input/selector"
	"github.com/dshills/keystrike/internal/logging"
)

// DefaultSequenceTimeout is how long an armed sequence waits for its end key.
const DefaultSequenceTimeout = 1000 * time.Millisecond

// Config configures the input handler.
type Config struct {
	// SequenceTimeout is how long to wait for the second key of a sequence.
	// Zero or negative disables the timer; armed sequences then stay armed
	// until the next key event.
	// Default: 1000ms
	SequenceTimeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SequenceTimeout: DefaultSequenceTimeout,
	}
}

// Handler resolves key events against a trigger registry and fires the
// matching callbacks.
//
// Matching runs under the handler mutex, so events are processed strictly in
// arrival order. Callbacks run after the mutex is released and may register
// or remove triggers.
type Handler struct {
	mu sync.Mutex

	config   Config
	registry *keymap.Registry
	matcher  selector.Matcher
	hooks    *HookManager
	metrics  *Metrics
	logger   logrus.FieldLogger

	// Sequence timeout timer; seqGen invalidates timers that were stopped
	// too late to prevent their callback from running.
	seqTimer *time.Timer
	seqGen   uint64

	closed bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(h *Handler) {
		h.logger = logging.Component(logger, "input")
	}
}

// WithMatcher replaces the CSS selector matcher.
func WithMatcher(m selector.Matcher) Option {
	return func(h *Handler) {
		if m != nil {
			h.matcher = m
		}
	}
}

// NewHandler creates a handler over registry.
func NewHandler(registry *keymap.Registry, config Config, opts ...Option) *Handler {
	if registry == nil {
		registry = keymap.NewRegistry(nil)
	}
	h := &Handler{
		config:   config,
		registry: registry,
		matcher:  selector.NewCSSMatcher(),
		hooks:    NewHookManager(),
		metrics:  NewMetrics(),
		logger:   logging.Component(nil, "input"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleKeyPress processes a character-producing key press.
// It returns true if at least one trigger fired.
func (h *Handler) HandleKeyPress(e *key.Event) bool {
	if e == nil {
		return false
	}
	e.Kind = key.KindPress
	return h.HandleEvent(e)
}

// HandleKeyDown processes a raw key-down. Only named keys (esc, ret, arrows
// and so on) are matched; any other key-down is ignored and leaves sequence
// state untouched.
func (h *Handler) HandleKeyDown(e *key.Event) bool {
	if e == nil {
		return false
	}
	e.Kind = key.KindDown
	return h.HandleEvent(e)
}

// HandleEvent processes a key event according to its Kind.
// It returns true if at least one trigger fired.
func (h *Handler) HandleEvent(e *key.Event) bool {
	if e == nil || h.IsClosed() {
		return false
	}

	code := e.Code.Lower()
	if e.Kind == key.KindDown && !h.registry.Resolver().IsNamedCode(code) {
		return false
	}

	if h.hooks.RunPreKeyEvent(e) {
		h.metrics.RecordHookConsumption()
		return false
	}

	start := time.Now()
	candidates := h.resolve(e, code)
	fired := h.fire(e, candidates)
	h.metrics.RecordKeyEvent(time.Since(start))

	h.hooks.RunPostKeyEvent(e, fired)
	return len(fired) > 0
}

// resolve selects the candidate triggers for e and updates sequence state.
func (h *Handler) resolve(e *key.Event, code key.Code) []*keymap.Trigger {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	var candidates []*keymap.Trigger
	matched := false

	if e.HasModifier() {
		combos := h.registry.Combos(code)
		if len(combos) > 0 {
			matched = true
			for _, t := range combos {
				if e.Modifiers.Has(t.Modifier) {
					candidates = append(candidates, t)
				}
			}
		}
	}

	if !matched && !e.HasFunctionModifier() {
		if t := h.registry.Active(code); t != nil {
			matched = true
			candidates = []*keymap.Trigger{t}
		} else if singles := h.registry.Singles(code); len(singles) > 0 {
			matched = true
			candidates = singles
		} else if ends := h.registry.SequenceEnds(code); len(ends) > 0 {
			h.armLocked(e, ends)
			return nil
		}
	}

	// Exactly one sequence hop is remembered; anything but a starter ends it.
	h.clearSequencesLocked()

	if !matched {
		h.metrics.RecordUnmatched()
		h.logger.WithField("key", e.String()).Debug("no trigger")
	}
	return candidates
}

// fire invokes every candidate whose selector matches the event target and
// whose limiter allows the call. It returns the triggers that fired.
func (h *Handler) fire(e *key.Event, candidates []*keymap.Trigger) []*keymap.Trigger {
	var fired []*keymap.Trigger
	for _, t := range candidates {
		ok, err := h.matcher.Match(e.Target, t.Selector)
		if err != nil {
			h.logger.WithError(err).WithField("shortcut", t.Shortcut).Warn("selector evaluation failed")
		}
		if !ok {
			h.metrics.RecordFiltered()
			continue
		}

		if !t.Callback.Allow() {
			h.metrics.RecordSuppressed()
			continue
		}

		e.PreventDefault()
		e.StopPropagation()
		t.Callback.Call(e, t.Data)

		h.metrics.RecordFired()
		h.logger.WithFields(logrus.Fields{"shortcut": t.Shortcut, "key": e.String()}).Debug("trigger fired")
		fired = append(fired, t)
	}
	return fired
}

// armLocked replaces the active sequences with ends and restarts the timer.
func (h *Handler) armLocked(e *key.Event, ends []keymap.SequenceEnd) {
	if err := h.registry.ArmSequences(ends); err != nil {
		h.logger.WithError(err).Warn("sequence end could not be armed")
	}
	h.metrics.RecordSequenceArmed()
	h.logger.WithFields(logrus.Fields{"key": e.String(), "ends": len(ends)}).Debug("sequence armed")

	h.stopSequenceTimeoutLocked()
	if h.config.SequenceTimeout <= 0 {
		return
	}
	gen := h.seqGen
	h.seqTimer = time.AfterFunc(h.config.SequenceTimeout, func() {
		h.handleSequenceTimeout(gen)
	})
}

// clearSequencesLocked disarms all sequences and stops the timer.
func (h *Handler) clearSequencesLocked() {
	h.stopSequenceTimeoutLocked()
	h.registry.ClearActiveSequences()
}

// stopSequenceTimeoutLocked stops the timer and invalidates any callback
// already in flight.
func (h *Handler) stopSequenceTimeoutLocked() {
	h.seqGen++
	if h.seqTimer != nil {
		h.seqTimer.Stop()
		h.seqTimer = nil
	}
}

// handleSequenceTimeout is called when the sequence timeout fires.
func (h *Handler) handleSequenceTimeout(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || gen != h.seqGen {
		return
	}
	h.seqTimer = nil

	if h.registry.HasActiveSequences() {
		h.registry.ClearActiveSequences()
		h.metrics.RecordSequenceTimeout()
		h.logger.Debug("sequence expired")
	}
}

// Pending reports whether a sequence is armed and waiting for its end key.
func (h *Handler) Pending() bool {
	return h.registry.HasActiveSequences()
}

// Registry returns the trigger registry.
func (h *Handler) Registry() *keymap.Registry {
	return h.registry
}

// Hooks returns the hook manager.
func (h *Handler) Hooks() *HookManager {
	return h.hooks
}

// Metrics returns the metrics collector.
func (h *Handler) Metrics() *Metrics {
	return h.metrics
}

// Close stops the sequence timer. Events received afterwards are ignored.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	h.clearSequencesLocked()
}

// IsClosed returns true if the handler has been closed.
func (h *Handler) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
