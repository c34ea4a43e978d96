package shortcuts

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/keystrike/internal/input"
	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/input/ratelimit"
	"github.com/dshills/keystrike/internal/input/selector"
)

// Options configures a Service.
type Options struct {
	// Debounce is the window applied to shortcuts registered without throttle.
	// Default: 200ms
	Debounce time.Duration

	// Throttle is the window used by ThrottleDefault.
	// Default: 100ms
	Throttle time.Duration

	// SequenceTimeout is how long a sequence waits for its second key.
	// Default: 1000ms
	SequenceTimeout time.Duration

	// NamedKeys replaces the named-key table. Nil keeps the default table.
	NamedKeys map[string]key.Code

	// Modifiers replaces the modifier table. Nil keeps the default table.
	Modifiers map[string]key.Modifier

	// Shortcuts are registered when the service starts, keyed by shortcut.
	Shortcuts map[string][]Binding

	// Logger receives service, engine and bus logs.
	Logger logrus.FieldLogger

	// Matcher evaluates trigger selectors. Nil selects the CSS matcher.
	Matcher selector.Matcher

	// Clock drives throttle and debounce windows. Nil selects the system clock.
	Clock ratelimit.Clock
}

// DefaultOptions returns the default service options.
func DefaultOptions() Options {
	return Options{
		Debounce:        ratelimit.DefaultDebounce,
		Throttle:        ratelimit.DefaultThrottle,
		SequenceTimeout: input.DefaultSequenceTimeout,
	}
}

// Option configures Options.
type Option func(*Options)

// WithDebounce sets the global debounce window.
func WithDebounce(d time.Duration) Option {
	return func(o *Options) {
		o.Debounce = d
	}
}

// WithThrottle sets the global throttle window.
func WithThrottle(d time.Duration) Option {
	return func(o *Options) {
		o.Throttle = d
	}
}

// WithSequenceTimeout sets the sequence timeout.
func WithSequenceTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.SequenceTimeout = d
	}
}

// WithNamedKeys replaces the named-key table.
func WithNamedKeys(named map[string]key.Code) Option {
	return func(o *Options) {
		o.NamedKeys = named
	}
}

// WithModifiers replaces the modifier table.
func WithModifiers(mods map[string]key.Modifier) Option {
	return func(o *Options) {
		o.Modifiers = mods
	}
}

// WithShortcuts sets the shortcuts registered at startup.
func WithShortcuts(shortcuts map[string][]Binding) Option {
	return func(o *Options) {
		o.Shortcuts = shortcuts
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMatcher sets the selector matcher.
func WithMatcher(m selector.Matcher) Option {
	return func(o *Options) {
		o.Matcher = m
	}
}

// WithClock sets the clock used by rate limiters.
func WithClock(c ratelimit.Clock) Option {
	return func(o *Options) {
		o.Clock = c
	}
}

// Throttle selects the rate limiting policy of a registration.
// The zero value means debounce with the global window.
type Throttle struct {
	enabled bool
	window  time.Duration
}

// ThrottleDefault throttles with the global throttle window.
var ThrottleDefault = Throttle{enabled: true}

// ThrottleAfter throttles with a custom window.
func ThrottleAfter(window time.Duration) Throttle {
	return Throttle{enabled: true, window: window}
}

// Enabled reports whether the registration is throttled rather than debounced.
func (t Throttle) Enabled() bool {
	return t.enabled
}

// Window returns the throttle window, or def when the global window applies.
func (t Throttle) Window(def time.Duration) time.Duration {
	if t.window > 0 {
		return t.window
	}
	return def
}

// String describes the policy.
func (t Throttle) String() string {
	switch {
	case !t.enabled:
		return "debounce"
	case t.window > 0:
		return "throttle(" + t.window.String() + ")"
	default:
		return "throttle"
	}
}

// Binding is a declarative shortcut entry.
type Binding struct {
	// EventName is published on the bus when the shortcut fires.
	EventName string

	// Selector scopes the shortcut. Empty means the default selector.
	Selector string

	// Throttle selects throttle instead of debounce.
	Throttle Throttle
}
