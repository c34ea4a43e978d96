package terminal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/dshills/keystrike/internal/event"
	"github.com/dshills/keystrike/internal/input"
	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/logging"
	"github.com/dshills/keystrike/internal/shortcuts"
)

// KeyHandler consumes normalized key events.
type KeyHandler interface {
	HandleEvent(e *key.Event) bool
}

// DefaultHistory is the number of fired shortcuts kept on screen.
const DefaultHistory = 20

// Runner reads keys from a tcell screen, feeds them to a KeyHandler and
// shows the shortcuts that fired.
type Runner struct {
	screen  tcell.Screen
	handler KeyHandler
	bus     *event.Bus
	logger  logrus.FieldLogger
	target  any
	quitKey tcell.Key
	metrics *input.Metrics

	mu         sync.Mutex
	history    []string
	maxHistory int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBus shows signals published on bus.
func WithBus(bus *event.Bus) Option {
	return func(r *Runner) {
		r.bus = bus
	}
}

// WithMetrics shows the engine's counters in the status line.
func WithMetrics(m *input.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTarget sets the target attached to every key event.
func WithTarget(target any) Option {
	return func(r *Runner) {
		r.target = target
	}
}

// WithHistory sets how many fired shortcuts are shown.
func WithHistory(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxHistory = n
		}
	}
}

// WithQuitKey sets the key that stops the runner. Default: ctrl+c.
func WithQuitKey(k tcell.Key) Option {
	return func(r *Runner) {
		r.quitKey = k
	}
}

// NewRunner creates a runner on screen. The screen is initialized by Run.
func NewRunner(screen tcell.Screen, handler KeyHandler, opts ...Option) *Runner {
	r := &Runner{
		screen:     screen,
		handler:    handler,
		logger:     logging.Discard(),
		quitKey:    tcell.KeyCtrlC,
		maxHistory: DefaultHistory,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.Component(r.logger, "terminal")
	return r
}

// Run processes key events until ctx is done or the quit key is pressed.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer r.screen.Fini()

	if r.bus != nil {
		sub, err := r.bus.Subscribe("**", event.AsHandler[shortcuts.Signal](r.onSignal),
			event.WithPriority(event.PriorityLow),
			event.WithFilter(func(env event.Envelope) bool {
				return env.Metadata.Source == shortcuts.Source
			}),
		)
		if err != nil {
			return err
		}
		defer func() { _ = r.bus.Unsubscribe(sub) }()
	}

	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			ev := r.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	r.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if quit := r.handle(ev); quit {
				return nil
			}
		}
	}
}

// handle processes one screen event and reports whether to quit.
func (r *Runner) handle(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventKey:
		if e.Key() == r.quitKey {
			return true
		}
		ke, ok := Convert(e)
		if !ok {
			r.logger.WithField("key", e.Name()).Trace("unmapped key")
			return false
		}
		ke.Target = r.target

		r.handler.HandleEvent(ke)
		r.draw()
	case *tcell.EventResize:
		r.screen.Sync()
		r.draw()
	}
	return false
}

func (r *Runner) onSignal(_ context.Context, env event.Envelope, sig shortcuts.Signal) error {
	line := fmt.Sprintf("%-24s %s", env.Topic, sig.Shortcut)
	if sig.Data != nil {
		line += fmt.Sprintf("  %v", sig.Data)
	}

	r.mu.Lock()
	r.history = append(r.history, line)
	if len(r.history) > r.maxHistory {
		r.history = r.history[len(r.history)-r.maxHistory:]
	}
	r.mu.Unlock()
	return nil
}

// History returns the fired shortcut lines, oldest first.
func (r *Runner) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

var (
	headerStyle = tcell.StyleDefault.Bold(true)
	dimStyle    = tcell.StyleDefault.Dim(true)
)

func (r *Runner) draw() {
	r.mu.Lock()
	history := append([]string(nil), r.history...)
	r.mu.Unlock()

	r.screen.Clear()
	r.putString(0, 0, fmt.Sprintf("keystrike  (%s to quit)", tcell.KeyNames[r.quitKey]), headerStyle)
	if r.metrics != nil {
		r.putString(0, 1, StatusLine(r.metrics.Snapshot()), dimStyle)
	}

	_, height := r.screen.Size()
	for i, line := range history {
		y := 3 + i
		if y >= height {
			break
		}
		r.putString(0, y, line, tcell.StyleDefault)
	}
	r.screen.Show()
}

// StatusLine formats the engine counters shown under the header.
func StatusLine(s input.MetricsSnapshot) string {
	return fmt.Sprintf("keys %d  fired %d  suppressed %d  filtered %d  armed %d  timeouts %d  avg %s",
		s.KeyEventsTotal, s.Fired, s.Suppressed, s.Filtered, s.SequencesArmed, s.SequenceTimeouts,
		s.AvgKeyLatency.Round(time.Microsecond))
}

func (r *Runner) putString(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}
