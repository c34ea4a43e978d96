package shortcuts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/keystrike/internal/event"
	"github.com/dshills/keystrike/internal/event/topic"
	"github.com/dshills/keystrike/internal/input"
	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/input/keymap"
	"github.com/dshills/keystrike/internal/input/ratelimit"
	"github.com/dshills/keystrike/internal/logging"
)

// Bus topics for inbound registration requests.
const (
	TopicAdd    topic.Topic = "shortcut.add"
	TopicRemove topic.Topic = "shortcut.remove"
)

// Source identifies the service in the envelopes it publishes.
const Source = "shortcuts"

// Signal is the payload published on a shortcut's event name when it fires.
type Signal struct {
	// Event is the key event that fired the shortcut.
	Event *key.Event

	// Data is the registration's data argument.
	Data any

	// Shortcut is the shortcut specification, e.g. "g i".
	Shortcut string
}

// AddRequest asks the service to publish EventName whenever Shortcut fires.
type AddRequest struct {
	Shortcut  string
	EventName string
	Selector  string
	Throttle  Throttle
	Data      any
}

// RemoveRequest asks the service to remove a shortcut. When EventName and
// Selector are both empty every trigger on the shortcut's key is removed.
type RemoveRequest struct {
	Shortcut  string
	EventName string
	Selector  string
}

// Registration describes a registered trigger.
type Registration struct {
	Trigger *keymap.Trigger

	// EventName is empty for triggers registered with a raw callback.
	EventName string

	// Throttle is the policy of event-name registrations.
	Throttle Throttle

	// Declared is true for triggers from the declarative shortcut map.
	Declared bool
}

type registration struct {
	eventName string
	throttle  Throttle
	declared  bool
}

// Service wires a trigger registry, the match engine and the event bus.
type Service struct {
	mu sync.Mutex

	opts     Options
	bus      *event.Bus
	registry *keymap.Registry
	handler  *input.Handler
	logger   logrus.FieldLogger

	// regs describes triggers registered through the service, by trigger ID.
	regs map[string]registration
	subs []event.Subscription
}

// New creates a service. A nil bus creates a private one. Declarative
// shortcuts that fail to register are logged and skipped.
func New(bus *event.Bus, opts ...Option) *Service {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if bus == nil {
		bus = event.NewBus(event.WithLogger(logger))
	}

	registry := keymap.NewRegistry(key.NewResolver(o.NamedKeys, o.Modifiers), keymap.WithLogger(logger))
	handler := input.NewHandler(registry, input.Config{SequenceTimeout: o.SequenceTimeout},
		input.WithLogger(logger),
		input.WithMatcher(o.Matcher),
	)

	s := &Service{
		opts:     o,
		bus:      bus,
		registry: registry,
		handler:  handler,
		logger:   logging.Component(logger, "shortcuts"),
		regs:     make(map[string]registration),
	}

	s.subscribe()

	if err := s.declare(o.Shortcuts); err != nil {
		s.logger.WithError(err).Warn("some shortcuts were not registered")
	}
	return s
}

// subscribe listens for inbound registration requests.
func (s *Service) subscribe() {
	add, err := s.bus.SubscribeFunc(TopicAdd, func(_ context.Context, env event.Envelope) error {
		req, err := decodeAdd(env.Payload)
		if err != nil {
			return err
		}
		_, err = s.Add(req)
		return err
	})
	if err != nil {
		s.logger.WithError(err).Error("cannot subscribe to shortcut.add")
		return
	}

	remove, err := s.bus.SubscribeFunc(TopicRemove, func(_ context.Context, env event.Envelope) error {
		req, err := decodeRemove(env.Payload)
		if err != nil {
			return err
		}
		_, err = s.Remove(req.Shortcut, req.EventName, req.Selector)
		return err
	})
	if err != nil {
		s.logger.WithError(err).Error("cannot subscribe to shortcut.remove")
		return
	}

	s.subs = []event.Subscription{add, remove}
}

// Add registers a shortcut that publishes req.EventName on the bus.
//
// Every call builds a new callback with its own limiter: throttled when
// req.Throttle is set, debounced with the global window otherwise.
func (s *Service) Add(req AddRequest) (*keymap.Trigger, error) {
	return s.add(req, false)
}

func (s *Service) add(req AddRequest, declared bool) (*keymap.Trigger, error) {
	name := topic.Topic(req.EventName)
	if !name.IsValid() || name.IsWildcard() {
		return nil, fmt.Errorf("%w: invalid event name %q", key.ErrInvalidArgument, req.EventName)
	}

	cb := s.newCallback(name, req.Shortcut, req.Throttle)

	t, err := s.registry.Add(req.Shortcut, cb, req.Selector, req.Data)
	if err != nil {
		s.logger.WithError(err).WithField("shortcut", req.Shortcut).Warn("shortcut rejected")
		return nil, err
	}

	s.mu.Lock()
	s.regs[t.ID] = registration{eventName: req.EventName, throttle: req.Throttle, declared: declared}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"shortcut": req.Shortcut,
		"event":    req.EventName,
		"policy":   req.Throttle.String(),
	}).Debug("shortcut added")
	return t, nil
}

// newCallback builds the rate-limited callback that publishes name.
func (s *Service) newCallback(name topic.Topic, shortcut string, th Throttle) *keymap.Callback {
	var clock []ratelimit.Option
	if s.opts.Clock != nil {
		clock = append(clock, ratelimit.WithClock(s.opts.Clock))
	}

	var limiter *ratelimit.Limiter
	if th.Enabled() {
		limiter = ratelimit.NewThrottle(th.Window(s.opts.Throttle), clock...)
	} else {
		limiter = ratelimit.NewDebounce(s.opts.Debounce, clock...)
	}

	return keymap.NewCallback(func(e *key.Event, data any) {
		sig := Signal{Event: e, Data: data, Shortcut: shortcut}
		if err := s.bus.Publish(context.Background(), name, sig, Source); err != nil {
			s.logger.WithError(err).WithField("event", name).Warn("signal delivery failed")
		}
	}, keymap.WithLimiter(limiter))
}

// AddShortcut registers a raw callback. No rate limiting is applied unless
// cb carries a limiter.
func (s *Service) AddShortcut(spec string, cb *keymap.Callback, selector string, data any) (*keymap.Trigger, error) {
	t, err := s.registry.Add(spec, cb, selector, data)
	if err != nil {
		s.logger.WithError(err).WithField("shortcut", spec).Warn("shortcut rejected")
		return nil, err
	}

	s.mu.Lock()
	s.regs[t.ID] = registration{}
	s.mu.Unlock()
	return t, nil
}

// Remove removes a shortcut and returns the number of triggers removed.
//
// With an empty eventName and selector the whole index entry for the
// shortcut's key is removed, including triggers registered for other
// modifiers or sequence ends on the same key. Otherwise only triggers of
// this exact shortcut matching the given event name and selector go.
func (s *Service) Remove(spec, eventName, selector string) (int, error) {
	if eventName == "" && selector == "" {
		before := s.registry.Len()
		if err := s.registry.Remove(spec); err != nil {
			return 0, err
		}
		s.prune()
		n := before - s.registry.Len()
		s.logger.WithFields(logrus.Fields{"shortcut": spec, "count": n}).Debug("shortcut removed")
		return n, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.registry.RemoveTriggers(spec, func(t *keymap.Trigger) bool {
		reg := s.regs[t.ID]
		if eventName != "" && reg.eventName != eventName {
			return false
		}
		if selector != "" && t.Selector != selector {
			return false
		}
		delete(s.regs, t.ID)
		return true
	})
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"shortcut": spec, "event": eventName, "count": n}).Debug("shortcut removed")
	return n, nil
}

// prune forgets registrations whose trigger is no longer registered.
func (s *Service) prune() {
	live := make(map[string]bool)
	for _, t := range s.registry.Triggers() {
		live[t.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.regs {
		if !live[id] {
			delete(s.regs, id)
		}
	}
}

// Reload replaces the declarative shortcuts. Shortcuts added with Add or
// AddShortcut are kept. Every entry is checked before anything changes: if
// any entry is invalid the old shortcuts stay registered and the errors are
// returned joined. Otherwise the old and new sets are swapped in one step.
//
// Only the shortcut map is reloaded. Debounce, throttle, sequence timeout,
// named keys and modifiers keep the values the Service was created with.
func (s *Service) Reload(shortcuts map[string][]Binding) error {
	specs := make([]string, 0, len(shortcuts))
	for spec := range shortcuts {
		specs = append(specs, spec)
	}
	sort.Strings(specs)

	var (
		adds []keymap.Addition
		regs []registration
		errs []error
	)
	for _, spec := range specs {
		if err := s.registry.Resolver().Validate(spec); err != nil {
			errs = append(errs, fmt.Errorf("shortcut %q: %w", spec, err))
			continue
		}
		for _, b := range shortcuts[spec] {
			name := topic.Topic(b.EventName)
			if !name.IsValid() || name.IsWildcard() {
				errs = append(errs, fmt.Errorf("shortcut %q: %w: invalid event name %q", spec, key.ErrInvalidArgument, b.EventName))
				continue
			}
			adds = append(adds, keymap.Addition{
				Spec:     spec,
				Callback: s.newCallback(name, spec, b.Throttle),
				Selector: b.Selector,
			})
			regs = append(regs, registration{eventName: b.EventName, throttle: b.Throttle, declared: true})
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.logger.WithError(err).Warn("reload rejected")
		return err
	}

	s.mu.Lock()
	var old []string
	for id, reg := range s.regs {
		if reg.declared {
			old = append(old, id)
		}
	}
	triggers, err := s.registry.Replace(old, adds)
	if err == nil {
		for _, id := range old {
			delete(s.regs, id)
		}
		for i, t := range triggers {
			s.regs[t.ID] = regs[i]
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Warn("reload rejected")
		return err
	}
	s.prune()

	s.logger.WithFields(logrus.Fields{"shortcuts": len(shortcuts), "bindings": len(triggers)}).Info("shortcuts reloaded")
	return nil
}

// declare registers a declarative shortcut map in key order.
func (s *Service) declare(shortcuts map[string][]Binding) error {
	specs := make([]string, 0, len(shortcuts))
	for spec := range shortcuts {
		specs = append(specs, spec)
	}
	sort.Strings(specs)

	var errs []error
	for _, spec := range specs {
		for _, b := range shortcuts[spec] {
			_, err := s.add(AddRequest{
				Shortcut:  spec,
				EventName: b.EventName,
				Selector:  b.Selector,
				Throttle:  b.Throttle,
			}, true)
			if err != nil {
				errs = append(errs, fmt.Errorf("shortcut %q: %w", spec, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Registrations returns every registered trigger in registry order.
func (s *Service) Registrations() []Registration {
	triggers := s.registry.Triggers()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Registration, 0, len(triggers))
	for _, t := range triggers {
		reg := s.regs[t.ID]
		out = append(out, Registration{
			Trigger:   t,
			EventName: reg.eventName,
			Throttle:  reg.throttle,
			Declared:  reg.declared,
		})
	}
	return out
}

// HandleKeyPress feeds a key press to the engine.
func (s *Service) HandleKeyPress(e *key.Event) bool {
	return s.handler.HandleKeyPress(e)
}

// HandleKeyDown feeds a key down to the engine.
func (s *Service) HandleKeyDown(e *key.Event) bool {
	return s.handler.HandleKeyDown(e)
}

// HandleEvent feeds an event of either kind to the engine.
func (s *Service) HandleEvent(e *key.Event) bool {
	return s.handler.HandleEvent(e)
}

// Bus returns the event bus.
func (s *Service) Bus() *event.Bus {
	return s.bus
}

// Registry returns the trigger registry.
func (s *Service) Registry() *keymap.Registry {
	return s.registry
}

// Handler returns the match engine.
func (s *Service) Handler() *input.Handler {
	return s.handler
}

// Options returns the options the service was created with.
func (s *Service) Options() Options {
	return s.opts
}

// Close stops the engine and drops the bus subscriptions. The bus itself is
// left open.
func (s *Service) Close() {
	s.handler.Close()
	for _, sub := range s.subs {
		_ = s.bus.Unsubscribe(sub)
	}
	s.subs = nil
}
