package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dshills/keystrike/internal/event/topic"
	"github.com/dshills/keystrike/internal/logging"
)

// Bus delivers envelopes to subscribers whose pattern matches the topic.
//
// Delivery is synchronous: Publish returns after every matching handler has
// run, in priority order, then subscription order. Handler errors and panics
// do not stop delivery to the remaining handlers; they are joined into the
// error Publish returns.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	closed bool

	logger logrus.FieldLogger

	eventsPublished atomic.Uint64
	eventsDelivered atomic.Uint64
	handlerErrors   atomic.Uint64
	handlerPanics   atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the bus logger.
func WithLogger(logger logrus.FieldLogger) BusOption {
	return func(b *Bus) {
		b.logger = logging.Component(logger, "event")
	}
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		logger: logging.Component(nil, "event"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe creates a subscription for the given topic pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	sub := newSubscription(uuid.NewString(), pattern, handler, opts...)
	b.subs = append(b.subs, sub)
	sort.SliceStable(b.subs, func(i, j int) bool {
		return b.subs[i].config.Priority < b.subs[j].config.Priority
	})

	b.logger.WithFields(logrus.Fields{"topic": pattern, "subscription": sub.id}).Debug("subscribed")
	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (b *Bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	sub.Cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.removeLocked(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (b *Bus) removeLocked(id string) bool {
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish wraps payload in an envelope and delivers it.
func (b *Bus) Publish(ctx context.Context, t topic.Topic, payload any, source string) error {
	return b.PublishEnvelope(ctx, NewEnvelope(t, payload, source))
}

// PublishEnvelope delivers env to every active subscription whose pattern
// matches its topic.
func (b *Bus) PublishEnvelope(ctx context.Context, env Envelope) error {
	if !env.Topic.IsValid() || env.Topic.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, env.Topic)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.shouldDeliver(env) {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	b.eventsPublished.Add(1)

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if s.config.Once && !s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStateCancelled)) {
			continue
		}

		if err := b.deliver(ctx, s, env); err != nil {
			errs = append(errs, err)
		}

		if s.config.Once {
			b.mu.Lock()
			b.removeLocked(s.id)
			b.mu.Unlock()
		}
	}
	return errors.Join(errs...)
}

// deliver runs one handler, converting a panic into a *PanicError.
func (b *Bus) deliver(ctx context.Context, s *subscription, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			err = &PanicError{
				SubscriptionID: s.id,
				Topic:          env.Topic.String(),
				Value:          r,
				Stack:          string(debug.Stack()),
			}
			b.logger.WithFields(logrus.Fields{"topic": env.Topic, "panic": r}).Error("handler panicked")
		}
	}()

	if herr := s.handler.Handle(ctx, env); herr != nil {
		b.handlerErrors.Add(1)
		b.logger.WithError(herr).WithField("topic", env.Topic).Warn("handler failed")
		return &HandlerError{SubscriptionID: s.id, Topic: env.Topic.String(), Err: herr}
	}
	b.eventsDelivered.Add(1)
	return nil
}

// Close cancels all subscriptions. Later calls to Publish and Subscribe fail
// with ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		s.Cancel()
	}
	b.subs = nil
	b.closed = true
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}
