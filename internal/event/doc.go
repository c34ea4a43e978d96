// Package event provides the in-process message bus that connects the
// shortcut engine to the rest of a host application.
//
// Publishers send an Envelope on a dotted topic; subscribers register a
// Handler for a topic pattern that may contain wildcards (see package topic).
// The shortcut service uses two directions:
//
//	shortcut.add, shortcut.remove   inbound registration requests
//	<eventName>                     outbound signal when a shortcut fires
//
// Delivery is synchronous and ordered by subscription priority. A panicking
// handler is recovered and reported to the publisher as a *PanicError, which
// matches ErrHandlerPanic with errors.Is.
//
// # Usage
//
//	bus := event.NewBus()
//	sub, _ := bus.SubscribeFunc("inbox.*", func(ctx context.Context, env event.Envelope) error {
//	    fmt.Println(env.Topic, env.Payload)
//	    return nil
//	})
//	defer bus.Unsubscribe(sub)
//
//	_ = bus.Publish(ctx, "inbox.open", nil, "example")
package event
