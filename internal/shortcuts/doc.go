// Package shortcuts is the public face of the keyboard shortcut engine.
//
// A Service owns a trigger registry, the match engine and an event bus.
// Shortcuts are registered either with a raw callback (AddShortcut) or by
// event name (Add): when an event-name shortcut fires, the service publishes
// a Signal on the bus topic named after the event. Event-name shortcuts are
// debounced with the global window unless a throttle is requested.
//
// Registrations can also arrive as bus messages on "shortcut.add" and
// "shortcut.remove", either as AddRequest/RemoveRequest values or as JSON.
//
// # Usage
//
//	svc := shortcuts.New(nil, shortcuts.WithShortcuts(map[string][]shortcuts.Binding{
//	    "g i": {{EventName: "inbox.open"}},
//	}))
//	defer svc.Close()
//
//	svc.Bus().SubscribeFunc("inbox.open", func(ctx context.Context, env event.Envelope) error {
//	    sig := env.Payload.(shortcuts.Signal)
//	    ...
//	})
//
//	svc.HandleKeyPress(key.NewEvent('g', key.ModNone))
//	svc.HandleKeyPress(key.NewEvent('i', key.ModNone))
package shortcuts
