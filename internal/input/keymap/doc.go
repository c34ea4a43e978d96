// Package keymap provides trigger registration for the shortcut engine.
//
// A Trigger binds a shortcut specification to a Callback, an optional
// selector and an opaque data payload. The Registry keeps four independent
// indexes keyed by key code:
//
//	singles    code -> ordered triggers            ("c", "esc")
//	combos     code -> ordered modifier triggers   ("CTRL+ret")
//	starters   code -> end label -> trigger        ("g i")
//	active     code -> armed sequence-end trigger
//
// # Identity
//
// Go functions are not comparable, so callbacks are wrapped in a *Callback.
// Two registrations share a callback only if they pass the same *Callback.
// A single-key trigger is a duplicate if an existing trigger on the same code
// has the same callback and selector; combos are never checked.
//
// # Removal
//
// RemoveSingleKey, RemoveCombo and RemoveSequence delete the whole index
// entry for the resolved code. RemoveTriggers removes only the triggers a
// predicate selects.
//
// # Usage
//
//	reg := keymap.NewRegistry(key.DefaultResolver())
//	cb := keymap.NewCallback(func(e *key.Event, data any) { ... })
//	if _, err := reg.Add("g i", cb, "", nil); err != nil {
//	    // handle bad shortcut
//	}
package keymap
