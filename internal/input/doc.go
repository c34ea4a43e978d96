// Package input matches keyboard events against registered shortcuts.
//
// The Handler resolves each event against a keymap.Registry:
//
//   - An event carrying any modifier first probes the combo index. If the
//     key has combos, only those whose modifier is held are candidates.
//   - Otherwise, unless ctrl or cmd is held, the handler probes in order an
//     armed sequence end, the single-key triggers, then the sequence starters.
//   - A starter arms its sequence ends and starts the sequence timer
//     without firing anything. Any other key, matched or not, disarms them.
//
// Each candidate's selector is evaluated against the event target. When it
// matches and the callback's limiter allows the call, the event's default
// action is prevented, propagation is stopped and the callback runs.
//
// # Key press and key down
//
// Character keys arrive as key presses and named keys (esc, ret, arrows and
// so on) as key downs. HandleKeyDown ignores any key that is not named.
//
// # Usage
//
//	reg := keymap.NewRegistry(nil)
//	h := input.NewHandler(reg, input.DefaultConfig())
//	defer h.Close()
//
//	reg.Add("g i", keymap.NewCallback(openInbox), "", nil)
//
//	h.HandleKeyPress(key.NewEvent('g', key.ModNone))
//	h.HandleKeyPress(key.NewEvent('i', key.ModNone)) // fires openInbox
package input
