// Package key provides key codes, modifiers, normalized key events and the
// shortcut grammar used by the shortcut engine.
//
// This package defines the fundamental types for representing keyboard input:
//
//   - Code: Identifies a key (ASCII code of a printable character or a
//     named-key code such as esc or pageup)
//   - Modifier: Represents modifier keys (Ctrl, Alt, Cmd, Shift)
//   - Event: A single normalized key event with modifiers and a target
//   - Shortcut: A classified shortcut specification (single, combo, sequence)
//
// # Shortcut Specifications
//
//   - Single keys: "c", "?", "1", "esc", "ret", "pageup"
//   - Combos: "CTRL+ret", "alt+a", "cmd+s" (exactly one modifier)
//   - Sequences: "g i", "c f" (exactly two keys separated by one space)
//
// Labels are case-insensitive. Printable characters are accepted only in the
// ranges 0x20-0x40 and 0x5B-0x7E once lower-cased.
package key
