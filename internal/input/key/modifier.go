package key

import "strings"

// Modifier represents keyboard modifier keys.
type Modifier uint8

// ModNone indicates no modifiers.
const ModNone Modifier = 0

const (
	// ModShift indicates the Shift key.
	ModShift Modifier = 1 << iota

	// ModCtrl indicates the Control key.
	ModCtrl

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModCmd indicates the Cmd/Meta key.
	ModCmd
)

// Function modifiers are reserved for combos; text modifiers may produce
// shifted characters and fall back to single-key matching.
const (
	FunctionModifiers = ModCtrl | ModCmd
	TextModifiers     = ModAlt | ModShift
)

// Has returns true if m contains the specified modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// HasCtrl returns true if Control is pressed.
func (m Modifier) HasCtrl() bool {
	return m.Has(ModCtrl)
}

// HasAlt returns true if Alt is pressed.
func (m Modifier) HasAlt() bool {
	return m.Has(ModAlt)
}

// HasCmd returns true if Cmd is pressed.
func (m Modifier) HasCmd() bool {
	return m.Has(ModCmd)
}

// HasShift returns true if Shift is pressed.
func (m Modifier) HasShift() bool {
	return m.Has(ModShift)
}

// HasFunction returns true if Ctrl or Cmd is pressed.
func (m Modifier) HasFunction() bool {
	return m.Has(FunctionModifiers)
}

// HasText returns true if Alt or Shift is pressed.
func (m Modifier) HasText() bool {
	return m.Has(TextModifiers)
}

// With returns a new Modifier with the specified modifier added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// IsEmpty returns true if no modifiers are set.
func (m Modifier) IsEmpty() bool {
	return m == ModNone
}

// String returns a representation like "ctrl+shift".
func (m Modifier) String() string {
	if m == ModNone {
		return ""
	}

	var parts []string
	if m.HasCtrl() {
		parts = append(parts, "ctrl")
	}
	if m.HasAlt() {
		parts = append(parts, "alt")
	}
	if m.HasCmd() {
		parts = append(parts, "cmd")
	}
	if m.HasShift() {
		parts = append(parts, "shift")
	}
	return strings.Join(parts, "+")
}

// DefaultModifiers returns a fresh copy of the modifier-name table.
func DefaultModifiers() map[string]Modifier {
	return map[string]Modifier{
		"ctrl":  ModCtrl,
		"alt":   ModAlt,
		"cmd":   ModCmd,
		"shift": ModShift,
	}
}
