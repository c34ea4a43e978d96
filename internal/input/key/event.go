package key

import (
	"fmt"
	"time"
)

// Kind distinguishes how the platform delivered a key event.
type Kind uint8

const (
	// KindPress is a character-producing key press.
	KindPress Kind = iota

	// KindDown is a raw key-down. Only named keys are matched on key-down.
	KindDown
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case KindPress:
		return "keypress"
	case KindDown:
		return "keydown"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Event is a normalized key event.
//
// Target is opaque to the engine; it is handed to the selector matcher.
// The engine calls PreventDefault and StopPropagation on every event that
// fires a trigger.
type Event struct {
	// Kind records whether the event was a key press or a key down.
	Kind Kind

	// Code identifies the key.
	Code Code

	// Modifiers contains the active modifier keys.
	Modifiers Modifier

	// Target is the element that had focus when the key was pressed.
	Target any

	// Timestamp is when the event occurred.
	Timestamp time.Time

	defaultPrevented   bool
	propagationStopped bool
}

// NewEvent creates a key press event with the current timestamp.
func NewEvent(code Code, mods Modifier) *Event {
	return &Event{
		Kind:      KindPress,
		Code:      code,
		Modifiers: mods,
		Timestamp: time.Now(),
	}
}

// NewKeyDown creates a key down event with the current timestamp.
func NewKeyDown(code Code, mods Modifier) *Event {
	e := NewEvent(code, mods)
	e.Kind = KindDown
	return e
}

// WithTarget sets the event target and returns the event.
func (e *Event) WithTarget(target any) *Event {
	e.Target = target
	return e
}

// HasModifier returns true if ctrl, alt, cmd or shift is pressed.
func (e *Event) HasModifier() bool {
	return !e.Modifiers.IsEmpty()
}

// HasFunctionModifier returns true if ctrl or cmd is pressed.
func (e *Event) HasFunctionModifier() bool {
	return e.Modifiers.HasFunction()
}

// HasTextModifier returns true if alt or shift is pressed.
func (e *Event) HasTextModifier() bool {
	return e.Modifiers.HasText()
}

// PreventDefault marks the event's default action as suppressed.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// StopPropagation marks the event as not propagating further.
func (e *Event) StopPropagation() {
	e.propagationStopped = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool {
	return e.propagationStopped
}

// String returns a representation like "ctrl+a" or "Code(27)".
func (e *Event) String() string {
	name := e.Code.String()
	if e.Modifiers.IsEmpty() {
		return name
	}
	return e.Modifiers.String() + "+" + name
}
