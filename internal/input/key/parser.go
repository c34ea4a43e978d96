package key

import (
	"errors"
	"fmt"
	"strings"
)

// Grammar errors.
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrInvalidKey            = errors.New("invalid key")
	ErrInvalidCombo          = errors.New("invalid combo")
	ErrInvalidModifier       = errors.New("invalid modifier")
	ErrInvalidSequenceFormat = errors.New(`sequence should be in format "g a"`)
)

// ShortcutKind identifies the shape of a shortcut specification.
type ShortcutKind uint8

const (
	// ShortcutSingle is a single key: "c", "esc".
	ShortcutSingle ShortcutKind = iota

	// ShortcutCombo is one modifier plus one key: "CTRL+ret".
	ShortcutCombo

	// ShortcutSequence is two keys pressed in order: "g i".
	ShortcutSequence
)

// String returns the kind name.
func (k ShortcutKind) String() string {
	switch k {
	case ShortcutSingle:
		return "single"
	case ShortcutCombo:
		return "combo"
	case ShortcutSequence:
		return "sequence"
	default:
		return fmt.Sprintf("ShortcutKind(%d)", k)
	}
}

// Shortcut is a classified shortcut specification.
// Tokens holds the raw parts: one key for singles, modifier and key for
// combos, start and end keys for sequences. Tokens are not validated.
type Shortcut struct {
	Kind   ShortcutKind
	Spec   string
	Tokens []string
}

// Classify determines the shape of a shortcut specification.
//
// A "+" after the first character makes a combo; otherwise a space after the
// first character makes a sequence; anything else is a single key. This keeps
// "+" and " " usable as single keys.
func Classify(spec string) Shortcut {
	switch {
	case strings.Index(spec, "+") > 0:
		return Shortcut{Kind: ShortcutCombo, Spec: spec, Tokens: strings.Split(spec, "+")}
	case strings.Index(spec, " ") > 0:
		return Shortcut{Kind: ShortcutSequence, Spec: spec, Tokens: strings.Split(spec, " ")}
	default:
		return Shortcut{Kind: ShortcutSingle, Spec: spec, Tokens: []string{spec}}
	}
}

// Combo is a parsed combo shortcut.
type Combo struct {
	Modifier Modifier
	Key      string
	Code     Code
}

// ParseCombo parses "<modifier>+<key>".
func (r *Resolver) ParseCombo(spec string) (Combo, error) {
	parts := strings.Split(spec, "+")
	if len(parts) != 2 {
		return Combo{}, fmt.Errorf("%w: %q", ErrInvalidCombo, spec)
	}

	mod, err := r.Modifier(parts[0])
	if err != nil {
		return Combo{}, err
	}

	code, err := r.Resolve(parts[1])
	if err != nil {
		return Combo{}, err
	}

	return Combo{Modifier: mod, Key: parts[1], Code: code}, nil
}

// Sequence is a parsed two-key sequence.
type Sequence struct {
	Start     string
	End       string
	StartCode Code
	EndCode   Code
}

// String returns the sequence in "start end" form.
func (s Sequence) String() string {
	return s.Start + " " + s.End
}

// ParseSequence parses "<key1> <key2>". Any malformed input, including an
// unresolvable key, fails with ErrInvalidSequenceFormat.
func (r *Resolver) ParseSequence(spec string) (Sequence, error) {
	parts := strings.Split(spec, " ")
	if len(parts) != 2 {
		return Sequence{}, fmt.Errorf("%w: %q", ErrInvalidSequenceFormat, spec)
	}

	start, err := r.Resolve(parts[0])
	if err != nil {
		return Sequence{}, fmt.Errorf("%w: %w", ErrInvalidSequenceFormat, err)
	}

	end, err := r.Resolve(parts[1])
	if err != nil {
		return Sequence{}, fmt.Errorf("%w: %w", ErrInvalidSequenceFormat, err)
	}

	return Sequence{
		Start:     parts[0],
		End:       parts[1],
		StartCode: start,
		EndCode:   end,
	}, nil
}

// Validate checks that spec is a well-formed shortcut of any kind.
func (r *Resolver) Validate(spec string) error {
	sc := Classify(spec)
	switch sc.Kind {
	case ShortcutCombo:
		_, err := r.ParseCombo(spec)
		return err
	case ShortcutSequence:
		_, err := r.ParseSequence(spec)
		return err
	default:
		_, err := r.Resolve(spec)
		return err
	}
}
