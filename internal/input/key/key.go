package key

import (
	"fmt"
	"strings"
)

// Code identifies a key. For printable keys it is the ASCII code of the
// lower-cased character; named keys use the codes from the named-key table.
type Code int

// CodeNone represents no key.
const CodeNone Code = 0

// Named key codes.
const (
	CodeBackspace Code = 8
	CodeReturn    Code = 13
	CodeEscape    Code = 27
	CodePageUp    Code = 33
	CodePageDown  Code = 34
	CodeEnd       Code = 35
	CodeHome      Code = 36
	CodeLeft      Code = 37
	CodeUp        Code = 38
	CodeRight     Code = 39
	CodeDown      Code = 40
	CodeDelete    Code = 46
)

// Accepted printable ranges (inclusive).
var printableRanges = [][2]Code{
	{0x20, 0x40},
	{0x5B, 0x7E},
}

// IsPrintable returns true if c falls in one of the accepted printable ranges.
func (c Code) IsPrintable() bool {
	for _, r := range printableRanges {
		if c >= r[0] && c <= r[1] {
			return true
		}
	}
	return false
}

// Lower maps an upper-case letter code (A-Z) to its lower-case code.
func (c Code) Lower() Code {
	if c >= 'A' && c <= 'Z' {
		return c + 32
	}
	return c
}

// String returns a human-readable name for the code.
func (c Code) String() string {
	if c.IsPrintable() {
		if c == ' ' {
			return "space"
		}
		return string(rune(c))
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// DefaultNamedKeys returns a fresh copy of the named-key table.
func DefaultNamedKeys() map[string]Code {
	return map[string]Code{
		"esc":      CodeEscape,
		"ret":      CodeReturn,
		"del":      CodeDelete,
		"left":     CodeLeft,
		"up":       CodeUp,
		"right":    CodeRight,
		"down":     CodeDown,
		"bksp":     CodeBackspace,
		"pageup":   CodePageUp,
		"pagedown": CodePageDown,
		"home":     CodeHome,
		"end":      CodeEnd,
	}
}

// Resolver maps key labels and modifier names to codes and modifiers.
// A Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	named      map[string]Code
	namedCodes map[Code]bool
	modifiers  map[string]Modifier
}

// NewResolver creates a resolver using the given tables.
// A nil table selects the default one. Table keys are matched case-insensitively.
func NewResolver(named map[string]Code, modifiers map[string]Modifier) *Resolver {
	if named == nil {
		named = DefaultNamedKeys()
	}
	if modifiers == nil {
		modifiers = DefaultModifiers()
	}

	r := &Resolver{
		named:      make(map[string]Code, len(named)),
		namedCodes: make(map[Code]bool, len(named)),
		modifiers:  make(map[string]Modifier, len(modifiers)),
	}
	for name, code := range named {
		r.named[strings.ToLower(name)] = code
		r.namedCodes[code] = true
	}
	for name, mod := range modifiers {
		r.modifiers[strings.ToLower(name)] = mod
	}
	return r
}

// DefaultResolver returns a resolver with the default tables.
func DefaultResolver() *Resolver {
	return NewResolver(nil, nil)
}

// Resolve returns the code for a key label.
//
// The label is lower-cased first. A one-character label resolves to its
// ASCII code if it lies in an accepted range; longer labels are looked up
// in the named-key table.
func (r *Resolver) Resolve(label string) (Code, error) {
	lower := strings.ToLower(label)

	if len(lower) == 1 {
		code := Code(lower[0])
		if !code.IsPrintable() {
			return CodeNone, fmt.Errorf("%w: %q", ErrInvalidKey, label)
		}
		return code, nil
	}

	if code, ok := r.named[lower]; ok {
		return code, nil
	}
	return CodeNone, fmt.Errorf("%w: %q", ErrInvalidKey, label)
}

// ResolveValue resolves a dynamically typed label.
// Non-string values fail with ErrInvalidArgument.
func (r *Resolver) ResolveValue(v any) (Code, error) {
	label, ok := v.(string)
	if !ok {
		return CodeNone, fmt.Errorf("%w: key must be a string, got %T", ErrInvalidArgument, v)
	}
	return r.Resolve(label)
}

// IsNamedCode returns true if code belongs to the named-key table.
func (r *Resolver) IsNamedCode(code Code) bool {
	return r.namedCodes[code]
}

// NamedKeys returns a copy of the named-key table.
func (r *Resolver) NamedKeys() map[string]Code {
	out := make(map[string]Code, len(r.named))
	for k, v := range r.named {
		out[k] = v
	}
	return out
}

// Modifier returns the modifier for a name (case-insensitive).
func (r *Resolver) Modifier(name string) (Modifier, error) {
	if mod, ok := r.modifiers[strings.ToLower(name)]; ok {
		return mod, nil
	}
	return ModNone, fmt.Errorf("%w: %q", ErrInvalidModifier, name)
}
