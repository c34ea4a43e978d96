package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/keystrike/internal/input"
	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/input/ratelimit"
	"github.com/dshills/keystrike/internal/shortcuts"
)

// Environment variables that override file settings, in milliseconds.
const (
	EnvDebounce        = "KEYSTRIKE_DEBOUNCE"
	EnvThrottle        = "KEYSTRIKE_THROTTLE"
	EnvSequenceTimeout = "KEYSTRIKE_SEQUENCE_TIMEOUT"
)

// Format identifies a shortcut file encoding.
type Format string

const (
	// FormatTOML is the TOML encoding.
	FormatTOML Format = "toml"

	// FormatYAML is the YAML encoding.
	FormatYAML Format = "yaml"
)

// FormatFor selects the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// File is a decoded shortcut file.
type File struct {
	// Path is the file the settings were read from, if any.
	Path string

	Debounce        time.Duration
	Throttle        time.Duration
	SequenceTimeout time.Duration

	// NamedKeys is the charCodes table. Nil keeps the built-in table.
	NamedKeys map[string]key.Code

	// Modifiers is the modifier alias table. Nil keeps the built-in table.
	Modifiers map[string]key.Modifier

	// Shortcuts is the declarative shortcut map.
	Shortcuts map[string][]shortcuts.Binding
}

// Default returns the settings used when no file is given.
func Default() *File {
	return &File{
		Debounce:        ratelimit.DefaultDebounce,
		Throttle:        ratelimit.DefaultThrottle,
		SequenceTimeout: input.DefaultSequenceTimeout,
		Shortcuts:       make(map[string][]shortcuts.Binding),
	}
}

// document is the on-disk layout shared by both encodings.
type document struct {
	Debounce        *int64            `toml:"debounce" yaml:"debounce"`
	Throttle        *int64            `toml:"throttle" yaml:"throttle"`
	SequenceTimeout *int64            `toml:"keySequenceTimeoutDelay" yaml:"keySequenceTimeoutDelay"`
	CharCodes       map[string]int64  `toml:"charCodes" yaml:"charCodes"`
	Modifiers       map[string]string `toml:"modifiers" yaml:"modifiers"`
	Shortcuts       map[string]any    `toml:"shortcuts" yaml:"shortcuts"`
}

// Load reads a shortcut file, choosing the decoder by extension, and applies
// environment overrides.
func Load(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	f, err := Parse(data, format, path)
	if err != nil {
		return nil, err
	}
	if err := f.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse decodes a shortcut document. Unknown top-level settings are errors.
func Parse(data []byte, format Format, path string) (*File, error) {
	var doc document
	if err := decode(data, format, &doc); err != nil {
		return nil, parseError(path, err)
	}

	f, err := doc.file()
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	f.Path = path
	return f, nil
}

func decode(data []byte, format Format, doc *document) error {
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err := dec.Decode(doc)
		if errors.Is(err, io.EOF) {
			// empty document
			return nil
		}
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// parseError attaches decoder position information when available.
func parseError(path string, err error) *ParseError {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}

	var decErr *toml.DecodeError
	if errors.As(err, &decErr) {
		pe.Line, pe.Column = decErr.Position()
		pe.Message = decErr.Error()
		return pe
	}

	var strictErr *toml.StrictMissingError
	if errors.As(err, &strictErr) && len(strictErr.Errors) > 0 {
		first := strictErr.Errors[0]
		pe.Line, pe.Column = first.Position()
		pe.Message = "unknown setting " + strings.Join(first.Key(), ".")
	}
	return pe
}

func (d *document) file() (*File, error) {
	f := Default()

	var err error
	if f.Debounce, err = millis("debounce", d.Debounce, f.Debounce, 0); err != nil {
		return nil, err
	}
	if f.Throttle, err = millis("throttle", d.Throttle, f.Throttle, 0); err != nil {
		return nil, err
	}
	// a zero timeout would leave a started sequence armed forever
	if f.SequenceTimeout, err = millis("keySequenceTimeoutDelay", d.SequenceTimeout, f.SequenceTimeout, 1); err != nil {
		return nil, err
	}

	if d.CharCodes != nil {
		f.NamedKeys = make(map[string]key.Code, len(d.CharCodes))
		for name, code := range d.CharCodes {
			if code <= 0 || code > math.MaxInt32 {
				return nil, valueError("charCodes."+name, "code must be positive, got %d", code)
			}
			f.NamedKeys[strings.ToLower(name)] = key.Code(code)
		}
	}

	if d.Modifiers != nil {
		builtin := key.DefaultModifiers()
		f.Modifiers = make(map[string]key.Modifier, len(d.Modifiers))
		for alias, name := range d.Modifiers {
			mod, ok := builtin[strings.ToLower(name)]
			if !ok {
				return nil, valueError("modifiers."+alias, "unknown modifier %q", name)
			}
			f.Modifiers[strings.ToLower(alias)] = mod
		}
	}

	for spec, v := range d.Shortcuts {
		bs, err := bindings(spec, v)
		if err != nil {
			return nil, err
		}
		f.Shortcuts[spec] = bs
	}
	return f, nil
}

// millis converts a millisecond setting, rejecting values below lowest.
func millis(setting string, v *int64, def time.Duration, lowest int64) (time.Duration, error) {
	if v == nil {
		return def, nil
	}
	if *v < lowest {
		return 0, valueError(setting, "must be at least %d, got %d", lowest, *v)
	}
	return time.Duration(*v) * time.Millisecond, nil
}

// bindings converts a shortcuts entry: an event name string, a single
// record, or a list of either.
func bindings(spec string, v any) ([]shortcuts.Binding, error) {
	setting := "shortcuts." + spec

	switch val := v.(type) {
	case string:
		if val == "" {
			return nil, valueError(setting, "empty event name")
		}
		return []shortcuts.Binding{{EventName: val}}, nil
	case map[string]any:
		b, err := binding(setting, val)
		if err != nil {
			return nil, err
		}
		return []shortcuts.Binding{b}, nil
	case []any:
		out := make([]shortcuts.Binding, 0, len(val))
		for i, item := range val {
			bs, err := bindings(fmt.Sprintf("%s[%d]", spec, i), item)
			if err != nil {
				return nil, err
			}
			out = append(out, bs...)
		}
		return out, nil
	default:
		return nil, valueError(setting, "expected an event name or records, got %T", v)
	}
}

func binding(setting string, m map[string]any) (shortcuts.Binding, error) {
	var b shortcuts.Binding

	for k, v := range m {
		switch k {
		case "eventName":
			name, ok := v.(string)
			if !ok || name == "" {
				return b, valueError(setting+".eventName", "must be a non-empty string")
			}
			b.EventName = name
		case "selector":
			sel, ok := v.(string)
			if !ok {
				return b, valueError(setting+".selector", "must be a string, got %T", v)
			}
			b.Selector = sel
		case "throttle":
			th, err := throttle(setting+".throttle", v)
			if err != nil {
				return b, err
			}
			b.Throttle = th
		default:
			return b, valueError(setting, "unknown field %q", k)
		}
	}

	if b.EventName == "" {
		return b, valueError(setting, "missing eventName")
	}
	return b, nil
}

// throttle accepts true (global window), false, or a window in milliseconds.
func throttle(setting string, v any) (shortcuts.Throttle, error) {
	if v == nil {
		return shortcuts.Throttle{}, nil
	}
	if on, ok := v.(bool); ok {
		if on {
			return shortcuts.ThrottleDefault, nil
		}
		return shortcuts.Throttle{}, nil
	}
	ms, ok := integer(v)
	if !ok || ms <= 0 {
		return shortcuts.Throttle{}, valueError(setting, "must be a bool or positive milliseconds, got %v", v)
	}
	return shortcuts.ThrottleAfter(time.Duration(ms) * time.Millisecond), nil
}

func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// ApplyEnv overrides the timing settings from the environment.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	overrides := []struct {
		env    string
		dst    *time.Duration
		lowest int64
	}{
		{EnvDebounce, &f.Debounce, 0},
		{EnvThrottle, &f.Throttle, 0},
		{EnvSequenceTimeout, &f.SequenceTimeout, 1},
	}

	for _, o := range overrides {
		raw, ok := lookup(o.env)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || ms < o.lowest {
			return valueError(o.env, "expected at least %d milliseconds, got %q", o.lowest, raw)
		}
		*o.dst = time.Duration(ms) * time.Millisecond
	}
	return nil
}

// Resolver returns the key resolver described by the file's tables.
func (f *File) Resolver() *key.Resolver {
	return key.NewResolver(f.NamedKeys, f.Modifiers)
}

// Validate checks every shortcut against the file's key tables and returns
// all failures joined.
func (f *File) Validate() error {
	r := f.Resolver()

	var errs []error
	for _, spec := range f.Specs() {
		if err := r.Validate(spec); err != nil {
			errs = append(errs, fmt.Errorf("shortcut %q: %w", spec, err))
		}
	}
	return errors.Join(errs...)
}

// Specs returns the declared shortcuts in sorted order.
func (f *File) Specs() []string {
	specs := make([]string, 0, len(f.Shortcuts))
	for spec := range f.Shortcuts {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	return specs
}

// Options converts the file into service options.
func (f *File) Options() []shortcuts.Option {
	return []shortcuts.Option{
		shortcuts.WithDebounce(f.Debounce),
		shortcuts.WithThrottle(f.Throttle),
		shortcuts.WithSequenceTimeout(f.SequenceTimeout),
		shortcuts.WithNamedKeys(f.NamedKeys),
		shortcuts.WithModifiers(f.Modifiers),
		shortcuts.WithShortcuts(f.Shortcuts),
	}
}
