package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/logging"
)

// Registration errors.
var (
	ErrMissingCallback  = errors.New("no callback")
	ErrDuplicateTrigger = errors.New("attempted to add identical shortcut")
)

// Registry holds the trigger indexes. All methods are safe for concurrent use;
// a single mutex guards all four maps.
type Registry struct {
	mu sync.RWMutex

	resolver *key.Resolver
	logger   logrus.FieldLogger

	singles  map[key.Code][]*Trigger
	combos   map[key.Code][]*Trigger
	starters map[key.Code]*starter
	active   map[key.Code]*Trigger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Registry) {
		r.logger = logging.Component(logger, "keymap")
	}
}

// NewRegistry creates an empty registry. A nil resolver selects the default tables.
func NewRegistry(resolver *key.Resolver, opts ...Option) *Registry {
	if resolver == nil {
		resolver = key.DefaultResolver()
	}
	r := &Registry{
		resolver: resolver,
		logger:   logging.Component(nil, "keymap"),
		singles:  make(map[key.Code][]*Trigger),
		combos:   make(map[key.Code][]*Trigger),
		starters: make(map[key.Code]*starter),
		active:   make(map[key.Code]*Trigger),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolver returns the registry's key resolver.
func (r *Registry) Resolver() *key.Resolver {
	return r.resolver
}

// Add registers a shortcut of any kind.
func (r *Registry) Add(spec string, cb *Callback, selector string, data any) (*Trigger, error) {
	switch key.Classify(spec).Kind {
	case key.ShortcutCombo:
		return r.AddCombo(spec, cb, selector, data)
	case key.ShortcutSequence:
		return r.AddSequence(spec, cb, selector, data)
	default:
		return r.AddSingleKey(spec, cb, selector, data)
	}
}

// AddSingleKey registers a single-key trigger. Triggers on the same code are
// kept in registration order.
func (r *Registry) AddSingleKey(label string, cb *Callback, selector string, data any) (*Trigger, error) {
	p, err := r.prepareSingle(label, cb, selector, data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.duplicateLocked(p, nil) {
		return nil, fmt.Errorf("addSingleKey %q: %w", label, ErrDuplicateTrigger)
	}
	r.insertLocked(p)

	r.logger.WithFields(logrus.Fields{"shortcut": label, "code": int(p.code), "selector": selector}).
		Debug("registered single key")
	return p.trigger, nil
}

// AddCombo registers a modifier combo. No duplicate check is performed, so
// several callbacks may share a combo.
func (r *Registry) AddCombo(spec string, cb *Callback, selector string, data any) (*Trigger, error) {
	p, err := r.prepareCombo(spec, cb, selector, data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertLocked(p)

	r.logger.WithFields(logrus.Fields{"shortcut": spec, "code": int(p.code), "modifier": p.trigger.Modifier.String()}).
		Debug("registered combo")
	return p.trigger, nil
}

// AddSequence registers a two-key sequence. The trigger is stored under the
// start key, keyed by the lower-cased end label; registering the same start
// and end label again replaces the previous trigger.
func (r *Registry) AddSequence(spec string, cb *Callback, selector string, data any) (*Trigger, error) {
	p, err := r.prepareSequence(spec, cb, selector, data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertLocked(p)

	r.logger.WithFields(logrus.Fields{"shortcut": spec, "start": int(p.code), "end": p.end}).
		Debug("registered sequence")
	return p.trigger, nil
}

// Addition describes a trigger registered by Replace.
type Addition struct {
	Spec     string
	Callback *Callback
	Selector string
	Data     any
}

// Replace removes the triggers with the given IDs and registers adds in one
// step: readers see either the old triggers or the new ones, never a mix.
// Every addition is checked first; if any fails, nothing changes and the
// failures are returned joined.
func (r *Registry) Replace(removeIDs []string, adds []Addition) ([]*Trigger, error) {
	prepared := make([]pending, 0, len(adds))
	var errs []error
	for _, a := range adds {
		p, err := r.prepare(a.Spec, a.Callback, a.Selector, a.Data)
		if err != nil {
			errs = append(errs, fmt.Errorf("shortcut %q: %w", a.Spec, err))
			continue
		}
		prepared = append(prepared, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	drop := make(map[string]bool, len(removeIDs))
	for _, id := range removeIDs {
		drop[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range prepared {
		if r.duplicateLocked(p, drop) || duplicateOf(p, prepared[:i]) {
			return nil, fmt.Errorf("shortcut %q: %w", p.trigger.Shortcut, ErrDuplicateTrigger)
		}
	}

	r.dropActiveLocked(r.removeIDsLocked(drop))

	triggers := make([]*Trigger, len(prepared))
	for i, p := range prepared {
		r.insertLocked(p)
		triggers[i] = p.trigger
	}

	r.logger.WithFields(logrus.Fields{"removed": len(removeIDs), "added": len(triggers)}).Debug("replaced triggers")
	return triggers, nil
}

// pending is a validated trigger waiting to be indexed. code is the key
// code for singles, the base key for combos and the start key for sequences.
type pending struct {
	trigger *Trigger
	code    key.Code
	end     string
}

func (r *Registry) prepare(spec string, cb *Callback, selector string, data any) (pending, error) {
	switch key.Classify(spec).Kind {
	case key.ShortcutCombo:
		return r.prepareCombo(spec, cb, selector, data)
	case key.ShortcutSequence:
		return r.prepareSequence(spec, cb, selector, data)
	default:
		return r.prepareSingle(spec, cb, selector, data)
	}
}

func (r *Registry) prepareSingle(label string, cb *Callback, selector string, data any) (pending, error) {
	if !cb.Valid() {
		return pending{}, fmt.Errorf("addSingleKey %q: %w", label, ErrMissingCallback)
	}
	code, err := r.resolver.Resolve(label)
	if err != nil {
		return pending{}, fmt.Errorf("addSingleKey: %w", err)
	}
	return pending{trigger: newTrigger(label, key.ShortcutSingle, cb, selector, data), code: code}, nil
}

func (r *Registry) prepareCombo(spec string, cb *Callback, selector string, data any) (pending, error) {
	if !cb.Valid() {
		return pending{}, fmt.Errorf("addCombo %q: %w", spec, ErrMissingCallback)
	}
	combo, err := r.resolver.ParseCombo(spec)
	if err != nil {
		return pending{}, fmt.Errorf("addCombo: %w", err)
	}
	t := newTrigger(spec, key.ShortcutCombo, cb, selector, data)
	t.Modifier = combo.Modifier
	return pending{trigger: t, code: combo.Code}, nil
}

func (r *Registry) prepareSequence(spec string, cb *Callback, selector string, data any) (pending, error) {
	if !cb.Valid() {
		return pending{}, fmt.Errorf("addSequence %q: %w", spec, ErrMissingCallback)
	}
	seq, err := r.resolver.ParseSequence(spec)
	if err != nil {
		return pending{}, fmt.Errorf("addSequence: %w", err)
	}
	return pending{
		trigger: newTrigger(spec, key.ShortcutSequence, cb, selector, data),
		code:    seq.StartCode,
		end:     strings.ToLower(seq.End),
	}, nil
}

// duplicateLocked reports whether a single-key trigger with the same
// callback and selector is already indexed, ignoring IDs in skip.
func (r *Registry) duplicateLocked(p pending, skip map[string]bool) bool {
	if p.trigger.Kind != key.ShortcutSingle {
		return false
	}
	for _, existing := range r.singles[p.code] {
		if !skip[existing.ID] && existing.Callback == p.trigger.Callback && existing.Selector == p.trigger.Selector {
			return true
		}
	}
	return false
}

// duplicateOf reports whether p repeats a single-key trigger in earlier.
func duplicateOf(p pending, earlier []pending) bool {
	if p.trigger.Kind != key.ShortcutSingle {
		return false
	}
	for _, e := range earlier {
		if e.trigger.Kind == key.ShortcutSingle && e.code == p.code &&
			e.trigger.Callback == p.trigger.Callback && e.trigger.Selector == p.trigger.Selector {
			return true
		}
	}
	return false
}

// insertLocked indexes a prepared trigger. Caller must hold the write lock.
func (r *Registry) insertLocked(p pending) {
	switch p.trigger.Kind {
	case key.ShortcutCombo:
		r.combos[p.code] = append(r.combos[p.code], p.trigger)
	case key.ShortcutSequence:
		s, ok := r.starters[p.code]
		if !ok {
			s = newStarter()
			r.starters[p.code] = s
		}
		s.set(p.end, p.trigger)
	default:
		r.singles[p.code] = append(r.singles[p.code], p.trigger)
	}
}

// Remove removes every trigger in the index bucket a shortcut resolves to.
func (r *Registry) Remove(spec string) error {
	switch key.Classify(spec).Kind {
	case key.ShortcutCombo:
		return r.RemoveCombo(spec)
	case key.ShortcutSequence:
		return r.RemoveSequence(spec)
	default:
		return r.RemoveSingleKey(spec)
	}
}

// RemoveSingleKey deletes all single-key triggers on the label's code.
func (r *Registry) RemoveSingleKey(label string) error {
	code, err := r.resolver.Resolve(label)
	if err != nil {
		return fmt.Errorf("removeSingleKey: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.singles, code)
	r.logger.WithField("shortcut", label).Debug("removed single key")
	return nil
}

// RemoveCombo deletes all combo triggers on the combo's base key, whatever
// their modifier.
func (r *Registry) RemoveCombo(spec string) error {
	combo, err := r.resolver.ParseCombo(spec)
	if err != nil {
		return fmt.Errorf("removeCombo: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.combos, combo.Code)
	r.logger.WithField("shortcut", spec).Debug("removed combo")
	return nil
}

// RemoveSequence deletes every sequence sharing the start key.
func (r *Registry) RemoveSequence(spec string) error {
	seq, err := r.resolver.ParseSequence(spec)
	if err != nil {
		return fmt.Errorf("removeSequence: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.starters[seq.StartCode]; ok {
		removed := make(map[*Trigger]bool, len(s.ends))
		for _, t := range s.ends {
			removed[t] = true
		}
		delete(r.starters, seq.StartCode)
		r.dropActiveLocked(removed)
	}
	r.logger.WithField("shortcut", spec).Debug("removed sequence")
	return nil
}

// RemoveTriggers removes only the triggers registered for exactly this
// shortcut that match selects. A nil match selects all of them. It returns
// the number of triggers removed.
func (r *Registry) RemoveTriggers(spec string, match func(*Trigger) bool) (int, error) {
	if match == nil {
		match = func(*Trigger) bool { return true }
	}

	sc := key.Classify(spec)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make(map[*Trigger]bool)

	switch sc.Kind {
	case key.ShortcutCombo:
		combo, err := r.resolver.ParseCombo(spec)
		if err != nil {
			return 0, fmt.Errorf("removeCombo: %w", err)
		}
		r.combos[combo.Code] = filterTriggers(r.combos[combo.Code], removed, func(t *Trigger) bool {
			return t.Modifier == combo.Modifier && match(t)
		})
		if len(r.combos[combo.Code]) == 0 {
			delete(r.combos, combo.Code)
		}

	case key.ShortcutSequence:
		seq, err := r.resolver.ParseSequence(spec)
		if err != nil {
			return 0, fmt.Errorf("removeSequence: %w", err)
		}
		if s, ok := r.starters[seq.StartCode]; ok {
			end := strings.ToLower(seq.End)
			if t, ok := s.ends[end]; ok && match(t) {
				removed[t] = true
				s.delete(end)
			}
			if len(s.ends) == 0 {
				delete(r.starters, seq.StartCode)
			}
		}

	default:
		code, err := r.resolver.Resolve(spec)
		if err != nil {
			return 0, fmt.Errorf("removeSingleKey: %w", err)
		}
		r.singles[code] = filterTriggers(r.singles[code], removed, match)
		if len(r.singles[code]) == 0 {
			delete(r.singles, code)
		}
	}

	r.dropActiveLocked(removed)

	if len(removed) > 0 {
		r.logger.WithFields(logrus.Fields{"shortcut": spec, "count": len(removed)}).Debug("removed triggers")
	}
	return len(removed), nil
}

// RemoveByID removes the trigger with the given ID from whichever index holds it.
func (r *Registry) RemoveByID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.removeIDsLocked(map[string]bool{id: true})
	r.dropActiveLocked(removed)
	return len(removed) > 0
}

// removeIDsLocked removes every trigger whose ID is in ids and returns the
// removed triggers. Caller must hold the write lock.
func (r *Registry) removeIDsLocked(ids map[string]bool) map[*Trigger]bool {
	removed := make(map[*Trigger]bool)
	if len(ids) == 0 {
		return removed
	}
	byID := func(t *Trigger) bool { return ids[t.ID] }

	for code, ts := range r.singles {
		if r.singles[code] = filterTriggers(ts, removed, byID); len(r.singles[code]) == 0 {
			delete(r.singles, code)
		}
	}
	for code, ts := range r.combos {
		if r.combos[code] = filterTriggers(ts, removed, byID); len(r.combos[code]) == 0 {
			delete(r.combos, code)
		}
	}
	for code, s := range r.starters {
		for _, label := range append([]string(nil), s.order...) {
			if t := s.ends[label]; ids[t.ID] {
				removed[t] = true
				s.delete(label)
			}
		}
		if len(s.ends) == 0 {
			delete(r.starters, code)
		}
	}
	return removed
}

// filterTriggers returns ts without the triggers drop selects, recording
// dropped triggers in removed.
func filterTriggers(ts []*Trigger, removed map[*Trigger]bool, drop func(*Trigger) bool) []*Trigger {
	kept := make([]*Trigger, 0, len(ts))
	for _, t := range ts {
		if drop(t) {
			removed[t] = true
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// dropActiveLocked disarms active sequences whose trigger was removed.
// Caller must hold the write lock.
func (r *Registry) dropActiveLocked(removed map[*Trigger]bool) {
	if len(removed) == 0 {
		return
	}
	for code, t := range r.active {
		if removed[t] {
			delete(r.active, code)
		}
	}
}

// ArmSequenceEnd makes a sequence-end trigger active under the end label's code.
func (r *Registry) ArmSequenceEnd(label string, t *Trigger) error {
	if t == nil || !t.Callback.Valid() {
		return fmt.Errorf("addSequenceEnd %q: %w", label, ErrMissingCallback)
	}

	code, err := r.resolver.Resolve(label)
	if err != nil {
		return fmt.Errorf("addSequenceEnd: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.active[code] = t
	return nil
}

// ArmSequences replaces the active sequences with ends. Entries that fail to
// arm are skipped; the first such error is returned.
func (r *Registry) ArmSequences(ends []SequenceEnd) error {
	r.ClearActiveSequences()

	var firstErr error
	for _, end := range ends {
		if err := r.ArmSequenceEnd(end.Label, end.Trigger); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ClearActiveSequences disarms all active sequences.
func (r *Registry) ClearActiveSequences() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) > 0 {
		r.active = make(map[key.Code]*Trigger)
	}
}

// HasActiveSequences reports whether any sequence end is armed.
func (r *Registry) HasActiveSequences() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active) > 0
}

// Active returns the armed sequence-end trigger for code, or nil.
func (r *Registry) Active(code key.Code) *Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[code]
}

// Singles returns a copy of the single-key triggers for code.
func (r *Registry) Singles(code key.Code) []*Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Trigger(nil), r.singles[code]...)
}

// Combos returns a copy of the combo triggers for code.
func (r *Registry) Combos(code key.Code) []*Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Trigger(nil), r.combos[code]...)
}

// SequenceEnds returns the sequence ends registered under start code.
func (r *Registry) SequenceEnds(code key.Code) []SequenceEnd {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.starters[code]
	if !ok {
		return nil
	}
	return s.list()
}

// Triggers returns every registered trigger: singles, then combos, then
// sequences, each ordered by key code and registration order.
func (r *Registry) Triggers() []*Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Trigger
	for _, code := range sortedCodes(r.singles) {
		out = append(out, r.singles[code]...)
	}
	for _, code := range sortedCodes(r.combos) {
		out = append(out, r.combos[code]...)
	}
	for _, code := range sortedCodes(r.starters) {
		for _, end := range r.starters[code].list() {
			out = append(out, end.Trigger)
		}
	}
	return out
}

// Len returns the number of registered triggers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, ts := range r.singles {
		n += len(ts)
	}
	for _, ts := range r.combos {
		n += len(ts)
	}
	for _, s := range r.starters {
		n += len(s.ends)
	}
	return n
}

func sortedCodes[V any](m map[key.Code]V) []key.Code {
	codes := make([]key.Code, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
