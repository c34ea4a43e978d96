package input

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/input/keymap"
)

// Hook allows interception and observation of key handling.
type Hook interface {
	// PreKeyEvent is called before an event is matched.
	// Return true to consume the event (stop further processing).
	PreKeyEvent(event *key.Event) bool

	// PostKeyEvent is called after matching with the triggers that fired.
	PostKeyEvent(event *key.Event, fired []*keymap.Trigger)
}

// HookID uniquely identifies a registered hook.
type HookID uint64

type hookEntry struct {
	id   HookID
	hook Hook
}

// HookManager runs hooks in registration order.
type HookManager struct {
	mu     sync.RWMutex
	hooks  []hookEntry
	nextID HookID
}

// NewHookManager creates a new hook manager.
func NewHookManager() *HookManager {
	return &HookManager{}
}

// Register adds a hook and returns its ID.
func (m *HookManager) Register(hook Hook) HookID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.hooks = append(m.hooks, hookEntry{id: m.nextID, hook: hook})
	return m.nextID
}

// Unregister removes a hook by ID.
func (m *HookManager) Unregister(id HookID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.hooks {
		if e.id == id {
			m.hooks = append(m.hooks[:i:i], m.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of registered hooks.
func (m *HookManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hooks)
}

func (m *HookManager) snapshot() []Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.hooks) == 0 {
		return nil
	}
	hooks := make([]Hook, len(m.hooks))
	for i, e := range m.hooks {
		hooks[i] = e.hook
	}
	return hooks
}

// RunPreKeyEvent runs all PreKeyEvent hooks.
// Returns true if any hook consumed the event.
func (m *HookManager) RunPreKeyEvent(event *key.Event) bool {
	for _, hook := range m.snapshot() {
		if hook.PreKeyEvent(event) {
			return true
		}
	}
	return false
}

// RunPostKeyEvent runs all PostKeyEvent hooks.
func (m *HookManager) RunPostKeyEvent(event *key.Event, fired []*keymap.Trigger) {
	for _, hook := range m.snapshot() {
		hook.PostKeyEvent(event, fired)
	}
}

// BaseHook provides a default implementation of the Hook interface.
// Embed this in custom hooks to only implement the methods you need.
type BaseHook struct{}

// PreKeyEvent is a no-op that does not consume events.
func (BaseHook) PreKeyEvent(*key.Event) bool {
	return false
}

// PostKeyEvent is a no-op.
func (BaseHook) PostKeyEvent(*key.Event, []*keymap.Trigger) {}

// LoggingHook traces every key event and the triggers it fired.
type LoggingHook struct {
	BaseHook
	Logger logrus.FieldLogger
}

// PreKeyEvent logs the key event.
func (h LoggingHook) PreKeyEvent(event *key.Event) bool {
	if h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{"key": event.String(), "kind": event.Kind.String()}).Trace("key event")
	}
	return false
}

// PostKeyEvent logs the fired triggers.
func (h LoggingHook) PostKeyEvent(event *key.Event, fired []*keymap.Trigger) {
	if h.Logger == nil || len(fired) == 0 {
		return
	}
	shortcuts := make([]string, len(fired))
	for i, t := range fired {
		shortcuts[i] = t.Shortcut
	}
	h.Logger.WithFields(logrus.Fields{"key": event.String(), "fired": shortcuts}).Trace("key handled")
}
