package input

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/input/keymap"
)

type orderHook struct {
	BaseHook
	name  string
	order *[]string
}

func (h orderHook) PreKeyEvent(*key.Event) bool {
	*h.order = append(*h.order, h.name)
	return false
}

// consumeHook swallows events for one key.
type consumeHook struct {
	BaseHook
	code key.Code
}

func (h consumeHook) PreKeyEvent(e *key.Event) bool {
	return e.Code == h.code
}

// firedHook remembers the triggers fired by the last event.
type firedHook struct {
	BaseHook
	fired []*keymap.Trigger
}

func (h *firedHook) PostKeyEvent(_ *key.Event, fired []*keymap.Trigger) {
	h.fired = fired
}

func TestHookManagerOrder(t *testing.T) {
	m := NewHookManager()
	var order []string

	m.Register(orderHook{name: "first", order: &order})
	id := m.Register(orderHook{name: "second", order: &order})
	m.Register(orderHook{name: "third", order: &order})

	assert.False(t, m.RunPreKeyEvent(key.NewEvent('a', key.ModNone)))
	assert.Equal(t, []string{"first", "second", "third"}, order)

	assert.True(t, m.Unregister(id))
	assert.False(t, m.Unregister(id))
	assert.Equal(t, 2, m.Count())

	order = nil
	m.RunPreKeyEvent(key.NewEvent('a', key.ModNone))
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestHookManagerConsume(t *testing.T) {
	m := NewHookManager()
	var order []string

	m.Register(consumeHook{code: 'a'})
	m.Register(orderHook{name: "after", order: &order})

	assert.True(t, m.RunPreKeyEvent(key.NewEvent('a', key.ModNone)))
	assert.Empty(t, order)

	assert.False(t, m.RunPreKeyEvent(key.NewEvent('b', key.ModNone)))
	assert.Equal(t, []string{"after"}, order)
}

func TestLoggingHook(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.TraceLevel)

	h := NewHandler(nil, DefaultConfig())
	_, err := h.Registry().Add("c", keymap.NewCallback(func(*key.Event, any) {}), "", nil)
	require.NoError(t, err)
	h.Hooks().Register(LoggingHook{Logger: logger})

	h.HandleKeyPress(key.NewEvent('c', key.ModNone))

	out := buf.String()
	assert.Contains(t, out, "key event")
	assert.Contains(t, out, "key handled")
	assert.Contains(t, out, "fired=\"[c]\"")
}
