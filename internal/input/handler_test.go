package input

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/input/keymap"
	"github.com/dshills/keystrike/internal/input/ratelimit"
	"github.com/dshills/keystrike/internal/input/selector"
)

// recorder collects callback invocations.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) cb(name string, opts ...keymap.CallbackOption) *keymap.Callback {
	return keymap.NewCallback(func(*key.Event, any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
	}, opts...)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestHandler(t *testing.T, config Config) (*Handler, *keymap.Registry, *recorder) {
	t.Helper()
	reg := keymap.NewRegistry(nil)
	h := NewHandler(reg, config)
	t.Cleanup(h.Close)
	return h, reg, &recorder{}
}

func press(h *Handler, code key.Code, mods key.Modifier) *key.Event {
	e := key.NewEvent(code, mods)
	h.HandleKeyPress(e)
	return e
}

func TestSingleKeyFires(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	var gotData any
	cb := keymap.NewCallback(func(_ *key.Event, data any) { gotData = data })
	_, err := reg.Add("c", cb, "", "compose")
	require.NoError(t, err)
	_, err = reg.Add("c", rec.cb("second"), "", nil)
	require.NoError(t, err)

	e := press(h, 'c', key.ModNone)

	assert.Equal(t, "compose", gotData)
	assert.Equal(t, []string{"second"}, rec.got())
	assert.True(t, e.DefaultPrevented())
	assert.True(t, e.PropagationStopped())
}

func TestUppercaseNormalized(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("c", rec.cb("c"), "", nil)
	require.NoError(t, err)

	press(h, 'C', key.ModShift)
	assert.Equal(t, []string{"c"}, rec.got())
}

func TestUnmatchedEventUntouched(t *testing.T) {
	h, _, _ := newTestHandler(t, DefaultConfig())

	e := key.NewEvent('x', key.ModNone)
	assert.False(t, h.HandleKeyPress(e))
	assert.False(t, e.DefaultPrevented())
	assert.Equal(t, uint64(1), h.Metrics().Snapshot().Unmatched)
}

func TestComboModifierMustMatch(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("CTRL+ret", rec.cb("ctrl"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("ret", rec.cb("plain"), "", nil)
	require.NoError(t, err)

	h.HandleKeyDown(key.NewKeyDown(key.CodeReturn, key.ModAlt))
	assert.Empty(t, rec.got(), "combo bucket exists so there is no fallback")

	h.HandleKeyDown(key.NewKeyDown(key.CodeReturn, key.ModCtrl))
	assert.Equal(t, []string{"ctrl"}, rec.got())

	h.HandleKeyDown(key.NewKeyDown(key.CodeReturn, key.ModNone))
	assert.Equal(t, []string{"ctrl", "plain"}, rec.got())
}

func TestComboMultipleCallbacks(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("alt+k", rec.cb("one"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("alt+k", rec.cb("two"), "", nil)
	require.NoError(t, err)

	press(h, 'k', key.ModAlt)
	assert.Equal(t, []string{"one", "two"}, rec.got())
}

func TestFunctionModifierBlocksFallback(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("s", rec.cb("s"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("?", rec.cb("?"), "", nil)
	require.NoError(t, err)

	press(h, 's', key.ModCtrl)
	press(h, 's', key.ModCmd)
	assert.Empty(t, rec.got())

	press(h, '?', key.ModShift)
	press(h, 's', key.ModAlt)
	assert.Equal(t, []string{"?", "s"}, rec.got())
}

func TestSequence(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("g i", rec.cb("inbox"), "", nil)
	require.NoError(t, err)

	e := press(h, 'g', key.ModNone)
	assert.False(t, e.DefaultPrevented(), "starter fires nothing")
	assert.True(t, h.Pending())

	press(h, 'i', key.ModNone)
	assert.Equal(t, []string{"inbox"}, rec.got())
	assert.False(t, h.Pending())

	// the end key alone does nothing
	press(h, 'i', key.ModNone)
	assert.Equal(t, []string{"inbox"}, rec.got())
}

func TestSequenceAbortedByOtherKey(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("g i", rec.cb("inbox"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("x", rec.cb("x"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	press(h, 'x', key.ModNone)
	press(h, 'i', key.ModNone)

	assert.Equal(t, []string{"x"}, rec.got())
}

func TestSequenceAbortedByUnmatchedKey(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("g i", rec.cb("inbox"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	press(h, 'q', key.ModNone)
	press(h, 'i', key.ModNone)

	assert.Empty(t, rec.got())
}

func TestSequenceEndBeatsSingleKey(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("g i", rec.cb("seq"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("i", rec.cb("single"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	press(h, 'i', key.ModNone)
	press(h, 'i', key.ModNone)

	assert.Equal(t, []string{"seq", "single"}, rec.got())
}

func TestSingleKeyBeatsStarter(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("g i", rec.cb("seq"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("g", rec.cb("g"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	press(h, 'i', key.ModNone)

	assert.Equal(t, []string{"g"}, rec.got())
}

func TestStarterReArmReplaces(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("g i", rec.cb("gi"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("h x", rec.cb("hx"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	press(h, 'h', key.ModNone)
	press(h, 'i', key.ModNone)
	assert.Empty(t, rec.got())

	press(h, 'h', key.ModNone)
	press(h, 'x', key.ModNone)
	assert.Equal(t, []string{"hx"}, rec.got())
}

func TestSequenceTimeout(t *testing.T) {
	h, reg, rec := newTestHandler(t, Config{SequenceTimeout: 20 * time.Millisecond})

	_, err := reg.Add("g i", rec.cb("inbox"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	require.True(t, h.Pending())

	assert.Eventually(t, func() bool { return !h.Pending() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), h.Metrics().Snapshot().SequenceTimeouts)

	press(h, 'i', key.ModNone)
	assert.Empty(t, rec.got())
}

func TestStaleTimerDoesNotClearNewSequence(t *testing.T) {
	h, reg, rec := newTestHandler(t, Config{SequenceTimeout: 50 * time.Millisecond})

	_, err := reg.Add("g i", rec.cb("inbox"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	time.Sleep(30 * time.Millisecond)
	press(h, 'g', key.ModNone)
	time.Sleep(30 * time.Millisecond)

	// the first timer would have expired by now; the second has not
	press(h, 'i', key.ModNone)
	assert.Equal(t, []string{"inbox"}, rec.got())
}

func TestKeyDownIgnoresCharacters(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("g i", rec.cb("inbox"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("esc", rec.cb("esc"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	assert.False(t, h.HandleKeyDown(key.NewKeyDown('i', key.ModNone)))
	assert.True(t, h.Pending(), "ignored key-down leaves the sequence armed")

	assert.True(t, h.HandleKeyDown(key.NewKeyDown(key.CodeEscape, key.ModNone)))
	assert.Equal(t, []string{"esc"}, rec.got())
	assert.False(t, h.Pending())
}

func TestSelectorScoping(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("c", rec.cb("default"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("c", rec.cb("inputs"), "input", nil)
	require.NoError(t, err)

	e := key.NewEvent('c', key.ModNone).WithTarget(selector.Element("input"))
	h.HandleKeyPress(e)
	assert.Equal(t, []string{"inputs"}, rec.got())

	e = key.NewEvent('c', key.ModNone).WithTarget(selector.Element("div"))
	h.HandleKeyPress(e)
	assert.Equal(t, []string{"inputs", "default"}, rec.got())

	snap := h.Metrics().Snapshot()
	assert.Equal(t, uint64(2), snap.Filtered)
	assert.Equal(t, uint64(2), snap.Fired)
}

func TestFilteredEventNotPrevented(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("c", rec.cb("c"), "", nil)
	require.NoError(t, err)

	e := key.NewEvent('c', key.ModNone).WithTarget("textarea")
	assert.False(t, h.HandleKeyPress(e))
	assert.False(t, e.DefaultPrevented())
	assert.Empty(t, rec.got())
}

func TestCustomMatcher(t *testing.T) {
	reg := keymap.NewRegistry(nil)
	h := NewHandler(reg, DefaultConfig(), WithMatcher(selector.MatchAll))
	defer h.Close()

	rec := &recorder{}
	_, err := reg.Add("c", rec.cb("c"), "", nil)
	require.NoError(t, err)

	h.HandleKeyPress(key.NewEvent('c', key.ModNone).WithTarget(42))
	assert.Equal(t, []string{"c"}, rec.got())
}

func TestSuppressedCallNotPrevented(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	now := time.Unix(1_700_000_000, 0)
	clock := ratelimit.ClockFunc(func() time.Time { return now })
	limiter := ratelimit.NewThrottle(100*time.Millisecond, ratelimit.WithClock(clock))

	_, err := reg.Add("c", rec.cb("c", keymap.WithLimiter(limiter)), "", nil)
	require.NoError(t, err)

	first := press(h, 'c', key.ModNone)
	now = now.Add(50 * time.Millisecond)
	second := press(h, 'c', key.ModNone)
	now = now.Add(60 * time.Millisecond)
	press(h, 'c', key.ModNone)

	assert.Equal(t, []string{"c", "c"}, rec.got())
	assert.True(t, first.DefaultPrevented())
	assert.False(t, second.DefaultPrevented())
	assert.Equal(t, uint64(1), h.Metrics().Snapshot().Suppressed)
}

func TestCallbackMayRegister(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	cb := keymap.NewCallback(func(*key.Event, any) {
		_, err := reg.Add("y", rec.cb("y"), "", nil)
		assert.NoError(t, err)
	})
	_, err := reg.Add("x", cb, "", nil)
	require.NoError(t, err)

	press(h, 'x', key.ModNone)
	press(h, 'y', key.ModNone)
	assert.Equal(t, []string{"y"}, rec.got())
}

func TestHookConsumesEvent(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("c", rec.cb("c"), "", nil)
	require.NoError(t, err)

	id := h.Hooks().Register(consumeHook{code: 'c'})

	press(h, 'c', key.ModNone)
	assert.Empty(t, rec.got())
	assert.Equal(t, uint64(1), h.Metrics().Snapshot().HookConsumptions)

	h.Hooks().Unregister(id)
	press(h, 'c', key.ModNone)
	assert.Equal(t, []string{"c"}, rec.got())
}

func TestPostHookSeesFired(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	tr, err := reg.Add("c", rec.cb("c"), "", nil)
	require.NoError(t, err)

	seen := &firedHook{}
	h.Hooks().Register(seen)

	press(h, 'c', key.ModNone)
	assert.Equal(t, []*keymap.Trigger{tr}, seen.fired)
}

func TestClose(t *testing.T) {
	h, reg, rec := newTestHandler(t, DefaultConfig())

	_, err := reg.Add("c", rec.cb("c"), "", nil)
	require.NoError(t, err)
	_, err = reg.Add("g i", rec.cb("gi"), "", nil)
	require.NoError(t, err)

	press(h, 'g', key.ModNone)
	h.Close()
	h.Close()

	assert.True(t, h.IsClosed())
	assert.False(t, h.Pending())
	assert.False(t, h.HandleKeyPress(key.NewEvent('c', key.ModNone)))
	assert.Empty(t, rec.got())
}
