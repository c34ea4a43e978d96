package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keystrike/internal/input/key"
	"github.com/dshills/keystrike/internal/logging"
	"github.com/dshills/keystrike/internal/shortcuts"
)

func TestOperationString(t *testing.T) {
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", Operation(42).String())
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.toml")
	require.NoError(t, os.WriteFile(path, []byte("c = \"x\"\n"), 0o600))

	w, err := NewWatcher(path, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	rec := &recorder{}
	w.OnChange(rec.handle)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[shortcuts]\nc = \"compose\"\n"), 0o600))
	}

	assert.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	rec.mu.Lock()
	assert.Equal(t, w.Path(), rec.events[0].Path)
	rec.mu.Unlock()
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.toml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	w, err := NewWatcher(path, WithDebounce(0))
	require.NoError(t, err)
	defer w.Close()

	rec := &recorder{}
	w.OnChange(rec.handle)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestWatcherClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.toml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

type fakeReloader struct {
	mu    sync.Mutex
	calls []map[string][]shortcuts.Binding
	err   error
	opts  shortcuts.Options
}

func (f *fakeReloader) Options() shortcuts.Options {
	return f.opts
}

func (f *fakeReloader) Reload(m map[string][]shortcuts.Binding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, m)
	return f.err
}

func (f *fakeReloader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.toml")
	require.NoError(t, os.WriteFile(path, []byte("[shortcuts]\nc = \"compose\"\n"), 0o600))

	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	r := &fakeReloader{opts: shortcuts.DefaultOptions()}
	ReloadOnChange(w, r, logging.Discard())

	require.NoError(t, os.WriteFile(path, []byte("[shortcuts]\nr = \"reply\"\n"), 0o600))
	require.Eventually(t, func() bool { return r.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	r.mu.Lock()
	assert.Equal(t, []shortcuts.Binding{{EventName: "reply"}}, r.calls[0]["r"])
	r.mu.Unlock()

	// a broken file keeps the current shortcuts
	require.NoError(t, os.WriteFile(path, []byte("[shortcuts\n"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, r.count())
}

func TestReloadOnChangeDirectEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.toml")
	require.NoError(t, os.WriteFile(path, []byte("[shortcuts]\nc = \"compose\"\n"), 0o600))

	w := &Watcher{path: path}
	r := &fakeReloader{err: errors.New("rejected")}
	ReloadOnChange(w, r, nil)

	emit(w.handlers, Event{Path: path, Op: OpRemove})
	assert.Zero(t, r.count())

	emit(w.handlers, Event{Path: path, Op: OpWrite})
	assert.Equal(t, 1, r.count())
}

func TestReloadOnChangeWarnsOnSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.toml")
	require.NoError(t, os.WriteFile(path, []byte("[shortcuts]\nc = \"compose\"\n"), 0o600))

	var buf bytes.Buffer
	logger, err := logging.New(logging.Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	w := &Watcher{path: path}
	r := &fakeReloader{opts: shortcuts.DefaultOptions()}
	ReloadOnChange(w, r, logger)

	emit(w.handlers, Event{Path: path, Op: OpWrite})
	assert.Equal(t, 1, r.count())
	assert.Empty(t, buf.String())

	require.NoError(t, os.WriteFile(path, []byte(`debounce = 50
keySequenceTimeoutDelay = 2000

[charCodes]
enter = 13

[shortcuts]
c = "compose"
`), 0o600))
	emit(w.handlers, Event{Path: path, Op: OpWrite})
	assert.Equal(t, 2, r.count())
	assert.Contains(t, buf.String(), "restart to apply")
	assert.Contains(t, buf.String(), "settings=\"debounce,keySequenceTimeoutDelay,charCodes\"")
}

func TestChangedSettings(t *testing.T) {
	running := shortcuts.DefaultOptions()

	f := Default()
	assert.Empty(t, f.ChangedSettings(running))

	f.Throttle = running.Throttle + time.Second
	f.Modifiers = map[string]key.Modifier{}
	assert.Equal(t, []string{"throttle", "modifiers"}, f.ChangedSettings(running))

	running.Throttle = f.Throttle
	running.Modifiers = map[string]key.Modifier{}
	assert.Empty(t, f.ChangedSettings(running))
}
