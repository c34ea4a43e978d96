package config

import (
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dshills/keystrike/internal/logging"
	"github.com/dshills/keystrike/internal/shortcuts"
)

// Event represents a change to the watched file.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the operation that triggered the event.
	Op Operation

	// Time is when the event occurred.
	Time time.Time
}

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates the file was created or replaced.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed away.
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler is called when a change is detected.
type Handler func(event Event)

// Watcher reports changes to a single shortcut file.
//
// The file's directory is watched rather than the file itself so editors
// that save by writing a temporary file and renaming it are still seen.
// Bursts of events are coalesced into one call per debounce window.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   logrus.FieldLogger

	handlers []Handler
	pending  *Event
	timer    *time.Timer

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration for rapid changes.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(logger logrus.FieldLogger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher starts watching path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		path:     absPath,
		debounce: 100 * time.Millisecond,
		logger:   logging.Discard(),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.Component(w.logger, "config.watcher")

	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// OnChange registers a handler for change events.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Close stops the watcher. Pending events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("watch error")
		}
	}
}

func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	if filepath.Clean(fsEvent.Name) != w.path {
		return
	}
	op, ok := convertOp(fsEvent.Op)
	if !ok {
		return
	}
	w.queue(Event{Path: w.path, Op: op, Time: time.Now()})
}

// convertOp maps fsnotify operations. Chmod is ignored.
func convertOp(fsOp fsnotify.Op) (Operation, bool) {
	switch {
	case fsOp.Has(fsnotify.Remove):
		return OpRemove, true
	case fsOp.Has(fsnotify.Rename):
		return OpRename, true
	case fsOp.Has(fsnotify.Create):
		return OpCreate, true
	case fsOp.Has(fsnotify.Write):
		return OpWrite, true
	default:
		return 0, false
	}
}

// queue coalesces events within the debounce window:
// create then write stays create, and remove wins over anything.
func (w *Watcher) queue(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.debounce == 0 {
		handlers := append([]Handler(nil), w.handlers...)
		go emit(handlers, ev)
		return
	}

	if w.pending != nil {
		switch {
		case ev.Op == OpRemove:
		case w.pending.Op == OpRemove:
			// a later create or write revives the file
		case ev.Op == OpWrite && w.pending.Op != OpWrite:
			ev.Op = w.pending.Op
		}
	}
	w.pending = &ev

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || w.pending == nil {
		w.mu.Unlock()
		return
	}
	ev := *w.pending
	w.pending = nil
	handlers := append([]Handler(nil), w.handlers...)
	w.mu.Unlock()

	emit(handlers, ev)
}

func emit(handlers []Handler, ev Event) {
	for _, h := range handlers {
		h(ev)
	}
}

// Reloader replaces a set of declarative shortcuts and reports the settings
// it runs with.
type Reloader interface {
	Reload(map[string][]shortcuts.Binding) error
	Options() shortcuts.Options
}

// ReloadOnChange re-reads the watched file after each write or create and
// hands its shortcuts to r. Files that fail to load leave the current
// shortcuts in place. Only shortcuts are reloaded; a warning names any other
// setting that changed, since it applies after a restart.
func ReloadOnChange(w *Watcher, r Reloader, logger logrus.FieldLogger) {
	logger = logging.Component(logger, "config")

	w.OnChange(func(ev Event) {
		fields := logrus.Fields{"path": ev.Path, "op": ev.Op.String()}
		if ev.Op == OpRemove || ev.Op == OpRename {
			logger.WithFields(fields).Warn("shortcut file went away, keeping current shortcuts")
			return
		}

		f, err := Load(ev.Path)
		if err != nil {
			logger.WithFields(fields).WithError(err).Error("reload failed")
			return
		}
		if changed := f.ChangedSettings(r.Options()); len(changed) > 0 {
			logger.WithFields(fields).WithField("settings", strings.Join(changed, ",")).
				Warn("settings changed, restart to apply")
		}
		if err := r.Reload(f.Shortcuts); err != nil {
			logger.WithFields(fields).WithError(err).Error("shortcuts not reloaded, keeping current shortcuts")
			return
		}
		logger.WithFields(fields).WithField("shortcuts", len(f.Shortcuts)).Info("config reloaded")
	})
}

// ChangedSettings returns the names of the file settings, other than
// shortcuts, that differ from running.
func (f *File) ChangedSettings(running shortcuts.Options) []string {
	var changed []string
	if f.Debounce != running.Debounce {
		changed = append(changed, "debounce")
	}
	if f.Throttle != running.Throttle {
		changed = append(changed, "throttle")
	}
	if f.SequenceTimeout != running.SequenceTimeout {
		changed = append(changed, "keySequenceTimeoutDelay")
	}
	if !sameTable(f.NamedKeys, running.NamedKeys) {
		changed = append(changed, "charCodes")
	}
	if !sameTable(f.Modifiers, running.Modifiers) {
		changed = append(changed, "modifiers")
	}
	return changed
}

// sameTable treats a nil table (the built-in one) as distinct from an empty one.
func sameTable[V comparable](a, b map[string]V) bool {
	return (a == nil) == (b == nil) && maps.Equal(a, b)
}
