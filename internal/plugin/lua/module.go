package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keystrike/internal/event"
	"github.com/dshills/keystrike/internal/event/topic"
	"github.com/dshills/keystrike/internal/input/keymap"
	"github.com/dshills/keystrike/internal/shortcuts"
)

// ModuleName is the global table scripts use.
const ModuleName = "shortcut"

// Service is the shortcut service surface exposed to scripts.
type Service interface {
	Add(req shortcuts.AddRequest) (*keymap.Trigger, error)
	Remove(spec, eventName, selector string) (int, error)
	Registrations() []shortcuts.Registration
	Bus() *event.Bus
}

// Module exposes a shortcut service to Lua:
//
//	shortcut.add(spec, eventName [, {selector=, throttle=, data=}]) -> id | nil, err
//	shortcut.remove(spec [, eventName [, selector]])                -> count | nil, err
//	shortcut.list()                                                  -> {{id=, shortcut=, ...}, ...}
//	shortcut.on(pattern, fn)                                         -> id | nil, err
//	shortcut.once(pattern, fn)                                       -> id | nil, err
//	shortcut.off(id)                                                 -> bool
//
// Handlers registered with on or once receive a table with the fired shortcut,
// the event name, the key, its modifiers and the registration data.
type Module struct {
	state  *State
	svc    Service
	bridge *Bridge
	logger logrus.FieldLogger

	mu   sync.Mutex
	subs map[string]event.Subscription
}

// NewModule binds svc to state. Call Install to expose it to scripts.
func NewModule(state *State, svc Service) *Module {
	return &Module{
		state:  state,
		svc:    svc,
		bridge: NewBridge(state.L),
		logger: state.Logger(),
		subs:   make(map[string]event.Subscription),
	}
}

// Install registers the shortcut table.
func (m *Module) Install() {
	m.state.RegisterModule(ModuleName, map[string]lua.LGFunction{
		"add":    m.add,
		"remove": m.remove,
		"list":   m.list,
		"on":     m.on,
		"once":   m.once,
		"off":    m.off,
	})
}

// Close drops every bus subscription made by scripts.
func (m *Module) Close() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]event.Subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		_ = m.svc.Bus().Unsubscribe(sub)
	}
}

// pushError returns nil, message to Lua.
func pushError(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func (m *Module) add(L *lua.LState) int {
	req := shortcuts.AddRequest{
		Shortcut:  L.CheckString(1),
		EventName: L.CheckString(2),
	}

	if opts := L.OptTable(3, nil); opts != nil {
		if sel, ok := m.bridge.GetTableString(opts, "selector"); ok {
			req.Selector = sel
		}
		switch th := opts.RawGetString("throttle").(type) {
		case *lua.LNilType:
		case lua.LBool:
			if th {
				req.Throttle = shortcuts.ThrottleDefault
			}
		case lua.LNumber:
			if th <= 0 {
				L.ArgError(3, "throttle must be positive milliseconds")
				return 0
			}
			req.Throttle = shortcuts.ThrottleAfter(time.Duration(float64(th) * float64(time.Millisecond)))
		default:
			L.ArgError(3, "throttle must be a boolean or milliseconds")
			return 0
		}
		if data := opts.RawGetString("data"); data != lua.LNil {
			req.Data = m.bridge.ToGoValue(data)
		}
	}

	t, err := m.svc.Add(req)
	if err != nil {
		return pushError(L, err)
	}
	m.logger.WithFields(logrus.Fields{"shortcut": req.Shortcut, "event": req.EventName}).Debug("script added shortcut")
	L.Push(lua.LString(t.ID))
	return 1
}

func (m *Module) remove(L *lua.LState) int {
	spec := L.CheckString(1)
	eventName := L.OptString(2, "")
	selector := L.OptString(3, "")

	n, err := m.svc.Remove(spec, eventName, selector)
	if err != nil {
		return pushError(L, err)
	}
	L.Push(lua.LNumber(n))
	return 1
}

func (m *Module) list(L *lua.LState) int {
	regs := m.svc.Registrations()

	out := L.NewTable()
	for i, r := range regs {
		row := map[string]any{
			"id":       r.Trigger.ID,
			"shortcut": r.Trigger.Shortcut,
			"kind":     r.Trigger.Kind.String(),
			"selector": r.Trigger.Selector,
			"declared": r.Declared,
		}
		if r.EventName != "" {
			row["event"] = r.EventName
			row["policy"] = r.Throttle.String()
		}
		if r.Trigger.Data != nil {
			row["data"] = r.Trigger.Data
		}
		out.RawSetInt(i+1, m.bridge.ToLuaValue(row))
	}
	L.Push(out)
	return 1
}

func (m *Module) on(L *lua.LState) int {
	return m.subscribe(L)
}

// once subscribes a handler that is dropped after its first signal.
func (m *Module) once(L *lua.LState) int {
	return m.subscribe(L, event.WithOnce())
}

func (m *Module) subscribe(L *lua.LState, opts ...event.SubscriptionOption) int {
	pattern := topic.Topic(L.CheckString(1))
	fn := L.CheckFunction(2)

	if !pattern.IsValid() {
		return pushError(L, fmt.Errorf("%w: %q", event.ErrInvalidTopic, pattern))
	}

	sub, err := m.svc.Bus().Subscribe(pattern, event.AsHandler[shortcuts.Signal](
		func(_ context.Context, env event.Envelope, sig shortcuts.Signal) error {
			return m.state.run(func(L *lua.LState) error {
				return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, m.signalTable(env, sig))
			})
		}), opts...)
	if err != nil {
		return pushError(L, err)
	}

	m.mu.Lock()
	m.subs[sub.ID()] = sub
	m.mu.Unlock()

	L.Push(lua.LString(sub.ID()))
	return 1
}

func (m *Module) off(L *lua.LState) int {
	id := L.CheckString(1)

	m.mu.Lock()
	sub, ok := m.subs[id]
	delete(m.subs, id)
	m.mu.Unlock()

	if ok {
		ok = m.svc.Bus().Unsubscribe(sub) == nil
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (m *Module) signalTable(env event.Envelope, sig shortcuts.Signal) lua.LValue {
	row := map[string]any{
		"shortcut": sig.Shortcut,
		"event":    env.Topic.String(),
		"data":     sig.Data,
	}
	if sig.Event != nil {
		row["key"] = sig.Event.Code.String()
		row["modifiers"] = sig.Event.Modifiers.String()
	}
	return m.bridge.ToLuaValue(row)
}
