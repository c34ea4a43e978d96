package lua

// Script is a sandboxed Lua state with the shortcut module installed.
type Script struct {
	state  *State
	module *Module
}

// Open creates a script environment bound to svc.
func Open(svc Service, opts ...StateOption) *Script {
	state := NewState(opts...)
	module := NewModule(state, svc)
	module.Install()
	return &Script{state: state, module: module}
}

// DoFile runs a script file.
func (s *Script) DoFile(path string) error {
	return s.state.DoFile(path)
}

// DoString runs a script chunk.
func (s *Script) DoString(code string) error {
	return s.state.DoString(code)
}

// State returns the underlying state.
func (s *Script) State() *State {
	return s.state
}

// Close drops the script's bus subscriptions and releases the state.
// Shortcuts the script added stay registered.
func (s *Script) Close() error {
	s.module.Close()
	return s.state.Close()
}
