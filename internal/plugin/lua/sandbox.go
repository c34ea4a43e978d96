package lua

import (
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L      *lua.LState
	logger logrus.FieldLogger
}

// NewSandbox creates a sandbox for the Lua state.
func NewSandbox(L *lua.LState, logger logrus.FieldLogger) *Sandbox {
	return &Sandbox{L: L, logger: logger}
}

// dangerousGlobals can load code from disk or strings.
var dangerousGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
}

// Install removes unsafe globals and routes print to the logger.
func (s *Sandbox) Install() {
	for _, name := range dangerousGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installSafePrint()
}

// installSafePrint replaces print with one that writes to the logger at
// info level.
func (s *Sandbox) installSafePrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.logger.Info(strings.Join(parts, "\t"))
		return 0
	}))
}

// IsRemoved reports whether a global was stripped by the sandbox.
func (s *Sandbox) IsRemoved(name string) bool {
	for _, g := range dangerousGlobals {
		if g == name {
			return true
		}
	}
	return false
}
