package lua

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func TestStateDoString(t *testing.T) {
	s := NewState()
	defer s.Close()

	require.NoError(t, s.DoString(`x = 1 + 2`))
	assert.Equal(t, glua.LNumber(3), s.GetGlobal("x"))

	err := s.DoString(`error("boom")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestStateDoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.lua")
	require.NoError(t, os.WriteFile(path, []byte(`greeting = "hi"`), 0o600))

	s := NewState()
	defer s.Close()

	require.NoError(t, s.DoFile(path))
	assert.Equal(t, glua.LString("hi"), s.GetGlobal("greeting"))
}

func TestSandboxRemovesLoaders(t *testing.T) {
	s := NewState()
	defer s.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "io", "os", "debug"} {
		assert.Equal(t, glua.LNil, s.GetGlobal(name), name)
	}
	assert.True(t, s.sandbox.IsRemoved("require"))
	assert.False(t, s.sandbox.IsRemoved("print"))

	for _, lib := range []string{"string", "table", "math"} {
		assert.NotEqual(t, glua.LNil, s.GetGlobal(lib), lib)
	}
}

func TestSandboxPrintLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	s := NewState(WithLogger(logger))
	defer s.Close()

	require.NoError(t, s.DoString(`print("hello", 42)`))
	assert.Contains(t, buf.String(), "hello\\t42")
	assert.Contains(t, buf.String(), "component=lua")
}

func TestStateExecutionTimeout(t *testing.T) {
	s := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer s.Close()

	err := s.DoString(`while true do end`)
	assert.ErrorIs(t, err, ErrExecutionTimeout)

	// the state stays usable
	assert.NoError(t, s.DoString(`y = 1`))
}

func TestStateCallFunction(t *testing.T) {
	s := NewState()
	defer s.Close()

	require.NoError(t, s.DoString(`function double(n) result = n * 2 end`))
	fn, ok := s.GetGlobal("double").(*glua.LFunction)
	require.True(t, ok)

	require.NoError(t, s.CallFunction(fn, glua.LNumber(21)))
	assert.Equal(t, glua.LNumber(42), s.GetGlobal("result"))
}

func TestStateClose(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.True(t, s.IsClosed())
	assert.ErrorIs(t, s.DoString(`x = 1`), ErrStateClosed)
	assert.Equal(t, glua.LNil, s.GetGlobal("x"))
}
