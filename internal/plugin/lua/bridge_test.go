package lua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func TestBridgeToGoValue(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	tests := []struct {
		name  string
		input glua.LValue
		want  any
	}{
		{"nil", glua.LNil, nil},
		{"true", glua.LTrue, true},
		{"integer", glua.LNumber(42), int64(42)},
		{"float", glua.LNumber(3.5), 3.5},
		{"string", glua.LString("hello"), "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bridge.ToGoValue(tt.input))
		})
	}
}

func TestBridgeTables(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	require.NoError(t, L.DoString(`
		arr = {"a", "b"}
		obj = {name = "x", tags = {"t"}}
		holes = {[1] = "a", [3] = "c"}
		cyc = {}
		cyc.self = cyc
	`))

	assert.Equal(t, []any{"a", "b"}, bridge.ToGoValue(L.GetGlobal("arr")))
	assert.Equal(t, map[string]any{"name": "x", "tags": []any{"t"}}, bridge.ToGoValue(L.GetGlobal("obj")))
	assert.Equal(t, map[string]any{"1": "a", "3": "c"}, bridge.ToGoValue(L.GetGlobal("holes")))
	assert.Equal(t, map[string]any{"self": nil}, bridge.ToGoValue(L.GetGlobal("cyc")))
}

func TestBridgeToLuaValue(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	assert.Equal(t, glua.LNil, bridge.ToLuaValue(nil))
	assert.Equal(t, glua.LNumber(7), bridge.ToLuaValue(7))
	assert.Equal(t, glua.LString("s"), bridge.ToLuaValue("s"))

	v := bridge.ToLuaValue(map[string]any{"list": []string{"a"}, "n": int64(2)})
	tbl, ok := v.(*glua.LTable)
	require.True(t, ok)
	assert.Equal(t, glua.LNumber(2), tbl.RawGetString("n"))

	s, ok := bridge.GetTableString(tbl, "missing")
	assert.False(t, ok)
	assert.Empty(t, s)

	type custom struct{}
	ud, ok := bridge.ToLuaValue(custom{}).(*glua.LUserData)
	require.True(t, ok)
	assert.Equal(t, custom{}, ud.Value)

	// round trip through Lua
	assert.Equal(t, map[string]any{"list": []any{"a"}, "n": int64(2)}, bridge.ToGoValue(v))
}
