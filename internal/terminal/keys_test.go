package terminal

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keystrike/internal/input/key"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		ev       *tcell.EventKey
		wantCode key.Code
		wantMods key.Modifier
		wantKind key.Kind
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'g', tcell.ModNone), 'g', key.ModNone, key.KindPress},
		{"upper rune", tcell.NewEventKey(tcell.KeyRune, 'G', tcell.ModShift), 'G', key.ModShift, key.KindPress},
		{"alt rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), 'x', key.ModAlt, key.KindPress},
		{"meta rune", tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModMeta), 'k', key.ModCmd, key.KindPress},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), key.CodeEscape, key.ModNone, key.KindDown},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), key.CodeReturn, key.ModNone, key.KindDown},
		{"backspace", tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), key.CodeBackspace, key.ModNone, key.KindDown},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), key.CodeUp, key.ModNone, key.KindDown},
		{"page down", tcell.NewEventKey(tcell.KeyPgDn, 0, tcell.ModNone), key.CodePageDown, key.ModNone, key.KindDown},
		{"ctrl letter", tcell.NewEventKey(tcell.KeyCtrlS, 0, tcell.ModCtrl), 's', key.ModCtrl, key.KindPress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := Convert(tt.ev)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantMods, e.Modifiers)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.ev.When(), e.Timestamp)
		})
	}
}

func TestConvertUnmapped(t *testing.T) {
	_, ok := Convert(tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone))
	assert.False(t, ok)

	_, ok = Convert(nil)
	assert.False(t, ok)
}

func TestConvertMod(t *testing.T) {
	assert.Equal(t, key.ModNone, convertMod(tcell.ModNone))
	assert.Equal(t, key.ModCtrl|key.ModShift, convertMod(tcell.ModCtrl|tcell.ModShift))
	assert.Equal(t, key.ModAlt|key.ModCmd, convertMod(tcell.ModAlt|tcell.ModMeta))
}
