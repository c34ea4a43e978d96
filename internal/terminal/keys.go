package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keystrike/internal/input/key"
)

// CodeTab is the code reported for the tab key. It is not in the default
// named-key table; add tab = 9 to charCodes to bind it.
const CodeTab key.Code = 9

// namedKeys maps tcell's special keys to named key codes. These arrive as
// key down events. A slice is used because several tcell constants alias
// the same value.
var namedKeys = []struct {
	tk   tcell.Key
	code key.Code
}{
	{tcell.KeyEscape, key.CodeEscape},
	{tcell.KeyEnter, key.CodeReturn},
	{tcell.KeyBackspace, key.CodeBackspace},
	{tcell.KeyBackspace2, key.CodeBackspace},
	{tcell.KeyDelete, key.CodeDelete},
	{tcell.KeyTab, CodeTab},
	{tcell.KeyHome, key.CodeHome},
	{tcell.KeyEnd, key.CodeEnd},
	{tcell.KeyPgUp, key.CodePageUp},
	{tcell.KeyPgDn, key.CodePageDown},
	{tcell.KeyUp, key.CodeUp},
	{tcell.KeyDown, key.CodeDown},
	{tcell.KeyLeft, key.CodeLeft},
	{tcell.KeyRight, key.CodeRight},
}

// Convert normalizes a tcell key event.
//
// Runes become key press events carrying the rune's code. Special keys
// become key down events with their named code. Control characters
// (ctrl+a to ctrl+z) become a press of the letter with ctrl held. Keys with
// no mapping, such as function keys, report false.
func Convert(ev *tcell.EventKey) (*key.Event, bool) {
	if ev == nil {
		return nil, false
	}
	mods := convertMod(ev.Modifiers())

	if ev.Key() == tcell.KeyRune {
		e := key.NewEvent(key.Code(ev.Rune()), mods)
		e.Timestamp = ev.When()
		return e, true
	}

	for _, nk := range namedKeys {
		if nk.tk == ev.Key() {
			e := key.NewKeyDown(nk.code, mods)
			e.Timestamp = ev.When()
			return e, true
		}
	}

	if k := ev.Key(); k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		code := key.Code('a' + int(k-tcell.KeyCtrlA))
		e := key.NewEvent(code, mods|key.ModCtrl)
		e.Timestamp = ev.When()
		return e, true
	}
	return nil, false
}

// convertMod converts a tcell modifier mask. Meta maps to cmd.
func convertMod(m tcell.ModMask) key.Modifier {
	var result key.Modifier
	if m&tcell.ModShift != 0 {
		result |= key.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		result |= key.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		result |= key.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		result |= key.ModCmd
	}
	return result
}
