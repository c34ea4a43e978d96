// Package terminal drives a shortcut engine from a tcell screen.
//
// Convert turns tcell key events into normalized key events: runes become
// key presses, special keys become key downs with their named code, and
// control characters become ctrl plus the letter. Runner polls a screen,
// feeds each key to a KeyHandler and lists the shortcuts that fired.
package terminal
