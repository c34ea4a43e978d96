// Package config loads keystrike shortcut files.
//
// A shortcut file is TOML or YAML, chosen by extension. All settings are
// optional:
//
//	debounce = 200                 # ms, applied to non-throttled shortcuts
//	throttle = 100                 # ms, used by throttle = true
//	keySequenceTimeoutDelay = 1000 # ms, 0 disables the sequence timeout
//
//	[charCodes]                    # replaces the named-key table
//	esc = 27
//
//	[modifiers]                    # replaces the modifier table
//	control = "ctrl"
//
//	[shortcuts]
//	c = "compose"
//	"g i" = "inbox.open"
//	j = [{ eventName = "scroll.down", throttle = true }]
//	"ctrl+s" = [{ eventName = "save", selector = "body", throttle = 500 }]
//
// KEYSTRIKE_DEBOUNCE, KEYSTRIKE_THROTTLE and KEYSTRIKE_SEQUENCE_TIMEOUT
// override the timing settings.
//
// Watcher reports changes to a loaded file; ReloadOnChange feeds them to a
// running service.
package config
