// Package topic provides dotted topic names and wildcard patterns for the
// event bus.
//
// Topics are dot-separated segments such as "shortcut.add" or
// "inbox.open". Patterns may use two wildcards:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// Examples:
//
//	shortcut.*    matches shortcut.add, shortcut.remove
//	inbox.**      matches inbox, inbox.open, inbox.thread.next
//	**            matches everything
package topic
