/*
Package lua runs shortcut registration scripts on gopher-lua.

Scripts run in a sandbox: only the base, table, string and math libraries
are opened, code loading functions are removed, and print writes to the
logger. Each run is bounded by an execution timeout.

A script sees a single global table, shortcut:

	shortcut.add("g i", "inbox.open")
	shortcut.add("j", "scroll.down", { throttle = true })
	shortcut.add("ctrl+s", "save", { selector = "body", throttle = 500, data = { draft = true } })

	shortcut.on("inbox.*", function(sig)
		print("fired", sig.shortcut, sig.event)
	end)
	shortcut.once("save", function(sig) print("first save") end)

	for _, s in ipairs(shortcut.list()) do
		print(s.shortcut, s.kind, s.event)
	end

	shortcut.remove("g i", "inbox.open")

add, remove, on and once return nil and an error message on failure.

Basic usage:

	script := lua.Open(svc, lua.WithLogger(logger))
	defer script.Close()

	if err := script.DoFile("keys.lua"); err != nil {
		return err
	}
*/
package lua
