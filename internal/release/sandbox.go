package release

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM restricts a Lua VM to declarative use. It removes everything
// that could:
// - Execute system commands (os.execute, os.exit)
// - Access the filesystem (io.open, io.popen)
// - Load external code (require, dofile, loadfile, load, loadstring)
// - Escape the sandbox (debug, metatable and raw access, collectgarbage)
//
// string, table and math are kept, together with type, tostring, tonumber,
// pairs, ipairs and next.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range []string{
		"os", "io", "debug",
		"require", "module", "package",
		"dofile", "loadfile", "load", "loadstring",
		"getmetatable", "setmetatable", "rawget", "rawset", "rawequal",
		"getfenv", "setfenv", "collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a Lua VM with sandboxing applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}
