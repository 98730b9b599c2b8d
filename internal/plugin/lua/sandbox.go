package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// unsafeGlobals load code or touch the host outside the sandbox.
var unsafeGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
}

// openSafeLibraries opens only the libraries that cannot reach the host.
// io, os, debug, package and channel are never opened.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}

// StringFunc adapts a Go function over string arguments to a Lua function.
// Non-string arguments are converted with tostring semantics. An error, or
// a result longer than maxSize bytes, is raised inside Lua so the calling
// plugin sees it. maxSize <= 0 means no limit.
func StringFunc(fn func(args []string) (string, error), maxSize int) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]string, n)
		for i := 1; i <= n; i++ {
			args[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		out, err := fn(args)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		if maxSize > 0 && len(out) > maxSize {
			L.RaiseError("%v: host result of %d bytes exceeds %d", ErrStringTooLarge, len(out), maxSize)
			return 0
		}
		L.Push(lua.LString(out))
		return 1
	}
}
