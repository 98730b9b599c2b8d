// Package lua runs plugin code inside sandboxed gopher-lua states.
//
// A plugin is compiled once to a FunctionProto and executed in its own
// LState. Only the base, table, string and math libraries are available;
// everything that reaches the filesystem or loads more code is removed.
// string.rep, string.format, string.gsub and table.concat refuse to build
// strings over the state's size limit.
//
// An LState is not goroutine-safe. State serializes every operation with
// its own mutex, and each call can carry a deadline that preempts the VM.
package lua
