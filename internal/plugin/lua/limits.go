package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// DefaultMaxStringSize bounds the strings a library call may build.
const DefaultMaxStringSize = 1 << 20

// numberWidth is an upper bound on a formatted number or position capture.
const numberWidth = 64

// boundLibraries swaps the library functions that can grow a string in one
// step for versions that check the result size first. gopher-lua has no heap
// limit, so an unchecked string.rep can exhaust the process in one call.
func (s *State) boundLibraries() {
	if str, ok := s.L.GetGlobal(lua.StringLibName).(*lua.LTable); ok {
		s.L.SetField(str, "rep", s.L.NewFunction(s.boundedRep))
		s.wrap(str, "format", s.boundedFormat)
		s.wrap(str, "gsub", s.boundedGsub)
	}
	if tbl, ok := s.L.GetGlobal(lua.TabLibName).(*lua.LTable); ok {
		s.wrap(tbl, "concat", s.boundedConcat)
	}
}

func (s *State) wrap(t *lua.LTable, name string, bound func(lua.LGFunction) lua.LGFunction) {
	fn, ok := t.RawGetString(name).(*lua.LFunction)
	if !ok || !fn.IsG {
		return
	}
	s.L.SetField(t, name, s.L.NewFunction(bound(fn.GFunction)))
}

// tooLarge raises a Lua error and marks the call so pcall reports
// ErrStringTooLarge.
func (s *State) tooLarge(L *lua.LState, fn string) {
	s.limitHit = true
	L.RaiseError("%s: %v (limit %d bytes)", fn, ErrStringTooLarge, s.maxString)
}

func (s *State) boundedRep(L *lua.LState) int {
	str := L.CheckString(1)
	n := L.CheckInt(2)
	if n <= 0 || str == "" {
		L.Push(lua.LString(""))
		return 1
	}
	if len(str) > s.maxString/n {
		s.tooLarge(L, "string.rep")
		return 0
	}
	L.Push(lua.LString(strings.Repeat(str, n)))
	return 1
}

func (s *State) boundedConcat(orig lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		t := L.CheckTable(1)
		sep := L.OptString(2, "")
		i := L.OptInt(3, 1)
		j := L.OptInt(4, t.Len())

		size := 0
		for k := i; k <= j; k++ {
			switch v := t.RawGetInt(k).(type) {
			case lua.LString:
				size += len(v)
			case lua.LNumber:
				size += len(v.String())
			default:
				// concat itself reports the bad element
				return orig(L)
			}
			if k < j {
				size += len(sep)
			}
			if size > s.maxString {
				s.tooLarge(L, "table.concat")
				return 0
			}
		}
		return orig(L)
	}
}

func (s *State) boundedFormat(orig lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		if formatExceeds(L, s.maxString) {
			s.tooLarge(L, "string.format")
			return 0
		}
		return orig(L)
	}
}

// formatExceeds reports whether string.format could produce more than limit
// bytes for the arguments on the stack. Every directive is charged its
// width or precision plus the argument it consumes.
func formatExceeds(L *lua.LState, limit int) bool {
	f := L.CheckString(1)
	size, arg := 0, 2
	for i := 0; i < len(f); i++ {
		if f[i] != '%' {
			size++
			continue
		}
		i++
		if i < len(f) && f[i] == '%' {
			size++
			continue
		}

		width, n := 0, 0
		for ; i < len(f) && strings.IndexByte("-+ #.0123456789", f[i]) >= 0; i++ {
			switch c := f[i]; {
			case c == '.':
				width, n = max(width, n), 0
			case c >= '0' && c <= '9':
				n = min(n*10+int(c-'0'), limit+1)
			}
		}
		size += max(width, n) + numberWidth

		if arg <= L.GetTop() {
			if str, ok := L.Get(arg).(lua.LString); ok {
				if i < len(f) && f[i] == 'q' {
					size += 4 * len(str)
				} else {
					size += len(str)
				}
			}
		}
		arg++

		if size > limit {
			return true
		}
	}
	return size > limit
}

func (s *State) boundedGsub(orig lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		str := L.CheckString(1)
		matches := len(str) + 1
		if n, ok := L.Get(4).(lua.LNumber); ok && n >= 0 && int(n) < matches {
			matches = int(n)
		}

		switch repl := L.Get(3).(type) {
		case lua.LString:
			plain, escapes := 0, 0
			for i := 0; i < len(repl); i++ {
				if repl[i] == '%' && i+1 < len(repl) {
					escapes++
					i++
					continue
				}
				plain++
			}
			// Captures lie inside their match and matches do not overlap,
			// so all expansions of one escape add up to at most len(str).
			bound := float64(len(str)) +
				float64(matches)*float64(plain+escapes*numberWidth) +
				float64(escapes)*float64(len(str))
			if bound > float64(s.maxString) {
				s.tooLarge(L, "string.gsub")
				return 0
			}
		case *lua.LFunction:
			L.Replace(3, s.guardedRepl(L, len(str), func(L *lua.LState) lua.LValue {
				top := L.GetTop()
				L.Push(repl)
				for i := 1; i <= top; i++ {
					L.Push(L.Get(i))
				}
				L.Call(top, 1)
				return L.Get(-1)
			}))
		case *lua.LTable:
			L.Replace(3, s.guardedRepl(L, len(str), func(L *lua.LState) lua.LValue {
				return L.GetTable(repl, L.Get(1))
			}))
		}
		return orig(L)
	}
}

// guardedRepl wraps a gsub replacement and keeps a running total of the
// result, starting from the subject length.
func (s *State) guardedRepl(L *lua.LState, size int, lookup func(*lua.LState) lua.LValue) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		v := lookup(L)
		switch r := v.(type) {
		case lua.LString:
			size += len(r)
		case lua.LNumber:
			size += len(r.String())
		}
		if size > s.maxString {
			s.tooLarge(L, "string.gsub")
			return 0
		}
		L.Push(v)
		return 1
	})
}
