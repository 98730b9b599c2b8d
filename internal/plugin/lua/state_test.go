package lua_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/okian/karmabot/internal/plugin/lua"
	. "github.com/smartystreets/goconvey/convey"
)

func mustCompile(src string) *glua.FunctionProto {
	proto, err := lua.Compile(strings.NewReader(src), "test.lua")
	if err != nil {
		panic(err)
	}
	return proto
}

func TestStateSandbox(t *testing.T) {
	Convey("Given a fresh sandboxed state", t, func() {
		ctx := context.Background()
		s := lua.NewState()
		defer s.Close()

		Convey("Then safe libraries are available", func() {
			err := s.Exec(ctx, mustCompile(`assert(string.upper("a") == "A"); assert(math.max(1, 2) == 2); assert(table.concat({"a","b"}) == "ab")`))
			So(err, ShouldBeNil)
		})

		Convey("Then host-reaching globals are gone", func() {
			for _, name := range []string{"io", "os", "debug", "package", "dofile", "loadfile", "load", "loadstring", "require"} {
				err := s.Exec(ctx, mustCompile(`assert(`+name+` == nil, "`+name+` is reachable")`))
				So(err, ShouldBeNil)
			}
		})

		Convey("When a chunk raises an error", func() {
			err := s.Exec(ctx, mustCompile(`error("boom")`))

			Convey("Then the error is returned, not raised in Go", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "boom")
			})

			Convey("Then the state stays usable", func() {
				So(s.Exec(ctx, mustCompile(`x = 1`)), ShouldBeNil)
			})
		})
	})
}

func TestStateCall(t *testing.T) {
	Convey("Given a state with a defined function", t, func() {
		ctx := context.Background()
		s := lua.NewState()
		defer s.Close()
		So(s.Exec(ctx, mustCompile(`function shout(s) return string.upper(s) .. "!" end`)), ShouldBeNil)

		Convey("When calling it", func() {
			out, err := s.Call(ctx, "shout", glua.LString("hej"))

			Convey("Then the results are returned", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 1)
				So(out[0].String(), ShouldEqual, "HEJ!")
				So(s.HasFunction("shout"), ShouldBeTrue)
			})
		})

		Convey("When calling a missing global", func() {
			_, err := s.Call(ctx, "whisper")

			Convey("Then it reports a non-function", func() {
				So(errors.Is(err, lua.ErrNotFunction), ShouldBeTrue)
				So(s.HasFunction("whisper"), ShouldBeFalse)
			})
		})

		Convey("When the state is closed", func() {
			So(s.Close(), ShouldBeNil)
			_, err := s.Call(ctx, "shout", glua.LString("x"))

			Convey("Then calls fail cleanly", func() {
				So(errors.Is(err, lua.ErrStateClosed), ShouldBeTrue)
				So(s.Close(), ShouldBeNil)
			})
		})
	})

	Convey("Given a function that never returns", t, func() {
		s := lua.NewState()
		defer s.Close()
		So(s.Exec(context.Background(), mustCompile(`function spin() while true do end end`)), ShouldBeNil)

		Convey("When calling it with a deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			start := time.Now()
			_, err := s.Call(ctx, "spin")

			Convey("Then the VM is preempted", func() {
				So(errors.Is(err, lua.ErrExecutionTimeout), ShouldBeTrue)
				So(time.Since(start), ShouldBeLessThan, 5*time.Second)
			})
		})
	})

	Convey("Given runaway recursion", t, func() {
		s := lua.NewState(lua.WithCallStackSize(64))
		defer s.Close()
		So(s.Exec(context.Background(), mustCompile(`function deep(n) return 1 + deep(n + 1) end`)), ShouldBeNil)

		Convey("Then the overflow becomes an error", func() {
			_, err := s.Call(context.Background(), "deep", glua.LNumber(1))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStateModules(t *testing.T) {
	Convey("Given a state with a host module", t, func() {
		var seen []string
		s := lua.NewState(lua.WithModule("host", map[string]glua.LGFunction{
			"echo": lua.StringFunc(func(args []string) (string, error) {
				seen = append(seen, args...)
				return strings.Join(args, ","), nil
			}, lua.DefaultMaxStringSize),
			"fail": lua.StringFunc(func([]string) (string, error) {
				return "", errors.New("denied")
			}, lua.DefaultMaxStringSize),
			"big": lua.StringFunc(func(args []string) (string, error) {
				return strings.Repeat("x", 2048), nil
			}, 1024),
		}))
		defer s.Close()
		ctx := context.Background()

		Convey("When Lua calls the host function", func() {
			So(s.Exec(ctx, mustCompile(`function go() return host.echo("a", 2) end`)), ShouldBeNil)
			out, err := s.Call(ctx, "go")

			Convey("Then arguments arrive as strings and the result comes back", func() {
				So(err, ShouldBeNil)
				So(out[0].String(), ShouldEqual, "a,2")
				So(seen, ShouldResemble, []string{"a", "2"})
			})
		})

		Convey("When the host function fails", func() {
			So(s.Exec(ctx, mustCompile(`function go() return host.fail() end`)), ShouldBeNil)
			_, err := s.Call(ctx, "go")

			Convey("Then Lua raises the error back to the caller", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "denied")
			})
		})

		Convey("When the host result is over its limit", func() {
			So(s.Exec(ctx, mustCompile(`function go() return host.big() end`)), ShouldBeNil)
			_, err := s.Call(ctx, "go")

			Convey("Then Lua raises the size error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, lua.ErrStringTooLarge.Error())
			})
		})
	})
}

func TestStateStringLimits(t *testing.T) {
	Convey("Given a state with a 1 KiB string limit", t, func() {
		ctx := context.Background()
		s := lua.NewState(lua.WithMaxStringSize(1024))
		defer s.Close()

		run := func(src string) error {
			return s.Exec(ctx, mustCompile(src))
		}

		Convey("When string.rep asks for gigabytes", func() {
			start := time.Now()
			err := run(`local s = string.rep("x", 8 * 1024 * 1024 * 1024)`)

			Convey("Then the call fails fast without allocating", func() {
				So(errors.Is(err, lua.ErrStringTooLarge), ShouldBeTrue)
				So(time.Since(start), ShouldBeLessThan, time.Second)
			})

			Convey("Then the state keeps working", func() {
				So(run(`assert(string.rep("ab", 3) == "ababab")`), ShouldBeNil)
				So(run(`assert(string.rep("x", 0) == "")`), ShouldBeNil)
			})
		})

		Convey("Then the method form is bounded too", func() {
			err := run(`local s = ("xy"):rep(4096)`)
			So(errors.Is(err, lua.ErrStringTooLarge), ShouldBeTrue)
		})

		Convey("Then table.concat is bounded", func() {
			err := run(`local t = {} for i = 1, 200 do t[i] = "abcdefgh" end local s = table.concat(t, ",")`)
			So(errors.Is(err, lua.ErrStringTooLarge), ShouldBeTrue)
			So(run(`assert(table.concat({1, "b", 3}, "-") == "1-b-3")`), ShouldBeNil)
		})

		Convey("Then string.format widths are bounded", func() {
			err := run(`local s = string.format("%1000000d", 1)`)
			So(errors.Is(err, lua.ErrStringTooLarge), ShouldBeTrue)
			So(run(`assert(string.format("%5d|%s", 42, "ok") == "   42|ok")`), ShouldBeNil)
		})

		Convey("Then gsub with a function replacement is bounded", func() {
			err := run(`local s = string.gsub(string.rep("a", 100), "a", function() return string.rep("b", 100) end)`)
			So(errors.Is(err, lua.ErrStringTooLarge), ShouldBeTrue)
		})

		Convey("Then gsub with a long string replacement is bounded", func() {
			err := run(`local s = string.gsub(string.rep("a", 100), "a", string.rep("b", 100))`)
			So(errors.Is(err, lua.ErrStringTooLarge), ShouldBeTrue)
		})

		Convey("Then ordinary gsub calls still work", func() {
			So(run(`assert(string.gsub("hello world", "o", "0") == "hell0 w0rld")`), ShouldBeNil)
			So(run(`assert(string.gsub("a b", "%w", {a = "x"}) == "x b")`), ShouldBeNil)
			So(run(`assert(string.gsub("a b", "(%w)", "<%1>") == "<a> <b>")`), ShouldBeNil)
		})
	})

	Convey("Given two states with the same limit", t, func() {
		ctx := context.Background()
		hog := lua.NewState(lua.WithMaxStringSize(1024))
		defer hog.Close()
		other := lua.NewState(lua.WithMaxStringSize(1024))
		defer other.Close()
		So(other.Exec(ctx, mustCompile(`function greet(n) return "hi " .. n end`)), ShouldBeNil)

		Convey("When one blows its limit", func() {
			err := hog.Exec(ctx, mustCompile(`local s = string.rep("x", 2 ^ 40)`))
			So(errors.Is(err, lua.ErrStringTooLarge), ShouldBeTrue)

			Convey("Then the other is unaffected", func() {
				out, err := other.Call(ctx, "greet", glua.LString("bob"))
				So(err, ShouldBeNil)
				So(out[0].String(), ShouldEqual, "hi bob")
			})
		})
	})
}

func TestCompile(t *testing.T) {
	Convey("Given malformed source", t, func() {
		_, err := lua.Compile(strings.NewReader(`function (`), "bad.lua")

		Convey("Then compile fails", func() {
			So(errors.Is(err, lua.ErrCompile), ShouldBeTrue)
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := lua.CompileFile("/does/not/exist.lua")

		Convey("Then an error is returned", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
