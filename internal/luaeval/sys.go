package luaeval

import (
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"syslua/internal/ir"
	"syslua/internal/platform"
)

// collector accumulates every sys.build/sys.bind call made during one
// script evaluation.
type collector struct {
	manifest ir.Manifest
}

// registerSys installs the sys global (spec.md §4.1 "Global surface").
func registerSys(L *lua.LState, scriptPath string, coll *collector) {
	sys := L.NewTable()
	sys.RawSetString("os", lua.LString(platform.OS()))
	sys.RawSetString("arch", lua.LString(platform.Arch()))
	sys.RawSetString("platform", lua.LString(platform.Platform()))
	sys.RawSetString("is_elevated", lua.LBool(platform.IsElevated()))
	sys.RawSetString("dir", lua.LString(filepath.Dir(scriptPath)))
	sys.RawSetString("getenv", L.NewFunction(sysGetenv))
	sys.RawSetString("path", buildPathTable(L))
	sys.RawSetString("build", L.NewFunction(func(L *lua.LState) int { return sysBuild(L, coll) }))
	sys.RawSetString("bind", L.NewFunction(func(L *lua.LState) int { return sysBind(L, coll) }))
	L.SetGlobal("sys", sys)
}

func sysGetenv(L *lua.LState) int {
	name := L.CheckString(1)
	L.Push(lua.LString(os.Getenv(name)))
	return 1
}

// buildPathTable backs sys.path.* (spec.md §4.1), limited to the handful
// of helpers a sys.lua script actually needs to compose store-relative
// paths: join, base, dir.
func buildPathTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("join", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.CheckString(i))
		}
		L.Push(lua.LString(filepath.Join(parts...)))
		return 1
	}))
	t.RawSetString("base", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(filepath.Base(L.CheckString(1))))
		return 1
	}))
	t.RawSetString("dir", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(filepath.Dir(L.CheckString(1))))
		return 1
	}))
	return t
}
