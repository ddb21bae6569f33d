package luaeval

import (
	lua "github.com/yuin/gopher-lua"

	"syslua/internal/action"
	"syslua/internal/placeholder"
)

// recorder is the ctx backing store for one apply/destroy closure
// invocation: it does not execute actions, only appends their
// placeholder-returning residue (spec.md §4.1 "Action capture").
type recorder struct {
	actions []action.Action
}

// newCtx builds the ctx table passed into an apply/destroy closure.
// ctx.out is only present for builds (spec.md §4.1).
func newCtx(L *lua.LState, rec *recorder, isBuild bool) *lua.LTable {
	t := L.NewTable()
	if isBuild {
		t.RawSetString("out", lua.LString(placeholder.Out))
	}
	t.RawSetString("exec", L.NewFunction(func(L *lua.LState) int { return ctxExec(L, rec) }))
	t.RawSetString("fetch_url", L.NewFunction(func(L *lua.LState) int { return ctxFetchURL(L, rec) }))
	return t
}

// ctxExec backs ctx:exec(opts) — opts = { bin, args, env, cwd }.
func ctxExec(L *lua.LState, rec *recorder) int {
	L.CheckTable(1) // ctx itself (method-call self), unused
	opts := L.CheckTable(2)

	bin := stringField(opts, "bin", "")
	var args []string
	if at, ok := opts.RawGetString("args").(*lua.LTable); ok {
		n := at.Len()
		args = make([]string, 0, n)
		for i := 1; i <= n; i++ {
			args = append(args, lua.LVAsString(at.RawGetInt(i)))
		}
	}
	var env map[string]string
	if et, ok := opts.RawGetString("env").(*lua.LTable); ok {
		env = map[string]string{}
		et.ForEach(func(k, v lua.LValue) { env[lua.LVAsString(k)] = lua.LVAsString(v) })
	}
	cwd := stringField(opts, "cwd", "")

	idx := len(rec.actions)
	rec.actions = append(rec.actions, action.Exec(bin, args, env, cwd))
	L.Push(lua.LString(placeholder.ActionRef(idx)))
	return 1
}

// ctxFetchURL backs ctx:fetch_url(url, sha256).
func ctxFetchURL(L *lua.LState, rec *recorder) int {
	L.CheckTable(1)
	url := L.CheckString(2)
	sha := L.OptString(3, "")

	idx := len(rec.actions)
	rec.actions = append(rec.actions, action.FetchURL(url, sha))
	L.Push(lua.LString(placeholder.ActionRef(idx)))
	return 1
}

func stringField(t *lua.LTable, key, def string) string {
	v := t.RawGetString(key)
	if v == lua.LNil {
		return def
	}
	return lua.LVAsString(v)
}

func boolField(t *lua.LTable, key string, def bool) bool {
	v := t.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}
