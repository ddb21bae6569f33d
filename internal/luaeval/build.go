package luaeval

import (
	lua "github.com/yuin/gopher-lua"

	"syslua/internal/ir"
)

// sysBuild backs sys.build(spec) (spec.md §4.1). spec.apply(inputs, ctx)
// runs once, immediately, in a recording ctx; its recorded actions and
// returned outputs are frozen into a BuildDef the moment this call
// returns.
func sysBuild(L *lua.LState, coll *collector) int {
	spec := L.CheckTable(1)
	name := stringField(spec, "name", "")
	version := stringField(spec, "version", "")

	inputsVal := spec.RawGetString("inputs")
	inputsRef, err := convertValue(inputsVal, "inputs")
	if err != nil {
		L.RaiseError("sys.build: %s", err.Error())
		return 0
	}

	applyFn, ok := spec.RawGetString("apply").(*lua.LFunction)
	if !ok {
		L.RaiseError("sys.build: spec.apply must be a function")
		return 0
	}

	rec := &recorder{}
	ctxTbl := newCtx(L, rec, true)
	L.Push(applyFn)
	L.Push(inputsVal)
	L.Push(ctxTbl)
	if err := L.PCall(2, 1, nil); err != nil {
		L.RaiseError("sys.build %q: %s", name, wrapLuaErr(err).Error())
		return 0
	}
	outVal := L.Get(-1)
	L.Pop(1)

	outputs, err := convertOutputs(outVal)
	if err != nil {
		L.RaiseError("sys.build %q: %s", name, err.Error())
		return 0
	}

	def := ir.BuildDef{
		Name:         name,
		Version:      version,
		ApplyActions: rec.actions,
		Outputs:      outputs,
		Source:       parseWhere(L.Where(0)),
	}
	if inputsVal != lua.LNil {
		def.Inputs = &inputsRef
	}

	hash, err := def.Hash()
	if err != nil {
		L.RaiseError("sys.build %q: %s", name, err.Error())
		return 0
	}
	coll.manifest.Builds[hash] = def

	ref := newRef(L, refKindBuild, hash)
	ref.RawSetString("name", lua.LString(name))
	ref.RawSetString("version", lua.LString(version))
	L.Push(ref)
	return 1
}
