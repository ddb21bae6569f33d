package luaeval

import (
	lua "github.com/yuin/gopher-lua"

	"syslua/internal/action"
	"syslua/internal/ir"
	"syslua/internal/placeholder"
)

// sysBind backs sys.bind(spec) (spec.md §4.1). Like sys.build, apply runs
// immediately in a recording ctx; if spec.destroy is present it is then
// invoked with symbolic outputs — each value the $${self:outputs:<name>}
// token, not $${bind:<hash>:outputs:<name>} (see internal/placeholder's
// SelfOutputRef doc for why: this bind's own hash isn't known until its
// destroy_actions, captured by this very call, are finished).
func sysBind(L *lua.LState, coll *collector) int {
	spec := L.CheckTable(1)
	id := stringField(spec, "id", "")
	replace := boolField(spec, "replace", false)

	inputsVal := spec.RawGetString("inputs")
	inputsRef, err := convertValue(inputsVal, "inputs")
	if err != nil {
		L.RaiseError("sys.bind: %s", err.Error())
		return 0
	}

	applyFn, ok := spec.RawGetString("apply").(*lua.LFunction)
	if !ok {
		L.RaiseError("sys.bind: spec.apply must be a function")
		return 0
	}

	rec := &recorder{}
	ctxTbl := newCtx(L, rec, false)
	L.Push(applyFn)
	L.Push(inputsVal)
	L.Push(ctxTbl)
	if err := L.PCall(2, 1, nil); err != nil {
		L.RaiseError("sys.bind %q: %s", id, wrapLuaErr(err).Error())
		return 0
	}
	outVal := L.Get(-1)
	L.Pop(1)

	outputs, err := convertOutputs(outVal)
	if err != nil {
		L.RaiseError("sys.bind %q: %s", id, err.Error())
		return 0
	}

	var destroyActions []action.Action
	if destroyFn, ok := spec.RawGetString("destroy").(*lua.LFunction); ok {
		drec := &recorder{}
		dctxTbl := newCtx(L, drec, false)
		symbolic := L.NewTable()
		for k := range outputs {
			symbolic.RawSetString(k, lua.LString(placeholder.SelfOutputRef(k)))
		}
		L.Push(destroyFn)
		L.Push(symbolic)
		L.Push(dctxTbl)
		if err := L.PCall(2, 0, nil); err != nil {
			L.RaiseError("sys.bind %q destroy: %s", id, wrapLuaErr(err).Error())
			return 0
		}
		destroyActions = drec.actions
	}

	def := ir.BindDef{
		ID:             id,
		Replace:        replace,
		ApplyActions:   rec.actions,
		DestroyActions: destroyActions,
		Outputs:        outputs,
		Source:         parseWhere(L.Where(0)),
	}
	if inputsVal != lua.LNil {
		def.Inputs = &inputsRef
	}

	hash, err := def.Hash()
	if err != nil {
		L.RaiseError("sys.bind %q: %s", id, err.Error())
		return 0
	}
	coll.manifest.Binds[hash] = def

	ref := newRef(L, refKindBind, hash)
	ref.RawSetString("id", lua.LString(id))
	L.Push(ref)
	return 1
}
