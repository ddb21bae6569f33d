package luaeval

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"syslua/internal/hashutil"
	"syslua/internal/ir"
	"syslua/internal/placeholder"
	"syslua/internal/syserr"
)

const (
	refKindField = "__syslua_kind"
	refKindBuild = "build"
	refKindBind  = "bind"
)

// convertValue implements spec.md §4.1's convert(value) → InputsRef.
// Tables iterate in key-sorted order for determinism; unknown values
// (closures, userdata that isn't a BuildRef/BindRef) fail with
// InvalidInput{path}.
func convertValue(v lua.LValue, path string) (ir.InputsRef, error) {
	if v == lua.LNil || v == nil {
		return ir.Null(), nil
	}
	switch vv := v.(type) {
	case lua.LBool:
		return ir.Boolean(bool(vv)), nil
	case lua.LNumber:
		return ir.Number(float64(vv)), nil
	case lua.LString:
		return ir.String(string(vv)), nil
	case *lua.LTable:
		if kindLV := vv.RawGetString(refKindField); kindLV != lua.LNil {
			h := hashutil.Hash(lua.LVAsString(vv.RawGetString("hash")))
			switch lua.LVAsString(kindLV) {
			case refKindBuild:
				return ir.BuildRef(h), nil
			case refKindBind:
				return ir.BindRef(h), nil
			}
		}
		if isArrayTable(vv) {
			n := vv.Len()
			items := make([]ir.InputsRef, 0, n)
			for i := 1; i <= n; i++ {
				item, err := convertValue(vv.RawGetInt(i), fmt.Sprintf("%s[%d]", path, i))
				if err != nil {
					return ir.InputsRef{}, err
				}
				items = append(items, item)
			}
			return ir.Array(items), nil
		}
		var keys []string
		vv.ForEach(func(k, _ lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				keys = append(keys, string(ks))
			}
		})
		sort.Strings(keys)
		entries := make(map[string]ir.InputsRef, len(keys))
		for _, k := range keys {
			item, err := convertValue(vv.RawGetString(k), path+"."+k)
			if err != nil {
				return ir.InputsRef{}, err
			}
			entries[k] = item
		}
		return ir.Table(entries), nil
	default:
		return ir.InputsRef{}, &syserr.InvalidInput{Path: path}
	}
}

// isArrayTable reports whether t's keys are exactly the dense integer
// range [1, t.Len()] — Lua's usual array convention.
func isArrayTable(t *lua.LTable) bool {
	n := t.Len()
	if n == 0 {
		return false
	}
	count := 0
	dense := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok {
			dense = false
			return
		}
		i := int(kn)
		if float64(i) != float64(kn) || i < 1 || i > n {
			dense = false
		}
	})
	return dense && count == n
}

// convertOutputs reads an apply closure's returned table as the
// definition's Outputs map (spec.md §4.1: "the closure's return value
// becomes spec.outputs"). Values are coerced with Lua's own string
// conversion rules (numbers, booleans); non-string keys are ignored.
func convertOutputs(v lua.LValue) (map[string]string, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("apply closure must return a table of named outputs")
	}
	out := map[string]string{}
	tbl.ForEach(func(k, val lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			return
		}
		out[string(ks)] = lua.LVAsString(val)
	})
	return out, nil
}

// newRef builds the BuildRef/BindRef table returned from sys.build/
// sys.bind: hash, plus a lazily-formatting outputs table (spec.md §4.1
// "a lazy outputs accessor resolved at execution time").
func newRef(L *lua.LState, kind string, h hashutil.Hash) *lua.LTable {
	ref := L.NewTable()
	ref.RawSetString(refKindField, lua.LString(kind))
	ref.RawSetString("hash", lua.LString(string(h)))

	outputs := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(2)
		var tok string
		if kind == refKindBuild {
			tok = placeholder.BuildOutputRef(string(h), key)
		} else {
			tok = placeholder.BindOutputRef(string(h), key)
		}
		L.Push(lua.LString(tok))
		return 1
	}))
	outputs.Metatable = mt
	ref.RawSetString("outputs", outputs)
	return ref
}
