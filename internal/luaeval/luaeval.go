// Package luaeval evaluates a sys.lua entry script (spec.md §4.1): it
// exposes the sys.* global surface and the recording ctx passed into
// apply/destroy closures, harvests every sys.build/sys.bind call into a
// Manifest, and reports the script's declared input URIs.
package luaeval

import (
	"regexp"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"syslua/internal/ir"
	"syslua/internal/syserr"
)

// InputsSpec maps a script's local input name to its declared URI (e.g.
// "git:https://example.com/repo#main", "path:../vendor/foo").
type InputsSpec map[string]string

// ResolvedInput is what the inputs resolver hands back per declared
// input, passed into the entry script's setup(resolved_inputs).
type ResolvedInput struct {
	Path string
	Rev  string
}

// Evaluator runs entry scripts. It holds no state between calls; each
// Evaluate gets a fresh *lua.LState.
type Evaluator struct{}

// New returns a ready-to-use Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Evaluate runs scriptPath once and returns the InputsSpec it declares.
//
// When resolved is nil, this is the pre-resolution pass: the script's
// top-level body runs (so unconditional sys.build/sys.bind calls are
// still collected) but setup is never invoked, since resolved input
// paths don't exist yet. The caller is expected to resolve every name in
// the returned InputsSpec (internal/inputsresolver) and call Evaluate
// again with resolved populated to get the final Manifest — spec.md
// §4.1's single "evaluate(script_path) → (Manifest, InputsSpec)"
// operation is realized here as this same method invoked twice.
func (e *Evaluator) Evaluate(scriptPath string, resolved map[string]ResolvedInput) (ir.Manifest, InputsSpec, error) {
	L := lua.NewState()
	defer L.Close()

	coll := &collector{manifest: ir.NewManifest()}
	registerSys(L, scriptPath, coll)

	if err := L.DoFile(scriptPath); err != nil {
		return ir.Manifest{}, nil, wrapLuaErr(err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	retTbl, ok := ret.(*lua.LTable)
	if !ok {
		return ir.Manifest{}, nil, &syserr.EvaluationError{
			Message: "entry script must return a table { inputs, setup }",
		}
	}

	inputsSpec, err := parseInputsSpec(retTbl)
	if err != nil {
		return ir.Manifest{}, nil, err
	}

	if resolved == nil {
		return coll.manifest, inputsSpec, nil
	}

	setupFn, ok := retTbl.RawGetString("setup").(*lua.LFunction)
	if !ok {
		return coll.manifest, inputsSpec, nil
	}

	resolvedTbl := L.NewTable()
	for name, ri := range resolved {
		entry := L.NewTable()
		entry.RawSetString("path", lua.LString(ri.Path))
		entry.RawSetString("rev", lua.LString(ri.Rev))
		resolvedTbl.RawSetString(name, entry)
	}

	L.Push(setupFn)
	L.Push(resolvedTbl)
	if err := L.PCall(1, 0, nil); err != nil {
		return ir.Manifest{}, nil, wrapLuaErr(err)
	}

	return coll.manifest, inputsSpec, nil
}

func parseInputsSpec(retTbl *lua.LTable) (InputsSpec, error) {
	spec := InputsSpec{}
	inputsVal := retTbl.RawGetString("inputs")
	if inputsVal == lua.LNil {
		return spec, nil
	}
	inputsTbl, ok := inputsVal.(*lua.LTable)
	if !ok {
		return nil, &syserr.EvaluationError{Message: "entry script's inputs field must be a table"}
	}
	var badKey bool
	inputsTbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			badKey = true
			return
		}
		spec[string(ks)] = lua.LVAsString(v)
	})
	if badKey {
		return nil, &syserr.EvaluationError{Message: "entry script's inputs table keys must be strings"}
	}
	return spec, nil
}

// wrapLuaErr turns any error from DoFile/PCall into an EvaluationError
// carrying the script's own traceback (spec.md §4.1's EvaluationError).
func wrapLuaErr(err error) *syserr.EvaluationError {
	if apiErr, ok := err.(*lua.ApiError); ok {
		return &syserr.EvaluationError{Message: apiErr.Object.String(), LuaStack: apiErr.StackTrace}
	}
	return &syserr.EvaluationError{Message: err.Error()}
}

var whereRe = regexp.MustCompile(`^(.*):(\d+):\s*$`)

// parseWhere turns an (*lua.LState).Where(0) string into a SourceLocation,
// used only for error messages — never part of a definition's hash.
func parseWhere(raw string) ir.SourceLocation {
	m := whereRe.FindStringSubmatch(raw)
	if m == nil {
		return ir.SourceLocation{Script: strings.TrimSpace(raw)}
	}
	line, _ := strconv.Atoi(m[2])
	return ir.SourceLocation{Script: m[1], Line: line}
}
