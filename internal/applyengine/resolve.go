package applyengine

import (
	"syslua/internal/action"
	"syslua/internal/placeholder"
)

// substituteAction returns a copy of a with every string field run through
// r.Substitute. Called immediately before an action runs, so each action
// sees the fully-resolved results of every action before it (spec.md §5
// "actions within a single definition run strictly sequentially").
func substituteAction(r *placeholder.Resolver, a action.Action) (action.Action, error) {
	out := a
	var err error
	if out.Bin, err = r.Substitute(a.Bin); err != nil {
		return action.Action{}, err
	}
	if len(a.Args) > 0 {
		args := make([]string, len(a.Args))
		for i, arg := range a.Args {
			if args[i], err = r.Substitute(arg); err != nil {
				return action.Action{}, err
			}
		}
		out.Args = args
	}
	if len(a.Env) > 0 {
		env := make(map[string]string, len(a.Env))
		for k, v := range a.Env {
			if env[k], err = r.Substitute(v); err != nil {
				return action.Action{}, err
			}
		}
		out.Env = env
	}
	if out.Cwd, err = r.Substitute(a.Cwd); err != nil {
		return action.Action{}, err
	}
	if out.URL, err = r.Substitute(a.URL); err != nil {
		return action.Action{}, err
	}
	if out.SHA256, err = r.Substitute(a.SHA256); err != nil {
		return action.Action{}, err
	}
	return out, nil
}

// substituteMap resolves every value in m against r, used for a
// BuildDef/BindDef's own Outputs map once its actions have run.
func substituteMap(r *placeholder.Resolver, m map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		resolved, err := r.Substitute(v)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}
