package applyengine

import (
	"context"
	"fmt"
	"sync"

	"syslua/internal/action"
	"syslua/internal/hashutil"
	"syslua/internal/ir"
	"syslua/internal/placeholder"
	"syslua/internal/store"
)

// Executor runs the realize/apply/destroy side effects of a single apply
// invocation, tracking every completed node's outputs so later nodes in
// the same wave schedule can reference them by placeholder (spec.md
// §4.1, §4.4, §5).
type Executor struct {
	Store    *store.Store
	ExecOpts action.ExecOptions

	mu           sync.Mutex
	buildOutputs map[hashutil.Hash]map[string]string
	bindOutputs  map[hashutil.Hash]map[string]string
}

// NewExecutor returns an Executor ready to run against st, seeded with the
// previous generation's recorded bind outputs (needed by destroy/update
// actions and by binds_to_keep drift checks).
func NewExecutor(st *store.Store, seedBindOutputs map[hashutil.Hash]map[string]string) *Executor {
	bindOutputs := make(map[hashutil.Hash]map[string]string, len(seedBindOutputs))
	for h, outs := range seedBindOutputs {
		bindOutputs[h] = outs
	}
	return &Executor{
		Store:        st,
		buildOutputs: map[hashutil.Hash]map[string]string{},
		bindOutputs:  bindOutputs,
	}
}

func (e *Executor) snapshotOutputs() (map[string]map[string]string, map[string]map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	builds := make(map[string]map[string]string, len(e.buildOutputs))
	for h, v := range e.buildOutputs {
		builds[string(h)] = v
	}
	binds := make(map[string]map[string]string, len(e.bindOutputs))
	for h, v := range e.bindOutputs {
		binds[string(h)] = v
	}
	return builds, binds
}

func (e *Executor) recordBuildOutputs(h hashutil.Hash, outs map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buildOutputs[h] = outs
}

func (e *Executor) recordBindOutputs(h hashutil.Hash, outs map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bindOutputs[h] = outs
}

func (e *Executor) forgetBindOutputs(h hashutil.Hash) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.bindOutputs, h)
}

func (e *Executor) newResolver(out string) *placeholder.Resolver {
	builds, binds := e.snapshotOutputs()
	return &placeholder.Resolver{BuildOutputs: builds, BindOutputs: binds, Out: out}
}

// runActions executes actions in order against resolver, seeding
// resolver.ActionResults as each one completes.
func (e *Executor) runActions(ctx context.Context, hash hashutil.Hash, actions []action.Action, resolver *placeholder.Resolver, fetchDir string) error {
	for i, raw := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		substituted, err := substituteAction(resolver, raw)
		if err != nil {
			return err
		}
		switch substituted.Kind {
		case action.KindExec:
			res, err := action.RunExec(ctx, string(hash), i, substituted, e.ExecOpts)
			if err != nil {
				return err
			}
			resolver.ActionResults = append(resolver.ActionResults, res.Stdout)
		case action.KindFetchURL:
			res, err := action.RunFetchURL(ctx, fetchDir, substituted)
			if err != nil {
				return err
			}
			resolver.ActionResults = append(resolver.ActionResults, res.Path)
		default:
			return fmt.Errorf("applyengine: unknown action kind %q", substituted.Kind)
		}
	}
	return nil
}

// RealizeBuild realizes h if absent, recording and returning its resolved
// outputs either way (idempotent: an already-realized build's outputs are
// read back from its .syslua-outputs.json sidecar rather than re-run).
func (e *Executor) RealizeBuild(ctx context.Context, h hashutil.Hash, def ir.BuildDef) (map[string]string, error) {
	var resolved map[string]string
	_, err := e.Store.RealizeBuild(def, func(dir string) error {
		resolver := e.newResolver(dir)
		if err := e.runActions(ctx, h, def.ApplyActions, resolver, dir); err != nil {
			return err
		}
		outs, err := substituteMap(resolver, def.Outputs)
		if err != nil {
			return err
		}
		if err := e.Store.WriteBuildOutputs(dir, outs); err != nil {
			return err
		}
		resolved = outs
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		resolved, err = e.Store.ReadBuildOutputs(h)
		if err != nil {
			return nil, err
		}
	}
	e.recordBuildOutputs(h, resolved)
	return resolved, nil
}

// ApplyBind runs def's apply actions and records its state and outputs.
func (e *Executor) ApplyBind(ctx context.Context, h hashutil.Hash, def ir.BindDef) (map[string]string, error) {
	resolver := e.newResolver("")
	if err := e.runActions(ctx, h, def.ApplyActions, resolver, e.Store.InputsDir()); err != nil {
		return nil, err
	}
	outs, err := substituteMap(resolver, def.Outputs)
	if err != nil {
		return nil, err
	}
	if err := e.Store.WriteBindState(h, outs); err != nil {
		return nil, err
	}
	e.recordBindOutputs(h, outs)
	return outs, nil
}

// loadAllBuildOutputs ensures every build in manifest has an entry in
// e.buildOutputs, reading already-realized builds' sidecar files for any
// hash this apply itself didn't just realize (spec.md §4.6 step 6 runs
// before step 7, but only realizes the subset actually missing from
// obj/).
func (e *Executor) loadAllBuildOutputs(manifest ir.Manifest) error {
	for h := range manifest.Builds {
		e.mu.Lock()
		_, known := e.buildOutputs[h]
		e.mu.Unlock()
		if known {
			continue
		}
		outs, err := e.Store.ReadBuildOutputs(h)
		if err != nil {
			return err
		}
		e.recordBuildOutputs(h, outs)
	}
	return nil
}

// allBindOutputs returns a snapshot of every bind's currently recorded
// outputs, for writing into the new Snapshot's BindOutputs field.
func (e *Executor) allBindOutputs() map[hashutil.Hash]map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[hashutil.Hash]map[string]string, len(e.bindOutputs))
	for h, v := range e.bindOutputs {
		out[h] = v
	}
	return out
}

// checkDrift reports whether a bind_to_keep's on-disk recorded state has
// diverged from what this apply's executor believes it to be — either
// the state file vanished, or its contents no longer match (spec.md
// §4.5 "Idempotence": drift-check "compares the serialized apply_actions
// + inputs", generalized here to the live state/outputs, since an
// unchanged hash already guarantees the definition itself hasn't
// changed).
func (e *Executor) checkDrift(h hashutil.Hash) (bool, error) {
	onDisk, ok, err := e.Store.ReadBindState(h)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	e.mu.Lock()
	recorded, known := e.bindOutputs[h]
	e.mu.Unlock()
	if !known || len(onDisk) != len(recorded) {
		return true, nil
	}
	for k, v := range recorded {
		if onDisk[k] != v {
			return true, nil
		}
	}
	return false, nil
}

// restoreBind re-runs def's apply actions to physically recreate a prior
// bind, then writes back originalOutputs verbatim rather than whatever
// the fresh run's own $${action:N} substitutions produced — rollback's
// job is to restore the previously recorded values, not mint new ones
// (spec.md §4.6 "Rollback").
func (e *Executor) restoreBind(ctx context.Context, h hashutil.Hash, def ir.BindDef, originalOutputs map[string]string) error {
	resolver := e.newResolver("")
	if err := e.runActions(ctx, h, def.ApplyActions, resolver, e.Store.InputsDir()); err != nil {
		return err
	}
	if err := e.Store.WriteBindState(h, originalOutputs); err != nil {
		return err
	}
	e.recordBindOutputs(h, originalOutputs)
	return nil
}

// DestroyBind runs def's destroy actions (seeded with its own recorded
// outputs so $${self:outputs:*} resolves) and deletes its state.
func (e *Executor) DestroyBind(ctx context.Context, h hashutil.Hash, def ir.BindDef) error {
	resolver := e.newResolver("")
	e.mu.Lock()
	resolver.Self = e.bindOutputs[h]
	e.mu.Unlock()
	if err := e.runActions(ctx, h, def.DestroyActions, resolver, e.Store.InputsDir()); err != nil {
		return err
	}
	if err := e.Store.DeleteBindState(h); err != nil {
		return err
	}
	e.forgetBindOutputs(h)
	return nil
}
