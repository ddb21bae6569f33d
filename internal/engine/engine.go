// Package engine wires the evaluator, inputs resolver, store, and apply
// orchestrator into the single entrypoint cmd/syslua calls: run a sys.lua
// entry script end to end and converge the system to what it declares.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"syslua/internal/applyengine"
	"syslua/internal/inputsresolver"
	"syslua/internal/ir"
	"syslua/internal/luaeval"
	"syslua/internal/platform"
	"syslua/internal/snapshotstore"
	"syslua/internal/store"
	"syslua/internal/synclog"
)

// Options configures one engine invocation (SPEC_FULL.md §2
// "Configuration"). The entry script is the only other configuration
// surface; there is no config file format of its own.
type Options struct {
	// ScriptPath is the sys.lua entry script to evaluate.
	ScriptPath string
	// StoreRoot overrides platform.StoreRoot's resolution when non-empty.
	StoreRoot string
	DryRun    bool
	Force     bool
	// StrictDrift fails a kept bind that no longer matches its recorded
	// state instead of silently re-applying it.
	StrictDrift bool
	Concurrency int
	LockTimeout time.Duration
	// UpdateInputs forces every declared input to re-resolve, ignoring
	// syslua.lock, before evaluation (spec.md §4.2 "Update command").
	UpdateInputs bool
	// UpdateOnly restricts UpdateInputs to these input names; empty means
	// every declared input.
	UpdateOnly []string
}

// Engine owns the stores a single process needs across one or more
// invocations (construction resolves the store root and opens both the
// object store and the snapshot index once).
type Engine struct {
	Store     *store.Store
	Snapshots *snapshotstore.Store
	opts      Options
}

// New resolves the store root (SYSLUA_STORE, elevation, or opts.StoreRoot
// override) and opens the object store and snapshot index, initializing
// either on first use.
func New(opts Options) (*Engine, error) {
	root := opts.StoreRoot
	if root == "" {
		resolved, err := platform.StoreRoot()
		if err != nil {
			return nil, fmt.Errorf("engine: resolve store root: %w", err)
		}
		root = resolved
	}

	st := store.New(root)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("engine: init store: %w", err)
	}
	snaps := snapshotstore.New(filepath.Join(root, "snapshots"))
	if err := snaps.Init(); err != nil {
		return nil, fmt.Errorf("engine: init snapshot store: %w", err)
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}

	return &Engine{Store: st, Snapshots: snaps, opts: opts}, nil
}

// Plan evaluates the entry script and computes what an Apply of it would
// do, without mutating anything (spec.md's supplemented read-only
// projection, also reachable via Snapshots.Diff for two stored
// snapshots).
func (e *Engine) Plan(ctx context.Context) (applyengine.PlanSummary, error) {
	manifest, err := e.evaluate(ctx)
	if err != nil {
		return applyengine.PlanSummary{}, err
	}
	cur, hasCur, err := e.Snapshots.LoadCurrent()
	if err != nil {
		return applyengine.PlanSummary{}, err
	}
	curManifest := ir.NewManifest()
	if hasCur {
		curManifest = cur.Manifest
	}
	return applyengine.ComputePlanSummary(manifest, curManifest, e.Store.Has), nil
}

// Apply evaluates the entry script and converges the store/binds/
// snapshot to it (spec.md §4.6).
func (e *Engine) Apply(ctx context.Context) (applyengine.Result, error) {
	manifest, err := e.evaluate(ctx)
	if err != nil {
		return applyengine.Result{}, err
	}
	opts := applyengine.Options{
		DryRun:      e.opts.DryRun,
		Concurrency: e.opts.Concurrency,
		LockTimeout: e.opts.LockTimeout,
		// Force overrides StrictDrift: spec.md §4.6 step 8 lets a drifted
		// bind_to_keep either fail the apply or be silently re-applied,
		// "per config" — Force is that config knob.
		StrictDrift: e.opts.StrictDrift && !e.opts.Force,
	}
	result, err := applyengine.Apply(ctx, e.Store, e.Snapshots, manifest, e.opts.ScriptPath, opts)
	if err != nil {
		synclog.Warnf("apply failed: %v", err)
		return result, err
	}
	if !result.DryRun {
		synclog.Infof("applied, snapshot %s", result.SnapshotID)
	}
	return result, nil
}

// evaluate runs the evaluator's two-phase pass (internal/luaeval) with
// the inputs resolver in between: a pre-resolution pass to harvest
// declared inputs, then inputsresolver.Resolve (or Update, under
// opts.UpdateInputs), then the post-resolution pass that actually runs
// setup and collects the Manifest.
func (e *Engine) evaluate(ctx context.Context) (ir.Manifest, error) {
	ev := luaeval.New()

	_, spec, err := ev.Evaluate(e.opts.ScriptPath, nil)
	if err != nil {
		return ir.Manifest{}, err
	}

	scriptDir := filepath.Dir(e.opts.ScriptPath)
	resolver := inputsresolver.New(e.Store.InputsDir())

	var resolved map[string]inputsresolver.ResolvedInput
	if e.opts.UpdateInputs {
		resolved, err = resolver.Update(ctx, scriptDir, spec, e.opts.UpdateOnly)
	} else {
		resolved, err = resolver.Resolve(ctx, scriptDir, spec)
	}
	if err != nil {
		return ir.Manifest{}, err
	}

	luaResolved := make(map[string]luaeval.ResolvedInput, len(resolved))
	for name, r := range resolved {
		luaResolved[name] = luaeval.ResolvedInput{Path: r.Path, Rev: r.Rev}
	}

	manifest, _, err := ev.Evaluate(e.opts.ScriptPath, luaResolved)
	if err != nil {
		return ir.Manifest{}, err
	}
	return manifest, nil
}
