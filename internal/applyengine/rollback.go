package applyengine

import (
	"context"

	"syslua/internal/ir"
	"syslua/internal/synclog"
)

// rollback walks executed in reverse, undoing each step (spec.md §4.6
// "Rollback"). A failing reverse step is logged and does not stop the
// walk; every collected failure is returned so the caller can distinguish
// a clean rollback (RollbackSucceeded) from a partial one
// (RollbackIncomplete).
func rollback(ctx context.Context, exec *Executor, curManifest, newManifest ir.Manifest, curSnap ir.Snapshot, executed []executedStep) []error {
	var failures []error
	for i := len(executed) - 1; i >= 0; i-- {
		step := executed[i]
		var err error
		switch step.kind {
		case stepCreate:
			def := newManifest.Binds[step.hash]
			err = exec.DestroyBind(ctx, step.hash, def)
		case stepUpdate:
			oldDef := curManifest.Binds[step.oldHash]
			err = exec.restoreBind(ctx, step.oldHash, oldDef, curSnap.BindOutputs[step.oldHash])
		case stepDestroy:
			oldDef := curManifest.Binds[step.hash]
			err = exec.restoreBind(ctx, step.hash, oldDef, curSnap.BindOutputs[step.hash])
		case stepRealize:
			// Realized obj/ entries are immutable, harmless, and
			// GC-reclaimable; nothing to undo.
		}
		if err != nil {
			synclog.Warnf("rollback: reverse step %d failed: %v", i, err)
			failures = append(failures, err)
		}
	}
	return failures
}
