package applyengine

import "fmt"

// Describe renders a one-line-per-section human-readable summary, used by
// dry-run apply and the standalone plan/diff command (spec.md §4.6 step 2
// "If dry_run, print and stop").
func (p PlanSummary) Describe() string {
	return fmt.Sprintf(
		"builds to realize: %d\nbinds to create: %d\nbinds to update: %d\nbinds to destroy: %d\nbinds unchanged: %d",
		len(p.BuildsToRealize), len(p.BindsToCreate), len(p.BindsToUpdate), len(p.BindsToDestroy), len(p.BindsToKeep),
	)
}
