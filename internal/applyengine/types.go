package applyengine

import (
	"time"

	"syslua/internal/dag"
	"syslua/internal/hashutil"
	"syslua/internal/ir"
)

// SnapshotCommitter is the slice of snapshotstore.Store the orchestrator
// needs. Declared here rather than imported concretely so applyengine
// never depends on the snapshotstore package — snapshotstore's Diff
// supplement depends on applyengine for PlanSummary, and Go forbids the
// reverse import.
type SnapshotCommitter interface {
	LoadCurrent() (ir.Snapshot, bool, error)
	Save(snap ir.Snapshot) error
	SetCurrent(id string) error
}

// Options configures a single apply invocation (spec.md §4.6 "Inputs").
type Options struct {
	DryRun      bool
	Concurrency int
	LockTimeout time.Duration
	// StrictDrift makes a drifted bind_to_keep fail the apply with
	// *syserr.DriftDetected instead of silently re-applying it.
	StrictDrift bool
}

// Result is what a completed Apply call returns. For a dry run it carries
// the plan with DryRun set and no SnapshotID.
type Result struct {
	Plan       PlanSummary
	SnapshotID string
	DryRun     bool
}

type stepKind int

const (
	stepDestroy stepKind = iota
	stepUpdate
	stepCreate
	stepRealize
)

// executedStep records one completed mutation, in the order it
// succeeded, so rollback can walk it in reverse (spec.md §4.6
// "Rollback").
type executedStep struct {
	kind    stepKind
	hash    hashutil.Hash
	oldHash hashutil.Hash // populated for stepUpdate
}

func hashSet(hs []hashutil.Hash) map[hashutil.Hash]bool {
	out := make(map[hashutil.Hash]bool, len(hs))
	for _, h := range hs {
		out[h] = true
	}
	return out
}

func bindNodeSet(kind dag.NodeKind, hs map[hashutil.Hash]bool) map[dag.NodeID]bool {
	out := make(map[dag.NodeID]bool, len(hs))
	for h := range hs {
		out[dag.NodeID{Kind: kind, Hash: h}] = true
	}
	return out
}

func updateNodeSet(updates []BindUpdate) map[dag.NodeID]bool {
	out := make(map[dag.NodeID]bool, len(updates))
	for _, u := range updates {
		out[dag.NodeID{Kind: dag.NodeBind, Hash: u.NewHash}] = true
	}
	return out
}

// snapshotIDLayout produces lexicographically-sortable snapshot IDs,
// matching spec.md §3's "id: string (sortable timestamp)".
const snapshotIDLayout = "20060102T150405.000000000Z"

func newSnapshotID(now time.Time) string {
	return now.UTC().Format(snapshotIDLayout)
}
