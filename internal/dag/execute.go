package dag

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ExecFunc performs the work for a single node. Implementations must check
// ctx.Err() before starting any action and return immediately if it is
// non-nil — that is the cooperative cancellation boundary spec.md §4.5
// describes: in-flight syscalls finish, nothing new starts.
type ExecFunc func(ctx context.Context, id NodeID) error

// DefaultConcurrency returns the number of worker tasks per wave when the
// caller has no explicit preference: core count, capped at a sane
// maximum (spec.md §4.5 "configurable concurrency, default = number of
// cores capped at a sane maximum").
func DefaultConcurrency() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Execute runs every node in gr, one wave at a time, with up to
// concurrency nodes of a wave running simultaneously. A wave never starts
// until the previous one has fully quiesced. The first node error in a
// wave cancels that wave's context (errgroup semantics), is returned to
// the caller, and no further wave starts.
func (gr *Graph) Execute(ctx context.Context, concurrency int, exec ExecFunc) error {
	waves, err := gr.Waves()
	if err != nil {
		return err
	}
	return ExecuteWaves(ctx, waves, concurrency, exec)
}

// ExecuteWaves runs a precomputed wave schedule with the same barrier and
// cancellation semantics as Graph.Execute. Exposed standalone so callers
// that need a filtered or reordered subset of a graph's waves — the apply
// orchestrator's destroy/update/create phases — can reuse the same
// scheduler without rebuilding a throwaway Graph.
func ExecuteWaves(ctx context.Context, waves [][]NodeID, concurrency int, exec ExecFunc) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}
	for _, wave := range waves {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, id := range wave {
			id := id
			g.Go(func() error { return exec(gctx, id) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// FilterWaves returns the subsequence of waves containing only nodes in
// keep, preserving relative wave order and dropping waves left empty.
func FilterWaves(waves [][]NodeID, keep map[NodeID]bool) [][]NodeID {
	out := make([][]NodeID, 0, len(waves))
	for _, wave := range waves {
		var filtered []NodeID
		for _, id := range wave {
			if keep[id] {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) > 0 {
			out = append(out, filtered)
		}
	}
	return out
}

// ReverseWaves returns waves in reverse order, used for tearing down a
// prior generation's binds in reverse topological order (spec.md §4.6
// "destroy in reverse topological order of S_cur").
func ReverseWaves(waves [][]NodeID) [][]NodeID {
	out := make([][]NodeID, len(waves))
	for i, w := range waves {
		out[len(waves)-1-i] = w
	}
	return out
}
