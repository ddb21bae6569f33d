package dag

import (
	"context"
	"sync"
	"testing"
	"time"

	"syslua/internal/hashutil"
	"syslua/internal/ir"
	"syslua/internal/syserr"
)

func TestWavesOrdersPrerequisitesFirst(t *testing.T) {
	m := ir.NewManifest()
	base := ir.BuildDef{Name: "base"}
	baseHash, _ := base.Hash()
	m.Builds[baseHash] = base

	dependent := ir.BuildDef{Name: "dependent", Inputs: refTable(ir.BuildRef(baseHash))}
	dependentHash, _ := dependent.Hash()
	m.Builds[dependentHash] = dependent

	gr := BuildFromManifest(m)
	waves, err := gr.Waves()
	if err != nil {
		t.Fatalf("Waves: %v", err)
	}
	if len(waves) != 2 {
		t.Fatalf("expected 2 waves, got %d: %v", len(waves), waves)
	}
	wantWave0 := NodeID{Kind: NodeBuild, Hash: baseHash}
	if len(waves[0]) != 1 || waves[0][0] != wantWave0 {
		t.Fatalf("wave 0 = %v, want [%v]", waves[0], wantWave0)
	}
	if len(waves[1]) != 1 || waves[1][0].Hash != dependentHash {
		t.Fatalf("wave 1 = %v, want dependent %s", waves[1], dependentHash)
	}
}

func TestWavesIndependentNodesShareAWave(t *testing.T) {
	m := ir.NewManifest()
	for _, name := range []string{"a", "b", "c"} {
		b := ir.BuildDef{Name: name}
		h, _ := b.Hash()
		m.Builds[h] = b
	}
	gr := BuildFromManifest(m)
	waves, err := gr.Waves()
	if err != nil {
		t.Fatalf("Waves: %v", err)
	}
	if len(waves) != 1 || len(waves[0]) != 3 {
		t.Fatalf("expected a single wave of 3 independent nodes, got %v", waves)
	}
}

func TestWavesDetectsCycle(t *testing.T) {
	// Two binds that reference each other: not constructible through the
	// normal evaluator (which can't know a hash before definition-time),
	// but the graph layer must still reject it defensively.
	aHash := hashutil.Hash("aaaaaaaaaaaaaaaaaaaa")
	bHash := hashutil.Hash("bbbbbbbbbbbbbbbbbbbb")

	gr := New()
	gr.AddEdge(NodeID{Kind: NodeBind, Hash: aHash}, NodeID{Kind: NodeBind, Hash: bHash})
	gr.AddEdge(NodeID{Kind: NodeBind, Hash: bHash}, NodeID{Kind: NodeBind, Hash: aHash})

	_, err := gr.Waves()
	if _, ok := err.(*syserr.CycleDetected); !ok {
		t.Fatalf("expected *syserr.CycleDetected, got %v", err)
	}
}

func TestExecuteRespectsWaveBarrier(t *testing.T) {
	m := ir.NewManifest()
	base := ir.BuildDef{Name: "base"}
	baseHash, _ := base.Hash()
	m.Builds[baseHash] = base

	dependent := ir.BuildDef{Name: "dependent", Inputs: refTable(ir.BuildRef(baseHash))}
	dependentHash, _ := dependent.Hash()
	m.Builds[dependentHash] = dependent

	gr := BuildFromManifest(m)

	var mu sync.Mutex
	var finished []hashutil.Hash

	exec := func(ctx context.Context, id NodeID) error {
		if id.Hash == baseHash {
			time.Sleep(10 * time.Millisecond)
		}
		mu.Lock()
		finished = append(finished, id.Hash)
		mu.Unlock()
		return nil
	}

	if err := gr.Execute(context.Background(), 4, exec); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(finished) != 2 || finished[0] != baseHash || finished[1] != dependentHash {
		t.Fatalf("expected base to finish before dependent, got %v", finished)
	}
}

func TestExecuteStopsWaveOnError(t *testing.T) {
	m := ir.NewManifest()
	for _, name := range []string{"a", "b"} {
		b := ir.BuildDef{Name: name}
		h, _ := b.Hash()
		m.Builds[h] = b
	}
	gr := BuildFromManifest(m)

	boom := &syserr.ActionFailed{Hash: "a", ActionIndex: 0}
	err := gr.Execute(context.Background(), 2, func(ctx context.Context, id NodeID) error {
		return boom
	})
	if err == nil {
		t.Fatal("expected Execute to surface the node error")
	}
}

func refTable(ref ir.InputsRef) *ir.InputsRef {
	t := ir.Table(map[string]ir.InputsRef{"dep": ref})
	return &t
}
