package dag

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"

	"syslua/internal/syserr"
)

// Waves assigns every node a wave index via Kahn's algorithm: wave(v) is 0
// for a node with no prerequisites, else 1 + max(wave(pred)) (spec.md
// §4.5). Returns *syserr.CycleDetected if the graph is not acyclic. Node
// order within each wave is sorted by NodeID.String() so two calls over
// the same graph always produce the same schedule, independent of the
// manifest map iteration order used to build it.
func (gr *Graph) Waves() ([][]NodeID, error) {
	if _, err := topo.Sort(gr.g); err != nil {
		unorderable, ok := err.(topo.Unorderable)
		if !ok {
			return nil, err
		}
		return nil, &syserr.CycleDetected{Path: describeCycle(gr, unorderable)}
	}

	inDegree := make(map[int64]int, len(gr.nodeOf))
	for id := range gr.nodeOf {
		inDegree[id] = gr.g.To(id).Len()
	}

	var waves [][]NodeID
	remaining := inDegree
	for len(remaining) > 0 {
		var layer []int64
		for id, deg := range remaining {
			if deg == 0 {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			// topo.Sort already proved acyclicity above; this would only
			// happen from a logic error in the layering itself.
			return nil, &syserr.CycleDetected{}
		}

		waveIDs := make([]NodeID, 0, len(layer))
		for _, id := range layer {
			waveIDs = append(waveIDs, gr.nodeOf[id])
		}
		sort.Slice(waveIDs, func(i, j int) bool { return waveIDs[i].String() < waveIDs[j].String() })
		waves = append(waves, waveIDs)

		for _, id := range layer {
			delete(remaining, id)
		}
		for _, id := range layer {
			successors := gr.g.From(id)
			for successors.Next() {
				sid := successors.Node().ID()
				if _, ok := remaining[sid]; ok {
					remaining[sid]--
				}
			}
		}
	}
	return waves, nil
}

func describeCycle(gr *Graph, unorderable topo.Unorderable) []string {
	if len(unorderable) == 0 {
		return nil
	}
	component := unorderable[0]
	path := make([]string, 0, len(component))
	for _, n := range component {
		path = append(path, gr.nodeOf[nodeID(n)].String())
	}
	return path
}

func nodeID(n graph.Node) int64 { return n.ID() }
