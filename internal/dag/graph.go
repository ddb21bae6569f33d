// Package dag builds the per-apply dependency graph over manifest hashes
// and executes it in topologically-ordered, bounded-concurrency waves
// (spec.md §4.5 "DAG and Wave Executor").
package dag

import (
	"gonum.org/v1/gonum/graph/simple"

	"syslua/internal/hashutil"
	"syslua/internal/ir"
)

// NodeKind discriminates whether a graph node is a build or a bind.
type NodeKind string

const (
	NodeBuild NodeKind = "build"
	NodeBind  NodeKind = "bind"
)

// NodeID identifies a single manifest node by kind and content hash.
// Builds and binds occupy independent hash spaces, so the kind tag is
// load-bearing even though collisions are astronomically unlikely.
type NodeID struct {
	Kind NodeKind
	Hash hashutil.Hash
}

func (n NodeID) String() string { return string(n.Kind) + ":" + string(n.Hash) }

// Graph is a directed graph of NodeIDs, backed by gonum's simple directed
// graph (int64 node IDs internally, mapped to/from NodeID).
type Graph struct {
	g      *simple.DirectedGraph
	idOf   map[NodeID]int64
	nodeOf map[int64]NodeID
	next   int64
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		g:      simple.NewDirectedGraph(),
		idOf:   map[NodeID]int64{},
		nodeOf: map[int64]NodeID{},
	}
}

func (gr *Graph) addNode(id NodeID) int64 {
	if gid, ok := gr.idOf[id]; ok {
		return gid
	}
	gid := gr.next
	gr.next++
	gr.g.AddNode(simple.Node(gid))
	gr.idOf[id] = gid
	gr.nodeOf[gid] = id
	return gid
}

// AddEdge records that from must complete before to starts.
func (gr *Graph) AddEdge(from, to NodeID) {
	f := gr.addNode(from)
	t := gr.addNode(to)
	gr.g.SetEdge(gr.g.NewEdge(gr.g.Node(f), gr.g.Node(t)))
}

// Nodes returns every node currently in the graph, in no particular order.
func (gr *Graph) Nodes() []NodeID {
	out := make([]NodeID, 0, len(gr.nodeOf))
	for _, id := range gr.nodeOf {
		out = append(out, id)
	}
	return out
}

// BuildFromManifest constructs the dependency graph for m: every build and
// bind becomes a node, and every InputsRef::Build/Bind reference becomes an
// edge from the referenced (prerequisite) node to the referencing node.
// Build→bind edges never appear as *prerequisites of builds* because
// ir.Manifest.Validate already rejects that direction; builds required by
// binds still produce build→bind edges here, matching spec.md §4.6's
// "builds required by new binds are realized as a prefix of their wave".
func BuildFromManifest(m ir.Manifest) *Graph {
	gr := New()
	for h, b := range m.Builds {
		id := NodeID{Kind: NodeBuild, Hash: h}
		gr.addNode(id)
		if b.Inputs != nil {
			b.Inputs.Walk(func(ref ir.InputsRef) {
				if ref.Kind == ir.KindBuild {
					gr.AddEdge(NodeID{Kind: NodeBuild, Hash: ref.Hash}, id)
				}
			})
		}
	}
	for h, b := range m.Binds {
		id := NodeID{Kind: NodeBind, Hash: h}
		gr.addNode(id)
		if b.Inputs != nil {
			b.Inputs.Walk(func(ref ir.InputsRef) {
				switch ref.Kind {
				case ir.KindBuild:
					gr.AddEdge(NodeID{Kind: NodeBuild, Hash: ref.Hash}, id)
				case ir.KindBind:
					gr.AddEdge(NodeID{Kind: NodeBind, Hash: ref.Hash}, id)
				}
			})
		}
	}
	return gr
}
