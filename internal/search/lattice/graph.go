// Package lattice builds, prunes, and searches the word lattice of spec.md
// §4.6: a DAG over backpointer-table entries, with best-path Viterbi,
// forward/backward posteriors, and N-best A* on top.
package lattice

import "github.com/cmusphinx/pocketsphinx-sub004/internal/model"

// NodeID indexes into a [Graph]'s node arena.
type NodeID int32

// Node is one lattice node: a word occupying a start frame, with the range
// of end frames contributed by the backpointer entries that merged into it
// (spec.md §4.6 "distinct end frames are retained as links, not as separate
// nodes").
type Node struct {
	Word        model.WordID
	StartFrame  int
	EarliestEnd int
	LatestEnd   int
	IsFiller    bool
	Reachable   bool
	Out         []int // indices into Graph.Links, outgoing from this node
	In          []int // indices into Graph.Links, incoming to this node
}

// Link is a directed edge between two nodes.
//
// Acoustic is, strictly, the full incremental path score (acoustic + LM +
// insertion penalties at the originating search pass's language weight)
// between the predecessor node and this one — bp.Entry doesn't separately
// track a pure-acoustic delta, so this is the scoped approximation: the
// best-path/posterior passes below additionally apply their own lwf against
// a freshly scored lm_score, so with a nonzero lwf the LM contributes twice:
// once inside Acoustic at the search pass's weight and once more at lwf.
// With lwf 0 only the search pass's LM contribution counts.
type Link struct {
	From, To NodeID
	EndFrame int
	Acoustic float64
	Filler   bool // bypass link synthesized across a run of filler-only nodes
}

// Graph is the arena-backed lattice: a dense node/link pool plus adjacency
// index lists, per spec.md §9's "cyclic graph -> arena of nodes + adjacency
// index lists" design note (the lattice is acyclic in time, but the storage
// shape the note calls for fits regardless).
type Graph struct {
	Nodes   []Node
	Links   []Link
	Initial NodeID
	Final   NodeID
}

func (g *Graph) addNode(n Node) NodeID {
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	return id
}

func (g *Graph) addLink(l Link) int {
	idx := len(g.Links)
	g.Links = append(g.Links, l)
	g.Nodes[l.From].Out = append(g.Nodes[l.From].Out, idx)
	g.Nodes[l.To].In = append(g.Nodes[l.To].In, idx)
	return idx
}

const negInf = -1e300
