package lattice

import (
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
)

type nodeKey struct {
	word  model.WordID
	start int
}

// Build constructs a lattice from a completed search pass's backpointer
// table (spec.md §4.6 "Construction"). Entries sharing a (word_id,
// start_frame) key merge into one node; every original entry still
// contributes its own link from the predecessor's node. endWord (normally
// the dictionary's </s>) selects the final node via the table's best
// end-word entry, falling back to the best entry of the last frame.
func Build(bpTable *bp.Table, dict model.Dictionary, endWord model.WordID) *Graph {
	g := &Graph{}
	keyToNode := make(map[nodeKey]NodeID)
	entryNode := make([]NodeID, bpTable.Len())

	for i := 0; i < bpTable.Len(); i++ {
		idx := bp.Index(i)
		e := bpTable.Get(idx)
		key := nodeKey{e.Word, e.StartFrame}

		nid, ok := keyToNode[key]
		if !ok {
			nid = g.addNode(Node{
				Word:        e.Word,
				StartFrame:  e.StartFrame,
				EarliestEnd: e.Frame,
				LatestEnd:   e.Frame,
				IsFiller:    dict.IsFiller(e.Word),
			})
			keyToNode[key] = nid
		} else {
			n := &g.Nodes[nid]
			if e.Frame < n.EarliestEnd {
				n.EarliestEnd = e.Frame
			}
			if e.Frame > n.LatestEnd {
				n.LatestEnd = e.Frame
			}
		}
		entryNode[i] = nid

		if e.Predecessor == bp.NoPredecessor {
			g.Initial = nid
			continue
		}
		fromNode := entryNode[e.Predecessor]
		acoustic := e.Score - bpTable.Get(e.Predecessor).Score
		g.addLink(Link{From: fromNode, To: nid, EndFrame: e.Frame, Acoustic: acoustic})
	}

	if fi, ok := bpTable.BestEndWordEntry(endWord); ok {
		g.Final = entryNode[fi]
	} else if bi, ok := bpTable.BestOfLastFrame(); ok {
		g.Final = entryNode[bi]
	}

	return g
}
