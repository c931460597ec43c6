package lattice

import (
	"sort"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

const ln10 = 2.302585092994046

// Potentials holds a completed best-path pass: each node's path score and
// the incoming link its best path arrived by (spec.md §4.6 "Best path").
type Potentials struct {
	Alpha  []float64
	BestIn []int // index into Graph.Links, or -1 for the initial node
	order  []NodeID
}

// topoOrder returns nodes in non-decreasing start-frame order, a valid
// topological order because every link goes strictly forward in time
// (spec.md §4.6 "Topological order exists because links go strictly
// forward in time").
func topoOrder(g *Graph) []NodeID {
	order := make([]NodeID, len(g.Nodes))
	for i := range order {
		order[i] = NodeID(i)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if g.Nodes[a].StartFrame != g.Nodes[b].StartFrame {
			return g.Nodes[a].StartFrame < g.Nodes[b].StartFrame
		}
		return a < b
	})
	return order
}

// BestPath runs the Viterbi-over-lattice best-path pass. lwf and ascale are
// the lattice pass's own language/acoustic weights, independent of whatever
// weight the originating search pass used (spec.md §4.6: "Language weight
// lwf and acoustic weight ascale are pass arguments").
func BestPath(g *Graph, lmod lm.Model, lwf, ascale float64) *Potentials {
	order := topoOrder(g)
	alpha := make([]float64, len(g.Nodes))
	bestIn := make([]int, len(g.Nodes))
	for i := range alpha {
		alpha[i] = negInf
		bestIn[i] = -1
	}
	alpha[g.Initial] = 0

	for _, v := range order {
		if v == g.Initial || !g.Nodes[v].Reachable {
			continue
		}
		best := negInf
		bestLink := -1
		for _, li := range g.Nodes[v].In {
			link := g.Links[li]
			u := link.From
			if alpha[u] <= negInf {
				continue
			}
			history := historyFromBestIn(g, bestIn, u)
			lmScore := lmod.Score(g.Nodes[v].Word, history) * ln10 * lwf
			cand := alpha[u] + ascale*link.Acoustic + lmScore
			if cand > best {
				best = cand
				bestLink = li
			}
		}
		alpha[v] = best
		bestIn[v] = bestLink
	}

	return &Potentials{Alpha: alpha, BestIn: bestIn, order: order}
}

// historyFromBestIn walks a node's best-path predecessor chain for up to two
// words of n-gram context (spec.md §4.6 "The N-gram history used at each
// node is the best predecessor chain").
func historyFromBestIn(g *Graph, bestIn []int, v NodeID) lm.History {
	var h lm.History
	for i := 0; i < 2; i++ {
		li := bestIn[v]
		if li < 0 {
			break
		}
		u := g.Links[li].From
		h = append(h, g.Nodes[u].Word)
		v = u
	}
	return h
}

// Hypothesis returns the best path's word sequence, oldest-first, including
// the initial and final words.
func (p *Potentials) Hypothesis(g *Graph) []model.WordID {
	var rev []model.WordID
	v := g.Final
	for {
		rev = append(rev, g.Nodes[v].Word)
		li := p.BestIn[v]
		if li < 0 {
			break
		}
		v = g.Links[li].From
	}
	out := make([]model.WordID, len(rev))
	for i, w := range rev {
		out[len(rev)-1-i] = w
	}
	return out
}

// Score returns the best path's total score (the final node's alpha).
func (p *Potentials) Score(g *Graph) float64 { return p.Alpha[g.Final] }

// Segment is one word's span along the best path.
type Segment struct {
	Word       model.WordID
	StartFrame int
	EndFrame   int
}

// Segmentation returns the best path's per-word segmentation, oldest-first,
// including the initial and final words (decoder.Decoder.Seg trims those).
// A node's end frame for the chosen arc is carried by its own incoming
// link, not the node itself, since distinct end frames for a merged
// (word, start_frame) node are retained as separate links (build.go).
func (p *Potentials) Segmentation(g *Graph) []Segment {
	var rev []Segment
	v := g.Final
	for {
		li := p.BestIn[v]
		end := g.Nodes[v].StartFrame // <s> has no predecessor link and no span
		if li >= 0 {
			end = g.Links[li].EndFrame
		}
		rev = append(rev, Segment{Word: g.Nodes[v].Word, StartFrame: g.Nodes[v].StartFrame, EndFrame: end})
		if li < 0 {
			break
		}
		v = g.Links[li].From
	}
	out := make([]Segment, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}
