package fwdtree

import (
	"math"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
)

// edgeKey identifies one live HMM instance: the tree node it is inside,
// plus the phone that disambiguates its right context (a child's phone for
// an internal node, or a candidate next-word first phone for a word-final
// node). See tree.go's package doc for why this is the unit of sharing.
type edgeKey struct {
	node  *Node
	right model.CIPhoneID
}

// hmmState is one live 3-state HMM instance's Viterbi state.
type hmmState struct {
	ssid       model.SSID
	entryFrame int // frame this word occurrence's HMM chain was entered, for the eventual backpointer's span
	score      [3]float64
	bp         [3]bp.Index // backpointer each state's best path currently traces to
}

func newHMM(ssid model.SSID, entryFrame int, entryScore float64, entryBP bp.Index) *hmmState {
	return &hmmState{
		ssid:       ssid,
		entryFrame: entryFrame,
		score:      [3]float64{entryScore, negInf, negInf},
		bp:         [3]bp.Index{entryBP, bp.NoPredecessor, bp.NoPredecessor},
	}
}

// step advances one frame: emission scores come from senones, obs[i] is the
// senone score for this HMM's state i. tmatid/trans describe the shared
// 3-state left-to-right-with-skip topology (spec.md §3).
func (h *hmmState) step(mdef model.MdefTable, trans model.Transitions, tmatid int32, scores []float64) {
	senones := mdef.Senones(h.ssid)
	var obs [3]float64
	for i := 0; i < 3 && i < len(senones); i++ {
		obs[i] = scores[senones[i]]
	}

	var next [3]float64
	var nextBP [3]bp.Index
	for to := 0; to < 3; to++ {
		best := negInf
		bestFrom := -1
		for from := 0; from < 3; from++ {
			t := trans.Score(tmatid, from, to)
			if math.IsInf(t, -1) {
				continue
			}
			cand := h.score[from] + t
			if cand > best {
				best = cand
				bestFrom = from
			}
		}
		if bestFrom < 0 {
			next[to] = negInf
			nextBP[to] = bp.NoPredecessor
			continue
		}
		next[to] = best + obs[to]
		nextBP[to] = h.bp[bestFrom]
	}
	h.score = next
	h.bp = nextBP
}

// best returns the instance's highest live state score.
func (h *hmmState) best() float64 {
	return math.Max(h.score[0], math.Max(h.score[1], h.score[2]))
}
