package fwdflat

import (
	"math"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
)

// hmmState is one live 3-state HMM instance's Viterbi state, covering one
// phone of one word occurrence's flat (unshared) chain. final marks the
// word's last phone, whose exit is a candidate word boundary rather than a
// phone-to-phone propagation.
type hmmState struct {
	ssid       model.SSID
	final      bool
	entryFrame int
	score      [3]float64
	bp         [3]bp.Index
}

func newHMM(ssid model.SSID, final bool, entryFrame int, entryScore float64, entryBP bp.Index) *hmmState {
	return &hmmState{
		ssid:       ssid,
		final:      final,
		entryFrame: entryFrame,
		score:      [3]float64{entryScore, negInf, negInf},
		bp:         [3]bp.Index{entryBP, bp.NoPredecessor, bp.NoPredecessor},
	}
}

// step advances one frame, identically to fwdtree's HMM update: a 3-state
// left-to-right-with-skip Viterbi recurrence over the shared transition
// topology (spec.md §3). fwdflat duplicates this rather than importing
// fwdtree because the two passes' HMM instances are a genuinely different
// population (shared tree nodes vs. one unshared chain per occurrence) with
// independent pruning — not because the recurrence itself differs.
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

func (h *hmmState) best() float64 {
	return math.Max(h.score[0], math.Max(h.score[1], h.score[2]))
}
