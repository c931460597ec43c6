// Package align implements forced alignment (spec.md §4.9.E, scenario 5:
// "text = 'go forward ten meters', expected per-word segmentation is
// monotone..."). Unlike every other search mode, the word sequence is
// already known, so there is no lexicon tree, no grammar and no language
// model to consult: align builds the words' HMM chain directly, one state
// at a time, and the only freedom Viterbi has is where each phone's three
// states start and end.
package align

import (
	"math"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

var negInf = math.Inf(-1)

// step is one (word index, phone index) position in the flattened
// alignment chain.
type step struct {
	word     model.WordID
	wordIdx  int
	ssid     model.SSID
	lastWord bool // true for the chain's final phone
}

// Search Viterbi-aligns a fixed word sequence against the acoustic scores,
// producing a per-word segmentation via FinishUtt/the shared lattice
// machinery.
type Search struct {
	mdef  model.MdefTable
	dict  model.Dictionary
	trans model.Transitions

	chain []step
	score [3]float64 // current active step's 3-state score
	bpArr [3]bp.Index
	pos   int // index into chain of the currently active step

	bpTable   *bp.Table
	entry     int // frame the current chain step was entered
	bestScore float64
	frame     int
}

// New builds an alignment search over words, resolved through dict.
func New(mdef model.MdefTable, dict model.Dictionary, trans model.Transitions, words []model.WordID) *Search {
	s := &Search{mdef: mdef, dict: dict, trans: trans}
	for wi, w := range words {
		entry, ok := dict.Word(w)
		if !ok || len(entry.Pron) == 0 {
			continue
		}
		n := len(entry.Pron)
		for pi, ph := range entry.Pron {
			var left, right model.CIPhoneID = model.CIPhoneNone, model.CIPhoneNone
			var pos model.WordPosition
			switch {
			case n == 1:
				pos = model.PositionSingle
			case pi == 0:
				pos, right = model.PositionBegin, entry.Pron[pi+1]
			case pi == n-1:
				pos, left = model.PositionEnd, entry.Pron[pi-1]
			default:
				pos, left, right = model.PositionInternal, entry.Pron[pi-1], entry.Pron[pi+1]
			}
			ssid, _ := mdef.Lookup(model.Triphone{Base: ph, Left: left, Right: right, Position: pos})
			s.chain = append(s.chain, step{word: w, wordIdx: wi, ssid: ssid, lastWord: wi == len(words)-1 && pi == n-1})
		}
	}
	return s
}

func (s *Search) StartUtt() {
	s.pos = 0
	s.entry = 0
	s.frame = 0
	s.bestScore = 0
	s.score = [3]float64{0, negInf, negInf}
	s.bpArr = [3]bp.Index{bp.NoPredecessor, bp.NoPredecessor, bp.NoPredecessor}
	s.bpTable = bp.New()
}

func (s *Search) ActivateSenones(active search.ActiveSet) {
	if s.pos >= len(s.chain) {
		return
	}
	active.ActivateSenones(s.mdef, s.chain[s.pos].ssid)
	if s.pos+1 < len(s.chain) {
		active.ActivateSenones(s.mdef, s.chain[s.pos+1].ssid)
	}
}

// Step advances the aligned chain by one frame. Unlike a beam search,
// align never prunes: the true alignment must cover every phone in order,
// so the only decision each frame makes is whether the current phone's
// last state has enough of a lead over continuing to justify moving to the
// next phone.
func (s *Search) Step(frameIdx int, scores []float64) {
	s.frame = frameIdx + 1
	if s.pos >= len(s.chain) {
		return
	}
	cur := s.chain[s.pos]
	tmatid := s.mdef.TransitionMatrix(cur.ssid)
	senones := s.mdef.Senones(cur.ssid)
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
			t := s.trans.Score(tmatid, from, to)
			if math.IsInf(t, -1) {
				continue
			}
			if cand := s.score[from] + t; cand > best {
				best, bestFrom = cand, from
			}
		}
		if bestFrom < 0 {
			next[to], nextBP[to] = negInf, bp.NoPredecessor
			continue
		}
		next[to] = best + obs[to]
		nextBP[to] = s.bpArr[bestFrom]
	}

	exitScore, exitBP := next[2], nextBP[2]
	s.bestScore = math.Max(next[0], math.Max(next[1], next[2]))

	if s.pos+1 >= len(s.chain) {
		s.score, s.bpArr = next, nextBP
		return
	}

	nextStep := s.chain[s.pos+1]
	if nextStep.word != cur.word {
		idx := s.bpTable.Append(bp.Entry{Frame: s.frame - 1, Word: cur.word, Predecessor: exitBP, Score: exitScore, StartFrame: s.entry})
		exitBP = idx
	}
	if nextStep.word == cur.word || exitScore > negInf {
		s.pos++
		s.entry = s.frame
		s.score = [3]float64{exitScore, negInf, negInf}
		s.bpArr = [3]bp.Index{exitBP, bp.NoPredecessor, bp.NoPredecessor}
	}
}

func (s *Search) BestScore() float64 { return s.bestScore }

// FinishUtt flushes the final phone's word boundary (if not already
// flushed by Step) and builds a lattice from the single resulting
// straight-line backpointer chain.
func (s *Search) FinishUtt() (*lattice.Graph, *lattice.Potentials) {
	if len(s.chain) > 0 {
		last := s.chain[len(s.chain)-1]
		exitScore, exitBP := s.score[2], s.bpArr[2]
		s.bpTable.Append(bp.Entry{Frame: s.frame, Word: last.word, Predecessor: exitBP, Score: exitScore, StartFrame: s.entry})
	}
	endWord := model.NoWord
	if len(s.chain) > 0 {
		endWord = s.chain[len(s.chain)-1].word
	}
	g := lattice.Build(s.bpTable, s.dict, endWord)
	lattice.MarkReachability(g)
	pot := lattice.BestPath(g, lm.Uniform, 0, 1)
	return g, pot
}
