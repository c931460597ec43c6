package fsg

import (
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

// instKey identifies one live HMM instance: the word-entry backpointer it
// descends from (which also pins the grammar state it's leaving), the word,
// and the phone position within its pronunciation.
type instKey struct {
	pred     bp.Index
	word     model.WordID
	phoneIdx int
}

// Search runs Viterbi search restricted to a [Grammar]'s accepted word
// sequences, in place of fwdflat's rolling-window vocabulary.
type Search struct {
	mdef    model.MdefTable
	dict    model.Dictionary
	trans   model.Transitions
	grammar *Grammar
	cfg     Config

	bpTable    *bp.Table
	stateOf    map[bp.Index]State   // grammar state each bp entry arrived at
	toStateOf  map[instKey]State    // grammar state an in-flight instance's word exit will reach

	active    map[instKey]*hmmState
	frame     int
	bestScore float64
}

// New constructs an FSG search against grammar.
func New(mdef model.MdefTable, dict model.Dictionary, trans model.Transitions, grammar *Grammar, cfg Config) *Search {
	return &Search{mdef: mdef, dict: dict, trans: trans, grammar: grammar, cfg: cfg, bpTable: bp.New()}
}

func (s *Search) StartUtt() {
	s.stateOf = make(map[bp.Index]State)
	s.toStateOf = make(map[instKey]State)
	s.active = make(map[instKey]*hmmState)
	s.bpTable.Reset()
	s.frame = 0
	s.bestScore = negInf

	startWord := s.dict.StartWordID()
	startBP := s.bpTable.Append(bp.Entry{Frame: 0, Word: startWord, Predecessor: bp.NoPredecessor, Score: 0, StartFrame: 0})
	s.stateOf[startBP] = s.grammar.Start
	s.seedWords(s.active, startBP, 0)
}

func (s *Search) seedWords(dst map[instKey]*hmmState, predBP bp.Index, frame int) {
	state := s.stateOf[predBP]
	for _, arc := range s.grammar.WordArcs(state) {
		entry, ok := s.dict.Word(arc.Word)
		if !ok || len(entry.Pron) == 0 {
			continue
		}
		ssid, final := phoneSSID(s.mdef, entry.Pron, 0, model.CIPhoneNone)
		entryScore := arc.LogProb + s.cfg.WordInsertionPenalty
		key := instKey{pred: predBP, word: arc.Word, phoneIdx: 0}
		s.toStateOf[key] = arc.To
		s.activateOrCreate(dst, key, ssid, final, frame, predBP, entryScore)
	}
}

func (s *Search) activateOrCreate(dst map[instKey]*hmmState, key instKey, ssid model.SSID, final bool, entryFrame int, entryBP bp.Index, entryScore float64) {
	if h, ok := dst[key]; ok {
		if entryScore > h.score[0] {
			h.score[0] = entryScore
			h.bp[0] = entryBP
		}
		return
	}
	dst[key] = newHMM(ssid, final, entryFrame, entryScore, entryBP)
}

func (s *Search) ActivateSenones(active search.ActiveSet) {
	for _, h := range s.active {
		active.ActivateSenones(s.mdef, h.ssid)
	}
}

func (s *Search) Step(frameIdx int, scores []float64) {
	s.frame = frameIdx + 1
	next := make(map[instKey]*hmmState, len(s.active))
	nextToState := make(map[instKey]State, len(s.toStateOf))
	s.bestScore = negInf

	type survivor struct {
		key instKey
		h   *hmmState
	}
	var all []survivor
	for key, h := range s.active {
		tmatid := s.mdef.TransitionMatrix(h.ssid)
		h.step(s.mdef, s.trans, tmatid, scores)
		if b := h.best(); b > s.bestScore {
			s.bestScore = b
		}
		all = append(all, survivor{key, h})
	}

	globalCut := s.bestScore + s.cfg.Beam
	wordExitCut := s.bestScore + s.cfg.WordBeam
	type exit struct {
		key   instKey
		h     *hmmState
		score float64
	}
	var wordExits []exit

	for _, sv := range all {
		if sv.h.best() < globalCut {
			continue
		}
		key, h := sv.key, sv.h
		next[key] = h
		nextToState[key] = s.toStateOf[key]

		if !h.final {
			entry, ok := s.dict.Word(key.word)
			if !ok {
				continue
			}
			ssid, final := phoneSSID(s.mdef, entry.Pron, key.phoneIdx+1, model.CIPhoneNone)
			entryScore := h.score[2] + s.cfg.PhoneInsertionPenalty
			nkey := instKey{pred: key.pred, word: key.word, phoneIdx: key.phoneIdx + 1}
			nextToState[nkey] = s.toStateOf[key]
			s.activateOrCreate(next, nkey, ssid, final, h.entryFrame, h.bp[2], entryScore)
			continue
		}

		exitScore := h.score[2]
		if exitScore >= wordExitCut {
			wordExits = append(wordExits, exit{key, h, exitScore})
		}
	}

	// Switch to the next frame's state map before seeding, so the grammar
	// states seedWords records for new instances are kept.
	s.toStateOf = nextToState
	for _, we := range wordExits {
		idx := s.bpTable.Append(bp.Entry{
			Frame:       s.frame,
			Word:        we.key.word,
			Predecessor: we.key.pred,
			Score:       we.score,
			StartFrame:  we.h.entryFrame,
		})
		s.stateOf[idx] = s.toStateOf[we.key]
		s.seedWords(next, idx, s.frame)
	}

	s.active = next
}

func (s *Search) BestScore() float64 { return s.bestScore }

// FinishUtt builds the lattice from the grammar-restricted backpointer
// table and runs best-path with the null language model — the grammar's
// arc probabilities, not a statistical LM, already constrain the word
// sequence.
func (s *Search) FinishUtt() (*lattice.Graph, *lattice.Potentials) {
	g := lattice.Build(s.bpTable, s.dict, s.dict.EndWordID())
	lattice.AddFillerBypass(g, s.cfg.WordInsertionPenalty)
	lattice.MarkReachability(g)
	pot := lattice.BestPath(g, lm.Uniform, 0, 1)
	return g, pot
}

// phoneSSID computes the ssid for phone idx of pron, leftOverride supplying
// the left context only at idx 0. This search always passes
// [model.CIPhoneNone] there: unlike fwdtree and fwdflat, which use the
// predecessor word's last phone, it does not look up the predecessor's
// pronunciation.
func phoneSSID(mdef model.MdefTable, pron []model.CIPhoneID, idx int, leftOverride model.CIPhoneID) (model.SSID, bool) {
	n := len(pron)
	var left, right model.CIPhoneID
	var pos model.WordPosition

	switch {
	case n == 1:
		pos = model.PositionSingle
		left = leftOverride
		right = model.CIPhoneNone
	case idx == 0:
		pos = model.PositionBegin
		left = leftOverride
		right = pron[idx+1]
	case idx == n-1:
		pos = model.PositionEnd
		left = pron[idx-1]
		right = model.CIPhoneNone
	default:
		pos = model.PositionInternal
		left = pron[idx-1]
		right = pron[idx+1]
	}

	t := model.Triphone{Base: pron[idx], Left: left, Right: right, Position: pos}
	ssid, _ := mdef.Lookup(t)
	return ssid, idx == n-1
}
