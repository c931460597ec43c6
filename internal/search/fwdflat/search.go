package fwdflat

import (
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
)

const ln10 = 2.302585092994046

// instKey identifies one live flat HMM instance: the word-entry backpointer
// it descends from (fixing its actual word history, unlike fwdtree's
// root), the word itself, and the phone position within that word's
// pronunciation.
type instKey struct {
	pred     bp.Index
	word     model.WordID
	phoneIdx int
}

// Search runs the flat-lexicon rescoring pass of spec.md §4.5. Unlike
// fwdtree, every word occurrence gets its own unshared HMM chain, and
// because the occurrence already commits to a specific predecessor word
// (the candidate set comes from a precomputed per-frame window, not a
// fan-out over every possible history), full-trigram language scores can
// be applied at word entry instead of deferred to exit.
//
// One context is approximated: a word's last phone's right context (the following word's first
// phone) isn't yet known when that phone is scored, so it is approximated
// as [model.CIPhoneNone] rather than fanned out across every possible
// right context. Every other phone boundary (including the first phone's
// left context, which fwdflat — unlike fwdtree — always knows exactly) is
// modelled with its true triphone context.
type Search struct {
	mdef  model.MdefTable
	dict  model.Dictionary
	lmod  lm.Model
	trans model.Transitions
	cfg   Config

	bpTable     *bp.Table
	windowWords map[int][]model.WordID

	active    map[instKey]*hmmState
	frame     int
	bestScore float64
	hmmCount  int
	wordCount int
}

// New constructs a flat-lexicon search. bpTable is a fresh table: fwdflat's
// results supersede fwdtree's (spec.md §4.5), so hypothesis extraction after
// this pass reads from bpTable, not fwdtree's.
func New(mdef model.MdefTable, dict model.Dictionary, lmod lm.Model, trans model.Transitions, cfg Config, bpTable *bp.Table) *Search {
	return &Search{mdef: mdef, dict: dict, lmod: lmod, trans: trans, cfg: cfg, bpTable: bpTable}
}

// StartUtt resets the search and seeds frame 0 with <s>. windowWords is the
// per-frame candidate vocabulary, normally from [BuildWindowWords] applied
// to the just-completed fwdtree pass's table.
func (s *Search) StartUtt(windowWords map[int][]model.WordID) {
	s.windowWords = windowWords
	s.active = make(map[instKey]*hmmState)
	s.frame = 0
	s.bestScore = negInf

	startWord := s.dict.StartWordID()
	startBP := s.bpTable.Append(bp.Entry{Frame: 0, Word: startWord, Predecessor: bp.NoPredecessor, Score: 0, StartFrame: 0})
	s.seedWords(s.active, startBP, startWord, 0)
}

// seedWords instantiates phone-0 chains for every word the window allows at
// frame, entered from predBP/predecessorWord, writing into dst.
func (s *Search) seedWords(dst map[instKey]*hmmState, predBP bp.Index, predecessorWord model.WordID, frame int) {
	words := s.windowWords[frame]
	if len(words) == 0 {
		return
	}
	history := s.historyFromBP(predBP)
	left := s.lastPhone(predecessorWord)

	for _, w := range words {
		entry, ok := s.dict.Word(w)
		if !ok || len(entry.Pron) == 0 {
			continue
		}
		ssid, final := s.phoneSSID(entry.Pron, 0, left)
		lmScore := s.lmod.Score(w, history) * ln10 * s.cfg.LanguageWeight
		entryScore := lmScore + s.cfg.WordInsertionPenalty
		key := instKey{pred: predBP, word: w, phoneIdx: 0}
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

// Step advances the search by one frame given that frame's senone scores.
func (s *Search) Step(scores []float64) {
	s.frame++
	next := make(map[instKey]*hmmState, len(s.active))
	s.bestScore = negInf

	type survivor struct {
		key instKey
		h   *hmmState
	}
	var all []survivor
	for key, h := range s.active {
		tmatid := s.mdef.TransitionMatrix(h.ssid)
		h.step(s.mdef, s.trans, tmatid, scores)
		best := h.best()
		if best > s.bestScore {
			s.bestScore = best
		}
		all = append(all, survivor{key, h})
	}

	globalCut := s.bestScore + s.cfg.Beam
	var alive []survivor
	for _, sv := range all {
		if sv.h.best() >= globalCut {
			alive = append(alive, sv)
		}
	}
	s.hmmCount = len(alive)

	wordExitCut := s.bestScore + s.cfg.WordBeam
	type exit struct {
		key   instKey
		h     *hmmState
		score float64
	}
	var wordExits []exit

	for _, sv := range alive {
		key, h := sv.key, sv.h
		next[key] = h

		exitScore := h.score[2]
		exitBP := h.bp[2]

		if !h.final {
			entry, ok := s.dict.Word(key.word)
			if !ok {
				continue
			}
			ssid, final := s.phoneSSID(entry.Pron, key.phoneIdx+1, model.CIPhoneNone)
			entryScore := exitScore + s.cfg.PhoneInsertionPenalty
			nkey := instKey{pred: key.pred, word: key.word, phoneIdx: key.phoneIdx + 1}
			s.activateOrCreate(next, nkey, ssid, final, h.entryFrame, exitBP, entryScore)
			continue
		}

		if exitScore >= wordExitCut {
			wordExits = append(wordExits, exit{key, h, exitScore})
		}
	}
	s.wordCount = len(wordExits)

	for _, we := range wordExits {
		s.emitWordExit(we.key, we.h, we.score, next)
	}

	s.active = next
}

// emitWordExit writes a backpointer for a completed word and seeds the next
// frame's candidate words from it directly (spec.md §4.5's output table
// "supersedes" fwdtree's).
func (s *Search) emitWordExit(key instKey, h *hmmState, score float64, next map[instKey]*hmmState) {
	idx := s.bpTable.Append(bp.Entry{
		Frame:       s.frame,
		Word:        key.word,
		Predecessor: key.pred,
		Score:       score,
		StartFrame:  h.entryFrame,
	})
	s.seedWords(next, idx, key.word, s.frame+1)
}

// phoneSSID computes the ssid for phone idx of pron, using leftOverride as
// the left context only when idx is 0 (every other phone's left context is
// the preceding phone in the same word, always known exactly). The final
// phone's right context is approximated as [model.CIPhoneNone] per the
// package doc.
func (s *Search) phoneSSID(pron []model.CIPhoneID, idx int, leftOverride model.CIPhoneID) (model.SSID, bool) {
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
	ssid, _ := s.mdef.Lookup(t)
	return ssid, idx == n-1
}

func (s *Search) lastPhone(word model.WordID) model.CIPhoneID {
	entry, ok := s.dict.Word(word)
	if !ok || len(entry.Pron) == 0 {
		return model.CIPhoneNone
	}
	return entry.Pron[len(entry.Pron)-1]
}

// historyFromBP walks up to two predecessors for full n-gram LM context
// (spec.md §4.5: "full trigram LM scoring at word transitions" — the
// [lm.Model] itself decides how much of this history its order can use).
func (s *Search) historyFromBP(idx bp.Index) lm.History {
	var h lm.History
	for i := 0; i < 2 && idx != bp.NoPredecessor; i++ {
		e := s.bpTable.Get(idx)
		h = append(h, e.Word)
		idx = e.Predecessor
	}
	return h
}

// ActivateSenones marks every currently active instance's senones in
// active, satisfying spec.md §4.3 step 1.
func (s *Search) ActivateSenones(active interface {
	ActivateSenones(mdef model.MdefTable, ssid model.SSID)
}) {
	for _, h := range s.active {
		active.ActivateSenones(s.mdef, h.ssid)
	}
}

// BestScore returns the current frame's best live HMM score.
func (s *Search) BestScore() float64 { return s.bestScore }

// Counts returns this frame's surviving HMM and word-exit counts.
func (s *Search) Counts() (hmms, words int) { return s.hmmCount, s.wordCount }
