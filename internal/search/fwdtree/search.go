package fwdtree

import (
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
)

const ln10 = 2.302585092994046

// instKey identifies one live HMM instance. node is nil for single-phone
// words, whose instances live outside the shared tree entirely.
type instKey struct {
	node  *Node
	word  model.WordID
	right model.CIPhoneID
}

// Search runs the lexicon-tree forward pass of spec.md §4.4.
type Search struct {
	mdef  model.MdefTable
	dict  model.Dictionary
	lmod  lm.Model
	trans model.Transitions
	tree  *Tree
	cfg   Config

	bpTable *bp.Table

	active     map[instKey]*hmmState
	frame      int
	bestScore  float64
	hmmCount   int
	wordCount  int

	// allowedRoots restricts which root phones seedRoots instantiates, fed
	// by the phone-loop prefilter's lookahead window (spec.md §4.3: "fwdtree
	// search activates only HMMs whose base phone is in the union of this
	// set"). Nil means unrestricted.
	allowedRoots map[model.CIPhoneID]bool
}

// SetAllowedRoots restricts root-HMM seeding to phones in allowed. Passing
// nil removes the restriction. A decoder without a phone-loop prefilter
// never calls this, leaving every root phone eligible.
func (s *Search) SetAllowedRoots(allowed map[model.CIPhoneID]bool) {
	s.allowedRoots = allowed
}

// New constructs a forward-tree search over a fixed model set.
func New(mdef model.MdefTable, dict model.Dictionary, lmod lm.Model, trans model.Transitions, tree *Tree, cfg Config, bpTable *bp.Table) *Search {
	return &Search{mdef: mdef, dict: dict, lmod: lmod, trans: trans, tree: tree, cfg: cfg, bpTable: bpTable}
}

// StartUtt resets the search and seeds frame 0 with <s>.
func (s *Search) StartUtt() {
	s.active = make(map[instKey]*hmmState)
	s.frame = 0
	s.bestScore = negInf

	startWord := s.dict.StartWordID()
	startBP := s.bpTable.Append(bp.Entry{Frame: 0, Word: startWord, Predecessor: bp.NoPredecessor, Score: 0, StartFrame: 0})
	s.seedRoots(startBP, startWord, 0)
}

// seedRoots instantiates root (and single-phone-word) HMM instances for the
// word following predecessorWord, whose backpointer is predBP, entering at
// entryFrame. Root instances are the (first-phone, predecessorWord's last
// phone) variant the tree built for this actual cross-word left context
// (spec.md §3/§4.4), not a context-free approximation. allowedRoots (if
// set) skips multi-phone roots outside the phone-loop prefilter's window;
// single-phone words aren't restricted since Tree.SinglePhoneWords doesn't
// key by phone.
func (s *Search) seedRoots(predBP bp.Index, predecessorWord model.WordID, entryFrame int) {
	history := lm.History{predecessorWord}
	left := s.lastPhone(predecessorWord)

	for first, variants := range s.tree.Roots {
		if s.allowedRoots != nil && !s.allowedRoots[first] {
			continue
		}
		root, ok := variants[left]
		if !ok {
			root, ok = variants[model.CIPhoneNone]
			if !ok {
				continue
			}
		}
		for child, ssid := range root.ChildSsid {
			key := instKey{node: root, right: child}
			s.activateOrCreate(key, ssid, entryFrame, predBP, 0)
		}
	}
	for w, variants := range s.tree.SinglePhoneWords {
		lmScore := s.lmod.Score(w, history) * ln10 * s.cfg.LanguageWeight
		entry := lmScore + s.cfg.WordInsertionPenalty
		for rc, ssid := range variants {
			key := instKey{word: w, right: rc}
			s.activateOrCreate(key, ssid, entryFrame, predBP, entry)
		}
	}
}

// lastPhone returns w's pronunciation's final phone, the cross-word left
// context the next word's root HMM enters with, or CIPhoneNone for fillers
// (e.g. "<s>") that carry no pronunciation.
func (s *Search) lastPhone(w model.WordID) model.CIPhoneID {
	e, ok := s.dict.Word(w)
	if !ok || len(e.Pron) == 0 {
		return model.CIPhoneNone
	}
	return e.Pron[len(e.Pron)-1]
}

// activateOrCreate seeds or strengthens an instance at key with entryScore,
// keeping the best if one already exists (two predecessors can seed the
// same root entry on the same frame).
func (s *Search) activateOrCreate(key instKey, ssid model.SSID, entryFrame int, predBP bp.Index, entryScore float64) {
	if h, ok := s.active[key]; ok {
		if entryScore > h.score[0] {
			h.score[0] = entryScore
			h.bp[0] = predBP
		}
		return
	}
	s.active[key] = newHMM(ssid, entryFrame, entryScore, predBP)
}

// Step advances the search by one frame given that frame's senone scores
// (already computed, and whose activation this search contributed to via
// ActivateSenones).
func (s *Search) Step(scores []float64) {
	s.frame++
	next := make(map[instKey]*hmmState, len(s.active))
	s.bestScore = negInf

	type survivor struct {
		key instKey
		h   *hmmState
	}
	var survivors []scored[survivor]

	for key, h := range s.active {
		tmatid := s.mdef.TransitionMatrix(h.ssid)
		h.step(s.mdef, s.trans, tmatid, scores)
		best := h.best()
		if best > s.bestScore {
			s.bestScore = best
		}
		survivors = append(survivors, scored[survivor]{survivor{key, h}, best})
	}

	globalCut := s.bestScore + s.cfg.GlobalBeam
	var alive []scored[survivor]
	for _, sv := range survivors {
		if sv.score >= globalCut {
			alive = append(alive, sv)
		}
	}
	alive = capByScore(alive, s.cfg.MaxHMMsPerFrame)
	s.hmmCount = len(alive)

	wordExitCut := s.bestScore + s.cfg.WordExitBeam
	phoneExitCut := s.bestScore + s.cfg.PhoneExitBeam

	var wordExits []scored[survivor]

	for _, sv := range alive {
		key, h := sv.key.key, sv.key.h
		next[key] = h

		exitScore := h.score[2]
		if exitScore < phoneExitCut {
			continue
		}
		exitBP := h.bp[2]

		if key.node == nil {
			// Single-phone word: immediate word exit.
			if exitScore >= wordExitCut {
				wordExits = append(wordExits, scored[survivor]{survivor{key, h}, exitScore})
			}
			continue
		}
		if len(key.node.Words) > 0 {
			// Word-final phone of a multi-phone word.
			if exitScore >= wordExitCut {
				wordExits = append(wordExits, scored[survivor]{survivor{key, h}, exitScore})
			}
			continue
		}

		// Internal node: propagate into the committed child.
		child := key.node.Children[key.right]
		if child == nil {
			continue
		}
		entryScore := exitScore + s.cfg.PhoneInsertionPenalty
		if len(child.Children) == 0 && len(child.Words) == 0 {
			continue
		}
		if len(child.Children) > 0 {
			for grandchild := range child.ChildSsid {
				ckey := instKey{node: child, right: grandchild}
				s.activateOrCreate2(next, ckey, child.ChildSsid[grandchild], h.entryFrame, exitBP, entryScore)
			}
		}
		if len(child.Words) > 0 {
			for rc, ssid := range child.LeafRightSsid {
				ckey := instKey{node: child, right: rc}
				s.activateOrCreate2(next, ckey, ssid, h.entryFrame, exitBP, entryScore)
			}
		}
	}

	wordExits = capByScore(wordExits, s.cfg.MaxWordsPerFrame)
	s.wordCount = len(wordExits)

	for _, we := range wordExits {
		s.emitWordExit(we.key.key, we.key.h, we.score)
	}

	s.active = next
}

// activateOrCreate2 is activateOrCreate specialized to write into an
// explicit destination map (used while building next's map, before it
// replaces s.active).
func (s *Search) activateOrCreate2(dst map[instKey]*hmmState, key instKey, ssid model.SSID, entryFrame int, predBP bp.Index, entryScore float64) {
	if h, ok := dst[key]; ok {
		if entryScore > h.score[0] {
			h.score[0] = entryScore
			h.bp[0] = predBP
		}
		return
	}
	dst[key] = newHMM(ssid, entryFrame, entryScore, predBP)
}

// emitWordExit writes a backpointer for a completed word and seeds next
// frame's roots for every word whose first phone matches key.right (spec.md
// §4.4 step 6's right-context "score stack": key.right IS the hypothesized
// next word's first phone, so propagation is direct rather than searched).
func (s *Search) emitWordExit(key instKey, h *hmmState, score float64) {
	var words []model.WordID
	if key.node != nil {
		words = key.node.Words
	} else {
		words = []model.WordID{key.word}
	}

	history := s.historyFromBP(h.bp[2])

	for _, w := range words {
		lmScore := s.lmod.Score(w, history) * ln10 * s.cfg.LanguageWeight
		total := score + lmScore + s.cfg.WordInsertionPenalty
		idx := s.bpTable.Append(bp.Entry{
			Frame:              s.frame,
			Word:               w,
			Predecessor:        h.bp[2],
			Score:              total,
			StartFrame:         h.entryFrame,
			RightContextScores: map[model.CIPhoneID]float64{key.right: total},
		})
		s.seedRoots(idx, w, s.frame+1)
	}
}

// historyFromBP walks up to two predecessors for bigram LM context (spec.md
// §4.4: "the bigram (last two words tracked through the backpointer
// chain)").
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

// Counts returns this frame's surviving HMM and word-exit counts, for
// diagnostics/tests.
func (s *Search) Counts() (hmms, words int) { return s.hmmCount, s.wordCount }
