// Package allphone implements the phone-LM search mode of spec.md §4.9.E
// (scenario 4: "phone LM mode; expected phone sequence approximately SIL G
// OW F AO R W ER D T EH N M IY T ER Z SIL"). It runs the same fully
// connected CI-phone loop as internal/phoneloop, grounded directly on that
// package's Viterbi recurrence, but additionally records every phone exit
// as a backpointer so FinishUtt can hand back a phone-level lattice instead
// of just a lookahead window.
package allphone

import (
	"math"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

// Config holds the loop's pruning beam (spec.md §4.3's style of beam,
// reused here since allphone is the same topology without the lookahead
// window).
type Config struct {
	Beam float64 // natural-log, negative
}

// DefaultConfig mirrors internal/phoneloop.DefaultBeam.
func DefaultConfig() Config {
	return Config{Beam: math.Log(1e-10)}
}

var negInf = math.Inf(-1)

type ciInstance struct {
	phone  model.CIPhoneID
	ssid   model.SSID
	scores [3]float64
	bp     [3]bp.Index
	entry  int // frame this instance's chain was entered
	exit   float64
	exitBP bp.Index
	active bool
}

// Search runs the fully connected CI-phone loop, recording a bp.Entry every
// time one phone's exit wins the cross-phone loop transition into the next
// frame — the phone-level analogue of a word exit in fwdtree.
//
// Only the single globally-best predecessor transition is kept per frame,
// a scoped simplification of "every phone can follow every phone": the true
// fan-in would need one backpointer per (phone, predecessor-phone) pair,
// but spec.md §4.9.E only asks allphone to reproduce one approximate best
// phone sequence (scenario 4's "approximately"), so collapsing to the
// single best transition is sufficient and mirrors phoneloop's own
// beam-pruned history.
type Search struct {
	mdef  model.MdefTable
	trans model.Transitions
	cfg   Config

	states  []ciInstance
	bpTable *bp.Table

	frameIdx int
	best     float64
}

// New constructs an allphone Search over every CI phone in mdef.
func New(mdef model.MdefTable, trans model.Transitions, cfg Config) *Search {
	s := &Search{mdef: mdef, trans: trans, cfg: cfg, bpTable: bp.New()}
	for p := 0; p < mdef.NumCIPhones(); p++ {
		ssid := mdef.LookupCI(model.CIPhoneID(p))
		s.states = append(s.states, ciInstance{phone: model.CIPhoneID(p), ssid: ssid})
	}
	return s
}

func (s *Search) StartUtt() {
	s.bpTable.Reset()
	for i := range s.states {
		s.states[i].scores = [3]float64{0, negInf, negInf}
		s.states[i].bp = [3]bp.Index{bp.NoPredecessor, bp.NoPredecessor, bp.NoPredecessor}
		s.states[i].entry = 0
		s.states[i].active = true
	}
	s.frameIdx = 0
	s.best = 0
}

func (s *Search) ActivateSenones(active search.ActiveSet) {
	for _, st := range s.states {
		if st.active {
			active.ActivateSenones(s.mdef, st.ssid)
		}
	}
}

func (s *Search) Step(frameIdx int, scores []float64) {
	next := make([]ciInstance, len(s.states))
	copy(next, s.states)

	for i := range s.states {
		senones := s.mdef.Senones(s.states[i].ssid)
		tmatid := s.mdef.TransitionMatrix(s.states[i].ssid)
		var obs [3]float64
		for k := 0; k < 3 && k < len(senones); k++ {
			obs[k] = scores[senones[k]]
		}
		var nscore [3]float64
		var nbp [3]bp.Index
		for to := 0; to < 3; to++ {
			best := negInf
			bestFrom := -1
			for from := 0; from < 3; from++ {
				t := s.trans.Score(tmatid, from, to)
				if math.IsInf(t, -1) {
					continue
				}
				cand := s.states[i].scores[from] + t
				if cand > best {
					best = cand
					bestFrom = from
				}
			}
			if bestFrom < 0 {
				nscore[to] = negInf
				nbp[to] = bp.NoPredecessor
				continue
			}
			nscore[to] = best + obs[to]
			nbp[to] = s.states[i].bp[bestFrom]
		}
		next[i].scores = nscore
		next[i].bp = nbp
		next[i].exit = nscore[2]
		next[i].exitBP = nbp[2]
	}

	bestIdx := -1
	loopBest := negInf
	for i := range next {
		if next[i].exit > loopBest {
			loopBest = next[i].exit
			bestIdx = i
		}
	}

	winBP := bp.NoPredecessor
	if bestIdx >= 0 {
		winner := next[bestIdx]
		winBP = s.bpTable.Append(bp.Entry{
			Frame:       frameIdx,
			Word:        model.WordID(winner.phone),
			Predecessor: winner.exitBP,
			Score:       winner.exit,
			StartFrame:  winner.entry,
		})
	}

	for i := range next {
		if loopBest > next[i].scores[0] {
			next[i].scores[0] = loopBest
			next[i].bp[0] = winBP
			next[i].entry = frameIdx + 1
		}
	}

	s.states = next
	s.frameIdx = frameIdx + 1

	best := negInf
	for i := range s.states {
		ps := math.Max(s.states[i].scores[0], math.Max(s.states[i].scores[1], s.states[i].scores[2]))
		if ps > best {
			best = ps
		}
	}
	s.best = best
	for i := range s.states {
		ps := math.Max(s.states[i].scores[0], math.Max(s.states[i].scores[1], s.states[i].scores[2]))
		s.states[i].active = ps >= best+s.cfg.Beam
	}
}

func (s *Search) BestScore() float64 { return s.best }

// FinishUtt builds a lattice whose nodes are individual phone exits (Word
// doubles as the CI phone id) and runs best-path over it with the null
// language model, satisfying the same capability every other search mode
// does.
func (s *Search) FinishUtt() (*lattice.Graph, *lattice.Potentials) {
	bestIdx := 0
	best := negInf
	for i := range s.states {
		ps := math.Max(s.states[i].scores[0], math.Max(s.states[i].scores[1], s.states[i].scores[2]))
		if ps > best {
			best = ps
			bestIdx = i
		}
	}
	endWord := model.WordID(s.states[bestIdx].phone)

	g := lattice.Build(s.bpTable, phoneDict{}, endWord)
	lattice.MarkReachability(g)
	pot := lattice.BestPath(g, lm.Uniform, 0, 1)
	return g, pot
}

// PhoneSequence returns the best phone chain by walking the bp.Table's
// predecessor chain from the live instance with the highest current score.
func (s *Search) PhoneSequence() []model.CIPhoneID {
	bestIdx := 0
	best := negInf
	for i := range s.states {
		ps := math.Max(s.states[i].scores[0], math.Max(s.states[i].scores[1], s.states[i].scores[2]))
		if ps > best {
			best = ps
			bestIdx = i
		}
	}
	chain := s.bpTable.Chain(s.states[bestIdx].bp[0])
	out := make([]model.CIPhoneID, len(chain))
	for i, e := range chain {
		out[i] = model.CIPhoneID(e.Word)
	}
	return out
}

// phoneDict satisfies model.Dictionary's narrow lattice.Build/IsFiller
// usage for a phone-level lattice, where every "word" is really a CI
// phone id and none of them are fillers.
type phoneDict struct{}

func (phoneDict) NumWords() int                        { return 0 }
func (phoneDict) Word(model.WordID) (model.DictEntry, bool) { return model.DictEntry{}, false }
func (phoneDict) Lookup(string) (model.WordID, bool)   { return model.NoWord, false }
func (phoneDict) StartWordID() model.WordID            { return model.NoWord }
func (phoneDict) EndWordID() model.WordID              { return model.NoWord }
func (phoneDict) SilenceWordID() model.WordID          { return model.NoWord }
func (phoneDict) AddWord(model.DictEntry) model.WordID { return model.NoWord }
func (phoneDict) RemoveWord(model.WordID) bool         { return false }
func (phoneDict) IsFiller(model.WordID) bool           { return false }
