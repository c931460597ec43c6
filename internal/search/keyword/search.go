// Package keyword implements keyphrase spotting (spec.md §4.9.E, scenario
// 3: "keyphrase = 'forward', kws_threshold default. Expected get_hyp
// contains 'forward' exactly once; other words ignored."). It runs the
// keyphrase's own HMM chain — built the same way internal/search/align
// builds a known word sequence's chain — continuously alongside a
// background/garbage model borrowed from internal/search/allphone's
// fully-connected CI-phone loop, and declares a detection whenever the
// chain's score clears the background's by kws_threshold.
package keyword

import (
	"math"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/allphone"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

var negInf = math.Inf(-1)

// Config holds the spotting threshold and chain pruning parameters.
type Config struct {
	// Threshold is the natural-log score the keyphrase chain must clear
	// over the background model before a detection fires (kws_threshold).
	Threshold             float64
	WordInsertionPenalty  float64
	Background            allphone.Config
}

// DefaultConfig picks a threshold loose enough to catch scenario 3's single
// isolated keyphrase without tuning; real deployments set kws_threshold
// per-keyphrase.
func DefaultConfig() Config {
	return Config{
		Threshold:            math.Log(1e-30),
		WordInsertionPenalty: math.Log(0.65),
		Background:           allphone.DefaultConfig(),
	}
}

type step struct {
	word model.WordID
	ssid model.SSID
}

// Search spots one fixed keyphrase in a continuous audio stream.
type Search struct {
	mdef  model.MdefTable
	dict  model.Dictionary
	trans model.Transitions
	cfg   Config

	chain  []step
	score  [][3]float64
	bpArr  [][3]bp.Index
	entry  []int      // carried entry frame of the occurrence currently at each position
	entBP  []bp.Index // carried entry backpointer of the occurrence currently at each position

	background *allphone.Search

	armed     bool // true when a new detection may fire (score has dropped back below threshold)
	bpTable   *bp.Table
	frame     int
	bestScore float64
	lastWord  model.WordID
}

// New builds a keyphrase spotter for words (resolved through dict) against
// a background model sharing mdef/trans.
func New(mdef model.MdefTable, dict model.Dictionary, trans model.Transitions, words []model.WordID, cfg Config) *Search {
	s := &Search{mdef: mdef, dict: dict, trans: trans, cfg: cfg}
	s.background = allphone.New(mdef, trans, cfg.Background)
	for _, w := range words {
		e, ok := dict.Word(w)
		if !ok || len(e.Pron) == 0 {
			continue
		}
		n := len(e.Pron)
		for pi, ph := range e.Pron {
			var left, right model.CIPhoneID = model.CIPhoneNone, model.CIPhoneNone
			var pos model.WordPosition
			switch {
			case n == 1:
				pos = model.PositionSingle
			case pi == 0:
				pos, right = model.PositionBegin, e.Pron[pi+1]
			case pi == n-1:
				pos, left = model.PositionEnd, e.Pron[pi-1]
			default:
				pos, left, right = model.PositionInternal, e.Pron[pi-1], e.Pron[pi+1]
			}
			ssid, _ := mdef.Lookup(model.Triphone{Base: ph, Left: left, Right: right, Position: pos})
			s.chain = append(s.chain, step{word: w, ssid: ssid})
		}
		s.lastWord = w
	}
	return s
}

func (s *Search) StartUtt() {
	s.background.StartUtt()
	n := len(s.chain)
	s.score = make([][3]float64, n)
	s.bpArr = make([][3]bp.Index, n)
	s.entry = make([]int, n)
	s.entBP = make([]bp.Index, n)
	for i := range s.chain {
		s.score[i] = [3]float64{negInf, negInf, negInf}
		s.bpArr[i] = [3]bp.Index{bp.NoPredecessor, bp.NoPredecessor, bp.NoPredecessor}
	}
	s.armed = true
	s.bpTable = bp.New()
	s.frame = 0
	s.bestScore = 0
}

func (s *Search) ActivateSenones(active search.ActiveSet) {
	s.background.ActivateSenones(active)
	for _, st := range s.chain {
		active.ActivateSenones(s.mdef, st.ssid)
	}
}

// Step advances the background model and the keyphrase chain by one frame,
// firing a detection when the chain's exit clears the background by
// cfg.Threshold. Detections edge-trigger: once fired, no further detection
// can fire until the chain's lead over the background falls back below
// threshold, so a single sustained match yields exactly one hit.
func (s *Search) Step(frameIdx int, scores []float64) {
	s.background.Step(frameIdx, scores)
	bg := s.background.BestScore()
	s.frame = frameIdx + 1

	n := len(s.chain)
	nextScore := make([][3]float64, n)
	nextBP := make([][3]bp.Index, n)
	nextEntry := make([]int, n)
	nextEntBP := make([]bp.Index, n)

	for i := 0; i < n; i++ {
		cur := s.chain[i]
		tmatid := s.mdef.TransitionMatrix(cur.ssid)
		senones := s.mdef.Senones(cur.ssid)
		var obs [3]float64
		for k := 0; k < 3 && k < len(senones); k++ {
			obs[k] = scores[senones[k]]
		}

		var local [3]float64
		var localBP [3]bp.Index
		for to := 0; to < 3; to++ {
			best := negInf
			bestFrom := -1
			for from := 0; from < 3; from++ {
				t := s.trans.Score(tmatid, from, to)
				if math.IsInf(t, -1) {
					continue
				}
				if cand := s.score[i][from] + t; cand > best {
					best, bestFrom = cand, from
				}
			}
			if bestFrom < 0 {
				local[to], localBP[to] = negInf, bp.NoPredecessor
				continue
			}
			local[to] = best + obs[to]
			localBP[to] = s.bpArr[i][bestFrom]
		}

		entryCandidate := negInf
		var entryFrame int
		var entryBP bp.Index
		if i == 0 {
			entryCandidate = bg + s.cfg.WordInsertionPenalty
			entryFrame, entryBP = s.frame, bp.NoPredecessor
		} else {
			entryCandidate = s.score[i-1][2]
			entryFrame, entryBP = s.entry[i-1], s.entBP[i-1]
		}

		if v := entryCandidate + obs[0]; v > local[0] {
			nextScore[i][0] = v
			nextBP[i][0] = entryBP
			nextEntry[i] = entryFrame
			nextEntBP[i] = entryBP
		} else {
			nextScore[i][0] = local[0]
			nextBP[i][0] = localBP[0]
			nextEntry[i] = s.entry[i]
			nextEntBP[i] = s.entBP[i]
		}
		nextScore[i][1], nextBP[i][1] = local[1], localBP[1]
		nextScore[i][2], nextBP[i][2] = local[2], localBP[2]
	}

	s.score, s.bpArr, s.entry, s.entBP = nextScore, nextBP, nextEntry, nextEntBP

	best := negInf
	for i := 0; i < n; i++ {
		ps := math.Max(s.score[i][0], math.Max(s.score[i][1], s.score[i][2]))
		if ps > best {
			best = ps
		}
	}
	s.bestScore = math.Max(best, bg)

	if n == 0 {
		return
	}
	lead := s.score[n-1][2] - bg
	if s.armed && lead >= s.cfg.Threshold {
		s.bpTable.Append(bp.Entry{
			Frame:       s.frame,
			Word:        s.lastWord,
			Predecessor: bp.NoPredecessor,
			Score:       s.score[n-1][2],
			StartFrame:  s.entry[n-1],
		})
		s.armed = false
	} else if lead < s.cfg.Threshold {
		s.armed = true
	}
}

func (s *Search) BestScore() float64 { return s.bestScore }

// FinishUtt builds a lattice from the detections recorded during Step. Each
// detection is its own disconnected node (spotting produces independent
// hits, not a chained path). Every detection is recorded under the
// keyphrase's last word, which is passed as endWord, so the final node is
// the highest-scoring detection.
func (s *Search) FinishUtt() (*lattice.Graph, *lattice.Potentials) {
	g := lattice.Build(s.bpTable, s.dict, s.lastWord)
	lattice.MarkReachability(g)
	pot := lattice.BestPath(g, lm.Uniform, 0, 1)
	return g, pot
}
