package model

import "math"

// Transitions is the transition-matrix contract referenced by spec.md §3's
// HMM instance ("transition-matrix id") and §4.4's Viterbi step ("the
// transition from the previous state (and optional skip) plus any
// self-loop"). Concrete transition-probability files are out of scope
// (spec.md §1); this pins down the narrow read contract the search passes
// need: a log-probability for every (from-state, to-state) pair the 3-state
// left-to-right-with-skip topology allows.
type Transitions interface {
	// Score returns the log-probability of moving from state `from` to
	// state `to` within the HMM using transition matrix tmatid. Disallowed
	// transitions (e.g. backward moves) return math.Inf(-1).
	Score(tmatid int32, from, to int) float64

	// NumStates returns the number of emitting states per HMM under this
	// transition-matrix set (3 or 5, spec.md §3).
	NumStates() int
}

// MemTransitions is a small in-memory Transitions fixture: every tmatid
// shares one fixed left-to-right-with-skip topology with configurable
// self-loop/forward/skip probabilities.
type MemTransitions struct {
	numStates  int
	selfLoop   float64
	forward    float64
	skip       float64
	hasSkip    bool
}

// NewMemTransitions3 builds the standard 3-state left-to-right topology
// with an optional skip transition from state 0 to state 2.
func NewMemTransitions3(selfLoopLn, forwardLn, skipLn float64, allowSkip bool) *MemTransitions {
	return &MemTransitions{
		numStates: 3,
		selfLoop:  selfLoopLn,
		forward:   forwardLn,
		skip:      skipLn,
		hasSkip:   allowSkip,
	}
}

func (t *MemTransitions) NumStates() int { return t.numStates }

func (t *MemTransitions) Score(tmatid int32, from, to int) float64 {
	switch {
	case from == to:
		return t.selfLoop
	case to == from+1:
		return t.forward
	case t.hasSkip && from == 0 && to == 2 && t.numStates == 3:
		return t.skip
	default:
		return negInf
	}
}

var negInf = math.Inf(-1)
