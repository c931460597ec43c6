// Package fsg implements finite-state-grammar search (spec.md §4.9.E,
// scenario 2: "FSG file constraining to a small grammar"). It runs the
// same flat, unshared-per-occurrence HMM chain Viterbi as
// internal/search/fwdflat, grounded directly on that package's hmm.go and
// search.go, but candidate words at each frame come from a grammar's
// outgoing arcs instead of a rolling time window, and the resulting
// backpointer chain tracks which grammar state each word exit reached.
package fsg

import "github.com/cmusphinx/pocketsphinx-sub004/internal/model"

// State indexes into a Grammar's state set.
type State int32

// Arc is one grammar transition: consuming Word (or nothing, if Word is
// [model.NoWord], an epsilon arc) and moving to To with log-probability
// LogProb.
type Arc struct {
	To      State
	Word    model.WordID
	LogProb float64 // natural-log, <= 0
}

// Grammar is a small finite-state acceptor: spec.md §4.9.E's constrained
// alternative to the n-gram lexicon tree.
type Grammar struct {
	NumStates int
	Start     State
	Final     State
	out       map[State][]Arc
}

// NewGrammar constructs an empty grammar with numStates states.
func NewGrammar(numStates int, start, final State) *Grammar {
	return &Grammar{NumStates: numStates, Start: start, Final: final, out: make(map[State][]Arc)}
}

// AddArc adds a transition from "from" to a.To.
func (g *Grammar) AddArc(from State, a Arc) {
	g.out[from] = append(g.out[from], a)
}

// OutArcs returns s's outgoing arcs.
func (g *Grammar) OutArcs(s State) []Arc {
	return g.out[s]
}

// wordArcs resolves the (word, toState) pairs reachable from s, transparently
// following epsilon arcs (Word == model.NoWord) any number of hops, summing
// their log-probabilities into the returned arc's LogProb. visited guards
// against an epsilon cycle.
func (g *Grammar) wordArcs(s State, carry float64, visited map[State]bool, out *[]Arc) {
	if visited[s] {
		return
	}
	visited[s] = true
	for _, a := range g.out[s] {
		if a.Word == model.NoWord {
			g.wordArcs(a.To, carry+a.LogProb, visited, out)
			continue
		}
		*out = append(*out, Arc{To: a.To, Word: a.Word, LogProb: carry + a.LogProb})
	}
}

// WordArcs returns every (word, toState) transition reachable from s,
// transparently collapsing epsilon arcs.
func (g *Grammar) WordArcs(s State) []Arc {
	var out []Arc
	g.wordArcs(s, 0, make(map[State]bool), &out)
	return out
}
