// Package search defines the capability trait every recognition-search mode
// implements (spec.md §9's "search.Search is the capability trait"): the
// n-gram fwdtree+fwdflat pipeline, FSG, keyword spotting, allphone and
// forced alignment all satisfy it, sharing the same backpointer table and
// post-hoc lattice machinery underneath.
package search

import "github.com/cmusphinx/pocketsphinx-sub004/internal/model"

// ActiveSet is the narrow subset of [acmodel.ActiveSet]'s API a search mode
// needs to declare which senones it wants scored next frame.
type ActiveSet interface {
	ActivateSenones(mdef model.MdefTable, ssid model.SSID)
}

// Search is the per-utterance search-mode contract a [decoder.Decoder]
// drives one frame at a time (spec.md §9: "Search.Step(frameIdx, scores) is
// the explicit, non-coroutine step method").
type Search interface {
	// StartUtt resets the mode's per-utterance state.
	StartUtt()

	// ActivateSenones declares every currently live HMM's senones on active,
	// called before the acoustic model scores the next frame.
	ActivateSenones(active ActiveSet)

	// Step advances the search by one frame given that frame's normalized
	// senone scores.
	Step(frameIdx int, scores []float64)

	// BestScore returns the current frame's best live score, for
	// diagnostics and cross-mode beam comparisons.
	BestScore() float64
}
