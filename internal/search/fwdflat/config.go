// Package fwdflat implements the flat-lexicon rescoring pass of spec.md
// §4.5: built from the fwdtree backpointer table, restricted to words seen
// within a rolling window of each frame, with a fresh (unshared) HMM chain
// per word occurrence and full-trigram language scoring at word
// transitions.
package fwdflat

import "math"

// Config holds fwdflat's independent beams and penalties (spec.md §4.5:
// "Beams (fwdflat_beam, fwdflat_word_beam) are independent", §6's
// `fwdflatbeam`/`fwdflatwbeam` flags).
type Config struct {
	Beam     float64 // natural-log, negative
	WordBeam float64

	Window int // fwdflat_window: how many frames around a word's fwdtree span make it a candidate

	LanguageWeight        float64
	WordInsertionPenalty  float64
	PhoneInsertionPenalty float64
}

// DefaultConfig mirrors spec.md §6's defaults in spirit.
func DefaultConfig() Config {
	return Config{
		Beam:                 ln(1e-64),
		WordBeam:             ln(1e-20),
		Window:               50,
		LanguageWeight:       9.5,
		WordInsertionPenalty: ln(0.65),
	}
}

var negInf = math.Inf(-1)

func ln(x float64) float64 {
	if x <= 0 {
		return negInf
	}
	return math.Log(x)
}
