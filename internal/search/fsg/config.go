package fsg

import "math"

// Config holds the flat-chain pruning beams spec.md §4.9.E carries over
// from fwdflat (the grammar plays the lexicon-restriction role a rolling
// time window plays there).
type Config struct {
	Beam                  float64 // natural-log, negative
	WordBeam              float64
	WordInsertionPenalty  float64
	PhoneInsertionPenalty float64
}

// DefaultConfig mirrors fwdflat.DefaultConfig's beam values.
func DefaultConfig() Config {
	return Config{
		Beam:                 math.Log(1e-64),
		WordBeam:             math.Log(1e-20),
		WordInsertionPenalty: math.Log(0.65),
	}
}
