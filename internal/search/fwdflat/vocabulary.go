package fwdflat

import (
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
)

// BuildWindowWords scans a completed fwdtree pass's backpointer table and
// returns, for every frame, the set of words whose fwdtree span came within
// window frames of it (spec.md §4.5: "restricted to words seen within a
// rolling window of each frame"). The flat pass only ever instantiates
// words this function names for a given frame, keeping its unshared HMM
// chains from blowing up to the full vocabulary.
func BuildWindowWords(source *bp.Table, window int) map[int][]model.WordID {
	active := make(map[int]map[model.WordID]bool)
	mark := func(frame int, w model.WordID) {
		if frame < 0 {
			return
		}
		set := active[frame]
		if set == nil {
			set = make(map[model.WordID]bool)
			active[frame] = set
		}
		set[w] = true
	}

	n := source.Len()
	for i := 0; i < n; i++ {
		e := source.Get(bp.Index(i))
		for f := e.StartFrame - window; f <= e.Frame+window; f++ {
			mark(f, e.Word)
		}
	}

	out := make(map[int][]model.WordID, len(active))
	for f, set := range active {
		words := make([]model.WordID, 0, len(set))
		for w := range set {
			words = append(words, w)
		}
		out[f] = words
	}
	return out
}
