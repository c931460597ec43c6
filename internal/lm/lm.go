// Package lm defines the n-gram language-model contract (spec.md §3's `G`)
// that the search passes consult. The ARPA-text and proprietary-binary
// readers that populate a [Model] are out of scope (spec.md §1); the core
// only ever calls the opaque scoring API, exactly as the teacher's
// pkg/provider/llm package only calls a [llm.Provider]'s Generate method
// without knowing which backend implements it.
package lm

import "github.com/cmusphinx/pocketsphinx-sub004/internal/model"

// History is an ordered, most-recent-first list of preceding word ids,
// as consulted at a word transition. Search passes build it by walking the
// backpointer chain (spec.md §4.4/§4.5); it is never longer than the model's
// max order minus one.
type History []model.WordID

// Uniform is a [Model] that scores every word identically: the null
// language model a grammar-, threshold-, or known-text-driven search mode
// (fsg, keyword, align) passes to the shared lattice/best-path machinery
// in place of a real n-gram, since those modes already constrain the word
// sequence some other way and have nothing for a statistical LM to add.
var Uniform Model = uniformModel{}

type uniformModel struct{}

func (uniformModel) Score(model.WordID, History) float64 { return 0 }
func (uniformModel) NUsed(model.WordID, History) int     { return 0 }
func (uniformModel) MaxOrder() int                       { return 0 }

// Model is the n-gram scorer contract. Implementations may be backed by an
// ARPA text table, a proprietary binary table, or (in tests) a fixed map;
// the core treats it as a pure function of (word, history) and never
// inspects its internals. A reload swaps the active *Model the caller holds
// atomically between utterances (spec.md §3 "Ownership", §5 "the only
// cross-utterance carry is ... loaded models").
type Model interface {
	// Score returns the log10 probability of word given history, in the
	// model's native log base. Order is determined by how much of history
	// the model actually has data for; NUsed reports how much was used.
	Score(word model.WordID, history History) float64

	// NUsed reports the back-off order actually applied for the most
	// recent Score call's (word, history) pair: 1 for unigram, 2 for
	// bigram, 3 for trigram, etc. Search passes use this only for
	// diagnostics; it must not affect scoring decisions made before the
	// call.
	NUsed(word model.WordID, history History) int

	// MaxOrder returns the highest n-gram order the model carries data for
	// (2 for bigram-only models, 3 for trigram, ...). fwdtree only ever
	// needs bigram context; fwdflat needs the full order (spec.md §4.4,
	// §4.5).
	MaxOrder() int
}

// FixedModel is a simple in-memory [Model] keyed by (word, up-to-2
// predecessors) used by tests and small fixtures. Unseen n-grams back off to
// a configurable unigram floor.
type FixedModel struct {
	unigram   map[model.WordID]float64
	bigram    map[[2]model.WordID]float64
	trigram   map[[3]model.WordID]float64
	floor     float64
	lastNUsed int
}

// NewFixedModel creates an empty trigram-capable fixture model. floor is the
// log10 probability assigned to any word with no unigram entry.
func NewFixedModel(floor float64) *FixedModel {
	return &FixedModel{
		unigram: make(map[model.WordID]float64),
		bigram:  make(map[[2]model.WordID]float64),
		trigram: make(map[[3]model.WordID]float64),
		floor:   floor,
	}
}

func (f *FixedModel) SetUnigram(w model.WordID, logProb float64) { f.unigram[w] = logProb }

func (f *FixedModel) SetBigram(w1, w2 model.WordID, logProb float64) {
	f.bigram[[2]model.WordID{w1, w2}] = logProb
}

func (f *FixedModel) SetTrigram(w1, w2, w3 model.WordID, logProb float64) {
	f.trigram[[3]model.WordID{w1, w2, w3}] = logProb
}

func (f *FixedModel) Score(word model.WordID, history History) float64 {
	n, score := f.score(word, history)
	f.lastNUsed = n
	return score
}

func (f *FixedModel) score(word model.WordID, history History) (int, float64) {
	if len(history) >= 2 {
		key := [3]model.WordID{history[1], history[0], word}
		if v, ok := f.trigram[key]; ok {
			return 3, v
		}
	}
	if len(history) >= 1 {
		key := [2]model.WordID{history[0], word}
		if v, ok := f.bigram[key]; ok {
			return 2, v
		}
	}
	if v, ok := f.unigram[word]; ok {
		return 1, v
	}
	return 0, f.floor
}

func (f *FixedModel) NUsed(word model.WordID, history History) int {
	n, _ := f.score(word, history)
	return n
}

func (f *FixedModel) MaxOrder() int { return 3 }
