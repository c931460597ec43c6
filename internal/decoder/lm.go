package decoder

import (
	"sync/atomic"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

// reloadableLM is the lm.Model every search pass is constructed against. It
// forwards every call to whatever model is currently stored in ptr, so
// internal/modelreload can swap the active language model by storing into
// the same pointer between utterances without the search passes needing to
// be rebuilt (spec.md §9's "inject a LogMath handle" note generalizes to
// every swappable model table; SPEC_FULL.md §5.E names this exact
// atomic.Pointer[lm.Model] swap).
type reloadableLM struct {
	ptr *atomic.Pointer[lm.Model]
}

func newReloadableLM(initial lm.Model) *reloadableLM {
	ptr := &atomic.Pointer[lm.Model]{}
	ptr.Store(&initial)
	return &reloadableLM{ptr: ptr}
}

func (r *reloadableLM) current() lm.Model { return *r.ptr.Load() }

func (r *reloadableLM) Score(word model.WordID, history lm.History) float64 {
	return r.current().Score(word, history)
}

func (r *reloadableLM) NUsed(word model.WordID, history lm.History) int {
	return r.current().NUsed(word, history)
}

func (r *reloadableLM) MaxOrder() int { return r.current().MaxOrder() }
