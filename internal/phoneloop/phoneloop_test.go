package phoneloop_test

import (
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/phoneloop"
)

const (
	phA model.CIPhoneID = iota
	phB
)

func newLoop(t *testing.T, window int, beam float64) *phoneloop.PhoneLoop {
	t.Helper()
	mdef := model.NewMemMdef([]string{"A", "B"}, 3)
	return phoneloop.New(mdef, nil, window, beam)
}

// scoresFavoring returns a 6-senone score vector (3 for A, 3 for B) with A's
// senones at 0 and B's at penalty (both in the normalized "best senone of
// the frame is 0" domain spec.md §4.2 describes).
func scoresFavoring(penalty float64) []float64 {
	return []float64{0, 0, 0, penalty, penalty, penalty}
}

func TestPhoneLoop_Step_PrunesPhonesBelowBeam(t *testing.T) {
	t.Parallel()
	pl := newLoop(t, phoneloop.DefaultWindow, phoneloop.DefaultBeam)
	pl.StartUtt()

	pl.Step(scoresFavoring(-100))
	allowed := pl.Allowed()

	if !allowed[phA] {
		t.Errorf("Allowed() = %v, want phA present (its score dominates)", allowed)
	}
	if allowed[phB] {
		t.Errorf("Allowed() = %v, want phB pruned (its score is far below the beam)", allowed)
	}
}

func TestPhoneLoop_Step_KeepsBothPhonesWithinBeam(t *testing.T) {
	t.Parallel()
	pl := newLoop(t, phoneloop.DefaultWindow, 0.5) // wide beam: ln(0.5) ~ -0.69
	pl.StartUtt()

	pl.Step(scoresFavoring(-0.1))
	allowed := pl.Allowed()

	if !allowed[phA] || !allowed[phB] {
		t.Errorf("Allowed() = %v, want both phones kept under a wide beam", allowed)
	}
}

func TestPhoneLoop_Allowed_UnionsAcrossWindow(t *testing.T) {
	t.Parallel()
	pl := newLoop(t, 2, phoneloop.DefaultBeam)
	pl.StartUtt()

	pl.Step(scoresFavoring(-100)) // frame 0: only A allowed
	if allowed := pl.Allowed(); !allowed[phA] || allowed[phB] {
		t.Fatalf("frame 0 Allowed() = %v, want only phA", allowed)
	}

	// A second A-favoring step: the union over the window of 2 frames must
	// still contain phA.
	pl.Step(scoresFavoring(-100))
	union := pl.Allowed()
	if !union[phA] {
		t.Errorf("Allowed() after 2 frames = %v, want phA still present (within window=2)", union)
	}
}

func TestPhoneLoop_New_InvalidParamsFallBackToDefaults(t *testing.T) {
	t.Parallel()
	mdef := model.NewMemMdef([]string{"A"}, 3)
	pl := phoneloop.New(mdef, nil, 0, 0)
	pl.StartUtt()
	// Zero window/beam should fall back to DefaultWindow/DefaultBeam rather
	// than leaving the loop unusable.
	pl.Step([]float64{0, 0, 0})
	if allowed := pl.Allowed(); !allowed[phA] {
		t.Errorf("Allowed() = %v, want phA present after a single dominant frame", allowed)
	}
}
