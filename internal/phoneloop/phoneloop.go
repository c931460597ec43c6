// Package phoneloop implements the phoneme-loop prefilter of spec.md §4.3:
// a fully connected CI-phone loop HMM run with a narrow beam, whose job is
// purely to narrow the set of senones fwdtree bothers activating.
package phoneloop

import (
	"math"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/acmodel"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

// DefaultWindow and DefaultBeam match spec.md §4.3's defaults ("window 5-6
// frames, beam 1e-10").
const (
	DefaultWindow = 5
	DefaultBeam   = 1e-10 // natural-log-domain: ln(1e-10) is the actual beam
)

// ciState is one CI phone's live 3-state HMM in the loop.
type ciState struct {
	phone  model.CIPhoneID
	ssid   model.SSID
	scores [3]float64
	exit   float64 // this frame's state-2 exit score, feeds every phone's state 0 next frame
	active bool
}

// PhoneLoop runs the fully connected loop search and maintains a sliding
// window of per-frame "allowed CI phones" sets.
type PhoneLoop struct {
	mdef   model.MdefTable
	scorer *acmodel.Scorer

	beamLn float64 // natural-log beam width (negative)
	window int

	states []ciState

	// history[i] is the allowed-phone set for frame (current - i), i in
	// [0, window). history[0] is always the most recently computed frame.
	history []map[model.CIPhoneID]bool

	frameIdx int
}

// New constructs a PhoneLoop over every CI phone in mdef.
func New(mdef model.MdefTable, scorer *acmodel.Scorer, window int, beam float64) *PhoneLoop {
	if window <= 0 {
		window = DefaultWindow
	}
	if beam <= 0 || beam >= 1 {
		beam = DefaultBeam
	}
	pl := &PhoneLoop{
		mdef:   mdef,
		scorer: scorer,
		beamLn: math.Log(beam),
		window: window,
	}
	for p := 0; p < mdef.NumCIPhones(); p++ {
		ssid := mdef.LookupCI(model.CIPhoneID(p))
		pl.states = append(pl.states, ciState{phone: model.CIPhoneID(p), ssid: ssid})
	}
	return pl
}

// StartUtt resets the loop to its initial state: every CI phone's first HMM
// state active with score 0, window history cleared.
func (pl *PhoneLoop) StartUtt() {
	for i := range pl.states {
		pl.states[i].scores = [3]float64{0, math.Inf(-1), math.Inf(-1)}
		pl.states[i].active = true
	}
	pl.history = nil
	pl.frameIdx = 0
}

// ActivateSenones marks, on active, every senone this frame's live CI HMMs
// need scored — called before the AM evaluates the frame, so the phone
// loop's needs are OR-unioned into the shared active set (spec.md §4.2
// "Active set... also unions the PL prefilter's set").
func (pl *PhoneLoop) ActivateSenones(active *acmodel.ActiveSet) {
	for _, st := range pl.states {
		if st.active {
			active.ActivateSenones(pl.mdef, st.ssid)
		}
	}
}

// Step advances the loop by one frame given that frame's senone scores
// (already computed by the shared AM scorer), updating the allowed-phone
// window.
func (pl *PhoneLoop) Step(scores []float64) {
	next := make([]ciState, len(pl.states))
	copy(next, pl.states)

	// Within-phone Viterbi step: each phone's own 3-state HMM, fed by its
	// own previous-frame scores (the cross-phone loop transition is applied
	// below, once every phone's exit score for this frame is known).
	for i := range pl.states {
		senones := pl.mdef.Senones(pl.states[i].ssid)
		var obs [3]float64
		for s := 0; s < 3 && s < len(senones); s++ {
			obs[s] = scores[senones[s]]
		}

		next[i].scores[0] = pl.states[i].scores[0] + obs[0]
		next[i].scores[1] = math.Max(pl.states[i].scores[0], pl.states[i].scores[1]) + obs[1]
		next[i].scores[2] = math.Max(pl.states[i].scores[1], pl.states[i].scores[2]) + obs[2]
		next[i].exit = next[i].scores[2]
	}

	// Fully connected loop transition: every phone's exit feeds every other
	// phone's state 0 for the NEXT step. We fold that into state 0 now so
	// the following Step call sees it as the prior frame's score.
	loopBest := math.Inf(-1)
	for i := range next {
		if next[i].exit > loopBest {
			loopBest = next[i].exit
		}
	}
	for i := range next {
		if loopBest > next[i].scores[0] {
			next[i].scores[0] = loopBest
		}
	}

	pl.states = next

	// Prune and record the allowed set for this frame: every phone whose
	// best state score is within beamLn of the frame's best.
	best := math.Inf(-1)
	for i := range pl.states {
		ps := math.Max(pl.states[i].scores[0], math.Max(pl.states[i].scores[1], pl.states[i].scores[2]))
		if ps > best {
			best = ps
		}
	}
	allowed := make(map[model.CIPhoneID]bool)
	for i := range pl.states {
		s := pl.states[i]
		ps := math.Max(s.scores[0], math.Max(s.scores[1], s.scores[2]))
		if ps >= best+pl.beamLn {
			pl.states[i].active = true
			allowed[s.phone] = true
		} else {
			pl.states[i].active = false
		}
	}

	pl.history = append([]map[model.CIPhoneID]bool{allowed}, pl.history...)
	if len(pl.history) > pl.window {
		pl.history = pl.history[:pl.window]
	}
	pl.frameIdx++
}

// Allowed returns the union of allowed CI phones across the lookahead
// window (spec.md §4.3: "fwdtree search activates only HMMs whose base
// phone is in the union of this set across the lookahead window").
func (pl *PhoneLoop) Allowed() map[model.CIPhoneID]bool {
	out := make(map[model.CIPhoneID]bool)
	for _, set := range pl.history {
		for p := range set {
			out[p] = true
		}
	}
	return out
}
