package frontend

import (
	"math"
	"math/rand"
)

// deltaWindow is the regression half-window used for delta/delta-delta
// computation (spec.md §3: "39 floats total after dynamic-feature
// computation").
const deltaWindow = 2

// Frame is one immutable feature frame (spec.md §3 `F`): ncep static
// cepstra plus their first and second time derivatives. Index is the
// frame's position in the utterance, starting at 0.
type Frame struct {
	Index  int
	Static []float64
	Delta  []float64
	Delta2 []float64
}

// Vector concatenates Static, Delta and Delta2 into one dense feature
// vector, the representation the acoustic model consumes.
func (f Frame) Vector() []float64 {
	n := len(f.Static)
	v := make([]float64, 3*n)
	copy(v[0:n], f.Static)
	copy(v[n:2*n], f.Delta)
	copy(v[2*n:3*n], f.Delta2)
	return v
}

// FrontEnd converts PCM samples into a stream of [Frame]s, per spec.md §4.1.
// It is stateful across Process calls within one utterance; StartUtt resets
// all state.
type FrontEnd struct {
	cfg Config

	fb  *melFilterbank
	dct *dctTable
	nr  *noiseRemover
	cm  *cmn

	frameSize  int
	frameShift int

	// Sample-domain overflow buffer, carried across Process calls.
	overflow []float64

	// Pre-emphasis history: the last raw sample of the previous frame.
	preemphPrev float64

	rng *rand.Rand

	// Dynamic-feature pipeline: static cepstra pending delta computation,
	// and the running frame index.
	pending   []staticFrame
	nextIndex int
}

type staticFrame struct {
	cep []float64
}

// New constructs a FrontEnd, validating cfg per spec.md §4.1/§7.
func New(cfg Config) (*FrontEnd, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fe := &FrontEnd{
		cfg:        cfg,
		fb:         buildMelFilterbank(cfg),
		dct:        buildDCTTable(cfg.DCT, cfg.NumFilters, cfg.NumCepstra),
		frameSize:  cfg.FrameSize(),
		frameShift: cfg.FrameShift(),
	}
	if cfg.RemoveNoise {
		fe.nr = newNoiseRemover(cfg.NumFilters)
	}
	if cfg.CMN {
		fe.cm = newCMN(cfg.NumCepstra, cfg.CMNInitMean)
	}
	fe.StartUtt()
	return fe, nil
}

// StartUtt resets overflow, pre-emphasis history, the dither seed and the
// dynamic-feature pipeline (spec.md §4.1 "start_utt()"). It intentionally
// does NOT reset the CMN running mean, matching spec.md §5's carve-out that
// CMN is the one piece of state a caller may choose to let survive an
// utterance boundary; callers that want a fresh CMN call ResetCMN too.
func (fe *FrontEnd) StartUtt() {
	fe.overflow = fe.overflow[:0]
	fe.preemphPrev = 0
	fe.rng = rand.New(rand.NewSource(fe.cfg.DitherSeed))
	if fe.nr != nil {
		fe.nr.reset()
	}
	fe.pending = nil
	fe.nextIndex = 0
}

// ResetCMN reinitializes the running cepstral mean to its configured
// initial value.
func (fe *FrontEnd) ResetCMN() {
	if fe.cm != nil {
		fe.cm = newCMN(fe.cfg.NumCepstra, fe.cfg.CMNInitMean)
	}
}

// CMNMean returns a stable snapshot of the current running CMN mean, or nil
// if CMN is disabled.
func (fe *FrontEnd) CMNMean() []float64 {
	if fe.cm == nil {
		return nil
	}
	return fe.cm.Mean()
}

// SetCMNMean seeds the running CMN mean, e.g. to carry it across an
// utterance boundary explicitly.
func (fe *FrontEnd) SetCMNMean(mean []float64) {
	if fe.cm != nil {
		fe.cm.SetMean(mean)
	}
}

// Process converts samples into zero or more ready [Frame]s and reports how
// many input samples were consumed (always len(samples): short input simply
// produces zero frames and is buffered, per spec.md §4.1 "Runtime: never
// fails; short input produces zero frames").
func (fe *FrontEnd) Process(samples []int16) ([]Frame, int) {
	buf := make([]float64, len(fe.overflow)+len(samples))
	copy(buf, fe.overflow)
	for i, s := range samples {
		buf[len(fe.overflow)+i] = float64(s)
	}

	var newStatic []staticFrame
	pos := 0
	for pos+fe.frameSize <= len(buf) {
		newStatic = append(newStatic, fe.computeStaticFrame(buf[pos:pos+fe.frameSize]))
		pos += fe.frameShift
	}

	fe.overflow = append(fe.overflow[:0], buf[pos:]...)

	fe.pending = append(fe.pending, newStatic...)
	return fe.drainReady(false), len(samples)
}

// EndUtt flushes the overflow buffer (zero-padded if it holds at least one
// shift beyond the last produced frame) and all pending dynamic-feature
// frames, per spec.md §4.1 "At end_utt, ... emitted as a final frame."
func (fe *FrontEnd) EndUtt() []Frame {
	if len(fe.overflow) >= fe.frameShift {
		padded := make([]float64, fe.frameSize)
		copy(padded, fe.overflow)
		fe.pending = append(fe.pending, fe.computeStaticFrame(padded))
		fe.overflow = fe.overflow[:0]
	}
	return fe.drainReady(true)
}

// computeStaticFrame runs one frame's worth of samples through the
// per-frame pipeline of spec.md §4.1 steps (1)-(8), returning its static
// cepstra (pre-delta, pre-CMN will be applied once the frame is emitted).
func (fe *FrontEnd) computeStaticFrame(samples []float64) staticFrame {
	// (1) Pre-emphasis, carrying the prior sample across frames/calls.
	pre := make([]float64, len(samples))
	prev := fe.preemphPrev
	for i, x := range samples {
		pre[i] = x - fe.cfg.PreemphasisAlpha*prev
		prev = x
	}
	fe.preemphPrev = prev

	// (2) Optional dither.
	if fe.cfg.Dither {
		for i := range pre {
			if fe.rng.Intn(2) == 0 {
				pre[i] += 1
			} else {
				pre[i] -= 1
			}
		}
	}

	// (3) Window.
	win := windowCoefficients(fe.cfg.Window, len(pre))
	for i := range pre {
		pre[i] *= win[i]
	}

	// (4)-(5) FFT + magnitude-squared spectrum.
	padded := make([]float64, fe.cfg.FFTSize)
	copy(padded, pre)
	powerSpec := realFFTMagSq(padded, fe.cfg.FFTSize)

	// (6) Mel filterbank, linear-domain energies only; the log is taken
	// below in every case, after the optional noise removal, which needs
	// linear energies for its gain computation.
	linearMel := fe.fb.applyLinear(powerSpec)

	// Optional noise removal, operating on linear mel energies.
	if fe.nr != nil {
		linearMel = fe.nr.process(linearMel)
	}

	// (7) log.
	logMel := make([]float64, len(linearMel))
	for i, v := range linearMel {
		if v < 1e-8 {
			v = 1e-8
		}
		logMel[i] = math.Log(v)
	}

	// (8) DCT.
	cep := fe.dct.apply(logMel)

	return staticFrame{cep: cep}
}

// drainReady computes delta/delta-delta features for every pending static
// frame that now has enough surrounding context, emitting them as [Frame]s.
// When final is true (EndUtt), remaining frames are drained with their
// regression window clamped at the utterance boundary instead of waiting
// for more context that will never arrive.
func (fe *FrontEnd) drainReady(final bool) []Frame {
	var out []Frame

	if final {
		// Every remaining frame gets clamped context instead of waiting for
		// future frames that will never arrive.
		for i := range fe.pending {
			out = append(out, fe.buildFrame(i))
		}
		fe.nextIndex += len(fe.pending)
		fe.pending = nil
		return out
	}

	ready := 0
	for ready < len(fe.pending) && ready+deltaWindow < len(fe.pending) {
		ready++
	}
	for i := 0; i < ready; i++ {
		out = append(out, fe.buildFrame(i))
	}
	fe.pending = fe.pending[ready:]
	fe.nextIndex += ready
	return out
}

func (fe *FrontEnd) buildFrame(i int) Frame {
	ncep := fe.cfg.NumCepstra
	static := append([]float64(nil), fe.pending[i].cep...)

	delta := make([]float64, ncep)
	delta2 := make([]float64, ncep)

	get := func(offset int) []float64 {
		idx := i + offset
		if idx < 0 {
			idx = 0
		}
		if idx >= len(fe.pending) {
			idx = len(fe.pending) - 1
		}
		return fe.pending[idx].cep
	}

	// First derivative: standard regression-style delta over +-deltaWindow.
	var denom float64
	for k := 1; k <= deltaWindow; k++ {
		denom += float64(2 * k * k)
	}
	for c := 0; c < ncep; c++ {
		sum := 0.0
		for k := 1; k <= deltaWindow; k++ {
			sum += float64(k) * (get(k)[c] - get(-k)[c])
		}
		delta[c] = sum / denom
	}

	// Second derivative: simple second difference of the static cepstra at
	// +deltaWindow, 0 and -deltaWindow, divided by deltaWindow squared.
	for c := 0; c < ncep; c++ {
		d2 := get(deltaWindow)[c] - 2*get(0)[c] + get(-deltaWindow)[c]
		delta2[c] = d2 / float64(deltaWindow*deltaWindow)
	}

	if fe.cm != nil {
		fe.cm.update(static)
	}

	return Frame{
		Index:  fe.nextIndex + i,
		Static: static,
		Delta:  delta,
		Delta2: delta2,
	}
}
