package frontend

import "math"

// noiseRemover implements the optional per-frame, per-mel-band noise
// tracking and suppression of spec.md §4.1 ("Noise removal"), grounded on
// the semantics of the original implementation's fe_noise.c (kept as
// original_source reference; not copied — reimplemented against the
// spec's description of the three tracked quantities and the asymmetric
// filters).
type noiseRemover struct {
	nfilt int

	power []float64 // smoothed power P
	noise []float64 // noise floor N
	floor []float64 // signal floor F

	peak []float64 // temporal-masking peak tracker

	initialized bool
}

const (
	noisePowerAttack = 0.7  // fast attack on power
	noisePowerDecay  = 0.2  // slow decay on power
	noiseFloorAttack = 0.02 // slow attack on noise floor
	noiseFloorDecay  = 0.5  // fast decay on noise floor
	noisePeakDecay   = 0.8  // temporal masking peak decay
	maxGain          = 4.0
	minGain          = 1.0 / maxGain
)

func newNoiseRemover(nfilt int) *noiseRemover {
	return &noiseRemover{
		nfilt: nfilt,
		power: make([]float64, nfilt),
		noise: make([]float64, nfilt),
		floor: make([]float64, nfilt),
		peak:  make([]float64, nfilt),
	}
}

func (nr *noiseRemover) reset() {
	nr.initialized = false
}

// process takes the linear-domain mel energies (before log) for one frame
// and returns the denoised energies, applying a clamped, bin-smoothed gain.
// "Undefined until the first frame of an utterance" (spec.md §4.1): the
// first frame initializes all three tracked quantities to its own energy
// and passes through unmodified.
func (nr *noiseRemover) process(melEnergy []float64) []float64 {
	out := make([]float64, nr.nfilt)

	if !nr.initialized {
		copy(nr.power, melEnergy)
		copy(nr.noise, melEnergy)
		copy(nr.floor, melEnergy)
		copy(nr.peak, melEnergy)
		nr.initialized = true
		copy(out, melEnergy)
		return out
	}

	rawGain := make([]float64, nr.nfilt)
	for i, e := range melEnergy {
		// Asymmetric exponential filter on power: fast attack, slow decay.
		if e > nr.power[i] {
			nr.power[i] += noisePowerAttack * (e - nr.power[i])
		} else {
			nr.power[i] += noisePowerDecay * (e - nr.power[i])
		}

		// Noise floor: slow attack, fast decay (tracks the quiet baseline).
		if nr.power[i] > nr.noise[i] {
			nr.noise[i] += noiseFloorAttack * (nr.power[i] - nr.noise[i])
		} else {
			nr.noise[i] += noiseFloorDecay * (nr.power[i] - nr.noise[i])
		}

		// Signal floor tracks the noise floor but is damped further to
		// resist momentary dips.
		nr.floor[i] += noiseFloorAttack * (nr.noise[i] - nr.floor[i])

		// Temporal-masking peak tracker suppresses short spikes: the peak
		// decays slowly, and the effective "signal" used for the gain is
		// the max of current power and decayed peak.
		if nr.power[i] > nr.peak[i] {
			nr.peak[i] = nr.power[i]
		} else {
			nr.peak[i] *= noisePeakDecay
		}
		signal := math.Max(nr.power[i]-nr.floor[i], nr.peak[i]-nr.floor[i])
		if signal <= 0 {
			signal = 1e-8
		}

		denom := nr.power[i]
		if denom <= 0 {
			denom = 1e-8
		}
		g := signal / denom
		g = math.Min(math.Max(g, minGain), maxGain)
		rawGain[i] = g
	}

	// Smooth gain across adjacent mel bins.
	for i := range out {
		g := rawGain[i]
		if i > 0 {
			g = 0.5*g + 0.25*rawGain[i-1]
		}
		if i < nr.nfilt-1 {
			g = 0.75*g + 0.25*rawGain[i+1]
		}
		out[i] = melEnergy[i] * g
	}
	return out
}
