package frontend

import "math"

// melFilterbank holds the precomputed triangular mel filters applied to the
// power spectrum (spec.md §4.1 step 6).
type melFilterbank struct {
	numFilters int
	fftSize    int
	sampleRate float64

	// For each filter, the inclusive [startBin, endBin] range and the
	// per-bin triangular weight.
	startBin []int
	weights  [][]float64
}

// hzToMel and melToHz implement the standard mel scale.
func hzToMel(f float64) float64 { return 2595 * math.Log10(1+f/700) }
func melToHz(m float64) float64 { return 700 * (math.Pow(10, m/2595) - 1) }

// buildMelFilterbank constructs the filterbank for the given config. Filter
// edges are computed in mel space after composing the configured frequency
// warp, then converted to fractional DFT bin positions; each filter covers
// the whole bins that lie between its edges. See DESIGN.md for the resolved
// "double-bandwidth" open question: doubling widens the filter support and
// unit-area normalization (if enabled) is reapplied after widening, keeping
// each filter's integrated area constant regardless of doublewide.
func buildMelFilterbank(c Config) *melFilterbank {
	nyquist := c.SampleRate / 2
	warpParams, _ := c.clampWarpParams()

	lower := warpFreq(c.Warp, warpParams, c.LowerFreq, nyquist)
	upper := warpFreq(c.Warp, warpParams, c.UpperFreq, nyquist)

	melLower := hzToMel(lower)
	melUpper := hzToMel(upper)

	nfilt := c.NumFilters
	melStep := (melUpper - melLower) / float64(nfilt+1)

	// nfilt+2 edge points in mel space, converted back to Hz, then to DFT
	// bin indices ("filter edges may be snapped to DFT bins").
	binOf := func(freq float64) float64 {
		return freq * float64(c.FFTSize) / c.SampleRate
	}

	edges := make([]float64, nfilt+2)
	for i := range edges {
		edges[i] = binOf(melToHz(melLower + float64(i)*melStep))
	}

	widthMul := 1.0
	if c.DoubleWide {
		widthMul = 2.0
	}

	fb := &melFilterbank{
		numFilters: nfilt,
		fftSize:    c.FFTSize,
		sampleRate: c.SampleRate,
		startBin:   make([]int, nfilt),
		weights:    make([][]float64, nfilt),
	}

	maxBin := c.FFTSize/2 + 1
	for i := 0; i < nfilt; i++ {
		left := edges[i]
		center := edges[i+1]
		right := edges[i+2]

		if widthMul != 1.0 {
			half := (right - left) / 2 * widthMul
			c0 := (left + right) / 2
			left = c0 - half
			right = c0 + half
		}

		startBin := int(math.Ceil(left))
		if startBin < 0 {
			startBin = 0
		}
		endBin := int(math.Floor(right))
		if endBin >= maxBin {
			endBin = maxBin - 1
		}
		if endBin < startBin {
			endBin = startBin
		}

		w := make([]float64, endBin-startBin+1)
		area := 0.0
		for b := startBin; b <= endBin; b++ {
			fb_ := float64(b)
			var val float64
			if fb_ <= center {
				if center > left {
					val = (fb_ - left) / (center - left)
				}
			} else {
				if right > center {
					val = (right - fb_) / (right - center)
				}
			}
			if val < 0 {
				val = 0
			}
			w[b-startBin] = val
			area += val
		}

		if c.UnitArea && area > 0 {
			for j := range w {
				w[j] /= area
			}
		}

		fb.startBin[i] = startBin
		fb.weights[i] = w
	}

	return fb
}

// applyLinear sums the power spectrum through each triangular filter,
// producing nfilt linear-domain energies (spec.md §4.1 step 6). The log
// (step 7) is applied separately, after any noise removal, since noise
// removal operates on linear energies.
func (fb *melFilterbank) applyLinear(powerSpectrum []float64) []float64 {
	out := make([]float64, fb.numFilters)
	const floor = 1e-8
	for i := 0; i < fb.numFilters; i++ {
		sum := 0.0
		w := fb.weights[i]
		start := fb.startBin[i]
		for j, wt := range w {
			sum += wt * powerSpectrum[start+j]
		}
		if sum < floor {
			sum = floor
		}
		out[i] = sum
	}
	return out
}

// apply is applyLinear followed immediately by the log step, for callers
// that have noise removal disabled and want both steps in one call.
func (fb *melFilterbank) apply(powerSpectrum []float64) []float64 {
	out := fb.applyLinear(powerSpectrum)
	for i, v := range out {
		out[i] = math.Log(v)
	}
	return out
}
