package frontend

import "math"

// realFFTMagSq computes the one-sided magnitude-squared spectrum of a
// zero-padded real input of length n (a power of two), returning n/2+1
// bins (spec.md §4.1 steps 4–5: "real FFT of configurable size", "magnitude
// squared spectrum").
//
// This is a small from-scratch iterative radix-2 Cooley-Tukey FFT: the
// front-end's DSP math is in-scope original logic (spec.md §2, FE is 12% of
// the core), not a model-file-parsing concern, so it is implemented here
// rather than imported.
func realFFTMagSq(samples []float64, n int) []float64 {
	re := make([]float64, n)
	im := make([]float64, n)
	copy(re, samples)

	fftInPlace(re, im)

	out := make([]float64, n/2+1)
	for k := 0; k <= n/2; k++ {
		out[k] = re[k]*re[k] + im[k]*im[k]
	}
	return out
}

// fftInPlace performs an iterative, in-place radix-2 decimation-in-time FFT
// on (re, im), which must have a power-of-two length.
func fftInPlace(re, im []float64) {
	n := len(re)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j &^= bit
		}
		j |= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wlRe, wlIm := math.Cos(ang), math.Sin(ang)
		for i := 0; i < n; i += length {
			wRe, wIm := 1.0, 0.0
			half := length / 2
			for j := 0; j < half; j++ {
				uRe, uIm := re[i+j], im[i+j]
				vRe := re[i+j+half]*wRe - im[i+j+half]*wIm
				vIm := re[i+j+half]*wIm + im[i+j+half]*wRe

				re[i+j] = uRe + vRe
				im[i+j] = uIm + vIm
				re[i+j+half] = uRe - vRe
				im[i+j+half] = uIm - vIm

				nwRe := wRe*wlRe - wIm*wlIm
				nwIm := wRe*wlIm + wIm*wlRe
				wRe, wIm = nwRe, nwIm
			}
		}
	}
}
