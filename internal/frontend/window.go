package frontend

import "math"

// windowCoefficients returns the multiplicative window shape for size
// samples, matching spec.md §4.1's Hamming default (and the Hann/rectangular
// variants used elsewhere in the design for filter shaping).
func windowCoefficients(kind WindowKind, size int) []float64 {
	w := make([]float64, size)
	switch kind {
	case WindowHann:
		for i := range w {
			w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
		}
	case WindowRectangular:
		for i := range w {
			w[i] = 1.0
		}
	case WindowHamming:
		fallthrough
	default:
		for i := range w {
			w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(size-1))
		}
	}
	return w
}
