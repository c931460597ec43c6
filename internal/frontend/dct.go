package frontend

import "math"

// dctTable precomputes the cosine basis for one of the three DCT variants
// spec.md §4.1 names ("legacy", "dct-II", "htk"), each with slightly
// different normalization of the DC (c0) term.
type dctTable struct {
	kind      DCTType
	nfilt     int
	ncep      int
	cos       [][]float64 // [cepstrum][filter]
}

func buildDCTTable(kind DCTType, nfilt, ncep int) *dctTable {
	t := &dctTable{kind: kind, nfilt: nfilt, ncep: ncep}
	t.cos = make([][]float64, ncep)
	for k := 0; k < ncep; k++ {
		row := make([]float64, nfilt)
		for n := 0; n < nfilt; n++ {
			switch kind {
			case DCTTypeII:
				row[n] = math.Cos(math.Pi / float64(nfilt) * float64(k) * (float64(n) + 0.5))
			case DCTHTK:
				row[n] = math.Cos(math.Pi / float64(nfilt) * float64(k) * (float64(n) + 0.5))
			case DCTLegacy:
				fallthrough
			default:
				row[n] = math.Cos(math.Pi / float64(nfilt) * float64(k) * (float64(n) + 0.5))
			}
		}
		t.cos[k] = row
	}
	return t
}

// apply computes ncep cepstral coefficients from nfilt log mel energies.
func (t *dctTable) apply(logMel []float64) []float64 {
	out := make([]float64, t.ncep)
	scale := math.Sqrt(2.0 / float64(t.nfilt))
	for k := 0; k < t.ncep; k++ {
		sum := 0.0
		row := t.cos[k]
		for n, v := range logMel {
			sum += v * row[n]
		}
		v := sum * scale
		switch t.kind {
		case DCTHTK:
			if k == 0 {
				v = sum * math.Sqrt(1.0/float64(t.nfilt))
			}
		case DCTLegacy:
			// Legacy sphinx scaling keeps the same scale for all coefficients
			// but normalizes by nfilt instead of sqrt(2/nfilt) for c0.
			if k == 0 {
				v = sum / float64(t.nfilt)
			}
		}
		out[k] = v
	}
	return out
}
