package frontend

// warpFreq applies the configured frequency-warp transform to f (Hz),
// composing with the mel scale per spec.md §4.1 "Warping". Parameters are
// assumed already clamped to the sane ranges Config.clampWarpParams enforces.
func warpFreq(kind WarpKind, params []float64, f, nyquist float64) float64 {
	switch kind {
	case WarpAffine:
		a, b := 1.0, 0.0
		if len(params) >= 1 {
			a = params[0]
		}
		if len(params) >= 2 {
			b = params[1]
		}
		w := a*f + b
		return clampFreq(w, nyquist)

	case WarpInverseLinear:
		a := 1.0
		if len(params) >= 1 {
			a = params[0]
		}
		if a == 0 {
			return f
		}
		w := f / a
		return clampFreq(w, nyquist)

	case WarpPiecewiseLinear:
		// Single breakpoint at params[0] (fraction of Nyquist, default 0.5);
		// slope below the breakpoint is params[1] (default 0.8), above it
		// the remaining range is linearly compressed/expanded to still
		// reach Nyquist at f == nyquist.
		breakFrac := 0.5
		slope := 0.8
		if len(params) >= 1 && params[0] > 0 && params[0] < 1 {
			breakFrac = params[0]
		}
		if len(params) >= 2 && params[1] > 0 {
			slope = params[1]
		}
		breakF := breakFrac * nyquist
		if f <= breakF {
			return slope * f
		}
		// Linearly map [breakF, nyquist] -> [slope*breakF, nyquist].
		frac := (f - breakF) / (nyquist - breakF)
		return clampFreq(slope*breakF+frac*(nyquist-slope*breakF), nyquist)

	case WarpIdentity:
		fallthrough
	default:
		return f
	}
}

func clampFreq(f, nyquist float64) float64 {
	if f < 0 {
		return 0
	}
	if f > nyquist {
		return nyquist
	}
	return f
}
