package frontend

// cmn implements the causal running cepstral-mean-normalization estimate of
// spec.md §4.1 ("CMN"). The mean updates with an exponential forget factor
// and the caller may read a stable snapshot of it at any time.
type cmn struct {
	mean   []float64
	forget float64
	count  int64
}

const cmnForgetFactor = 1.0 / 500 // ~5s time constant at 10ms frame shift

func newCMN(ncep int, initMean float64) *cmn {
	m := make([]float64, ncep)
	for i := range m {
		m[i] = initMean
	}
	return &cmn{mean: m, forget: cmnForgetFactor}
}

// update subtracts the running mean from frame in place and then updates
// the mean estimate with frame's (pre-subtraction) values.
func (c *cmn) update(frame []float64) {
	normalized := make([]float64, len(frame))
	for i, v := range frame {
		normalized[i] = v - c.mean[i]
	}
	for i, v := range frame {
		c.mean[i] += c.forget * (v - c.mean[i])
	}
	copy(frame, normalized)
	c.count++
}

// Mean returns a stable snapshot of the current running mean vector
// (spec.md §4.1: "the caller may read the current mean vector and must
// receive it as a stable snapshot").
func (c *cmn) Mean() []float64 {
	out := make([]float64, len(c.mean))
	copy(out, c.mean)
	return out
}

// SetMean overrides the running mean, e.g. to seed CMN from a prior
// utterance's final estimate (spec.md §5: "the only cross-utterance carry
// is (a) the CMN running mean (if the caller leaves it)").
func (c *cmn) SetMean(mean []float64) {
	copy(c.mean, mean)
}
