// Package acmodel implements the tied-mixture semi-continuous Gaussian
// acoustic scorer of spec.md §4.2: feature vector in, per-senone
// log-likelihood vector out, with lazy sparse senone activation.
package acmodel

// Gaussian is one diagonal-covariance Gaussian in a feature stream's
// codebook: mean and (precomputed inverse-variance, log-normalizer) per
// dimension, stored in log domain like the rest of the scorer.
type Gaussian struct {
	Mean    []float64
	InvVar  []float64
	LogNorm float64 // -0.5*sum(log(2*pi*var))
}

// Codebook is one feature stream's set of n_density Gaussians (spec.md
// §4.2 "each with a codebook of n_density Gaussians").
type Codebook struct {
	Gaussians []Gaussian
}

// ScoreGaussians evaluates every Gaussian in the codebook against x,
// returning one log-likelihood per Gaussian.
func (cb *Codebook) ScoreGaussians(x []float64) []float64 {
	out := make([]float64, len(cb.Gaussians))
	for k, g := range cb.Gaussians {
		sum := g.LogNorm
		for d, xi := range x {
			diff := xi - g.Mean[d]
			sum -= 0.5 * diff * diff * g.InvVar[d]
		}
		out[k] = sum
	}
	return out
}

// MixtureWeights holds, for one senone and one feature stream, the 8-bit
// quantized log mixture weight for every density in that stream's codebook
// (spec.md §4.2 "8-bit-quantized mixture-weight table").
type MixtureWeights struct {
	// LogWeight[senone][stream][density] is a quantized log probability.
	LogWeight [][][]float64
}

// Params bundles the full set of acoustic-model parameters (spec.md §6
// "Mean/var/mixture-weight files"): n_feat streams, each a codebook of
// n_density Gaussians, plus the per-senone mixture-weight table.
type Params struct {
	NumFeatureStreams int
	NumDensities      int
	FeatureDims       []int // dimension of each stream (e.g. 13/13/13)

	Codebooks []Codebook // len == NumFeatureStreams
	Weights   MixtureWeights

	NumSenones int
}

// BBITree is the optional k-d-tree-based Gaussian shortlist of spec.md
// §4.2 ("Optional BBI shortlist"): each leaf names the subset of codewords
// worth evaluating for feature vectors that land in it.
type BBITree interface {
	// Shortlist returns the codeword indices to evaluate for x in the
	// given stream.
	Shortlist(stream int, x []float64) []int
}
