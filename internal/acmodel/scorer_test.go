package acmodel_test

import (
	"math"
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/acmodel"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/logmath"
)

// twoDensityParams builds a single-stream, two-density, two-senone model
// where every Gaussian scores 0 for the all-zero frame (Mean=0, InvVar=1,
// LogNorm=0), so the per-senone mixture score reduces to a pure log-add of
// its two density weights.
func twoDensityParams(senone0W, senone1W [2]float64) *acmodel.Params {
	cb := acmodel.Codebook{Gaussians: []acmodel.Gaussian{
		{Mean: []float64{0, 0}, InvVar: []float64{1, 1}, LogNorm: 0},
		{Mean: []float64{0, 0}, InvVar: []float64{1, 1}, LogNorm: 0},
	}}
	return &acmodel.Params{
		NumFeatureStreams: 1,
		NumDensities:      2,
		FeatureDims:       []int{2},
		Codebooks:         []acmodel.Codebook{cb},
		Weights: acmodel.MixtureWeights{
			LogWeight: [][][]float64{
				{senone0W[:]},
				{senone1W[:]},
			},
		},
		NumSenones: 2,
	}
}

func TestScorer_Score_CombinesMixtureWeightsViaLogmathTable(t *testing.T) {
	t.Parallel()
	table := logmath.New(logmath.DefaultBase)

	// senone0: two equal-weight (0.5, 0.5) densities, mixture sums to 1 ->
	// log-score 0. senone1: two unit-weight (1.0, 1.0) densities, mixture
	// sums to 2 -> log-score log(2).
	params := twoDensityParams(
		[2]float64{math.Log(0.5), math.Log(0.5)},
		[2]float64{0, 0},
	)
	scorer := acmodel.New(params, nil, table, acmodel.WithTopN(2))

	scores, err := scorer.Score([]float64{0, 0}, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("Score returned %d senones, want 2", len(scores))
	}

	// senone1 (log(2)) is the frame's best, so it normalizes to 0; senone0
	// normalizes to 0 - log(2).
	const tol = 0.01
	if math.Abs(scores[1]) > tol {
		t.Errorf("scores[1] = %v, want ~0 (the best senone)", scores[1])
	}
	want0 := -math.Log(2)
	if math.Abs(scores[0]-want0) > tol {
		t.Errorf("scores[0] = %v, want ~%v", scores[0], want0)
	}
	if math.Abs(scorer.BestScore()-math.Log(2)) > tol {
		t.Errorf("BestScore() = %v, want ~%v (pre-normalization)", scorer.BestScore(), math.Log(2))
	}
}

func TestScorer_Score_RestrictsToActiveSet(t *testing.T) {
	t.Parallel()
	table := logmath.New(logmath.DefaultBase)
	params := twoDensityParams([2]float64{0, 0}, [2]float64{0, 0})
	scorer := acmodel.New(params, nil, table, acmodel.WithTopN(2))

	active := scorer.NewActiveSet()
	active.NextFrame()
	active.Activate(0)

	scores, err := scorer.Score([]float64{0, 0}, active)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if got := scores[0]; got != 0 {
		t.Errorf("active senone 0 score = %v, want 0 (only active senone, normalizes to itself)", got)
	}
}

func TestScorer_Score_RejectsMismatchedFrameLength(t *testing.T) {
	t.Parallel()
	table := logmath.New(logmath.DefaultBase)
	params := twoDensityParams([2]float64{0, 0}, [2]float64{0, 0})
	scorer := acmodel.New(params, nil, table)

	if _, err := scorer.Score([]float64{0}, nil); err == nil {
		t.Error("Score with a frame shorter than the configured feature dims: want error, got nil")
	}
}
