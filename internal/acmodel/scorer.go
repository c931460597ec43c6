package acmodel

import (
	"fmt"
	"math"
	"sort"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/logmath"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

// DefaultTopN is the default number of nearest Gaussians kept per stream (spec.md
// §4.2 "'top-N' default 4").
const DefaultTopN = 4

// Scorer is the acoustic scorer contract of spec.md §4.2: feature vector in,
// per-senone log-likelihood vector out, normalized so the frame's best
// senone score is always 0.
type Scorer struct {
	params *Params
	lm     *logmath.Table
	topN   int
	bbi    BBITree // nil disables the BBI shortlist

	mdef model.MdefTable

	bestScore  float64
	lastScores []float64
	activeMark []int32 // per-senone "computed this frame" stamp
	frameStamp int32

	dump *DumpWriter // optional, nil disables dumping
}

// Option configures a Scorer at construction time.
type Option func(*Scorer)

// WithTopN overrides DefaultTopN.
func WithTopN(n int) Option {
	return func(s *Scorer) { s.topN = n }
}

// WithBBI installs a k-d-tree Gaussian shortlist.
func WithBBI(t BBITree) Option {
	return func(s *Scorer) { s.bbi = t }
}

// WithDump installs a sink that records every frame's sparse score vector
// for later replay (spec.md §4.2 "Output stream (optional)").
func WithDump(w *DumpWriter) Option {
	return func(s *Scorer) { s.dump = w }
}

// New constructs a Scorer over params, scoring senones named by mdef.
func New(params *Params, mdef model.MdefTable, lm *logmath.Table, opts ...Option) *Scorer {
	s := &Scorer{
		params:     params,
		lm:         lm,
		topN:       DefaultTopN,
		mdef:       mdef,
		lastScores: make([]float64, params.NumSenones),
		activeMark: make([]int32, params.NumSenones),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ActiveSet is a sparse set of senones a search pass declares live for the
// next frame (spec.md §4.2 "Active set").
type ActiveSet struct {
	marked []int32 // senone id -> frame stamp, shared storage with Scorer
	stamp  int32
}

// NewActiveSet returns an empty active set sized to the scorer's senone
// pool.
func (s *Scorer) NewActiveSet() *ActiveSet {
	return &ActiveSet{marked: make([]int32, s.params.NumSenones)}
}

// Activate marks senone as active for the set's current frame.
func (a *ActiveSet) Activate(senone model.SenoneID) {
	a.marked[senone] = a.stamp
}

// ActivateSenones marks every senone in an ssid's HMM-state tuple, per
// spec.md §4.3 step 1: "every active HMM declares the senones of its ssid
// active for the next frame."
func (a *ActiveSet) ActivateSenones(mdef model.MdefTable, ssid model.SSID) {
	for _, sn := range mdef.Senones(ssid) {
		a.marked[sn] = a.stamp
	}
}

// NextFrame advances the set's internal stamp, implicitly clearing all
// prior activations (cheaper than zeroing the backing array every frame).
func (a *ActiveSet) NextFrame() {
	a.stamp++
}

// Len reports how many senones are marked active for the current frame, for
// diagnostics and metrics.
func (a *ActiveSet) Len() int {
	n := 0
	for _, m := range a.marked {
		if m == a.stamp {
			n++
		}
	}
	return n
}

// Score evaluates the acoustic model for one feature frame, restricted to
// the senones marked in active (the set the search passes, and the decoder's
// phone-loop prefilter when it runs one, have marked). If active is nil,
// every senone is scored ("compute-all-senones").
//
// The returned slice is reused across calls: callers must copy scores they
// need to keep past the next Score call.
func (s *Scorer) Score(frame []float64, active *ActiveSet) ([]float64, error) {
	if s.params.NumFeatureStreams == 0 {
		return nil, fmt.Errorf("acmodel: no feature streams configured")
	}

	streams := s.splitStreams(frame)
	if len(streams) != s.params.NumFeatureStreams {
		return nil, fmt.Errorf("acmodel: frame has %d dims, streams want %d", len(frame), len(streams))
	}

	s.frameStamp++

	// Per-stream: evaluate Gaussians (optionally shortlisted by BBI),
	// extract the top-N, remembered as (index, logscore) pairs.
	topIdx := make([][]int, s.params.NumFeatureStreams)
	topScore := make([][]float64, s.params.NumFeatureStreams)
	for st := 0; st < s.params.NumFeatureStreams; st++ {
		cb := &s.params.Codebooks[st]
		var candidates []int
		if s.bbi != nil {
			candidates = s.bbi.Shortlist(st, streams[st])
		} else {
			candidates = allIndices(len(cb.Gaussians))
		}
		idx, sc := topNGaussians(cb, streams[st], candidates, s.topN)
		topIdx[st] = idx
		topScore[st] = sc
	}

	s.bestScore = math.Inf(-1)
	var activeList []model.SenoneID

	scoreOne := func(senone model.SenoneID) float64 {
		total := 0.0
		for st := 0; st < s.params.NumFeatureStreams; st++ {
			streamTotal := math.Inf(-1)
			w := s.params.Weights.LogWeight[senone][st]
			for i, density := range topIdx[st] {
				streamTotal = s.lm.AddLn(streamTotal, w[density]+topScore[st][i])
			}
			total += streamTotal
		}
		return total
	}

	if active == nil {
		for sn := 0; sn < s.params.NumSenones; sn++ {
			sc := scoreOne(model.SenoneID(sn))
			s.lastScores[sn] = sc
			if sc > s.bestScore {
				s.bestScore = sc
			}
		}
	} else {
		for sn := 0; sn < s.params.NumSenones; sn++ {
			if active.marked[sn] != active.stamp {
				continue
			}
			sc := scoreOne(model.SenoneID(sn))
			s.lastScores[sn] = sc
			activeList = append(activeList, model.SenoneID(sn))
			if sc > s.bestScore {
				s.bestScore = sc
			}
		}
	}

	// Normalize: subtract the best score so the frame's max is 0 (spec.md
	// §4.2 "normalized to the best senone of the frame").
	if active == nil {
		for sn := range s.lastScores {
			s.lastScores[sn] -= s.bestScore
		}
	} else {
		for _, sn := range activeList {
			s.lastScores[sn] -= s.bestScore
		}
	}

	if s.dump != nil {
		if err := s.dump.WriteFrame(s.lastScores, active); err != nil {
			return nil, fmt.Errorf("acmodel: dump write: %w", err)
		}
	}

	return s.lastScores, nil
}

// BestScore returns the best (pre-normalization) senone score of the most
// recently scored frame (spec.md §8: "AM's reported best-senone score ...
// equals max_s score(s)").
func (s *Scorer) BestScore() float64 { return s.bestScore }

// splitStreams partitions a concatenated feature vector into its configured
// per-stream slices, in Static/Delta/Delta2 order (spec.md §3's 39-float
// frame split across n_feat streams).
func (s *Scorer) splitStreams(frame []float64) [][]float64 {
	out := make([][]float64, 0, len(s.params.FeatureDims))
	pos := 0
	for _, d := range s.params.FeatureDims {
		if pos+d > len(frame) {
			return nil
		}
		out = append(out, frame[pos:pos+d])
		pos += d
	}
	return out
}

// ToDecoderDomain converts a natural-log acoustic score into the decoder's
// shared integer log domain, so search passes can add it to language-model
// and transition scores without repeated float/int conversion.
func (s *Scorer) ToDecoderDomain(naturalLog float64) int32 {
	return s.lm.Ln(naturalLog)
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// topNGaussians scores every candidate codeword and returns the n
// highest-scoring (index, score) pairs sorted descending.
func topNGaussians(cb *Codebook, x []float64, candidates []int, n int) ([]int, []float64) {
	type pair struct {
		idx   int
		score float64
	}
	scored := make([]pair, len(candidates))
	for i, c := range candidates {
		g := cb.Gaussians[c]
		sum := g.LogNorm
		for d, xi := range x {
			diff := xi - g.Mean[d]
			sum -= 0.5 * diff * diff * g.InvVar[d]
		}
		scored[i] = pair{c, sum}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if n > len(scored) {
		n = len(scored)
	}
	idx := make([]int, n)
	sc := make([]float64, n)
	for i := 0; i < n; i++ {
		idx[i] = scored[i].idx
		sc[i] = scored[i].score
	}
	return idx, sc
}
