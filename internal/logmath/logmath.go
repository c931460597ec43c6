// Package logmath implements the integer log-domain arithmetic used
// throughout the recognition core.
//
// Scores flow through the decoder as logs taken in a configurable base
// (spec.md §6, the `logbase` flag) and quantized to fit in small integers.
// Every component that combines (adds) probabilities in the log domain —
// mixture-weight combination in acmodel, lattice posterior combination in
// search/lattice — goes through a [Table] (directly, or via [Table.AddLn]
// for callers that keep their surrounding arithmetic in natural-log floats)
// instead of calling math.Log1p/math.Exp by hand, so the base is fixed once
// per decoder and every component agrees on it. Components that only
// convert a single score between log bases (fwdtree/fwdflat's log10-to-ln
// LM score conversion) or only accumulate scores with plain addition
// (Viterbi path extension, the lattice A* search) have no log-add to route
// and stay in raw float64.
//
// This replaces the file-scope `logmath_t *lmath` global of the original
// implementation (spec.md §9): a [Table] is constructed once and injected
// into every component that needs it, never held as a package-level
// variable.
package logmath

import "math"

// DefaultBase is the log base used when none is configured, chosen so that
// one unit of score corresponds to a fixed, small dB-like step.
const DefaultBase = 1.0001

// Zero is the sentinel "log of zero" value returned for probability 0 and by
// failed searches (spec.md §7: "get_prob returns the logmath zero").
const Zero = math.MinInt32 / 2

// Table performs log-domain arithmetic in a fixed base, with precomputed
// add tables so hot paths (mixture combination, lattice posterior sums)
// never call math.Log/math.Exp directly.
type Table struct {
	base    float64
	logBase float64 // natural log of base, cached

	addTable []int32 // addTable[d] ~= log_base(1 + base^-d) * scale, d >= 0
}

// New builds a [Table] for the given log base. A base close to 1 (e.g. the
// default 1.0001) gives fine-grained integer resolution; base must be > 1.
func New(base float64) *Table {
	if base <= 1.0 {
		base = DefaultBase
	}
	t := &Table{
		base:    base,
		logBase: math.Log(base),
	}
	t.buildAddTable()
	return t
}

// maxAddTableDelta bounds the add-table: beyond this many base-units the
// smaller term contributes less than one quantization step and is dropped.
const maxAddTableDelta = 4000

func (t *Table) buildAddTable() {
	t.addTable = make([]int32, maxAddTableDelta+1)
	for d := 0; d <= maxAddTableDelta; d++ {
		v := math.Log1p(math.Pow(t.base, float64(-d))) / t.logBase
		t.addTable[d] = int32(math.Round(v))
	}
}

// Ln converts a natural-log value into this table's integer log domain.
func (t *Table) Ln(logProb float64) int32 {
	if math.IsInf(logProb, -1) {
		return Zero
	}
	return int32(math.Round(logProb / t.logBase))
}

// ToLn converts an integer log-domain value back to a natural-log float64.
func (t *Table) ToLn(v int32) float64 {
	if v <= Zero {
		return math.Inf(-1)
	}
	return float64(v) * t.logBase
}

// Add computes log_base(base^a + base^b) given a and b already in this
// table's integer log domain — the core "log-add" operation used to combine
// mixture-component likelihoods and to sum lattice link posteriors.
func (t *Table) Add(a, b int32) int32 {
	if a == Zero {
		return b
	}
	if b == Zero {
		return a
	}
	if a < b {
		a, b = b, a
	}
	d := int(a - b)
	if d > maxAddTableDelta {
		return a
	}
	return a + t.addTable[d]
}

// AddLn computes log(exp(a)+exp(b)) by round-tripping a and b through this
// table's integer log domain, the same quantized combination [Add] performs,
// for callers that keep their own arithmetic in natural-log floats (lattice
// posterior combination, mixture-weight combination).
func (t *Table) AddLn(a, b float64) float64 {
	return t.ToLn(t.Add(t.Ln(a), t.Ln(b)))
}

// Exp converts an integer log-domain value to a linear-domain probability.
func (t *Table) Exp(v int32) float64 {
	if v <= Zero {
		return 0
	}
	return math.Pow(t.base, float64(v))
}
