package lattice

import (
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/logmath"
)

// Beta holds a completed backward pass (spec.md §4.6 "Posteriors").
type Beta struct {
	Value []float64
}

// ComputeBeta runs the backward log-add pass given a completed forward
// best-path. It reuses the forward pass's best-predecessor-chain history
// for LM scoring at each link (spec.md: "the N-gram history used at each
// node is the best predecessor chain" applies uniformly, not just to the
// forward pass — pocketsphinx's own posterior approximation does the same).
// table is the decoder's shared [logmath.Table], used to combine each
// node's outgoing link scores the same way mixture weights are combined
// (package logmath's doc comment).
func ComputeBeta(g *Graph, lmod lm.Model, lwf, ascale float64, fwd *Potentials, table *logmath.Table) *Beta {
	order := fwd.order
	beta := make([]float64, len(g.Nodes))
	for i := range beta {
		beta[i] = negInf
	}
	beta[g.Final] = 0

	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		if v == g.Final || !g.Nodes[v].Reachable {
			continue
		}
		acc := negInf
		history := historyFromBestIn(g, fwd.BestIn, v)
		for _, li := range g.Nodes[v].Out {
			link := g.Links[li]
			w := link.To
			if beta[w] <= negInf {
				continue
			}
			lmScore := lmod.Score(g.Nodes[w].Word, history) * ln10 * lwf
			term := ascale*link.Acoustic + lmScore + beta[w]
			if acc <= negInf {
				acc = term
			} else {
				acc = table.AddLn(acc, term)
			}
		}
		beta[v] = acc
	}

	return &Beta{Value: beta}
}

// LinkPosterior returns link li's posterior probability in log domain
// (spec.md §4.6: "alpha[u] + acoustic + lm - alpha[</s>] + beta[v]").
func LinkPosterior(g *Graph, lmod lm.Model, lwf, ascale float64, fwd *Potentials, beta *Beta, li int) float64 {
	link := g.Links[li]
	u, v := link.From, link.To
	history := historyFromBestIn(g, fwd.BestIn, u)
	lmScore := lmod.Score(g.Nodes[v].Word, history) * ln10 * lwf
	return fwd.Alpha[u] + ascale*link.Acoustic + lmScore - fwd.Alpha[g.Final] + beta.Value[v]
}
