package lattice_test

import (
	"math"
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/logmath"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

// singlePathBP builds a three-entry backpointer chain <s> -> hello -> </s>
// with known per-link acoustic deltas, returning the table and hello's id.
func singlePathBP(t *testing.T) (*bp.Table, *model.MemDictionary, model.WordID) {
	t.Helper()
	dict := model.NewMemDictionary()
	hello := dict.AddWord(model.DictEntry{Word: "hello"})

	table := bp.New()
	start := table.Append(bp.Entry{Frame: 0, Word: dict.StartWordID(), Predecessor: bp.NoPredecessor, Score: 0, StartFrame: 0})
	mid := table.Append(bp.Entry{Frame: 5, Word: hello, Predecessor: start, Score: -5, StartFrame: 1})
	table.Append(bp.Entry{Frame: 6, Word: dict.EndWordID(), Predecessor: mid, Score: -6, StartFrame: 6})

	return table, dict, hello
}

func buildGraph(t *testing.T) (*lattice.Graph, *model.MemDictionary) {
	t.Helper()
	table, dict, _ := singlePathBP(t)
	g := lattice.Build(table, dict, dict.EndWordID())
	lattice.MarkReachability(g)
	return g, dict
}

func TestBuild_MergesAndLinksSinglePath(t *testing.T) {
	t.Parallel()
	g, dict := buildGraph(t)

	if len(g.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(g.Nodes))
	}
	if len(g.Links) != 2 {
		t.Fatalf("got %d links, want 2", len(g.Links))
	}
	if g.Nodes[g.Initial].Word != dict.StartWordID() {
		t.Errorf("Initial node word = %v, want <s>", g.Nodes[g.Initial].Word)
	}
	if g.Nodes[g.Final].Word != dict.EndWordID() {
		t.Errorf("Final node word = %v, want </s>", g.Nodes[g.Final].Word)
	}
	for i, n := range g.Nodes {
		if !n.Reachable {
			t.Errorf("node %d (%+v) not reachable after MarkReachability, want reachable (single linear path)", i, n)
		}
	}
}

func TestBestPath_RecoversWholeChainAndScore(t *testing.T) {
	t.Parallel()
	g, dict := buildGraph(t)

	pot := lattice.BestPath(g, lm.Uniform, 1.0, 1.0)
	hyp := pot.Hypothesis(g)

	helloID, _ := dict.Lookup("hello")
	want := []model.WordID{dict.StartWordID(), helloID, dict.EndWordID()}
	if len(hyp) != len(want) {
		t.Fatalf("Hypothesis = %v, want %v", hyp, want)
	}
	for i := range want {
		if hyp[i] != want[i] {
			t.Fatalf("Hypothesis[%d] = %v, want %v", i, hyp[i], want[i])
		}
	}

	if got := pot.Score(g); got != -6 {
		t.Errorf("Score() = %v, want -6 (sum of per-link acoustic deltas)", got)
	}

	seg := pot.Segmentation(g)
	if len(seg) != 3 {
		t.Fatalf("Segmentation has %d entries, want 3", len(seg))
	}
	if seg[len(seg)-1].EndFrame != 6 {
		t.Errorf("final segment EndFrame = %d, want 6", seg[len(seg)-1].EndFrame)
	}
}

func TestComputeBeta_AndLinkPosterior_SingleNoBranchPath(t *testing.T) {
	t.Parallel()
	g, _ := buildGraph(t)
	table := logmath.New(logmath.DefaultBase)

	pot := lattice.BestPath(g, lm.Uniform, 1.0, 1.0)
	beta := lattice.ComputeBeta(g, lm.Uniform, 1.0, 1.0, pot, table)

	if got := beta.Value[g.Final]; got != 0 {
		t.Errorf("beta[Final] = %v, want 0", got)
	}

	// With only one path through the lattice, every link's posterior
	// probability must be (near) 1 (log-posterior near 0).
	for li := range g.Links {
		post := lattice.LinkPosterior(g, lm.Uniform, 1.0, 1.0, pot, beta, li)
		if math.Abs(post) > 1e-6 {
			t.Errorf("link %d posterior (log) = %v, want ~0 (the only path)", li, post)
		}
	}
}

func TestNBest_ReturnsTheSingleHypothesis(t *testing.T) {
	t.Parallel()
	g, dict := buildGraph(t)
	table := logmath.New(logmath.DefaultBase)

	pot := lattice.BestPath(g, lm.Uniform, 1.0, 1.0)
	beta := lattice.ComputeBeta(g, lm.Uniform, 1.0, 1.0, pot, table)

	hyps := lattice.NBest(g, lm.Uniform, 1.0, 1.0, beta, 5)
	if len(hyps) != 1 {
		t.Fatalf("NBest returned %d hypotheses, want 1 (single path through the lattice)", len(hyps))
	}

	helloID, _ := dict.Lookup("hello")
	want := []model.WordID{dict.StartWordID(), helloID, dict.EndWordID()}
	got := hyps[0].Words
	if len(got) != len(want) {
		t.Fatalf("hypothesis words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hypothesis words[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if math.Abs(hyps[0].Score-(-6)) > 1e-9 {
		t.Errorf("hypothesis score = %v, want -6", hyps[0].Score)
	}
}

func TestNBest_ZeroOrNegativeNReturnsNothing(t *testing.T) {
	t.Parallel()
	g, _ := buildGraph(t)
	table := logmath.New(logmath.DefaultBase)
	pot := lattice.BestPath(g, lm.Uniform, 1.0, 1.0)
	beta := lattice.ComputeBeta(g, lm.Uniform, 1.0, 1.0, pot, table)

	if got := lattice.NBest(g, lm.Uniform, 1.0, 1.0, beta, 0); got != nil {
		t.Errorf("NBest(n=0) = %v, want nil", got)
	}
}
