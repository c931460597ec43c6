// Package ngram aggregates the fwdtree and fwdflat passes plus lattice
// best-path into the single default search.Search implementation spec.md
// §4.4-§4.6 describes as one pipeline (SPEC_FULL.md §9.E: "fwdtree/fwdflat
// (one aggregate internal/search/ngram.Search)").
package ngram

import (
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fwdflat"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fwdtree"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
)

// Config bundles both passes' tunables plus the flat pass's vocabulary
// window.
type Config struct {
	Tree   fwdtree.Config
	Flat   fwdflat.Config
	Window int

	// Lwf/Ascale drive the lattice best-path/posterior pass (spec.md §4.6).
	Lwf    float64
	Ascale float64
}

// Search runs fwdtree in real time (Step is called once per frame as the
// decoder feeds frames through), then runs fwdflat and lattice best-path
// once the utterance ends.
//
// fwdflat needs a second pass over every frame's senone scores. Rather than
// re-invoke the acoustic model with a second active-senone set (which would
// need retained feature frames and a second scorer callback), Step retains
// each frame's full score vector as computed by the fwdtree pass and
// FinishUtt replays those directly. This is exact, not approximate — every
// senone's score is the one the model actually computed — but it only
// pays off fwdtree's own active-senone-set pruning once; fwdflat's replay
// doesn't get a second chance to shrink the evaluated senone set. A
// decoder driving a single-pass mode (fsg, keyword, allphone, align) scores
// with its own real active set throughout and has no such tradeoff.
type Search struct {
	mdef  model.MdefTable
	dict  model.Dictionary
	lmod  lm.Model
	trans model.Transitions
	tree  *fwdtree.Tree
	cfg   Config

	treeBP *bp.Table
	flatBP *bp.Table

	treeSearch *fwdtree.Search
	flatSearch *fwdflat.Search

	savedScores [][]float64
	frame       int
}

// New constructs an ngram search. tree is shared, immutable model state
// built once at decoder construction; everything else is reset per
// utterance.
func New(mdef model.MdefTable, dict model.Dictionary, lmod lm.Model, trans model.Transitions, tree *fwdtree.Tree, cfg Config) *Search {
	return &Search{
		mdef: mdef, dict: dict, lmod: lmod, trans: trans, tree: tree, cfg: cfg,
		treeBP: bp.New(), flatBP: bp.New(),
	}
}

func (s *Search) StartUtt() {
	s.treeBP.Reset()
	s.flatBP.Reset()
	s.treeSearch = fwdtree.New(s.mdef, s.dict, s.lmod, s.trans, s.tree, s.cfg.Tree, s.treeBP)
	s.treeSearch.StartUtt()
	s.flatSearch = nil
	s.savedScores = s.savedScores[:0]
	s.frame = 0
}

func (s *Search) ActivateSenones(active search.ActiveSet) {
	s.treeSearch.ActivateSenones(active)
}

// SetAllowedRoots forwards the phone-loop prefilter's current lookahead
// window to the tree pass, restricting which root phones it seeds next
// frame (spec.md §4.3). Safe to call every frame; nil clears the
// restriction.
func (s *Search) SetAllowedRoots(allowed map[model.CIPhoneID]bool) {
	s.treeSearch.SetAllowedRoots(allowed)
}

func (s *Search) Step(frameIdx int, scores []float64) {
	s.frame = frameIdx
	saved := append([]float64(nil), scores...)
	s.savedScores = append(s.savedScores, saved)
	s.treeSearch.Step(scores)
}

func (s *Search) BestScore() float64 { return s.treeSearch.BestScore() }

// FinishUtt runs fwdflat over the retained frame scores, builds the lattice
// from its (superseding) backpointer table, and returns it with a
// completed best-path pass.
func (s *Search) FinishUtt() (*lattice.Graph, *lattice.Potentials) {
	windowWords := fwdflat.BuildWindowWords(s.treeBP, s.cfg.Window)
	s.flatSearch = fwdflat.New(s.mdef, s.dict, s.lmod, s.trans, s.cfg.Flat, s.flatBP)
	s.flatSearch.StartUtt(windowWords)
	for _, scores := range s.savedScores {
		s.flatSearch.Step(scores)
	}

	g := lattice.Build(s.flatBP, s.dict, s.dict.EndWordID())
	lattice.AddFillerBypass(g, s.cfg.Flat.WordInsertionPenalty)
	lattice.MarkReachability(g)
	best := lattice.BestPath(g, s.lmod, s.cfg.Lwf, s.cfg.Ascale)
	return g, best
}

// BackpointerTable returns the fwdflat pass's table, the one that
// supersedes fwdtree's for hypothesis extraction (spec.md §4.5).
func (s *Search) BackpointerTable() *bp.Table { return s.flatBP }
