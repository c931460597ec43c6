// Package decoder wires the front end, acoustic model, phone-loop prefilter
// and an active search implementation into the top-level object a caller
// drives one utterance at a time, per spec.md §5's single-threaded
// cooperative model. It is the Go analogue of the teacher's
// internal/app.App: a constructor that wires independently-testable
// collaborators together and a small method set the rest of the program
// calls.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/acmodel"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/frontend"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/logmath"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/observe"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/phoneloop"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fwdtree"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/lattice"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/ngram"
)

// Loaders supplies the on-disk-derived tables spec.md §1/§6 declares
// out of scope for this repo (mean/var/mixture-weight files, the
// model-definition file, the dictionary, the LM, transition
// probabilities). New runs all five concurrently via errgroup, exactly
// once, before any Decoder method becomes callable (SPEC_FULL.md §5.E).
type Loaders struct {
	AcousticParams func(ctx context.Context) (*acmodel.Params, error)
	Mdef           func(ctx context.Context) (model.MdefTable, error)
	Dictionary     func(ctx context.Context) (model.Dictionary, error)
	LanguageModel  func(ctx context.Context) (lm.Model, error)
	Transitions    func(ctx context.Context) (model.Transitions, error)
}

func (l Loaders) validate() error {
	if l.AcousticParams == nil || l.Mdef == nil || l.Dictionary == nil || l.LanguageModel == nil || l.Transitions == nil {
		return fmt.Errorf("decoder: all five loaders are required: %w", ErrConfiguration)
	}
	return nil
}

// utteranceFinisher is implemented by the search.Search variants that
// produce, once an utterance's frames have all been seen, the lattice/
// best-path pair Hyp/Prob/Lattice/NBest/Seg read from. Every current mode
// (ngram, fsg, keyword, allphone, align) implements it; only ngram runs a
// second search pass there. A search mode without FinishUtt leaves
// Decoder.graph/best nil, and those accessors report spec.md §7's "no
// hypothesis" condition.
type utteranceFinisher interface {
	FinishUtt() (*lattice.Graph, *lattice.Potentials)
}

// Decoder is the top-level recognition object: one per concurrent decode,
// never shared across goroutines (spec.md §5).
type Decoder struct {
	cfg Config

	fe      *frontend.FrontEnd
	scorer  *acmodel.Scorer
	lmTable *logmath.Table
	pl      *phoneloop.PhoneLoop
	mdef    model.MdefTable
	dict    model.Dictionary
	trans   model.Transitions
	lmWrap  *reloadableLM

	srch search.Search

	logger  *slog.Logger
	metrics *observe.Metrics

	activeSet *acmodel.ActiveSet
	frameIdx  int
	started   bool
	closed    bool
	uttStart  time.Time

	graph *lattice.Graph
	best  *lattice.Potentials

	// retainedGraph/retainedBest hold a utterance's result across a later
	// StartUtt that would otherwise discard it, per spec.md §5's "Lattices
	// ... retained across the boundary are copied out or reference-counted"
	// — here a plain pointer copy, refcounted implicitly by Go's GC rather
	// than an explicit counter, since nothing in this package ever mutates
	// a *lattice.Graph/*lattice.Potentials after FinishUtt builds it.
	retainedGraph *lattice.Graph
	retainedBest  *lattice.Potentials
}

// Option configures a Decoder at construction time, in the teacher's
// functional-option style (acmodel.Option, frontend's provider options).
type Option func(*Decoder)

// WithLogger overrides the default (slog.Default()) logger.
func WithLogger(l *slog.Logger) Option { return func(d *Decoder) { d.logger = l } }

// WithMetrics overrides the default (observe.DefaultMetrics()) instruments.
func WithMetrics(m *observe.Metrics) Option { return func(d *Decoder) { d.metrics = m } }

// WithSearch replaces the default fwdtree+fwdflat pipeline with another
// search.Search implementation (fsg, keyword, allphone, align —
// SPEC_FULL.md §4.9.E), e.g. for a decoder built to run one of those modes.
func WithSearch(s search.Search) Option { return func(d *Decoder) { d.srch = s } }

// New constructs a Decoder, loading loaders' five tables concurrently and
// building every collaborator from them.
func New(ctx context.Context, cfg Config, loaders Loaders, opts ...Option) (*Decoder, error) {
	if err := loaders.validate(); err != nil {
		return nil, err
	}

	var (
		params *acmodel.Params
		mdef   model.MdefTable
		dict   model.Dictionary
		lmod   lm.Model
		trans  model.Transitions
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { params, err = loaders.AcousticParams(gctx); return })
	g.Go(func() (err error) { mdef, err = loaders.Mdef(gctx); return })
	g.Go(func() (err error) { dict, err = loaders.Dictionary(gctx); return })
	g.Go(func() (err error) { lmod, err = loaders.LanguageModel(gctx); return })
	g.Go(func() (err error) { trans, err = loaders.Transitions(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("decoder: load models: %w", errors.Join(err, ErrModelLoad))
	}

	fe, err := frontend.New(cfg.FrontEnd)
	if err != nil {
		return nil, fmt.Errorf("decoder: front end: %w", errors.Join(err, ErrConfiguration))
	}

	lmTable := logmath.New(cfg.logBase())
	scorer := acmodel.New(params, mdef, lmTable, cfg.ScorerOptions...)
	tree := fwdtree.Build(dict, mdef)
	lmWrap := newReloadableLM(lmod)
	srch := ngram.New(mdef, dict, lmWrap, trans, tree, cfg.Search)

	var pl *phoneloop.PhoneLoop
	if cfg.PhoneLoop.Enabled {
		pl = phoneloop.New(mdef, scorer, cfg.PhoneLoop.Window, cfg.PhoneLoop.Beam)
	}

	d := &Decoder{
		cfg:     cfg,
		fe:      fe,
		scorer:  scorer,
		lmTable: lmTable,
		pl:      pl,
		mdef:    mdef,
		dict:    dict,
		trans:   trans,
		lmWrap:  lmWrap,
		srch:    srch,
		logger:  slog.Default(),
		metrics: observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// LanguageModelPointer exposes the atomic pointer backing the decoder's
// active language model, for internal/modelreload's watcher goroutine to
// swap between utterances (SPEC_FULL.md §5.E).
func (d *Decoder) LanguageModelPointer() *atomic.Pointer[lm.Model] { return d.lmWrap.ptr }

// StartUtt resets every per-utterance collaborator (spec.md §5 "state is
// reset at start_utt"). It intentionally never fails in a way that leaves
// the decoder unusable: a Decoder that was Closed is the one exception.
func (d *Decoder) StartUtt() error {
	if d.closed {
		return fmt.Errorf("decoder: start utterance: decoder closed: %w", ErrResource)
	}
	d.fe.StartUtt()
	if d.pl != nil {
		d.pl.StartUtt()
	}
	d.srch.StartUtt()
	d.activeSet = d.scorer.NewActiveSet()
	d.frameIdx = 0
	d.started = true
	d.graph, d.best = nil, nil
	d.uttStart = time.Now()
	return nil
}

// ProcessRaw feeds raw 16-bit PCM samples through the front end and search,
// returning the number of samples consumed (always len(samples) on
// success, per spec.md §4.1's "never fails; short input produces zero
// frames" carried through to the decoder level).
func (d *Decoder) ProcessRaw(samples []int16) (int, error) {
	if d.cfg.Input != InputRaw {
		return 0, fmt.Errorf("decoder: process raw: decoder configured for cepstrum input: %w", ErrInput)
	}
	if err := d.checkReady(); err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, fmt.Errorf("decoder: process raw: zero-length input: %w", ErrInput)
	}

	frames, consumed := d.fe.Process(samples)
	for _, f := range frames {
		if err := d.stepFrame(f.Index, f.Vector()); err != nil {
			return consumed, err
		}
	}
	return consumed, nil
}

// ProcessCep feeds precomputed 39-float feature vectors directly to the
// search, bypassing the front end (the "scores-in" mode of spec.md §7).
func (d *Decoder) ProcessCep(vectors [][]float64) (int, error) {
	if d.cfg.Input != InputCep {
		return 0, fmt.Errorf("decoder: process cep: decoder configured for raw PCM input: %w", ErrInput)
	}
	if err := d.checkReady(); err != nil {
		return 0, err
	}
	if len(vectors) == 0 {
		return 0, fmt.Errorf("decoder: process cep: zero-length input: %w", ErrInput)
	}

	for _, v := range vectors {
		if err := d.stepFrame(d.frameIdx, v); err != nil {
			return 0, err
		}
	}
	return len(vectors), nil
}

func (d *Decoder) checkReady() error {
	if d.closed {
		return fmt.Errorf("decoder: decoder closed: %w", ErrResource)
	}
	if !d.started {
		return fmt.Errorf("decoder: utterance not started: %w", ErrInput)
	}
	return nil
}

// stepFrame runs the shared per-frame pipeline: union the phone-loop's and
// the active search's senone needs into one active set, score the frame,
// then step both passes (spec.md §4.2 "Active set ... unions the PL
// prefilter's set").
func (d *Decoder) stepFrame(idx int, vector []float64) error {
	start := time.Now()
	d.activeSet.NextFrame()

	if d.pl != nil {
		d.pl.ActivateSenones(d.activeSet)
		if restrictor, ok := d.srch.(interface {
			SetAllowedRoots(map[model.CIPhoneID]bool)
		}); ok {
			restrictor.SetAllowedRoots(d.pl.Allowed())
		}
	}
	d.srch.ActivateSenones(d.activeSet)

	scores, err := d.scorer.Score(vector, d.activeSet)
	if err != nil {
		d.logger.Error("acoustic scoring failed", "frame", idx, "error", err)
		if d.metrics != nil {
			d.metrics.RecordSearchError(context.Background(), ErrorKindSearch.String())
		}
		return fmt.Errorf("decoder: score frame %d: %w", idx, errors.Join(err, ErrSearch))
	}

	if d.pl != nil {
		d.pl.Step(scores)
	}
	d.srch.Step(idx, scores)
	d.frameIdx = idx + 1

	if d.metrics != nil {
		ctx := context.Background()
		d.metrics.FrameDuration.Record(ctx, time.Since(start).Seconds())
		d.metrics.ActiveSenones.Record(ctx, int64(d.activeSet.Len()))
		if counter, ok := d.srch.(interface{ Counts() (int, int) }); ok {
			hmms, _ := counter.Counts()
			d.metrics.ActiveHMMs.Record(ctx, int64(hmms))
		}
	}
	return nil
}

// EndUtt flushes any buffered front-end samples and runs the active
// search's finishing pass (fwdflat + lattice best-path for the default
// ngram pipeline), populating Hyp/Prob/Lattice/NBest/Seg.
func (d *Decoder) EndUtt() error {
	if err := d.checkReady(); err != nil {
		return err
	}

	if d.cfg.Input == InputRaw {
		for _, f := range d.fe.EndUtt() {
			if err := d.stepFrame(f.Index, f.Vector()); err != nil {
				return err
			}
		}
	}

	if finisher, ok := d.srch.(utteranceFinisher); ok {
		d.graph, d.best = finisher.FinishUtt()
	} else {
		d.logger.Warn("active search has no finishing pass; lattice/hyp accessors will report no hypothesis")
	}

	d.started = false

	outcome := "no_hyp"
	if text, _ := d.Hyp(); text != "" {
		outcome = "hyp"
	}
	if d.metrics != nil {
		ctx := context.Background()
		d.metrics.UtteranceDuration.Record(ctx, time.Since(d.uttStart).Seconds())
		d.metrics.RecordUtterance(ctx, outcome)
	}
	if outcome == "no_hyp" {
		d.logger.Warn("utterance ended with no reachable hypothesis", "frames", d.frameIdx)
	}
	return nil
}

// Hyp returns the best hypothesis text (fillers and <s>/</s> elided) and
// its natural-log score. Both are zero-valued if no hypothesis is
// reachable (spec.md §7 "get_hyp returns null and a zero score").
func (d *Decoder) Hyp() (string, float64) {
	if d.graph == nil || d.best == nil {
		return "", 0
	}
	return d.Text(d.best.Hypothesis(d.graph)), d.best.Score(d.graph)
}

// Text joins a word-id sequence (as found in a [lattice.Hypothesis] or
// [Decoder.Hyp]'s own best path) into space-separated text, eliding
// fillers and unresolvable ids the same way Hyp does.
func (d *Decoder) Text(words []model.WordID) string {
	var sb strings.Builder
	for _, w := range words {
		if d.dict.IsFiller(w) {
			continue
		}
		e, ok := d.dict.Word(w)
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.Word)
	}
	return sb.String()
}

// Prob returns the current hypothesis score in the decoder's integer
// log-domain, or [logmath.Zero] if no hypothesis is reachable (spec.md §7
// "get_prob returns the logmath zero").
func (d *Decoder) Prob() int32 {
	if d.graph == nil || d.best == nil {
		return logmath.Zero
	}
	return d.lmTable.Ln(d.best.Score(d.graph))
}

// Lattice returns the current utterance's lattice, or an error wrapping
// [ErrLattice] if requested before EndUtt (spec.md §7 "requesting a lattice
// before utterance end ... returns null").
func (d *Decoder) Lattice() (*lattice.Graph, error) {
	if d.graph == nil {
		return nil, fmt.Errorf("decoder: lattice: %w", ErrLattice)
	}
	return d.graph, nil
}

// Retain copies out the current utterance's lattice/best-path pair so a
// subsequent StartUtt doesn't discard it (spec.md §5 "the only
// cross-utterance carry is ... any retained lattice").
func (d *Decoder) Retain() {
	d.retainedGraph, d.retainedBest = d.graph, d.best
}

// RetainedLattice returns the lattice from the last call to Retain, or an
// error wrapping [ErrLattice] if nothing was ever retained.
func (d *Decoder) RetainedLattice() (*lattice.Graph, error) {
	if d.retainedGraph == nil {
		return nil, fmt.Errorf("decoder: retained lattice: %w", ErrLattice)
	}
	return d.retainedGraph, nil
}

// NBest returns up to n distinct hypotheses sorted by non-increasing score
// (spec.md §8 scenario 6: "hypotheses sorted by non-decreasing score" read
// front-to-back as best-first, matching [lattice.NBest]'s A* order).
func (d *Decoder) NBest(n int) ([]lattice.Hypothesis, error) {
	if d.graph == nil || d.best == nil {
		return nil, fmt.Errorf("decoder: n-best: %w", ErrLattice)
	}
	beta := lattice.ComputeBeta(d.graph, d.lmWrap, d.cfg.Search.Lwf, d.cfg.Search.Ascale, d.best, d.lmTable)
	return lattice.NBest(d.graph, d.lmWrap, d.cfg.Search.Lwf, d.cfg.Search.Ascale, beta, n), nil
}

// Seg returns the best path's per-word segmentation, including <s>/SIL/
// </s> entries (scenario 5 of spec.md §8 needs silence spans to state "end
// of last non-silence < total frames").
func (d *Decoder) Seg() ([]lattice.Segment, error) {
	if d.graph == nil || d.best == nil {
		return nil, fmt.Errorf("decoder: segmentation: %w", ErrLattice)
	}
	return d.best.Segmentation(d.graph), nil
}

// Close releases the decoder. Freeing a decoder that failed to produce a
// hypothesis, or one that never started an utterance, is always valid
// (spec.md §7 "freeing it is valid"). After Close, StartUtt, ProcessRaw,
// ProcessCep and EndUtt return [ErrResource]; the other methods do not
// check for a closed decoder.
func (d *Decoder) Close() error {
	d.closed = true
	d.started = false
	return nil
}
