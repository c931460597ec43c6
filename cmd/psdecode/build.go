package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/acmodel"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/config"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/decoder"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/modelbundle"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/align"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/allphone"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fsg"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/keyword"
)

// buildDecoder loads the model bundle named by cfg.Model.Hmm and wires a
// [decoder.Decoder] configured for whichever search mode cfg.Model.Spec()
// selects, per spec.md §6's "search specifier, mutually exclusive in their
// primary role". Everything on-disk-format-shaped (acoustic params, mdef,
// dictionary, transitions, grammar/keyphrase/align text) is resolved
// synchronously here so the same in-memory objects back both the
// decoder's five loaders and the overriding search.Search built for
// fsg/kws/align/allphone.
func buildDecoder(ctx context.Context, cfg *config.DecoderConfig, opts ...decoder.Option) (*decoder.Decoder, error) {
	bundle, err := modelbundle.Load(cfg.Model.Hmm)
	if err != nil {
		return nil, err
	}

	mdef, err := bundle.ToMdef()
	if err != nil {
		return nil, fmt.Errorf("psdecode: build mdef: %w", err)
	}
	dict, err := bundle.ToDictionary()
	if err != nil {
		return nil, fmt.Errorf("psdecode: build dictionary: %w", err)
	}
	trans := bundle.ToTransitions()
	params := bundle.ToAcousticParams()

	var (
		lmodel lm.Model
		srch   search.Search
	)

	switch cfg.Model.Spec() {
	case config.SearchNGram:
		lmodel, err = bundle.ToLanguageModel(dict)
		if err != nil {
			return nil, err
		}

	case config.SearchFSG:
		grammar, err := fsg.LoadGrammar(cfg.Model.Fsg, dict)
		if err != nil {
			return nil, err
		}
		srch = fsg.New(mdef, dict, trans, grammar, fsg.DefaultConfig())
		lmodel = lm.Uniform

	case config.SearchJSGF:
		// The original's textual JSGF grammar compiler stays out of scope
		// (spec.md §1); jsgf files are read with the same JSON grammar
		// shape fsg files use.
		grammar, err := fsg.LoadGrammar(cfg.Model.Jsgf, dict)
		if err != nil {
			return nil, err
		}
		srch = fsg.New(mdef, dict, trans, grammar, fsg.DefaultConfig())
		lmodel = lm.Uniform

	case config.SearchKeyword:
		words, err := loadWordList(cfg.Model.Kws, dict)
		if err != nil {
			return nil, err
		}
		kwCfg := keyword.DefaultConfig()
		if cfg.Search.KwsThreshold > 0 {
			kwCfg.Threshold = math.Log(cfg.Search.KwsThreshold)
		}
		srch = keyword.New(mdef, dict, trans, words, kwCfg)
		lmodel = lm.Uniform

	case config.SearchAlign:
		words, err := loadWordList(cfg.Model.Align, dict)
		if err != nil {
			return nil, err
		}
		srch = align.New(mdef, dict, trans, words)
		lmodel = lm.Uniform

	case config.SearchAllphone:
		srch = allphone.New(mdef, trans, allphone.DefaultConfig())
		lmodel = lm.Uniform

	default:
		return nil, fmt.Errorf("psdecode: no search mode selected (set one of hmm's lm/fsg/jsgf/kws/align/allphone)")
	}

	loaders := decoder.Loaders{
		AcousticParams: func(context.Context) (*acmodel.Params, error) { return params, nil },
		Mdef:           func(context.Context) (model.MdefTable, error) { return mdef, nil },
		Dictionary:     func(context.Context) (model.Dictionary, error) { return dict, nil },
		LanguageModel:  func(context.Context) (lm.Model, error) { return lmodel, nil },
		Transitions:    func(context.Context) (model.Transitions, error) { return trans, nil },
	}

	if srch != nil {
		opts = append(opts, decoder.WithSearch(srch))
	}
	return decoder.New(ctx, cfg.ToDecoderConfig(), loaders, opts...)
}

// loadWordList reads a whitespace-separated list of dictionary words (the
// keyphrase for kws, the reference transcript for align) and resolves each
// to a model.WordID.
func loadWordList(path string, dict model.Dictionary) ([]model.WordID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("psdecode: read word list %q: %w", path, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil, fmt.Errorf("psdecode: word list %q is empty", path)
	}
	words := make([]model.WordID, len(fields))
	for i, w := range fields {
		id, ok := dict.Lookup(w)
		if !ok {
			return nil, fmt.Errorf("psdecode: word list %q: %q not found in dictionary", path, w)
		}
		words[i] = id
	}
	return words, nil
}
