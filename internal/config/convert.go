package config

import (
	"math"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/decoder"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/frontend"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/phoneloop"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fwdflat"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fwdtree"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/ngram"
)

func ln(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	return math.Log(p)
}

// FrontEndConfig converts the YAML front-end fields into a
// [frontend.Config], applying [frontend.DefaultConfig]'s defaults for
// anything spec.md §6 doesn't expose as a flag.
func (c DecoderConfig) FrontEndConfig() frontend.Config {
	fe := frontend.DefaultConfig(c.FrontEnd.SampleRate)
	fe.FrameShiftSec = 1.0 / c.FrontEnd.FrameRate
	fe.FrameLengthSec = c.FrontEnd.WindowLen
	fe.FFTSize = c.FrontEnd.NFFT
	fe.NumCepstra = c.FrontEnd.NCep
	fe.NumFilters = c.FrontEnd.NFilt
	fe.UpperFreq = c.FrontEnd.UpperFreq
	fe.LowerFreq = c.FrontEnd.LowerFreq
	fe.RemoveNoise = bool(c.FrontEnd.RemoveNoise)
	fe.CMN = c.FrontEnd.CMN != "none"
	switch c.FrontEnd.Transform {
	case "dct":
		fe.DCT = frontend.DCTTypeII
	case "htk":
		fe.DCT = frontend.DCTHTK
	default:
		fe.DCT = frontend.DCTLegacy
	}
	return fe
}

// SearchConfig converts the YAML search fields into an [ngram.Config].
func (c DecoderConfig) SearchConfig() ngram.Config {
	tree := fwdtree.DefaultConfig()
	tree.GlobalBeam = ln(c.Search.Beam)
	tree.PhoneExitBeam = ln(c.Search.PhoneBeam)
	tree.WordExitBeam = ln(c.Search.WordBeam)
	tree.MaxHMMsPerFrame = c.Search.MaxHMMsPerFrame
	tree.MaxWordsPerFrame = c.Search.MaxWordsPerFrame
	tree.LanguageWeight = c.Search.LanguageWeight
	tree.WordInsertionPenalty = ln(c.Search.WordInsertionPenalty)
	tree.PhoneInsertionPenalty = ln(c.Search.PhoneInsertionPenalty)

	flat := fwdflat.DefaultConfig()
	flat.Beam = ln(c.Search.FwdflatBeam)
	flat.WordBeam = ln(c.Search.FwdflatWBeam)
	flat.LanguageWeight = c.Search.LanguageWeight
	flat.WordInsertionPenalty = ln(c.Search.WordInsertionPenalty)
	flat.PhoneInsertionPenalty = ln(c.Search.PhoneInsertionPenalty)

	return ngram.Config{
		Tree:   tree,
		Flat:   flat,
		Window: flat.Window,
		Lwf:    c.Search.LanguageWeight,
		Ascale: 1.0,
	}
}

// PhoneLoopConfig converts the YAML fields into a
// [decoder.PhoneLoopConfig]. The phone loop is enabled whenever fwdtree
// pruning is active, matching the original's implicit "the CI-phone loop
// always runs alongside the tree search" behavior.
func (c DecoderConfig) PhoneLoopConfig() decoder.PhoneLoopConfig {
	return decoder.PhoneLoopConfig{
		Enabled: bool(c.Search.FwdTree),
		Window:  phoneloop.DefaultWindow,
		Beam:    ln(c.Search.PhoneBeam),
	}
}

// DecoderConfig converts every YAML field into a [decoder.Config] ready for
// [decoder.New], alongside the on-disk artifact paths a caller's Loaders
// closures read from (ModelConfig is left to the caller since loading those
// files is explicitly out of scope here).
func (c DecoderConfig) ToDecoderConfig() decoder.Config {
	return decoder.Config{
		FrontEnd:  c.FrontEndConfig(),
		PhoneLoop: c.PhoneLoopConfig(),
		Search:    c.SearchConfig(),
		Input:     decoder.InputRaw,
		LogBase:   c.LogBase,
	}
}
