package decoder

import (
	"github.com/cmusphinx/pocketsphinx-sub004/internal/acmodel"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/frontend"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/logmath"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/ngram"
)

// InputMode selects what ProcessRaw/ProcessCep accept, per spec.md §7's
// "scores-in-mode receiving PCM" input error: a decoder configured for one
// mode rejects the other.
type InputMode int

const (
	// InputRaw accepts 16-bit PCM through ProcessRaw; the front end computes
	// features. This is the default.
	InputRaw InputMode = iota
	// InputCep accepts precomputed 39-float feature vectors through
	// ProcessCep, bypassing the front end entirely.
	InputCep
)

// PhoneLoopConfig toggles and tunes the phone-loop prefilter (spec.md §4.3).
type PhoneLoopConfig struct {
	Enabled bool
	Window  int
	Beam    float64
}

// Config bundles every collaborator's tunables into the one value New
// needs beyond the Loaders that supply on-disk-derived tables.
type Config struct {
	FrontEnd  frontend.Config
	PhoneLoop PhoneLoopConfig
	Search    ngram.Config
	Input     InputMode

	// LogBase configures the shared integer log-domain table (spec.md §6
	// `logbase` flag); 0 uses logmath.DefaultBase.
	LogBase float64

	// ScorerOptions configures the acoustic scorer (spec.md §4.2's topN/BBI/
	// dump options), e.g. acmodel.WithTopN, acmodel.WithBBI, acmodel.WithDump.
	ScorerOptions []acmodel.Option
}

func (c Config) logBase() float64 {
	if c.LogBase <= 1.0 {
		return logmath.DefaultBase
	}
	return c.LogBase
}
