package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [DecoderConfig] seeded with [DefaultDecoderConfig]'s defaults.
func Load(path string) (*DecoderConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [DefaultDecoderConfig]
// and validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*DecoderConfig, error) {
	cfg := DefaultDecoderConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values, returning a
// joined error listing every failure found (spec.md §7's Configuration
// error kind: "invalid beam, non-power-of-two FFT, upper band above
// Nyquist, frame size above FFT, unknown transform, unknown VAD mode").
func Validate(cfg *DecoderConfig) error {
	var errs []error

	if cfg.Model.Hmm == "" {
		errs = append(errs, fmt.Errorf("model.hmm is required"))
	}
	if cfg.Model.Dict == "" {
		errs = append(errs, fmt.Errorf("model.dict is required"))
	}

	specs := 0
	for _, v := range []string{cfg.Model.Lm, cfg.Model.Fsg, cfg.Model.Jsgf, cfg.Model.Kws, cfg.Model.Align, cfg.Model.Allphone} {
		if v != "" {
			specs++
		}
	}
	if specs == 0 {
		errs = append(errs, fmt.Errorf("exactly one of model.lm/fsg/jsgf/kws/align/allphone is required, none set"))
	} else if specs > 1 {
		errs = append(errs, fmt.Errorf("exactly one of model.lm/fsg/jsgf/kws/align/allphone is required, %d set", specs))
	}

	// Beams are probabilities in (0, 1), converted to natural log by the
	// search packages; a value outside that range can never have come from
	// a real pruning threshold.
	if cfg.Search.Beam <= 0 || cfg.Search.Beam >= 1 {
		errs = append(errs, fmt.Errorf("search.beam %g must be in (0, 1)", cfg.Search.Beam))
	}
	if cfg.Search.PhoneBeam <= 0 || cfg.Search.PhoneBeam >= 1 {
		errs = append(errs, fmt.Errorf("search.pbeam %g must be in (0, 1)", cfg.Search.PhoneBeam))
	}
	if cfg.Search.WordBeam <= 0 || cfg.Search.WordBeam >= 1 {
		errs = append(errs, fmt.Errorf("search.wbeam %g must be in (0, 1)", cfg.Search.WordBeam))
	}

	if cfg.FrontEnd.NFFT <= 0 || cfg.FrontEnd.NFFT&(cfg.FrontEnd.NFFT-1) != 0 {
		errs = append(errs, fmt.Errorf("frontend.nfft %d is not a power of two", cfg.FrontEnd.NFFT))
	}
	frameSamples := int(cfg.FrontEnd.WindowLen*cfg.FrontEnd.SampleRate + 0.5)
	if frameSamples > cfg.FrontEnd.NFFT {
		errs = append(errs, fmt.Errorf("frontend.wlen %gs at %gHz (%d samples) exceeds nfft %d", cfg.FrontEnd.WindowLen, cfg.FrontEnd.SampleRate, frameSamples, cfg.FrontEnd.NFFT))
	}
	if cfg.FrontEnd.UpperFreq > cfg.FrontEnd.SampleRate/2 {
		errs = append(errs, fmt.Errorf("frontend.upperf %g exceeds Nyquist %g", cfg.FrontEnd.UpperFreq, cfg.FrontEnd.SampleRate/2))
	}
	if cfg.FrontEnd.NCep <= 0 || cfg.FrontEnd.NCep > cfg.FrontEnd.NFilt {
		errs = append(errs, fmt.Errorf("frontend.ncep %d must be in (0, nfilt=%d]", cfg.FrontEnd.NCep, cfg.FrontEnd.NFilt))
	}
	switch cfg.FrontEnd.Transform {
	case "", "legacy", "dct", "htk":
	default:
		errs = append(errs, fmt.Errorf("frontend.transform %q is invalid; valid values: legacy, dct, htk", cfg.FrontEnd.Transform))
	}
	switch cfg.FrontEnd.CMN {
	case "", "current", "prior", "none":
	default:
		errs = append(errs, fmt.Errorf("frontend.cmn %q is invalid; valid values: current, prior, none", cfg.FrontEnd.CMN))
	}
	if cfg.FrontEnd.Downsample <= 0 {
		errs = append(errs, fmt.Errorf("frontend.ds %d must be >= 1", cfg.FrontEnd.Downsample))
	}

	if cfg.VadThresh <= 0 || cfg.VadThresh > 1 {
		errs = append(errs, fmt.Errorf("vad_threshold %g must be in (0, 1]", cfg.VadThresh))
	}
	if cfg.LogBase <= 1.0 {
		errs = append(errs, fmt.Errorf("logbase %g must be > 1.0", cfg.LogBase))
	}
	if cfg.TopN <= 0 {
		errs = append(errs, fmt.Errorf("topn %d must be >= 1", cfg.TopN))
	}

	return errors.Join(errs...)
}
