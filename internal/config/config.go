// Package config provides the YAML configuration schema for the decoder
// CLI, mirroring spec.md §6's CLI flag surface field-for-field (`hmm`,
// `dict`, `lm`/`fsg`/`jsgf`/`kws`/`align`, `lw`, `wip`, `pip`, the beam
// family, `ds`, `topn`, the fwdtree/fwdflat/bestpath toggles, the front-end
// tunables, `vad_threshold`, `mllr`, `logbase`).
package config

import (
	"fmt"
	"strings"
)

// BoolFlag parses the four boolean spellings spec.md §6 requires CLI flags
// to accept: {yes/no, true/false, on/off, 1/0}, case-insensitively.
type BoolFlag bool

// UnmarshalYAML accepts any of the four spellings as well as native YAML
// booleans.
func (b *BoolFlag) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = BoolFlag(v)
		return nil
	case string:
		parsed, err := parseBoolFlag(v)
		if err != nil {
			return err
		}
		*b = parsed
		return nil
	default:
		return fmt.Errorf("config: boolean flag has unsupported type %T", raw)
	}
}

func parseBoolFlag(s string) (BoolFlag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "on", "1":
		return true, nil
	case "no", "false", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("config: %q is not a valid boolean flag (want yes/no, true/false, on/off, 1/0)", s)
	}
}

// SearchSpec names the mutually exclusive primary search mode a Config
// selects, derived from which of lm/fsg/jsgf/kws/align/allphone is set (spec.md §6:
// "search specifier, mutually exclusive in their primary role").
type SearchSpec int

const (
	SearchNone SearchSpec = iota
	SearchNGram
	SearchFSG
	SearchJSGF
	SearchKeyword
	SearchAlign
	SearchAllphone
)

func (s SearchSpec) String() string {
	switch s {
	case SearchNGram:
		return "lm"
	case SearchFSG:
		return "fsg"
	case SearchJSGF:
		return "jsgf"
	case SearchKeyword:
		return "kws"
	case SearchAlign:
		return "align"
	case SearchAllphone:
		return "allphone"
	default:
		return "none"
	}
}

// ModelConfig names the on-disk artifacts spec.md §6 treats as opaque
// collaborators: the core only calls their read contracts
// (model.MdefTable, model.Dictionary, model.Transitions, lm.Model, and the
// plain acmodel.Params struct).
type ModelConfig struct {
	Hmm  string `yaml:"hmm"`
	Dict string `yaml:"dict"`

	Lm       string `yaml:"lm"`
	Fsg      string `yaml:"fsg"`
	Jsgf     string `yaml:"jsgf"`
	Kws      string `yaml:"kws"`
	Align    string `yaml:"align"`
	Allphone string `yaml:"allphone"`

	Mllr string `yaml:"mllr"`
}

// Spec returns which search mode ModelConfig selects, or SearchNone if none
// of lm/fsg/jsgf/kws/align/allphone is set.
func (m ModelConfig) Spec() SearchSpec {
	switch {
	case m.Lm != "":
		return SearchNGram
	case m.Fsg != "":
		return SearchFSG
	case m.Jsgf != "":
		return SearchJSGF
	case m.Kws != "":
		return SearchKeyword
	case m.Align != "":
		return SearchAlign
	case m.Allphone != "":
		return SearchAllphone
	default:
		return SearchNone
	}
}

// SearchConfig holds the pruning beams, penalties and pass toggles of
// spec.md §4.4/§4.5/§4.6 and their matching §6 flags.
type SearchConfig struct {
	LanguageWeight        float64 `yaml:"lw"`
	WordInsertionPenalty  float64 `yaml:"wip"`
	PhoneInsertionPenalty float64 `yaml:"pip"`

	Beam         float64 `yaml:"beam"`
	PhoneBeam    float64 `yaml:"pbeam"`
	WordBeam     float64 `yaml:"wbeam"`
	FwdflatBeam  float64 `yaml:"fwdflatbeam"`
	FwdflatWBeam float64 `yaml:"fwdflatwbeam"`

	MaxHMMsPerFrame  int `yaml:"maxhmmpf"`
	MaxWordsPerFrame int `yaml:"maxwpf"`

	FwdTree  BoolFlag `yaml:"fwdtree"`
	FwdFlat  BoolFlag `yaml:"fwdflat"`
	BestPath BoolFlag `yaml:"bestpath"`

	KwsThreshold float64 `yaml:"kws_threshold"`
}

// FrontEndConfig holds the feature-extraction tunables of spec.md §4.1 and
// their matching §6 flags.
type FrontEndConfig struct {
	SampleRate float64 `yaml:"samprate"`
	FrameRate  float64 `yaml:"frate"`
	WindowLen  float64 `yaml:"wlen"`
	NFFT       int     `yaml:"nfft"`
	NCep       int     `yaml:"ncep"`
	NFilt      int     `yaml:"nfilt"`
	UpperFreq  float64 `yaml:"upperf"`
	LowerFreq  float64 `yaml:"lowerf"`
	Transform  string  `yaml:"transform"`

	// Downsample is the `ds` frame-downsample ratio: decode every Nth
	// frame. Not yet consumed by internal/frontend — recorded here for
	// config-surface parity and left for a later front-end change.
	Downsample int `yaml:"ds"`

	RemoveNoise BoolFlag `yaml:"remove_noise"`
	CMN         string   `yaml:"cmn"`
}

// DecoderConfig is the root configuration schema, one field per spec.md §6
// CLI flag grouped by the component it configures.
type DecoderConfig struct {
	Model     ModelConfig    `yaml:"model"`
	Search    SearchConfig   `yaml:"search"`
	FrontEnd  FrontEndConfig `yaml:"frontend"`
	TopN      int            `yaml:"topn"`
	VadThresh float64        `yaml:"vad_threshold"`
	LogBase   float64        `yaml:"logbase"`

	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds the ambient listen/logging settings for cmd/psdecode's
// optional streaming server, in the teacher's ServerConfig shape.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
}

// DefaultDecoderConfig returns the spec.md §6 defaults.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		Search: SearchConfig{
			LanguageWeight: 9.5,
			Beam:           1e-48,
			PhoneBeam:      1e-12,
			WordBeam:       1e-27,
			FwdflatBeam:    1e-64,
			FwdflatWBeam:   1e-20,
			WordInsertionPenalty:  0.65,
			PhoneInsertionPenalty: 1.0,
			FwdTree:        true,
			FwdFlat:        true,
			BestPath:       true,
			KwsThreshold:   1e-30,
		},
		FrontEnd: FrontEndConfig{
			SampleRate: 16000,
			FrameRate:  100,
			WindowLen:  0.0256,
			NFFT:       512,
			NCep:       13,
			NFilt:      40,
			UpperFreq:  6855.6,
			LowerFreq:  133.33,
			Downsample: 1,
			CMN:        "current",
		},
		TopN:      4,
		VadThresh: 0.5,
		LogBase:   1.0001,
		Server: ServerConfig{
			ListenAddr: ":8010",
			LogLevel:   "info",
		},
	}
}
