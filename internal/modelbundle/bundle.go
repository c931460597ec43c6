// Package modelbundle defines this repository's own on-disk format for the
// acoustic and language collaborators spec.md §1 declares out of scope
// ("model-file parsers ... these load data once into immutable tables
// consumed by the core; their internal organization is irrelevant"). It is
// not a reimplementation of sphinxbase's binary mdef/means/vars/mixw/ARPA
// formats — those stay unparsed, per spec.md §6's "formats owned by the
// excluded loaders" — but a small self-describing JSON document that
// populates the exact in-memory fixture types (model.MemMdef,
// model.MemDictionary, model.MemTransitions, acmodel.Params, lm.FixedModel)
// the rest of the module already exposes for tests, so that cmd/psdecode
// has something real to load from disk.
package modelbundle

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/acmodel"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

// Triphone is the JSON-friendly mirror of model.Triphone; Position is
// spelled out instead of using the int8 enum so bundle files stay readable.
type Triphone struct {
	Name     string `json:"name,omitempty"` // optional label other triphones can Share against
	Base     string `json:"base"`
	Left     string `json:"left,omitempty"`
	Right    string `json:"right,omitempty"`
	Position string `json:"position"` // internal, begin, end, single
	States   int    `json:"states"`
	Share    string `json:"share,omitempty"` // Name of an earlier triphone, or a ci_phones entry, to tie states to
}

// DictEntry is the JSON-friendly mirror of model.DictEntry.
type DictEntry struct {
	Word     string   `json:"word"`
	Pron     []string `json:"pron"`
	IsFiller bool     `json:"is_filler,omitempty"`
}

// Transitions describes the single shared 3-state left-to-right(-with-skip)
// topology every ssid in the bundle uses (model.NewMemTransitions3).
type Transitions struct {
	SelfLoopLn float64 `json:"self_loop_ln"`
	ForwardLn  float64 `json:"forward_ln"`
	SkipLn     float64 `json:"skip_ln"`
	AllowSkip  bool    `json:"allow_skip"`
}

// Unigram is one word's log10 unigram probability in the bundled language
// model (lm.FixedModel's native fixture shape).
type Unigram struct {
	Word    string  `json:"word"`
	LogProb float64 `json:"log_prob"`
}

// Bundle is the complete document one JSON file holds: every table
// decoder.Loaders needs, in one place.
type Bundle struct {
	CIPhones       []string      `json:"ci_phones"`
	StatesPerPhone int           `json:"states_per_phone"`
	Triphones      []Triphone    `json:"triphones,omitempty"`
	Transitions    Transitions   `json:"transitions"`
	AcousticParams acmodel.Params `json:"acoustic_params"`
	Dictionary     []DictEntry   `json:"dictionary"`
	Unigrams       []Unigram     `json:"unigrams,omitempty"`
	UnigramFloor   float64       `json:"unigram_floor"`
}

// Load reads and parses a bundle file.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modelbundle: read %q: %w", path, err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("modelbundle: parse %q: %w", path, err)
	}
	if len(b.CIPhones) == 0 {
		return nil, fmt.Errorf("modelbundle: %q: ci_phones must not be empty", path)
	}
	if b.StatesPerPhone <= 0 {
		return nil, fmt.Errorf("modelbundle: %q: states_per_phone must be >= 1", path)
	}
	return &b, nil
}

func (b *Bundle) ciIndex() map[string]model.CIPhoneID {
	idx := make(map[string]model.CIPhoneID, len(b.CIPhones))
	for i, name := range b.CIPhones {
		idx[name] = model.CIPhoneID(i)
	}
	return idx
}

func position(s string) model.WordPosition {
	switch s {
	case "begin":
		return model.PositionBegin
	case "end":
		return model.PositionEnd
	case "single":
		return model.PositionSingle
	default:
		return model.PositionInternal
	}
}

// ToMdef builds a model.MdefTable from the bundle's ci_phones and
// triphones lists.
func (b *Bundle) ToMdef() (model.MdefTable, error) {
	mdef := model.NewMemMdef(b.CIPhones, b.StatesPerPhone)
	ci := b.ciIndex()

	lookup := func(name string) (model.CIPhoneID, error) {
		if name == "" {
			return model.CIPhoneNone, nil
		}
		id, ok := ci[name]
		if !ok {
			return 0, fmt.Errorf("modelbundle: unknown ci phone %q", name)
		}
		return id, nil
	}

	named := make(map[string]model.SSID, len(b.Triphones))
	for _, t := range b.Triphones {
		base, err := lookup(t.Base)
		if err != nil {
			return nil, err
		}
		left, err := lookup(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := lookup(t.Right)
		if err != nil {
			return nil, err
		}

		shareSSID := model.SSID(-1)
		if t.Share != "" {
			if ssid, ok := named[t.Share]; ok {
				shareSSID = ssid
			} else if ciID, ok := ci[t.Share]; ok {
				shareSSID = mdef.LookupCI(ciID)
			} else {
				return nil, fmt.Errorf("modelbundle: triphone shares states with undefined %q", t.Share)
			}
		}

		triphone := model.Triphone{Base: base, Left: left, Right: right, Position: position(t.Position)}
		states := t.States
		if states == 0 {
			states = b.StatesPerPhone
		}
		ssid := mdef.AddTriphone(triphone, states, shareSSID)

		if t.Name != "" {
			named[t.Name] = ssid
		}
	}
	return mdef, nil
}

// ToDictionary builds a model.Dictionary from the bundle's word list.
func (b *Bundle) ToDictionary() (model.Dictionary, error) {
	ci := b.ciIndex()
	dict := model.NewMemDictionary()
	for _, e := range b.Dictionary {
		pron := make([]model.CIPhoneID, len(e.Pron))
		for i, ph := range e.Pron {
			id, ok := ci[ph]
			if !ok {
				return nil, fmt.Errorf("modelbundle: word %q: unknown phone %q", e.Word, ph)
			}
			pron[i] = id
		}
		dict.AddWord(model.DictEntry{Word: e.Word, Pron: pron, IsFiller: e.IsFiller})
	}
	return dict, nil
}

// ToTransitions builds the shared model.Transitions topology.
func (b *Bundle) ToTransitions() model.Transitions {
	return model.NewMemTransitions3(b.Transitions.SelfLoopLn, b.Transitions.ForwardLn, b.Transitions.SkipLn, b.Transitions.AllowSkip)
}

// ToAcousticParams returns the bundle's acoustic model parameters directly;
// acmodel.Params is already a plain JSON-shaped struct.
func (b *Bundle) ToAcousticParams() *acmodel.Params {
	p := b.AcousticParams
	return &p
}

// ToLanguageModel builds an lm.FixedModel seeded with the bundle's unigram
// table, for search modes that consult a real n-gram (spec.md §4.4/§4.5).
// Grammar-, threshold- or known-text-driven modes (fsg, keyword, align) use
// lm.Uniform instead and never call this.
func (b *Bundle) ToLanguageModel(dict model.Dictionary) (lm.Model, error) {
	fm := lm.NewFixedModel(b.UnigramFloor)
	for _, u := range b.Unigrams {
		id, ok := dict.Lookup(u.Word)
		if !ok {
			return nil, fmt.Errorf("modelbundle: unigram %q not found in dictionary", u.Word)
		}
		fm.SetUnigram(id, u.LogProb)
	}
	return fm, nil
}
