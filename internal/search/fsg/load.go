package fsg

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

// jsonArc is the on-disk shape of one grammar arc. Word is a dictionary
// word spelled out as text; an empty string is an epsilon arc, matching
// spec.md §6's "fsg"/"jsgf" CLI flags (the original's binary FSG and
// textual JSGF grammar formats both stay unparsed per spec.md §1 — this
// JSON shape is this repository's own read contract for the same search
// mode, not a reimplementation of either).
type jsonArc struct {
	From    State   `json:"from"`
	To      State   `json:"to"`
	Word    string  `json:"word,omitempty"`
	LogProb float64 `json:"log_prob,omitempty"`
}

type jsonGrammar struct {
	NumStates int       `json:"num_states"`
	Start     State     `json:"start"`
	Final     State     `json:"final"`
	Arcs      []jsonArc `json:"arcs"`
}

// LoadGrammar reads a JSON grammar file and resolves its arc words against
// dict, producing a ready-to-search Grammar.
func LoadGrammar(path string, dict model.Dictionary) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fsg: read %q: %w", path, err)
	}
	var jg jsonGrammar
	if err := json.Unmarshal(data, &jg); err != nil {
		return nil, fmt.Errorf("fsg: parse %q: %w", path, err)
	}

	g := NewGrammar(jg.NumStates, jg.Start, jg.Final)
	for _, a := range jg.Arcs {
		word := model.NoWord
		if a.Word != "" {
			id, ok := dict.Lookup(a.Word)
			if !ok {
				return nil, fmt.Errorf("fsg: %q: word %q not found in dictionary", path, a.Word)
			}
			word = id
		}
		g.AddArc(a.From, Arc{To: a.To, Word: word, LogProb: a.LogProb})
	}
	return g, nil
}
