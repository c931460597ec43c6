package fsg_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fsg"
)

func newTestDict(t *testing.T) model.Dictionary {
	t.Helper()
	dict := model.NewMemDictionary()
	dict.AddWord(model.DictEntry{Word: "forward"})
	dict.AddWord(model.DictEntry{Word: "back"})
	return dict
}

func writeGrammarFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grammar.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write grammar file: %v", err)
	}
	return path
}

func TestLoadGrammar_ResolvesWordsAndEpsilonArcs(t *testing.T) {
	t.Parallel()
	dict := newTestDict(t)
	path := writeGrammarFile(t, `{
		"num_states": 3,
		"start": 0,
		"final": 2,
		"arcs": [
			{"from": 0, "to": 1, "word": "forward", "log_prob": -1},
			{"from": 1, "to": 2, "word": "", "log_prob": 0},
			{"from": 0, "to": 2, "word": "back", "log_prob": -2}
		]
	}`)

	g, err := fsg.LoadGrammar(path, dict)
	if err != nil {
		t.Fatalf("LoadGrammar: %v", err)
	}
	if g.NumStates != 3 || g.Start != 0 || g.Final != 2 {
		t.Fatalf("grammar shape = %+v, want NumStates=3 Start=0 Final=2", g)
	}

	wantForward, _ := dict.Lookup("forward")
	arcs := g.OutArcs(0)
	if len(arcs) != 2 {
		t.Fatalf("OutArcs(0) = %v, want 2 arcs", arcs)
	}
	if arcs[0].Word != wantForward || arcs[0].To != 1 || arcs[0].LogProb != -1 {
		t.Errorf("arc[0] = %+v, want word %v to 1 logprob -1", arcs[0], wantForward)
	}

	epsArcs := g.OutArcs(1)
	if len(epsArcs) != 1 || epsArcs[0].Word != model.NoWord {
		t.Fatalf("epsilon arc = %+v, want Word == model.NoWord", epsArcs)
	}

	// WordArcs(0) includes the direct word arc from state 0 to state 1.
	wordArcs := g.WordArcs(0)
	found := false
	for _, a := range wordArcs {
		if a.Word == wantForward && a.To == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("WordArcs(0) = %+v, want an arc reaching state 1 via %q", wordArcs, "forward")
	}
}

func TestLoadGrammar_UnknownWordIsError(t *testing.T) {
	t.Parallel()
	dict := newTestDict(t)
	path := writeGrammarFile(t, `{
		"num_states": 2,
		"start": 0,
		"final": 1,
		"arcs": [{"from": 0, "to": 1, "word": "nonexistent"}]
	}`)

	if _, err := fsg.LoadGrammar(path, dict); err == nil {
		t.Fatal("expected error for word missing from dictionary, got nil")
	}
}

func TestLoadGrammar_MissingFile(t *testing.T) {
	t.Parallel()
	dict := newTestDict(t)
	path := filepath.Join(t.TempDir(), "missing.json")
	if _, err := fsg.LoadGrammar(path, dict); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadGrammar_MalformedJSONIsError(t *testing.T) {
	t.Parallel()
	dict := newTestDict(t)
	path := writeGrammarFile(t, `{not valid json`)
	if _, err := fsg.LoadGrammar(path, dict); err == nil {
		t.Fatal("expected error for malformed json, got nil")
	}
}

func TestLoadGrammar_RoundTripsWithJSONMarshal(t *testing.T) {
	t.Parallel()
	dict := newTestDict(t)
	type arc struct {
		From    int     `json:"from"`
		To      int     `json:"to"`
		Word    string  `json:"word,omitempty"`
		LogProb float64 `json:"log_prob,omitempty"`
	}
	type doc struct {
		NumStates int   `json:"num_states"`
		Start     int   `json:"start"`
		Final     int   `json:"final"`
		Arcs      []arc `json:"arcs"`
	}
	data, err := json.Marshal(doc{
		NumStates: 2,
		Start:     0,
		Final:     1,
		Arcs:      []arc{{From: 0, To: 1, Word: "back"}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "grammar.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	g, err := fsg.LoadGrammar(path, dict)
	if err != nil {
		t.Fatalf("LoadGrammar: %v", err)
	}
	if len(g.OutArcs(0)) != 1 {
		t.Fatalf("OutArcs(0) = %v, want 1 arc", g.OutArcs(0))
	}
}
