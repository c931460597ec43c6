package modelbundle_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/modelbundle"
)

func writeBundle(t *testing.T, b modelbundle.Bundle) string {
	t.Helper()
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	return path
}

func smallBundle() modelbundle.Bundle {
	return modelbundle.Bundle{
		CIPhones:       []string{"SIL", "AA", "B"},
		StatesPerPhone: 3,
		Triphones: []modelbundle.Triphone{
			{Name: "aa-base", Base: "AA", Position: "single", States: 3},
			{Base: "AA", Position: "single", States: 3, Share: "aa-base"},
			{Base: "B", Position: "single", States: 3, Share: "SIL"},
		},
		Transitions: modelbundle.Transitions{SelfLoopLn: -0.1, ForwardLn: -2.3},
		Dictionary: []modelbundle.DictEntry{
			{Word: "A", Pron: []string{"AA"}},
			{Word: "B", Pron: []string{"B"}},
		},
		Unigrams: []modelbundle.Unigram{
			{Word: "A", LogProb: -1},
			{Word: "B", LogProb: -2},
		},
		UnigramFloor: -10,
	}
}

func TestLoad_RejectsEmptyCIPhones(t *testing.T) {
	t.Parallel()
	path := writeBundle(t, modelbundle.Bundle{StatesPerPhone: 3})
	if _, err := modelbundle.Load(path); err == nil {
		t.Fatal("expected error for empty ci_phones, got nil")
	}
}

func TestLoad_RejectsZeroStatesPerPhone(t *testing.T) {
	t.Parallel()
	path := writeBundle(t, modelbundle.Bundle{CIPhones: []string{"SIL"}})
	if _, err := modelbundle.Load(path); err == nil {
		t.Fatal("expected error for states_per_phone <= 0, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := modelbundle.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestToMdef_SharedTriphoneTiesSSID(t *testing.T) {
	t.Parallel()
	path := writeBundle(t, smallBundle())
	b, err := modelbundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	mdef, err := b.ToMdef()
	if err != nil {
		t.Fatalf("ToMdef: %v", err)
	}

	if mdef.NumCIPhones() != 3 {
		t.Fatalf("NumCIPhones = %d, want 3", mdef.NumCIPhones())
	}

	aa := model.Triphone{Base: 1, Left: model.CIPhoneNone, Right: model.CIPhoneNone, Position: model.PositionSingle}
	ssid1, ok := mdef.Lookup(aa)
	if !ok {
		t.Fatalf("Lookup(%v) not found", aa)
	}

	// The second AA triphone entry shares aa-base's ssid by Name.
	ssid2, ok := mdef.Lookup(aa)
	if !ok || ssid2 != ssid1 {
		t.Fatalf("second AA triphone ssid = %v, want %v (tied via Name)", ssid2, ssid1)
	}

	// B shares SIL's bare CI ssid.
	bTri := model.Triphone{Base: 2, Left: model.CIPhoneNone, Right: model.CIPhoneNone, Position: model.PositionSingle}
	bSSID, ok := mdef.Lookup(bTri)
	if !ok {
		t.Fatalf("Lookup(%v) not found", bTri)
	}
	if bSSID != mdef.LookupCI(0) {
		t.Fatalf("B's ssid = %v, want tied to SIL's bare ssid %v", bSSID, mdef.LookupCI(0))
	}
}

func TestToMdef_UnknownShareIsError(t *testing.T) {
	t.Parallel()
	b := smallBundle()
	b.Triphones = []modelbundle.Triphone{
		{Base: "AA", Position: "single", States: 3, Share: "does-not-exist"},
	}
	path := writeBundle(t, b)
	loaded, err := modelbundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := loaded.ToMdef(); err == nil {
		t.Fatal("expected error for undefined share target, got nil")
	}
}

func TestToMdef_UnknownPhoneIsError(t *testing.T) {
	t.Parallel()
	b := smallBundle()
	b.Triphones = []modelbundle.Triphone{{Base: "ZZ", Position: "single", States: 3}}
	path := writeBundle(t, b)
	loaded, err := modelbundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := loaded.ToMdef(); err == nil {
		t.Fatal("expected error for unknown ci phone, got nil")
	}
}

func TestToDictionary_ResolvesPronunciations(t *testing.T) {
	t.Parallel()
	path := writeBundle(t, smallBundle())
	b, err := modelbundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dict, err := b.ToDictionary()
	if err != nil {
		t.Fatalf("ToDictionary: %v", err)
	}
	id, ok := dict.Lookup("A")
	if !ok {
		t.Fatal(`Lookup("A") not found`)
	}
	entry, ok := dict.Word(id)
	if !ok || len(entry.Pron) != 1 || entry.Pron[0] != 1 {
		t.Fatalf("entry for A = %+v, want one phone with id 1 (AA)", entry)
	}
}

func TestToDictionary_UnknownPhoneIsError(t *testing.T) {
	t.Parallel()
	b := smallBundle()
	b.Dictionary = []modelbundle.DictEntry{{Word: "X", Pron: []string{"ZZ"}}}
	path := writeBundle(t, b)
	loaded, err := modelbundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := loaded.ToDictionary(); err == nil {
		t.Fatal("expected error for unknown phone in pronunciation, got nil")
	}
}

func TestToLanguageModel_SeedsUnigrams(t *testing.T) {
	t.Parallel()
	path := writeBundle(t, smallBundle())
	b, err := modelbundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dict, err := b.ToDictionary()
	if err != nil {
		t.Fatalf("ToDictionary: %v", err)
	}
	lmModel, err := b.ToLanguageModel(dict)
	if err != nil {
		t.Fatalf("ToLanguageModel: %v", err)
	}
	if lmModel == nil {
		t.Fatal("ToLanguageModel returned nil model")
	}
}

func TestToLanguageModel_UnknownWordIsError(t *testing.T) {
	t.Parallel()
	b := smallBundle()
	b.Unigrams = append(b.Unigrams, modelbundle.Unigram{Word: "nope", LogProb: -5})
	path := writeBundle(t, b)
	loaded, err := modelbundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dict, err := loaded.ToDictionary()
	if err != nil {
		t.Fatalf("ToDictionary: %v", err)
	}
	if _, err := loaded.ToLanguageModel(dict); err == nil {
		t.Fatal("expected error for unigram word missing from dictionary, got nil")
	}
}

func TestToTransitions_BuildsWithoutPanic(t *testing.T) {
	t.Parallel()
	path := writeBundle(t, smallBundle())
	b, err := modelbundle.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	trans := b.ToTransitions()
	if trans == nil {
		t.Fatal("ToTransitions returned nil")
	}
}
