package fwdtree

import (
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
)

func newTestSearch(t *testing.T) (*Search, *model.MemDictionary, *model.MemMdef) {
	t.Helper()
	dict := model.NewMemDictionary()
	dict.AddWord(model.DictEntry{Word: "ab", Pron: []model.CIPhoneID{phA, phB}})
	dict.AddWord(model.DictEntry{Word: "endb", Pron: []model.CIPhoneID{phB}})

	mdef := model.NewMemMdef([]string{"A", "B"}, 3)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: model.CIPhoneNone, Right: phB, Position: model.PositionBegin}, 3, -1)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: phB, Right: phB, Position: model.PositionBegin}, 3, -1)

	trans := model.NewMemTransitions3(-0.1, -2.3, -4.6, false)
	tree := Build(dict, mdef)
	cfg := DefaultConfig()
	s := New(mdef, dict, lm.Uniform, trans, tree, cfg, bp.New())
	return s, dict, mdef
}

const (
	phA model.CIPhoneID = iota
	phB
)

func TestSearch_LastPhone(t *testing.T) {
	t.Parallel()
	s, dict, _ := newTestSearch(t)

	ab, _ := dict.Lookup("ab")
	if got := s.lastPhone(ab); got != phB {
		t.Errorf("lastPhone(ab) = %v, want B", got)
	}
	if got := s.lastPhone(dict.StartWordID()); got != model.CIPhoneNone {
		t.Errorf("lastPhone(<s>) = %v, want CIPhoneNone", got)
	}
	if got := s.lastPhone(model.WordID(9999)); got != model.CIPhoneNone {
		t.Errorf("lastPhone(unknown word) = %v, want CIPhoneNone", got)
	}
}

func TestSearch_SeedRoots_UsesPredecessorsLastPhoneAsLeftContext(t *testing.T) {
	t.Parallel()
	s, dict, _ := newTestSearch(t)

	ab, _ := dict.Lookup("ab")

	s.StartUtt()
	noneVariant := s.tree.Roots[phA][model.CIPhoneNone]
	wantSSIDNone := noneVariant.ChildSsid[phB]
	if got := s.activeRootSSID(t, ab, phB); got != wantSSIDNone {
		t.Errorf("entry ssid for <s>-seeded root = %v, want %v (the CIPhoneNone-left variant)", got, wantSSIDNone)
	}

	// Seed a completely fresh instance as if "endb" (last phone B) had just
	// finished: the entry ssid for "ab" must now be the left=B variant, not
	// the left=CIPhoneNone one reused for every predecessor.
	s2, dict2, _ := newTestSearch(t)
	endb2, _ := dict2.Lookup("endb")
	ab2, _ := dict2.Lookup("ab")
	s2.active = make(map[instKey]*hmmState)
	s2.bestScore = negInf
	predBP := s2.bpTable.Append(bp.Entry{Frame: 0, Word: endb2, Predecessor: bp.NoPredecessor, Score: 0})
	s2.seedRoots(predBP, endb2, 1)

	bVariant := s2.tree.Roots[phA][phB]
	wantSSIDB := bVariant.ChildSsid[phB]
	if got := s2.activeRootSSID(t, ab2, phB); got != wantSSIDB {
		t.Errorf("entry ssid after a word ending in B = %v, want %v (the left=B variant)", got, wantSSIDB)
	}
	if wantSSIDB == wantSSIDNone {
		t.Fatalf("test fixture did not actually give left=B and left=CIPhoneNone distinct ssids")
	}
}

// activeRootSSID returns the ssid of the live instance keyed by (the "ab"
// root node, right-context rc), failing the test if none is active.
func (s *Search) activeRootSSID(t *testing.T, word model.WordID, rc model.CIPhoneID) model.SSID {
	t.Helper()
	e, ok := s.dict.Word(word)
	if !ok || len(e.Pron) == 0 {
		t.Fatalf("word %v has no pronunciation", word)
	}
	first := e.Pron[0]
	for key, h := range s.active {
		if key.right != rc {
			continue
		}
		variants, ok := s.tree.Roots[first]
		if !ok {
			continue
		}
		for _, v := range variants {
			if key.node == v {
				return h.ssid
			}
		}
	}
	t.Fatalf("no active root instance found for word %v right-context %v", word, rc)
	return -1
}
