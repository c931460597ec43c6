package fwdtree_test

import (
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fwdtree"
)

// phones: A=0, B=1, C=2.
const (
	phA model.CIPhoneID = iota
	phB
	phC
)

func buildDictAndMdef(t *testing.T) (*model.MemDictionary, *model.MemMdef) {
	t.Helper()
	dict := model.NewMemDictionary()
	dict.AddWord(model.DictEntry{Word: "ab", Pron: []model.CIPhoneID{phA, phB}})
	dict.AddWord(model.DictEntry{Word: "ac", Pron: []model.CIPhoneID{phA, phC}})
	dict.AddWord(model.DictEntry{Word: "endb", Pron: []model.CIPhoneID{phB}})
	dict.AddWord(model.DictEntry{Word: "endc", Pron: []model.CIPhoneID{phC}})

	mdef := model.NewMemMdef([]string{"A", "B", "C"}, 3)
	// Distinct ssids per cross-word left context entering phone A, so the
	// test can tell apart a correct per-(first,left) build from one that
	// always resolves the context-free approximation.
	mdef.AddTriphone(model.Triphone{Base: phA, Left: model.CIPhoneNone, Right: phB, Position: model.PositionBegin}, 3, -1)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: phB, Right: phB, Position: model.PositionBegin}, 3, -1)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: phC, Right: phB, Position: model.PositionBegin}, 3, -1)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: model.CIPhoneNone, Right: phC, Position: model.PositionBegin}, 3, -1)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: phB, Right: phC, Position: model.PositionBegin}, 3, -1)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: phC, Right: phC, Position: model.PositionBegin}, 3, -1)

	return dict, mdef
}

func TestBuild_RootVariantsKeyedByCrossWordLeftContext(t *testing.T) {
	t.Parallel()
	dict, mdef := buildDictAndMdef(t)
	tree := fwdtree.Build(dict, mdef)

	variants, ok := tree.Roots[phA]
	if !ok {
		t.Fatalf("no root entry for first phone A")
	}

	// "endb" and "endc" are the dictionary's last phones, so both B and C
	// (plus the utterance-initial CIPhoneNone) must be modelled as distinct
	// left-context variants of A's root.
	for _, lc := range []model.CIPhoneID{model.CIPhoneNone, phB, phC} {
		if _, ok := variants[lc]; !ok {
			t.Errorf("Roots[A] missing variant for left context %v", lc)
		}
	}

	none := variants[model.CIPhoneNone]
	afterB := variants[phB]
	afterC := variants[phC]

	if none.ChildSsid[phB] == afterB.ChildSsid[phB] {
		t.Errorf("root entry ssid for right=B is identical whether entered from <s> or from a word ending in B: cross-word left context is not being applied")
	}
	if none.ChildSsid[phB] == afterC.ChildSsid[phB] {
		t.Errorf("root entry ssid for right=B is identical whether entered from <s> or from a word ending in C: cross-word left context is not being applied")
	}
	if afterB.ChildSsid[phB] == afterC.ChildSsid[phB] {
		t.Errorf("root entry ssid for right=B should differ between left context B and left context C")
	}

	// The within-word subtree beyond the entry phone never depends on
	// cross-word context, so all three variants must share the same child
	// nodes (tree.go's rootVariant contract).
	bChild := afterB.Children[phB]
	cChild := afterC.Children[phB]
	if bChild != cChild {
		t.Errorf("within-word subtree for right=B should be shared across left-context variants, got distinct nodes")
	}
}

func TestBuild_SinglePhoneWordsIgnoreLeftContext(t *testing.T) {
	t.Parallel()
	dict, mdef := buildDictAndMdef(t)
	tree := fwdtree.Build(dict, mdef)

	endbID, ok := dict.Lookup("endb")
	if !ok {
		t.Fatalf("endb not found")
	}
	variants, ok := tree.SinglePhoneWords[endbID]
	if !ok {
		t.Fatalf("no single-phone-word entry for endb")
	}
	if len(variants) == 0 {
		t.Errorf("expected at least one right-context variant for endb")
	}
}

func TestBuild_EmptyDictionaryYieldsEmptyTree(t *testing.T) {
	t.Parallel()
	dict := model.NewMemDictionary() // only filler words, all Pron-less
	mdef := model.NewMemMdef([]string{"A"}, 3)

	tree := fwdtree.Build(dict, mdef)
	if len(tree.Roots) != 0 {
		t.Errorf("Roots = %v, want empty", tree.Roots)
	}
	if len(tree.SinglePhoneWords) != 0 {
		t.Errorf("SinglePhoneWords = %v, want empty", tree.SinglePhoneWords)
	}
	if len(tree.LeftContextPhones) != 1 || tree.LeftContextPhones[0] != model.CIPhoneNone {
		t.Errorf("LeftContextPhones = %v, want only [CIPhoneNone]", tree.LeftContextPhones)
	}
}
