// Package fwdtree implements the lexicon-tree forward search of spec.md
// §4.4: a shared-prefix phonetic tree of the vocabulary, time-synchronous
// Viterbi, three-beam pruning, and word transitions that seed the next
// frame's root HMMs, writing exits into the shared backpointer table.
//
// Root HMM instances are built per (first-phone, previous-word-last-phone)
// pair, per spec.md §3's "leaf nodes are allocated per (last-phone,
// left-context) pair" and §4.4's root-layer definition. The within-word
// subtree beyond the first phone never depends on that cross-word context
// (only the entry phone's own triphone does), so every left-context variant
// of a given first phone shares one underlying subtree and differs only in
// its own entry ssids; see rootVariant. Word-final (and single-phone word)
// right-context fan-out is modelled per spec.md §4.4 step 6, since the set
// of distinct word-initial phones is known statically at tree-build time.
package fwdtree

import "github.com/cmusphinx/pocketsphinx-sub004/internal/model"

// Node is one position in the shared phonetic tree: the phone at this
// depth, plus lazily-unambiguous senone-sequence ids for every way of
// leaving it.
type Node struct {
	Phone       model.CIPhoneID
	ParentPhone model.CIPhoneID // the within-word left context; for a root variant, the cross-word left context instead

	Children map[model.CIPhoneID]*Node

	// ChildSsid[c] is this node's ssid when its right context is child c's
	// phone (internal node, Position=Internal/Begin).
	ChildSsid map[model.CIPhoneID]model.SSID

	// LeafRightSsid[rc] is this node's ssid as a word-final phone, for each
	// plausible next-word first phone rc (Position=End). Populated only
	// when Words is non-empty.
	LeafRightSsid map[model.CIPhoneID]model.SSID

	// Words lists word ids whose pronunciation ends exactly at this node.
	Words []model.WordID
}

// Tree holds the whole shared-prefix forest (one tree per first phone, one
// variant per cross-word left context) plus the single-phone-word table,
// and the static left-/right-context phone sets used for root/leaf fan-out.
type Tree struct {
	// Roots[first][left] is the root HMM instance for words starting with
	// phone first, entered with cross-word left context left (the previous
	// word's last phone, or [model.CIPhoneNone] for the utterance-initial
	// "previous word" <s>).
	Roots map[model.CIPhoneID]map[model.CIPhoneID]*Node

	// LeftContextPhones is the distinct set of cross-word left contexts
	// Roots is built for: every word's last phone, plus CIPhoneNone.
	LeftContextPhones []model.CIPhoneID

	// SinglePhoneWords[w][rc] is the ssid for single-phone word w with
	// right context rc (Position=Single).
	SinglePhoneWords map[model.WordID]map[model.CIPhoneID]model.SSID

	RightContextPhones []model.CIPhoneID // distinct word-initial CI phones
}

// Build constructs the tree from dict's pronunciations, resolved against
// mdef's triphone table.
func Build(dict model.Dictionary, mdef model.MdefTable) *Tree {
	t := &Tree{
		Roots:            make(map[model.CIPhoneID]map[model.CIPhoneID]*Node),
		SinglePhoneWords: make(map[model.WordID]map[model.CIPhoneID]model.SSID),
	}

	rcSet := make(map[model.CIPhoneID]bool)
	lcSet := map[model.CIPhoneID]bool{model.CIPhoneNone: true}
	for id := 0; id < dict.NumWords(); id++ {
		e, ok := dict.Word(model.WordID(id))
		if !ok || len(e.Pron) == 0 {
			continue
		}
		rcSet[e.Pron[0]] = true
		lcSet[e.Pron[len(e.Pron)-1]] = true
	}
	for p := range rcSet {
		t.RightContextPhones = append(t.RightContextPhones, p)
	}
	for p := range lcSet {
		t.LeftContextPhones = append(t.LeftContextPhones, p)
	}

	// master[first] is the shared within-word subtree for first phone,
	// built once; its own depth-0 ChildSsid values are placeholders,
	// discarded in favor of rootVariant's per-left-context recomputation.
	master := make(map[model.CIPhoneID]*Node)

	for id := 0; id < dict.NumWords(); id++ {
		w := model.WordID(id)
		e, ok := dict.Word(w)
		if !ok || len(e.Pron) == 0 {
			continue
		}
		if len(e.Pron) == 1 {
			t.SinglePhoneWords[w] = leafRightVariants(mdef, e.Pron[0], model.CIPhoneNone, model.PositionSingle, t.RightContextPhones)
			continue
		}

		first := e.Pron[0]
		root, ok := master[first]
		if !ok {
			root = &Node{Phone: first, ParentPhone: model.CIPhoneNone, Children: map[model.CIPhoneID]*Node{}, ChildSsid: map[model.CIPhoneID]model.SSID{}}
			master[first] = root
		}
		insertPron(root, mdef, e.Pron, 0, w, t.RightContextPhones)
	}

	for first, tmpl := range master {
		variants := make(map[model.CIPhoneID]*Node, len(t.LeftContextPhones))
		for _, lc := range t.LeftContextPhones {
			variants[lc] = rootVariant(tmpl, mdef, lc)
		}
		t.Roots[first] = variants
	}
	return t
}

// rootVariant returns the root node for tmpl's first phone entered with
// cross-word left context left: same within-word subtree (Children is
// shared, since it never depends on cross-word context) but its own entry
// ssids, looked up with the real Left phone instead of tmpl's placeholder.
func rootVariant(tmpl *Node, mdef model.MdefTable, left model.CIPhoneID) *Node {
	v := &Node{
		Phone:       tmpl.Phone,
		ParentPhone: left,
		Children:    tmpl.Children,
		ChildSsid:   make(map[model.CIPhoneID]model.SSID, len(tmpl.ChildSsid)),
	}
	for child := range tmpl.ChildSsid {
		ssid, ok := mdef.Lookup(model.Triphone{Base: v.Phone, Left: left, Right: child, Position: model.PositionBegin})
		if !ok {
			ssid = mdef.LookupCI(v.Phone)
		}
		v.ChildSsid[child] = ssid
	}
	return v
}

// insertPron walks/creates tree nodes for pron[depth:], attaching w at the
// final node.
func insertPron(node *Node, mdef model.MdefTable, pron []model.CIPhoneID, depth int, w model.WordID, rcPhones []model.CIPhoneID) {
	if depth == len(pron)-1 {
		node.Words = append(node.Words, w)
		if node.LeafRightSsid == nil {
			pos := model.PositionEnd
			if depth == 0 {
				pos = model.PositionBegin // shouldn't occur: single-phone handled separately
			}
			node.LeafRightSsid = leafRightVariants(mdef, node.Phone, node.ParentPhone, pos, rcPhones)
		}
		return
	}

	next := pron[depth+1]
	child, ok := node.Children[next]
	if !ok {
		child = &Node{Phone: next, ParentPhone: node.Phone, Children: map[model.CIPhoneID]*Node{}, ChildSsid: map[model.CIPhoneID]model.SSID{}}
		node.Children[next] = child
	}
	if _, have := node.ChildSsid[next]; !have {
		pos := model.PositionInternal
		if depth == 0 {
			pos = model.PositionBegin
		}
		ssid, ok := mdef.Lookup(model.Triphone{Base: node.Phone, Left: node.ParentPhone, Right: next, Position: pos})
		if !ok {
			ssid = mdef.LookupCI(node.Phone)
		}
		node.ChildSsid[next] = ssid
	}
	insertPron(child, mdef, pron, depth+1, w, rcPhones)
}

func leafRightVariants(mdef model.MdefTable, phone, left model.CIPhoneID, pos model.WordPosition, rcPhones []model.CIPhoneID) map[model.CIPhoneID]model.SSID {
	out := make(map[model.CIPhoneID]model.SSID, len(rcPhones))
	for _, rc := range rcPhones {
		ssid, ok := mdef.Lookup(model.Triphone{Base: phone, Left: left, Right: rc, Position: pos})
		if !ok {
			ssid = mdef.LookupCI(phone)
		}
		out[rc] = ssid
	}
	return out
}
