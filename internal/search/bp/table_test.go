package bp_test

import (
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
	"pgregory.net/rapid"
)

func TestTable_Append_BasicChain(t *testing.T) {
	t.Parallel()
	table := bp.New()

	start := table.Append(bp.Entry{Frame: 0, Word: 1, Predecessor: bp.NoPredecessor, Score: 0})
	mid := table.Append(bp.Entry{Frame: 3, Word: 2, Predecessor: start, Score: -10})
	end := table.Append(bp.Entry{Frame: 7, Word: 3, Predecessor: mid, Score: -25})

	chain := table.Chain(end)
	if len(chain) != 3 {
		t.Fatalf("Chain(end) has %d entries, want 3", len(chain))
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].Frame < chain[i-1].Frame {
			t.Errorf("Chain is not chronological: entry %d frame %d precedes entry %d frame %d", i, chain[i].Frame, i-1, chain[i-1].Frame)
		}
	}
	if chain[0].Word != 1 || chain[1].Word != 2 || chain[2].Word != 3 {
		t.Errorf("Chain words = %v, want [1 2 3]", []model.WordID{chain[0].Word, chain[1].Word, chain[2].Word})
	}
}

func TestTable_Append_PanicsOnForwardPredecessor(t *testing.T) {
	t.Parallel()
	table := bp.New()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic appending an entry whose predecessor does not strictly precede it")
		}
	}()
	table.Append(bp.Entry{Frame: 0, Word: 1, Predecessor: 0})
}

func TestTable_Reset_ClearsAllState(t *testing.T) {
	t.Parallel()
	table := bp.New()
	table.Append(bp.Entry{Frame: 0, Word: 1, Predecessor: bp.NoPredecessor})
	table.Append(bp.Entry{Frame: 2, Word: 2, Predecessor: 0})

	table.Reset()

	if got := table.Len(); got != 0 {
		t.Errorf("Len() after Reset = %d, want 0", got)
	}
	if _, ok := table.BestOfLastFrame(); ok {
		t.Errorf("BestOfLastFrame() after Reset = ok, want not found")
	}
	if got := table.FirstOfFrame(0); got != 0 {
		t.Errorf("FirstOfFrame(0) after Reset = %d, want 0", got)
	}
}

// TestTable_FirstOfFrame_Monotone checks spec.md §4.4's append-only
// invariant: FirstOfFrame never decreases as the queried frame increases,
// for any sequence of entries appended with non-decreasing frames and
// predecessors that always strictly precede their entry.
func TestTable_FirstOfFrame_Monotone(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		table := bp.New()
		n := rapid.IntRange(0, 50).Draw(t, "n")
		frame := 0
		for i := 0; i < n; i++ {
			frame += rapid.IntRange(0, 2).Draw(t, "frameAdvance")
			pred := bp.NoPredecessor
			if i > 0 && rapid.Bool().Draw(t, "hasPred") {
				pred = bp.Index(rapid.IntRange(0, i-1).Draw(t, "predIdx"))
			}
			table.Append(bp.Entry{
				Frame:       frame,
				Word:        model.WordID(rapid.IntRange(0, 20).Draw(t, "word")),
				Predecessor: pred,
				Score:       rapid.Float64Range(-1e6, 0).Draw(t, "score"),
			})
		}

		maxFrame := frame + 2
		prev := table.FirstOfFrame(0)
		for f := 1; f <= maxFrame; f++ {
			cur := table.FirstOfFrame(f)
			if cur < prev {
				t.Fatalf("FirstOfFrame(%d) = %d < FirstOfFrame(%d) = %d, monotonicity violated", f, cur, f-1, prev)
			}
			prev = cur
		}
		if got := table.FirstOfFrame(maxFrame); int(got) != table.Len() {
			t.Fatalf("FirstOfFrame(beyond last frame) = %d, want Len() = %d", got, table.Len())
		}

		// Idempotence: repeated queries for the same frame return the same
		// index without mutating the table.
		lenBefore := table.Len()
		for f := 0; f <= maxFrame; f++ {
			a := table.FirstOfFrame(f)
			b := table.FirstOfFrame(f)
			if a != b {
				t.Fatalf("FirstOfFrame(%d) not idempotent: %d then %d", f, a, b)
			}
		}
		if table.Len() != lenBefore {
			t.Fatalf("querying FirstOfFrame mutated the table: Len %d -> %d", lenBefore, table.Len())
		}
	})
}

// TestTable_Chain_ChronologicalAndIdempotent checks that Chain always
// returns entries in non-decreasing frame order ending at the requested
// index, and that repeated calls return identical results (spec.md §4.4
// "walk the predecessor chain ... and reverse").
func TestTable_Chain_ChronologicalAndIdempotent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		table := bp.New()
		n := rapid.IntRange(1, 50).Draw(t, "n")
		frame := 0
		var indices []bp.Index
		for i := 0; i < n; i++ {
			frame += rapid.IntRange(0, 2).Draw(t, "frameAdvance")
			pred := bp.NoPredecessor
			if i > 0 && rapid.Bool().Draw(t, "hasPred") {
				pred = indices[rapid.IntRange(0, i-1).Draw(t, "predIdx")]
			}
			idx := table.Append(bp.Entry{
				Frame:       frame,
				Word:        model.WordID(i),
				Predecessor: pred,
			})
			indices = append(indices, idx)
		}

		target := indices[rapid.IntRange(0, len(indices)-1).Draw(t, "targetIdx")]
		chainA := table.Chain(target)
		chainB := table.Chain(target)
		if len(chainA) != len(chainB) {
			t.Fatalf("Chain not idempotent: lengths %d vs %d", len(chainA), len(chainB))
		}
		for i := range chainA {
			if chainA[i] != chainB[i] {
				t.Fatalf("Chain not idempotent at entry %d: %+v vs %+v", i, chainA[i], chainB[i])
			}
		}
		for i := 1; i < len(chainA); i++ {
			if chainA[i].Frame < chainA[i-1].Frame {
				t.Fatalf("Chain not chronological: entry %d frame %d precedes entry %d frame %d", i, chainA[i].Frame, i-1, chainA[i-1].Frame)
			}
		}
		if len(chainA) == 0 {
			t.Fatalf("Chain(target) is empty, want at least the target entry")
		}
		if chainA[len(chainA)-1].Word != table.Get(target).Word {
			t.Fatalf("Chain's last entry word = %v, want the target entry's word %v", chainA[len(chainA)-1].Word, table.Get(target).Word)
		}
	})
}
