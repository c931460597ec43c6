package fwdflat

import (
	"math"
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
)

const (
	phA model.CIPhoneID = iota
	phB
)

// newTestSearch builds a two-phone word "hello" (A, B) whose triphones are
// registered for the only left/right contexts this fixture ever produces:
// phone 0 entered from <s> (left=CIPhoneNone), phone 1 as the word's last
// phone (right approximated as CIPhoneNone per the package doc).
func newTestSearch(t *testing.T) (*Search, *model.MemDictionary, *bp.Table) {
	t.Helper()
	dict := model.NewMemDictionary()
	dict.AddWord(model.DictEntry{Word: "hello", Pron: []model.CIPhoneID{phA, phB}})

	mdef := model.NewMemMdef([]string{"A", "B"}, 3)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: model.CIPhoneNone, Right: phB, Position: model.PositionBegin}, 3, -1)
	mdef.AddTriphone(model.Triphone{Base: phB, Left: phA, Right: model.CIPhoneNone, Position: model.PositionEnd}, 3, -1)

	trans := model.NewMemTransitions3(-0.1, -2.3, -4.6, false)
	cfg := DefaultConfig()
	bpTable := bp.New()
	s := New(mdef, dict, lm.Uniform, trans, cfg, bpTable)
	return s, dict, bpTable
}

func TestSearch_PhoneSSID_SinglePhoneUsesPositionSingle(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestSearch(t)

	mdef := s.mdef.(*model.MemMdef)
	mdef.AddTriphone(model.Triphone{Base: phA, Left: model.CIPhoneNone, Right: model.CIPhoneNone, Position: model.PositionSingle}, 3, -1)

	ssid, final := s.phoneSSID([]model.CIPhoneID{phA}, 0, model.CIPhoneNone)
	if !final {
		t.Error("phoneSSID for a single-phone word: final = false, want true")
	}
	want, ok := mdef.Lookup(model.Triphone{Base: phA, Left: model.CIPhoneNone, Right: model.CIPhoneNone, Position: model.PositionSingle})
	if !ok || ssid != want {
		t.Errorf("phoneSSID = %v, want %v (PositionSingle triphone)", ssid, want)
	}
}

func TestSearch_LastPhone(t *testing.T) {
	t.Parallel()
	s, dict, _ := newTestSearch(t)

	hello, _ := dict.Lookup("hello")
	if got := s.lastPhone(hello); got != phB {
		t.Errorf("lastPhone(hello) = %v, want B", got)
	}
	if got := s.lastPhone(dict.StartWordID()); got != model.CIPhoneNone {
		t.Errorf("lastPhone(<s>) = %v, want CIPhoneNone", got)
	}
}

// TestSearch_Step_WalksWholeWordAndEmitsExit hand-verifies the exact frame
// the word exit appears on: with every observation score held at 0, the
// 3-state left-to-right (no skip) topology's fixed self-loop/forward scores
// fully determine each phone's state-2 arrival frame, so the "hello" word
// exit must land on frame 4 with StartFrame 0 (the word's first phone's
// entry frame, not its second phone's).
func TestSearch_Step_WalksWholeWordAndEmitsExit(t *testing.T) {
	t.Parallel()
	s, dict, bpTable := newTestSearch(t)
	hello, _ := dict.Lookup("hello")

	windowWords := map[int][]model.WordID{0: {hello}}
	s.StartUtt(windowWords)

	scores := make([]float64, s.mdef.NumSenones())

	var sawExit bool
	for frame := 1; frame <= 4; frame++ {
		s.Step(scores)
		hmms, words := s.Counts()
		if hmms == 0 {
			t.Fatalf("frame %d: 0 live HMMs, want at least one", frame)
		}
		if words > 0 {
			sawExit = true
		}
	}
	if !sawExit {
		t.Fatal("no word exit emitted across 4 frames, want one for \"hello\"")
	}

	n := bpTable.Len()
	if n == 0 {
		t.Fatal("bpTable has no entries besides <s>, want a \"hello\" exit")
	}
	last := bpTable.Get(bp.Index(n - 1))
	if last.Word != hello {
		t.Errorf("last bpTable entry word = %v, want hello (%v)", last.Word, hello)
	}
	if last.Frame != 4 {
		t.Errorf("last bpTable entry frame = %d, want 4", last.Frame)
	}
	if last.StartFrame != 0 {
		t.Errorf("last bpTable entry StartFrame = %d, want 0 (the word's first phone's entry frame)", last.StartFrame)
	}
	if math.IsInf(last.Score, -1) {
		t.Error("last bpTable entry score is -Inf, want a finite Viterbi score")
	}
}

func TestSearch_StartUtt_SeedsStartWordAtFrameZero(t *testing.T) {
	t.Parallel()
	s, dict, bpTable := newTestSearch(t)
	hello, _ := dict.Lookup("hello")

	s.StartUtt(map[int][]model.WordID{0: {hello}})

	if n := bpTable.Len(); n != 1 {
		t.Fatalf("bpTable has %d entries after StartUtt, want 1 (<s>)", n)
	}
	start := bpTable.Get(bp.Index(0))
	if start.Word != dict.StartWordID() {
		t.Errorf("seeded entry word = %v, want <s>", start.Word)
	}
	if len(s.active) != 1 {
		t.Fatalf("active instances after StartUtt = %d, want 1 (hello's phone 0)", len(s.active))
	}
}
