package decoder

import (
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
)

func TestDecoder_Text_ElidesFillersAndUnresolvableIDs(t *testing.T) {
	t.Parallel()
	dict := model.NewMemDictionary()
	hello := dict.AddWord(model.DictEntry{Word: "hello"})
	world := dict.AddWord(model.DictEntry{Word: "world"})

	d := &Decoder{dict: dict}

	words := []model.WordID{dict.StartWordID(), hello, world, dict.EndWordID(), model.WordID(9999)}
	got := d.Text(words)
	if want := "hello world"; got != want {
		t.Errorf("Text(%v) = %q, want %q", words, got, want)
	}
}

func TestDecoder_Text_Empty(t *testing.T) {
	t.Parallel()
	dict := model.NewMemDictionary()
	d := &Decoder{dict: dict}

	if got := d.Text(nil); got != "" {
		t.Errorf("Text(nil) = %q, want empty string", got)
	}
	if got := d.Text([]model.WordID{dict.StartWordID(), dict.EndWordID()}); got != "" {
		t.Errorf("Text with only fillers = %q, want empty string", got)
	}
}

func TestDecoder_Hyp_ZeroBeforeAnyUtterance(t *testing.T) {
	t.Parallel()
	// Hyp reports zero-valued results before any utterance has finished
	// (graph/best still nil), matching EndUtt's "no reachable hypothesis"
	// condition (spec.md §7).
	dict := model.NewMemDictionary()
	d := &Decoder{dict: dict}

	text, score := d.Hyp()
	if text != "" || score != 0 {
		t.Errorf("Hyp() before any utterance = (%q, %g), want (\"\", 0)", text, score)
	}
}
