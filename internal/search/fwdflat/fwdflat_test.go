package fwdflat_test

import (
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/model"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/bp"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/search/fwdflat"
)

func TestBuildWindowWords_MarksFramesWithinWindowOfSpan(t *testing.T) {
	t.Parallel()
	table := bp.New()
	table.Append(bp.Entry{Frame: 10, Word: model.WordID(7), Predecessor: bp.NoPredecessor, StartFrame: 8})

	windows := fwdflat.BuildWindowWords(table, 2)

	for _, f := range []int{6, 7, 8, 9, 10, 11, 12} {
		words, ok := windows[f]
		if !ok || len(words) != 1 || words[0] != model.WordID(7) {
			t.Errorf("frame %d window = %v, want [7]", f, words)
		}
	}
	for _, f := range []int{5, 13} {
		if words, ok := windows[f]; ok {
			t.Errorf("frame %d window = %v, want absent (outside window)", f, words)
		}
	}
}

func TestBuildWindowWords_NegativeFramesAreDropped(t *testing.T) {
	t.Parallel()
	table := bp.New()
	table.Append(bp.Entry{Frame: 1, Word: model.WordID(3), Predecessor: bp.NoPredecessor, StartFrame: 0})

	windows := fwdflat.BuildWindowWords(table, 5)
	if _, ok := windows[-1]; ok {
		t.Error("window includes a negative frame, want frames clamped at 0")
	}
	if words := windows[0]; len(words) != 1 || words[0] != model.WordID(3) {
		t.Errorf("frame 0 window = %v, want [3]", words)
	}
}

func TestDefaultConfig_BeamsAreNegativeLogProbabilities(t *testing.T) {
	t.Parallel()
	cfg := fwdflat.DefaultConfig()
	if cfg.Beam >= 0 {
		t.Errorf("Beam = %v, want < 0 (a log probability)", cfg.Beam)
	}
	if cfg.WordBeam >= 0 {
		t.Errorf("WordBeam = %v, want < 0", cfg.WordBeam)
	}
	if cfg.Beam >= cfg.WordBeam {
		t.Errorf("Beam (%v) should be tighter (more negative) than WordBeam (%v) per spec.md §4.5's usual ordering", cfg.Beam, cfg.WordBeam)
	}
}
