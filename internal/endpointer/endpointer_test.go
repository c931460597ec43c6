package endpointer_test

import (
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/endpointer"
	"pgregory.net/rapid"
)

func TestConfig_Resolve_SnapsToSupportedCombination(t *testing.T) {
	t.Parallel()
	vad := endpointer.NewVAD(endpointer.Config{SampleRate: 44100, FrameMs: 25})
	if got := vad.SampleRate(); got != 48000 {
		t.Errorf("SampleRate() = %d, want 48000 (closest supported)", got)
	}
	if got := vad.FrameMs(); got != 20 {
		t.Errorf("FrameMs() = %d, want 20 (25 is as close to 20 as to 30; a tie keeps the smaller option)", got)
	}
}

func TestEndpointer_ProcessFrame_RejectsShortFrames(t *testing.T) {
	t.Parallel()
	ep := endpointer.New(endpointer.Config{SampleRate: 16000, FrameMs: 20})
	short := make([]int16, ep.FrameSize()-1)
	if _, err := ep.ProcessFrame(short); err != endpointer.ErrShortFrame {
		t.Errorf("ProcessFrame(short) error = %v, want ErrShortFrame", err)
	}
}

// TestEndpointer_Deterministic checks that two independently constructed
// endpointers driven with the identical frame sequence always agree frame
// for frame: state, given a config and an input, is a pure function with
// no hidden global state (spec.md §4.7's hysteresis state machine).
func TestEndpointer_Deterministic(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		cfg := endpointer.Config{
			SampleRate:     16000,
			FrameMs:        20,
			Aggressiveness: endpointer.Aggressiveness(rapid.IntRange(0, 3).Draw(t, "aggressiveness")),
			Window:         rapid.IntRange(2, 40).Draw(t, "window"),
			Ratio:          rapid.Float64Range(0.1, 1.0).Draw(t, "ratio"),
		}

		epA := endpointer.New(cfg)
		epB := endpointer.New(cfg)
		frameSize := epA.FrameSize()

		nFrames := rapid.IntRange(1, 60).Draw(t, "nFrames")
		frames := make([][]int16, nFrames)
		for i := range frames {
			frame := make([]int16, frameSize)
			// Alternate loud/quiet bursts so both speech and non-speech
			// classifications occur across the run. The sign flips only every
			// 80 samples, keeping the zero-crossing rate low enough for a loud
			// frame to classify as speech.
			amp := int16(0)
			if rapid.Bool().Draw(t, "loud") {
				amp = 20000
			}
			for j := range frame {
				if (j/80)%2 == 0 {
					frame[j] = amp
				} else {
					frame[j] = -amp
				}
			}
			frames[i] = frame
		}

		for i, frame := range frames {
			evA, errA := epA.ProcessFrame(frame)
			evB, errB := epB.ProcessFrame(frame)
			if (errA == nil) != (errB == nil) {
				t.Fatalf("frame %d: error mismatch: %v vs %v", i, errA, errB)
			}
			if evA != evB {
				t.Fatalf("frame %d: event mismatch for identical input: %+v vs %+v", i, evA, evB)
			}
		}
	})
}

// TestEndpointer_EndStream_AlwaysClosesOpenSegment checks spec.md §4.7's
// flushing contract: after EndStream, the endpointer never reports
// InSpeech without having transitioned to Idle first.
func TestEndpointer_EndStream_AlwaysClosesOpenSegment(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		cfg := endpointer.Config{SampleRate: 16000, FrameMs: 20, Window: 5, Ratio: 0.5}
		ep := endpointer.New(cfg)
		frameSize := ep.FrameSize()

		// Sign flips every 80 samples: high energy, low zero-crossing rate,
		// so these frames classify as speech and can open a segment.
		loud := make([]int16, frameSize)
		for i := range loud {
			if (i/80)%2 == 0 {
				loud[i] = 30000
			} else {
				loud[i] = -30000
			}
		}
		n := rapid.IntRange(1, 20).Draw(t, "n")
		for i := 0; i < n; i++ {
			if _, err := ep.ProcessFrame(loud); err != nil {
				t.Fatalf("ProcessFrame: %v", err)
			}
		}

		ev, err := ep.EndStream(nil)
		if err != nil {
			t.Fatalf("EndStream: %v", err)
		}
		if ev.State == endpointer.InSpeech {
			t.Fatalf("EndStream left state InSpeech, want Idle after flush")
		}
	})
}
