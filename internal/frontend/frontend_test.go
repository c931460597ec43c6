package frontend_test

import (
	"testing"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/frontend"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := frontend.DefaultConfig(16000)
	cfg.FFTSize = 100 // not a power of two
	if _, err := frontend.New(cfg); err == nil {
		t.Error("New with non-power-of-two FFT size: want error, got nil")
	}
}

func TestFrontEnd_Process_EmitsFramesOfExpectedShape(t *testing.T) {
	t.Parallel()
	cfg := frontend.DefaultConfig(16000)
	cfg.Dither = false
	fe, err := frontend.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// One second of silence: plenty of frames at a 10ms shift.
	samples := make([]int16, 16000)
	frames, consumed := fe.Process(samples)
	if consumed != len(samples) {
		t.Errorf("Process consumed %d samples, want %d", consumed, len(samples))
	}
	frames = append(frames, fe.EndUtt()...)

	if len(frames) == 0 {
		t.Fatal("Process+EndUtt produced zero frames for 1s of audio")
	}
	for i, f := range frames {
		if got := len(f.Static); got != cfg.NumCepstra {
			t.Fatalf("frame %d Static has %d cepstra, want %d", i, got, cfg.NumCepstra)
		}
		if got := len(f.Vector()); got != 3*cfg.NumCepstra {
			t.Fatalf("frame %d Vector() has %d dims, want %d", i, got, 3*cfg.NumCepstra)
		}
		if f.Index != i {
			t.Errorf("frame %d Index = %d, want %d (frames must be contiguously indexed)", i, f.Index, i)
		}
	}
}

func TestFrontEnd_Process_ShortInputNeverFails(t *testing.T) {
	t.Parallel()
	cfg := frontend.DefaultConfig(16000)
	fe, err := frontend.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	frames, consumed := fe.Process([]int16{1, 2, 3})
	if consumed != 3 {
		t.Errorf("Process consumed %d samples, want 3", consumed)
	}
	if len(frames) != 0 {
		t.Errorf("Process(3 samples) produced %d frames, want 0 (buffered as overflow)", len(frames))
	}
}

func TestFrontEnd_WithoutDither_IsDeterministic(t *testing.T) {
	t.Parallel()
	cfg := frontend.DefaultConfig(16000)
	cfg.Dither = false

	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = int16((i * 37) % 1000)
	}

	feA, err := frontend.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	feB, err := frontend.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	framesA, _ := feA.Process(samples)
	framesA = append(framesA, feA.EndUtt()...)
	framesB, _ := feB.Process(samples)
	framesB = append(framesB, feB.EndUtt()...)

	if len(framesA) != len(framesB) {
		t.Fatalf("frame counts differ: %d vs %d", len(framesA), len(framesB))
	}
	for i := range framesA {
		va, vb := framesA[i].Vector(), framesB[i].Vector()
		for d := range va {
			if va[d] != vb[d] {
				t.Fatalf("frame %d dim %d differs without dither: %v vs %v", i, d, va[d], vb[d])
			}
		}
	}
}

func TestFrontEnd_CMNMean_SurvivesStartUttButNotResetCMN(t *testing.T) {
	t.Parallel()
	cfg := frontend.DefaultConfig(16000)
	cfg.CMN = true
	fe, err := frontend.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16((i % 500) - 250)
	}
	fe.Process(samples)
	fe.EndUtt()

	meanAfterUtt := append([]float64(nil), fe.CMNMean()...)

	fe.StartUtt()
	if got := fe.CMNMean(); !equalFloat64(got, meanAfterUtt) {
		t.Errorf("CMNMean changed across StartUtt: %v -> %v, want preserved", meanAfterUtt, got)
	}

	fe.ResetCMN()
	reset := fe.CMNMean()
	for i, v := range reset {
		if v != cfg.CMNInitMean {
			t.Errorf("CMNMean()[%d] after ResetCMN = %v, want init mean %v", i, v, cfg.CMNInitMean)
		}
	}
}

func equalFloat64(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
