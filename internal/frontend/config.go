// Package frontend implements the PCM-to-cepstra front-end of spec.md §4.1:
// framing, pre-emphasis, FFT, mel filterbank, DCT, optional noise removal,
// and running cepstral mean normalization.
package frontend

import "fmt"

// DCTType selects one of the three DCT variants spec.md §4.1 names. The
// choice is immutable for the lifetime of a [FrontEnd] (and therefore for
// one utterance, since resetting state at StartUtt never changes it).
type DCTType int

const (
	DCTLegacy DCTType = iota
	DCTTypeII
	DCTHTK
)

// WarpKind selects the frequency-warp transform composed with the mel scale.
type WarpKind int

const (
	WarpIdentity WarpKind = iota
	WarpAffine
	WarpInverseLinear
	WarpPiecewiseLinear
)

// WindowKind selects the analysis window applied before the FFT. Hamming is
// the spec default; the others are carried for parity with the filter
// window shapes used by the phone-loop/BBI filter-design tooling.
type WindowKind int

const (
	WindowHamming WindowKind = iota
	WindowHann
	WindowRectangular
)

// Config holds all front-end construction parameters (spec.md §4.1, the
// `wlen`/`nfft`/`ncep`/`nfilt`/`upperf`/`lowerf`/`transform`/`remove_noise`/
// `cmn` CLI flags of spec.md §6).
type Config struct {
	SampleRate float64 // Hz

	FrameLengthSec float64 // analysis window length, default 25.6ms
	FrameShiftSec  float64 // frame shift, default 10ms

	PreemphasisAlpha float64 // default 0.97
	Dither           bool    // ±1 lsb dither
	DitherSeed       int64

	Window WindowKind

	FFTSize int // power of two, >= samples per frame

	NumFilters int // mel filter count, default 40
	LowerFreq  float64
	UpperFreq  float64
	UnitArea   bool // normalize filter area to 1
	DoubleWide bool // double filter bandwidth

	Warp       WarpKind
	WarpParams []float64 // interpretation depends on Warp

	NumCepstra int // output cepstra count, default 13
	DCT        DCTType

	RemoveNoise bool
	CMN         bool
	CMNInitMean float64 // initial running mean per cepstrum, usually 0 (or 12 for c0)
}

// DefaultConfig returns the spec.md §4.1 defaults.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:       sampleRate,
		FrameLengthSec:   0.0256,
		FrameShiftSec:    0.01,
		PreemphasisAlpha: 0.97,
		Window:           WindowHamming,
		FFTSize:          512,
		NumFilters:       40,
		LowerFreq:        133.33,
		UpperFreq:        6855.6,
		UnitArea:         true,
		Warp:             WarpIdentity,
		NumCepstra:       13,
		DCT:              DCTLegacy,
		CMN:              true,
	}
}

// FrameSize returns the number of samples per analysis frame.
func (c Config) FrameSize() int {
	return int(c.FrameLengthSec*c.SampleRate + 0.5)
}

// FrameShift returns the number of samples advanced per frame.
func (c Config) FrameShift() int {
	return int(c.FrameShiftSec*c.SampleRate + 0.5)
}

// clampWarpParams clamps scale/offset parameters to the sane ranges spec.md
// §4.1 mandates ("Warping") rather than failing: scale in [0.1, 10], offset
// in [-Nyquist, +Nyquist]. Returns the clamped params and whether clamping
// occurred (the caller logs a warning when it did).
func (c Config) clampWarpParams() ([]float64, bool) {
	if len(c.WarpParams) == 0 {
		return c.WarpParams, false
	}
	nyquist := c.SampleRate / 2
	out := append([]float64(nil), c.WarpParams...)
	clamped := false
	if len(out) >= 1 {
		if out[0] < 0.1 {
			out[0] = 0.1
			clamped = true
		} else if out[0] > 10 {
			out[0] = 10
			clamped = true
		}
	}
	if len(out) >= 2 {
		if out[1] < -nyquist {
			out[1] = -nyquist
			clamped = true
		} else if out[1] > nyquist {
			out[1] = nyquist
			clamped = true
		}
	}
	return out, clamped
}

// Validate checks the static configuration errors spec.md §4.1/§7
// (Configuration kind) names: frame size above FFT size, non-power-of-two
// FFT, upper band above Nyquist.
func (c Config) Validate() error {
	frameSize := c.FrameSize()
	if frameSize <= 0 {
		return fmt.Errorf("frontend: frame length %gs at %gHz yields zero samples", c.FrameLengthSec, c.SampleRate)
	}
	if c.FFTSize <= 0 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("frontend: fft size %d is not a power of two", c.FFTSize)
	}
	if frameSize > c.FFTSize {
		return fmt.Errorf("frontend: frame size %d exceeds fft size %d", frameSize, c.FFTSize)
	}
	nyquist := c.SampleRate / 2
	if c.UpperFreq > nyquist {
		return fmt.Errorf("frontend: upper band %g exceeds Nyquist %g", c.UpperFreq, nyquist)
	}
	if c.NumCepstra <= 0 || c.NumCepstra > c.NumFilters {
		return fmt.Errorf("frontend: ncep %d must be in (0, nfilt=%d]", c.NumCepstra, c.NumFilters)
	}
	switch c.Warp {
	case WarpIdentity, WarpAffine, WarpInverseLinear, WarpPiecewiseLinear:
	default:
		return fmt.Errorf("frontend: unknown warp transform %d", c.Warp)
	}
	return nil
}
