// Package endpointer implements spec.md §4.7: a WebRTC-style frame-level
// voice-activity classifier plus a sliding-window hysteresis endpointer on
// top of it, with a pluggable clock for timestamping segments.
package endpointer

import "errors"

// Aggressiveness selects how readily the classifier calls a frame speech
// (spec.md §4.7 "four aggressiveness levels 0-3"); higher values bias
// toward fewer false positives at the cost of missed onsets.
type Aggressiveness int

const (
	Quality Aggressiveness = iota
	LowBitrate
	Aggressive
	VeryAggressive
)

// supportedRates and supportedFrameMs mirror the WebRTC VAD's fixed
// combinations; Config.resolve snaps a caller's request to the closest one.
var supportedRates = []int{8000, 16000, 32000, 48000}
var supportedFrameMs = []int{10, 20, 30}

// Config configures a [VAD]/[Endpointer] pair.
type Config struct {
	SampleRate     int
	FrameMs        int
	Aggressiveness Aggressiveness

	// Window is the sliding window length in frames (spec.md default ~30,
	// "300ms"); Ratio is the in-window speech fraction that triggers a
	// state transition.
	Window int
	Ratio  float64

	// Clock, if non-nil, supplies segment timestamps in seconds given a
	// sample count, letting an external audio clock drive them instead of
	// a pure sample-count/sample-rate division (spec.md "the latter lets
	// an external audio clock drive timestamps so they do not drift
	// relative to wall time").
	Clock func(samples int64) float64
}

// resolve snaps SampleRate/FrameMs to the supported combination closest to
// what was requested, and fills in default Window/Ratio. Callers must
// query FrameSize/FrameMs after construction rather than assume their
// request was honored verbatim (spec.md "callers must always query the
// actual frame size/length after construction").
func (c Config) resolve() Config {
	out := c
	out.SampleRate = closest(supportedRates, c.SampleRate)
	out.FrameMs = closest(supportedFrameMs, c.FrameMs)
	if out.Window <= 0 {
		out.Window = 30
	}
	if out.Ratio <= 0 {
		out.Ratio = 0.9
	}
	return out
}

func closest(options []int, want int) int {
	best := options[0]
	bestDiff := abs(want - best)
	for _, o := range options[1:] {
		if d := abs(want - o); d < bestDiff {
			best, bestDiff = o, d
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

var ErrShortFrame = errors.New("endpointer: frame shorter than FrameSize")
