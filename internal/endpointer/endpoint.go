package endpointer

// State is the endpointer's current segment state.
type State int

const (
	Idle State = iota
	InSpeech
)

// Segment is one emitted speech region's boundary. End is zero until the
// segment closes.
type Segment struct {
	StartSeconds float64
	EndSeconds   float64
	Open         bool
}

// Event reports a frame's classification alongside any state transition
// that frame triggered.
type Event struct {
	Speech       bool
	State        State
	Transitioned bool
	StartSeconds float64 // valid when a speech segment just opened
	EndSeconds   float64 // valid when a speech segment just closed
}

// Endpointer runs the sliding-window hysteresis logic of spec.md §4.7 on
// top of a frame classifier.
type Endpointer struct {
	vad   *VAD
	cfg   Config
	ring  []bool
	pos   int
	count int // frames seen total, capped at len(ring) for fill detection
	speechInWindow int

	state      State
	samplesSeen int64
	segStart    float64
}

// New constructs an endpointer driving its own [VAD] from cfg.
func New(cfg Config) *Endpointer {
	cfg = cfg.resolve()
	return &Endpointer{
		vad:  NewVAD(cfg),
		cfg:  cfg,
		ring: make([]bool, cfg.Window),
	}
}

// FrameSize returns the classifier's required frame length in samples.
func (e *Endpointer) FrameSize() int { return e.vad.FrameSize() }

// ProcessFrame classifies one frame and applies the hysteresis state
// machine, returning what happened.
func (e *Endpointer) ProcessFrame(frame []int16) (Event, error) {
	speech, err := e.vad.Classify(frame)
	if err != nil {
		return Event{}, err
	}

	old := e.ring[e.pos]
	if old {
		e.speechInWindow--
	}
	e.ring[e.pos] = speech
	if speech {
		e.speechInWindow++
	}
	e.pos = (e.pos + 1) % len(e.ring)
	if e.count < len(e.ring) {
		e.count++
	}

	now := e.timestamp()
	e.samplesSeen += int64(e.vad.FrameSize())

	ev := Event{Speech: speech, State: e.state}
	threshold := e.cfg.Ratio * float64(len(e.ring))

	switch e.state {
	case Idle:
		if float64(e.speechInWindow) >= threshold {
			e.state = InSpeech
			e.segStart = now - float64(e.count-1)*float64(e.cfg.FrameMs)/1000.0
			ev.State = InSpeech
			ev.Transitioned = true
			ev.StartSeconds = e.segStart
		}
	case InSpeech:
		if float64(e.speechInWindow) < threshold {
			e.state = Idle
			ev.State = Idle
			ev.Transitioned = true
			ev.EndSeconds = now
		}
	}
	return ev, nil
}

// EndStream processes any remaining partial frame (zero-padded to a full
// frame) and, if a speech segment is open, closes it at the current
// position (spec.md §4.7 "Cancellation/flushing").
func (e *Endpointer) EndStream(lastPartialFrame []int16) (Event, error) {
	full := make([]int16, e.vad.FrameSize())
	copy(full, lastPartialFrame)

	ev, err := e.ProcessFrame(full)
	if err != nil {
		return ev, err
	}
	if e.state == InSpeech && !ev.Transitioned {
		e.state = Idle
		ev.State = Idle
		ev.Transitioned = true
		ev.EndSeconds = e.timestamp()
	}
	return ev, nil
}

func (e *Endpointer) timestamp() float64 {
	if e.cfg.Clock != nil {
		return e.cfg.Clock(e.samplesSeen)
	}
	return float64(e.samplesSeen) / float64(e.cfg.SampleRate)
}
