package decoder

import "errors"

// ErrorKind classifies a decoder failure per spec.md §7's closed set of
// error kinds. It replaces the original implementation's E_FATAL exit.
type ErrorKind int

const (
	// ErrorKindConfiguration covers invalid beams, bad FFT sizes, unknown
	// transforms and similar init-time validation failures.
	ErrorKindConfiguration ErrorKind = iota
	// ErrorKindModelLoad covers missing files, version mismatches, and
	// dimension mismatches between the AM, mdef and dictionary.
	ErrorKindModelLoad
	// ErrorKindResource covers allocation failures with no meaningful
	// recovery.
	ErrorKindResource
	// ErrorKindInput covers zero-length audio, input before StartUtt, and
	// feeding the wrong input kind (raw PCM vs. precomputed cepstra) for
	// how the decoder was configured.
	ErrorKindInput
	// ErrorKindSearch covers "no hypothesis reachable" conditions.
	ErrorKindSearch
	// ErrorKindLattice covers requesting a lattice that doesn't exist:
	// before utterance end, or after a new utterance discarded the prior
	// one without it being retained.
	ErrorKindLattice
)

// String names the error kind, used in log fields and metric attributes.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConfiguration:
		return "configuration"
	case ErrorKindModelLoad:
		return "model_load"
	case ErrorKindResource:
		return "resource"
	case ErrorKindInput:
		return "input"
	case ErrorKindSearch:
		return "search"
	case ErrorKindLattice:
		return "lattice"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per [ErrorKind], wrapped via fmt.Errorf("...: %w", ...)
// at every call site that detects the condition (spec.md §7: "a finite
// error enum; the caller decides whether to terminate").
var (
	ErrConfiguration = errors.New("decoder: configuration error")
	ErrModelLoad     = errors.New("decoder: model load error")
	ErrResource      = errors.New("decoder: resource error")
	ErrInput         = errors.New("decoder: input error")
	ErrSearch        = errors.New("decoder: search error")
	ErrLattice       = errors.New("decoder: lattice error")
)

// sentinel returns the sentinel error for k, for code that builds errors
// generically from a computed ErrorKind.
func (k ErrorKind) sentinel() error {
	switch k {
	case ErrorKindConfiguration:
		return ErrConfiguration
	case ErrorKindModelLoad:
		return ErrModelLoad
	case ErrorKindResource:
		return ErrResource
	case ErrorKindInput:
		return ErrInput
	case ErrorKindSearch:
		return ErrSearch
	case ErrorKindLattice:
		return ErrLattice
	default:
		return ErrResource
	}
}
