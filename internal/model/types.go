// Package model defines the shared data-model contracts of spec.md §3 and
// §6: senones, triphones, the model-definition table, and the dictionary.
// Concrete on-disk readers (acoustic-model means/vars/mixture-weights, the
// binary model-definition file, the dictionary text format) are declared
// out of scope by spec.md §1 — this package pins down only the narrow
// contract the recognition core actually relies on, plus small in-memory
// implementations used by tests and the reference fixtures under testdata.
package model

// SenoneID indexes into the shared pool of tied HMM states (spec.md §3).
type SenoneID int32

// SSID is a senone-sequence id: identifies the ordered tuple of senones
// belonging to one phone's HMM.
type SSID int32

// WordID indexes into the dictionary's dense word-id space.
type WordID int32

// NoWord is the sentinel WordID for "no word" / root contexts.
const NoWord WordID = -1

// CIPhoneID indexes into the small (~40 entry) context-independent phone set.
type CIPhoneID int16

// WordPosition classifies a triphone's position within its word, per
// spec.md §3.
type WordPosition int8

const (
	PositionInternal WordPosition = iota
	PositionBegin
	PositionEnd
	PositionSingle
)

// Triphone is a context-dependent phone: a base phone plus left/right
// context phones and a word position. The core treats it as an opaque key
// into the model-definition table; it never inspects the context phones
// directly except to look up the corresponding SSID.
type Triphone struct {
	Base     CIPhoneID
	Left     CIPhoneID
	Right    CIPhoneID
	Position WordPosition
}

// CIPhoneNone marks an absent (word-boundary) context in a Triphone.
const CIPhoneNone CIPhoneID = -1

// MdefTable is the model-definition table contract: it maps triphones (and
// bare CI phones) to senone-sequence ids, and ssids to their senone tuples
// and transition-matrix id. This is the in-scope contract for the
// out-of-scope model-definition file reader of spec.md §6.
type MdefTable interface {
	// NumCIPhones returns the number of context-independent base phones.
	NumCIPhones() int

	// CIPhoneName returns the textual name of a CI phone (e.g. "AA", "SIL").
	CIPhoneName(p CIPhoneID) string

	// LookupCI returns the ssid for a bare CI phone (used by the phone-loop
	// prefilter and allphone search, which never need cross-word context).
	LookupCI(p CIPhoneID) SSID

	// Lookup returns the ssid for a fully specified triphone. ok is false
	// when the exact context is not modelled and a fallback (e.g. the CI
	// phone's ssid) should be used by the caller.
	Lookup(t Triphone) (ssid SSID, ok bool)

	// Senones returns the ordered tuple of senones for one ssid's HMM
	// states (3 or 5 states depending on topology).
	Senones(s SSID) []SenoneID

	// TransitionMatrix returns the transition-matrix id associated with an
	// ssid; several ssids commonly share one tied transition matrix.
	TransitionMatrix(s SSID) int32

	// NumSenones returns the total size of the shared senone pool.
	NumSenones() int
}

// DictEntry is one dictionary entry: a pronunciation plus flags (spec.md
// §3, §6).
type DictEntry struct {
	Word       string
	BaseWord   WordID // points to self for the canonical pronunciation
	Pron       []CIPhoneID
	IsFiller   bool
	IsAlt      bool // true for "WORD(2)"-style alternate pronunciations
}

// Dictionary is the word-id <-> pronunciation contract of spec.md §3/§6.
// Words may be added at runtime; ids stay dense (spec.md §3 "Ownership").
type Dictionary interface {
	// NumWords returns the current number of dense word ids.
	NumWords() int

	// Word returns the entry for id, or ok=false if id is out of range.
	Word(id WordID) (DictEntry, bool)

	// Lookup resolves a word's canonical spelling to its WordID, or
	// ok=false if the word is unknown.
	Lookup(word string) (WordID, bool)

	// StartWordID, EndWordID and SilenceWordID return the dictionary's
	// fixed <s>, </s> and silence word ids (spec.md §4.4 "first-class
	// backpointers").
	StartWordID() WordID
	EndWordID() WordID
	SilenceWordID() WordID

	// AddWord appends a new word at the next dense id and returns it
	// (spec.md §3 "Words may be added at runtime").
	AddWord(entry DictEntry) WordID

	// RemoveWord removes a previously added word, restoring prior ids'
	// validity but not necessarily prior density (spec.md §8 "Dictionary
	// add" round-trip property: removing a word restores behavior for
	// inputs that never referenced it).
	RemoveWord(id WordID) bool

	// IsFiller reports whether id names a filler/silence word (spec.md
	// §4.4 "Filler words and silence are first-class backpointers").
	IsFiller(id WordID) bool
}
